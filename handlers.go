package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// App dispatches operator commands against the store selected by the session.
type App struct {
	resolver      *StoreResolver
	remoteDefault ConnectionConfig
	logger        *zap.Logger
	newID         func() string
}

// NewApp creates the command dispatcher. remoteDefault pre-fills the host and
// port inputs while a session is still on the Local connection.
func NewApp(resolver *StoreResolver, remoteDefault ConnectionConfig, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if remoteDefault.Host == "" {
		remoteDefault.Host = DefaultRemoteHost
	}
	if remoteDefault.Port == 0 {
		remoteDefault.Port = DefaultRemotePort
	}
	remoteDefault.Mode = HostRemote
	return &App{
		resolver:      resolver,
		remoteDefault: remoteDefault,
		logger:        logger,
		newID:         uuid.NewString,
	}
}

// Command is one discrete operator action.
type Command interface {
	Name() string
}

type SelectConnection struct{ Config ConnectionConfig }

type SetDangerMode struct{ Enabled bool }

type SelectCollection struct{ Collection string }

type SelectTab struct{ Tab string }

type CreateCollection struct{ Collection string }

type DeleteCollection struct{ Collection string }

type AddDocument struct {
	Content       string
	MetadataKey   string
	MetadataValue string
}

func (SelectConnection) Name() string { return "select_connection" }
func (SetDangerMode) Name() string    { return "set_danger_mode" }
func (SelectCollection) Name() string { return "select_collection" }
func (SelectTab) Name() string        { return "select_tab" }
func (CreateCollection) Name() string { return "create_collection" }
func (DeleteCollection) Name() string { return "delete_collection" }
func (AddDocument) Name() string      { return "add_document" }

// Outcome describes what a command did.
type Outcome struct {
	Command    string
	Notice     Notice
	Err        error
	DocumentID string
}

// Dispatch applies cmd to state and returns the new state. Errors never
// escape: they are turned into an error notice and the action is abandoned,
// leaving the returned state equal to the input apart from that notice.
func (a *App) Dispatch(ctx context.Context, state SessionState, cmd Command) (SessionState, Outcome) {
	out := Outcome{Command: cmd.Name()}
	next := state
	var msg string

	switch c := cmd.(type) {
	case SelectConnection:
		if out.Err = c.Config.Validate(); out.Err == nil {
			next = state.WithConnection(c.Config)
			msg = ConnectionUpdatedMsg
		}

	case SetDangerMode:
		next = state.WithDangerMode(c.Enabled)
		msg = DangerDisabledMsg
		if c.Enabled {
			msg = DangerEnabledMsg
		}

	case SelectCollection:
		next = state.WithSelectedCollection(c.Collection)

	case SelectTab:
		next = state.WithTab(c.Tab)

	case CreateCollection:
		if out.Err = a.createCollection(ctx, state, c.Collection); out.Err == nil {
			msg = CollectionCreatedMsg
		}

	case DeleteCollection:
		if out.Err = a.deleteCollection(ctx, state, c.Collection); out.Err == nil {
			msg = CollectionDeletedMsg
			if state.SelectedCollection == c.Collection {
				next = state.WithSelectedCollection("")
			}
		}

	case AddDocument:
		if out.DocumentID, out.Err = a.submitDocument(ctx, state, c); out.Err == nil {
			msg = DocumentAddedMsg
			next = state.WithTab(TabDocuments)
		}

	default:
		out.Err = validationErr("command", "unsupported command "+cmd.Name())
	}

	switch {
	case out.Err != nil:
		out.Notice = Notice{Level: NoticeError, Text: describeError(out.Err)}
		next = state.WithNotice(out.Notice)
		a.logger.Warn("command failed",
			zap.String("session", state.ID), zap.String("command", out.Command), zap.Error(out.Err))
	case msg != "":
		out.Notice = Notice{Level: NoticeSuccess, Text: msg}
		next = next.WithNotice(out.Notice)
		a.logger.Info("command applied",
			zap.String("session", state.ID), zap.String("command", out.Command),
			zap.String("connection", state.Connection.Address()))
	}
	return next, out
}

// describeError renders an error as the inline message the operator sees.
func describeError(err error) string {
	var ve *ValidationError
	var ce *ConnectionError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ce):
		return ConnectErrorMsgPrefix + ce.Error()
	case errors.Is(err, ErrDangerModeDisabled):
		return err.Error()
	}
	return "Error: " + err.Error()
}
