package main

import (
	"context"
	"encoding/json"
	"slices"

	"go.uber.org/zap"
)

// DocumentView is one collapsible entry of the Documents tab.
type DocumentView struct {
	Document
	MetadataJSON string
}

// View is everything a surface needs to draw the page for one session.
type View struct {
	SessionID     string
	Connection    ConnectionConfig
	DangerMode    bool
	Tab           string
	Notices       []Notice
	Connected     bool
	Collections   []string
	Selected      string
	Documents     []DocumentView
	EmptyNotice   string
	DocsNotice    string
	CanDelete     bool
	CanExport     bool
	RemoteHost    string
	RemotePort    int
	ServerName    string
	ServerVersion string
}

// Render resolves the session's store, lists collections, picks the selected
// one and loads its documents. Store calls run sequentially; a failure ends
// the render with an error notice. The returned state has its pending
// notices consumed and its selection normalised.
func (a *App) Render(ctx context.Context, state SessionState) (View, SessionState) {
	notices, state := state.TakeNotices()
	view := View{
		SessionID:     state.ID,
		Connection:    state.Connection,
		DangerMode:    state.DangerMode,
		CanDelete:     state.DangerMode,
		Tab:           state.Tab,
		Notices:       notices,
		RemoteHost:    state.Connection.Host,
		RemotePort:    state.Connection.Port,
		ServerName:    ServerName,
		ServerVersion: ServerVersion,
	}
	if view.Tab == "" {
		view.Tab = TabDocuments
	}
	if state.Connection.Mode != HostRemote {
		view.RemoteHost, view.RemotePort = a.remoteDefault.Host, a.remoteDefault.Port
	}

	fail := func(err error) (View, SessionState) {
		view.Notices = append(view.Notices, Notice{Level: NoticeError, Text: describeError(err)})
		a.logger.Warn("render failed", zap.String("session", state.ID), zap.Error(err))
		return view, state
	}

	client, err := a.resolver.Resolve(ctx, state.Connection)
	if err != nil {
		return fail(err)
	}
	view.Connected = true

	names, err := a.listCollections(ctx, client)
	if err != nil {
		return fail(err)
	}
	view.Collections = names
	if len(names) == 0 {
		view.EmptyNotice = NoCollectionsMsg
		return view, state.WithSelectedCollection("")
	}
	view.CanExport = true

	selected := state.SelectedCollection
	if !slices.Contains(names, selected) {
		selected = names[0]
	}
	state = state.WithSelectedCollection(selected)
	view.Selected = selected

	col, err := client.GetCollection(ctx, selected)
	if err != nil {
		return fail(err)
	}
	docs, err := a.getDocuments(ctx, col)
	if err != nil {
		return fail(err)
	}
	if len(docs) == 0 {
		view.DocsNotice = NoDocumentsMsg
	}
	for _, d := range docs {
		view.Documents = append(view.Documents, DocumentView{Document: d, MetadataJSON: metadataJSON(d.Metadata)})
	}
	return view, state
}

// listCollections returns the current set of collection names.
func (a *App) listCollections(ctx context.Context, client StoreClient) ([]string, error) {
	names, err := client.ListCollections(ctx)
	if err != nil {
		return nil, storeErr("list collections", err)
	}
	return names, nil
}

// getDocuments returns all documents in the order the store returned them.
func (a *App) getDocuments(ctx context.Context, col CollectionHandle) ([]Document, error) {
	res, err := col.Get(ctx)
	if err != nil {
		return nil, storeErr("get documents", err)
	}
	return res.Entries(), nil
}

func metadataJSON(m Metadata) string {
	if m == nil {
		m = Metadata{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
