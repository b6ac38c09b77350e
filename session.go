package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// NoticeLevel is the severity of an inline message.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is an inline message shown once on the next render.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// SessionState is the per-operator state carried between interactions.
// It is a value: the With* methods return modified copies and never touch
// the receiver, so a handler can only change state by returning a new one.
type SessionState struct {
	ID                 string
	Connection         ConnectionConfig
	DangerMode         bool
	SelectedCollection string
	Tab                string
	Notices            []Notice
}

// NewSessionState returns the state of a fresh session: Local connection,
// danger mode disabled, nothing selected.
func NewSessionState() SessionState {
	return SessionState{
		ID:         uuid.NewString(),
		Connection: LocalConnection(),
		Tab:        TabDocuments,
	}
}

func (s SessionState) WithConnection(conn ConnectionConfig) SessionState {
	s.Connection = conn
	// a different store has different collections
	s.SelectedCollection = ""
	return s
}

func (s SessionState) WithDangerMode(enabled bool) SessionState {
	s.DangerMode = enabled
	return s
}

func (s SessionState) WithSelectedCollection(name string) SessionState {
	s.SelectedCollection = name
	return s
}

func (s SessionState) WithTab(tab string) SessionState {
	if tab != TabAdd {
		tab = TabDocuments
	}
	s.Tab = tab
	return s
}

// WithNotice appends a notice on a copy of the notice slice.
func (s SessionState) WithNotice(n Notice) SessionState {
	notices := make([]Notice, 0, len(s.Notices)+1)
	notices = append(notices, s.Notices...)
	s.Notices = append(notices, n)
	return s
}

// TakeNotices returns the pending notices and a state without them.
func (s SessionState) TakeNotices() ([]Notice, SessionState) {
	notices := s.Notices
	s.Notices = nil
	return notices, s
}

// SessionStore keeps session states in memory with a sliding expiry. States
// are never shared between sessions or written to disk.
type SessionStore struct {
	cache *cache.Cache
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTLMinutes * time.Minute
	}
	return &SessionStore{cache: cache.New(ttl, ttl/6)}
}

// Load returns the state stored for id, or a fresh state with a new id when
// the session is unknown or expired.
func (s *SessionStore) Load(id string) SessionState {
	if id != "" {
		if x, found := s.cache.Get(id); found {
			return x.(SessionState)
		}
	}
	return NewSessionState()
}

// Save stores state under its id and restarts its expiry.
func (s *SessionStore) Save(state SessionState) {
	s.cache.Set(state.ID, state, cache.DefaultExpiration)
}

// Delete forgets a session.
func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}
