// Package session holds volatile per-user narrative state. Sessions live in
// process memory only; durable score is the scoring gateway's concern.
package session

import (
	"errors"
	"sync"
)

// ErrNoSession is returned by Update when the user has no active session.
var ErrNoSession = errors.New("session: no active session")

// Session is the per-user narrative state. One active session per user;
// starting a chapter discards any previous session.
type Session struct {
	ChapterID string
	Part      int
	Score     int
	Correct   int
	Asked     int
	// ScoreName is the durable identity used by the scoring gateway.
	ScoreName string
	// ShownMedia records media files already delivered in this session so the
	// renderer does not send the same file twice.
	ShownMedia map[string]bool
}

func (s *Session) clone() Session {
	out := *s
	out.ShownMedia = make(map[string]bool, len(s.ShownMedia))
	for k, v := range s.ShownMedia {
		out.ShownMedia[k] = v
	}
	return out
}

// Store manages sessions keyed by Telegram user ID.
type Store interface {
	Start(userID int64, chapterID, scoreName string) Session
	Get(userID int64) (Session, bool)
	Update(userID int64, fn func(*Session)) error
	Clear(userID int64)
	InProgress(userID int64) bool
}

// MemoryStore is the in-memory Store implementation. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Start creates a fresh session at part 0 with zeroed counters, overwriting
// any prior session for the user.
func (m *MemoryStore) Start(userID int64, chapterID, scoreName string) Session {
	s := &Session{
		ChapterID:  chapterID,
		ScoreName:  scoreName,
		ShownMedia: make(map[string]bool),
	}
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return s.clone()
}

// Get returns a copy of the user's session, if any.
func (m *MemoryStore) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Update applies fn to the live session under the store lock, so index and
// score mutations land as one transition.
func (m *MemoryStore) Update(userID int64, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return ErrNoSession
	}
	fn(s)
	return nil
}

// Clear ends the user's session.
func (m *MemoryStore) Clear(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// InProgress reports whether the user has an active session.
func (m *MemoryStore) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok
}
