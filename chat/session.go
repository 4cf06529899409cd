package chat

import "sync"

// Session is the identity of the joined room.
type Session struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// SessionEcho is the session object that rides along with every
// send_message payload. Receivers ignore it.
type SessionEcho struct {
	RoomID    string `json:"roomId"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// SessionStore holds the current Session. It is owned by whoever drives the
// join flow and passed explicitly to the views that read it.
type SessionStore struct {
	mu      sync.RWMutex
	session Session
	joined  bool
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Set overwrites the stored session.
func (s *SessionStore) Set(session Session) {
	s.mu.Lock()
	s.session = session
	s.joined = true
	s.mu.Unlock()
}

// Current returns the stored session and whether a join has happened.
func (s *SessionStore) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.joined
}
