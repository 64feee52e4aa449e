package session

import (
	"context"
	"sync"
)

// sessionRecord holds a session and its message history.
type sessionRecord struct {
	session  Session
	messages []Message
}

// MemoryStore is an in-memory Store implementation.
//
// It is the engine used in tests and when no data path is configured.
// MemoryStore is safe for concurrent access; it uses a read-write mutex
// to allow concurrent reads while serializing writes.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	order    []string // registration order, for stable listing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionRecord),
	}
}

// CreateSession registers a new session with a fresh id.
func (s *MemoryStore) CreateSession(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ids are random UUIDs; regenerate on the (negligible) chance of a
	// collision so an id is never bound to two logical conversations.
	id := NewID()
	for _, exists := s.sessions[id]; exists; _, exists = s.sessions[id] {
		id = NewID()
	}

	sess := Session{ID: id}
	s.sessions[id] = &sessionRecord{session: sess}
	s.order = append(s.order, id)
	return sess, nil
}

// GetSession returns the session with the given id.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return rec.session, nil
}

// ListSessions returns all registered sessions in registration order.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].session)
	}
	return out, nil
}

// SetNickname associates a display name with a session.
func (s *MemoryStore) SetNickname(ctx context.Context, id, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.session.Nickname = nickname
	return nil
}

// Messages returns a copy of the session's message list.
// The returned slice is safe to modify without affecting the store.
func (s *MemoryStore) Messages(ctx context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]Message, len(rec.messages))
	copy(out, rec.messages)
	return out, nil
}

// AppendMessage adds a message to the tail of the session's history.
func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = NewID()
	}
	rec.messages = append(rec.messages, msg)
	return nil
}

// ClearHistory truncates the session's message list to empty.
func (s *MemoryStore) ClearHistory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.messages = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
