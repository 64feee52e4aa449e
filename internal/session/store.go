package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID indicates the provided session ID is malformed.
	ErrInvalidID = errors.New("invalid session ID")
)

// Store is the repository interface for sessions and their histories.
// Implementations must be safe for concurrent use from HTTP handlers.
//
// Mutations are write-through: once a call returns, the change is durable
// to the extent the engine allows (immediately visible for the in-memory
// store, committed to disk for the SQLite store).
type Store interface {
	// CreateSession registers a new session with a fresh unique id and an
	// empty message list.
	CreateSession(ctx context.Context) (Session, error)

	// GetSession returns the session with the given id.
	// Returns ErrNotFound if the id is not registered.
	GetSession(ctx context.Context, id string) (Session, error)

	// ListSessions returns all registered sessions with their nicknames.
	ListSessions(ctx context.Context) ([]Session, error)

	// SetNickname associates a display name with a session.
	SetNickname(ctx context.Context, id, nickname string) error

	// Messages returns the ordered message list for a session.
	// A registered session with no messages yields an empty slice.
	Messages(ctx context.Context, id string) ([]Message, error)

	// AppendMessage adds a message to the tail of a session's history.
	// If the message has no ID, one is assigned.
	AppendMessage(ctx context.Context, id string, msg Message) error

	// ClearHistory truncates a session's message list to empty.
	// The session id and nickname survive.
	ClearHistory(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
