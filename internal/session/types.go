// Package session maintains chat sessions and their message histories.
//
// A Session groups one continuous conversation's messages under an opaque
// id. Sessions are never deleted and ids are never reused; clearing a
// session truncates its history but keeps the id and nickname. Two store
// engines are provided: an in-memory store and a SQLite-backed store that
// writes through on every mutation.
package session

import "github.com/google/uuid"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Attachment describes a file attached to a message. Content holds the
// extracted text when extraction succeeded; URL references a stored copy
// of the original bytes when one exists.
type Attachment struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Message is a single conversation turn. Messages are immutable once
// appended; ordering within a session is strictly insertion order.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Session identifies one conversation. Nickname is an optional
// human-readable display name.
type Session struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname,omitempty"`
}

// NewID generates a new globally unique session or message id.
// UUIDv4 carries 122 bits of randomness, so collision probability
// is negligible.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed session id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
