// Package assistant provides a client for a job-oriented hosted assistant
// API (threads, runs, messages) and the polling protocol that converts an
// asynchronous remote run into a single bounded-latency reply.
package assistant

// Default configuration constants
const (
	// DefaultBaseURL is the assistant API endpoint, including version prefix.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds individual API requests, not the whole poll loop.
	DefaultTimeout = 30 // seconds
)

// Run statuses reported by the remote service. A run starts queued, moves
// to in_progress, and ends in exactly one terminal state.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
	StatusExpired    = "expired"
)

// IsTerminal reports whether a run status admits no further transitions.
// Unknown statuses are treated as non-terminal; the attempt budget bounds
// how long we wait on them.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Thread is a remote conversation context.
type Thread struct {
	ID string `json:"id"`
}

// Run is one execution of the assistant against a thread.
type Run struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Status    string        `json:"status"`
	LastError *RunLastError `json:"last_error,omitempty"`
}

// RunLastError carries the remote diagnostic for a failed run.
type RunLastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageText is the text payload of a content block.
type MessageText struct {
	Value string `json:"value"`
}

// ContentBlock is one element of a thread message's content. Only text
// blocks are extracted; other block types are ignored.
type ContentBlock struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// ThreadMessage is a single turn stored in a remote thread.
type ThreadMessage struct {
	ID      string         `json:"id"`
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Turn is one prior conversation turn supplied by the caller.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageList is the wire shape of the thread message listing.
// Entries are ordered newest first.
type messageList struct {
	Data []ThreadMessage `json:"data"`
}

// apiError is the wire shape of an API error body.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// transcription is the wire shape of a transcription response.
type transcription struct {
	Text string `json:"text"`
}
