package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hurricanerix/parley/internal/assistant"
	"github.com/hurricanerix/parley/internal/session"
)

// chatRequest is the body of POST /api/chat. FileName and FileType carry
// the uploaded file's metadata alongside its extracted content so the
// stored attachment names the file and its declared type.
type chatRequest struct {
	Message     string           `json:"message"`
	FileContent string           `json:"fileContent,omitempty"`
	FileName    string           `json:"fileName,omitempty"`
	FileType    string           `json:"fileType,omitempty"`
	History     []assistant.Turn `json:"history,omitempty"`
}

// chatResponse is the body of a successful POST /api/chat.
type chatResponse struct {
	Reply string `json:"reply"`
}

// errorReply is stored as the assistant's turn when a request fails, so that
// the conversation history stays coherent after an error.
const errorReply = "I'm sorry, there was an error processing your message. Please try again."

// handleChat relays a user message to the remote assistant and returns the
// assistant's reply. The user message and the reply (or an error placeholder)
// are appended to the current conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	// SECURITY: Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	// SECURITY: Check rate limit
	if !s.rateLimiter.allowChat(sessionID) {
		s.logger.Warn("Rate limit exceeded for session %s (chat)", sessionID)
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeError(w, http.StatusBadRequest, "invalid message")
		return
	}

	// SECURITY: Validate message length
	if len(message) > MaxMessageLength {
		s.logger.Warn("Message too long for session %s: %d bytes", sessionID, len(message))
		s.writeError(w, http.StatusRequestEntityTooLarge, "message too long")
		return
	}

	// Malformed history is an input error, caught before any state changes.
	for _, turn := range req.History {
		if turn.Role != session.RoleUser && turn.Role != session.RoleAssistant {
			s.writeError(w, http.StatusBadRequest, "invalid history role")
			return
		}
	}

	// One outstanding assistant run per conversation. A second request while
	// the first is still polling would interleave turns in the history.
	if !s.beginChat(sessionID) {
		s.writeError(w, http.StatusConflict, "a message is already being processed for this conversation")
		return
	}
	defer s.endChat(sessionID)

	// Clients may send their own view of the history; if absent, replay the
	// server-side conversation so the assistant has full context.
	history := req.History
	if history == nil {
		var err error
		history, err = s.historyTurns(r.Context(), sessionID)
		if err != nil {
			s.logger.Error("Failed to load history for session %s: %v", sessionID, err)
			s.writeError(w, http.StatusInternalServerError, "error processing chat request")
			return
		}
	}

	// Record the user turn before calling out, so it survives a failure.
	userMsg := session.Message{Role: session.RoleUser, Content: message}
	if req.FileContent != "" {
		attachType := req.FileType
		if attachType == "" {
			attachType = "file"
		}
		userMsg.Attachments = []session.Attachment{{
			Type:    attachType,
			Name:    req.FileName,
			Content: req.FileContent,
		}}
	}
	if err := s.store.AppendMessage(r.Context(), sessionID, userMsg); err != nil {
		s.logger.Error("Failed to store user message for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusInternalServerError, "error processing chat request")
		return
	}

	reply, err := s.assistant.AwaitReply(r.Context(), assistant.Request{
		Message:     message,
		FileContent: req.FileContent,
		History:     history,
	}, s.pollCfg)
	if err != nil {
		// SECURITY: Log full error server-side but send generic message to client
		s.logger.Error("Assistant error for session %s: %v", sessionID, err)
		s.storeAssistantTurn(r, sessionID, errorReply)

		var runErr *assistant.RunFailure
		switch {
		case errors.Is(err, assistant.ErrPollTimeout):
			s.writeError(w, http.StatusInternalServerError, "assistant response timed out")
		case errors.As(err, &runErr):
			s.writeError(w, http.StatusInternalServerError, "error processing request with assistant")
		default:
			s.writeError(w, http.StatusInternalServerError, "error processing chat request")
		}
		return
	}

	s.storeAssistantTurn(r, sessionID, reply)
	s.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// storeAssistantTurn appends an assistant message to the conversation.
// Storage failures here are logged but do not fail the request; the reply
// (or error) has already been determined. The append deliberately outlives
// the request context: when the client disconnected mid-poll, the error
// placeholder must still land so the history is not left with a dangling
// user turn.
func (s *Server) storeAssistantTurn(r *http.Request, sessionID, content string) {
	ctx := context.WithoutCancel(r.Context())
	msg := session.Message{Role: session.RoleAssistant, Content: content}
	if err := s.store.AppendMessage(ctx, sessionID, msg); err != nil {
		s.logger.Error("Failed to store assistant message for session %s: %v", sessionID, err)
	}
}

// historyTurns converts the stored conversation into assistant turns.
func (s *Server) historyTurns(ctx context.Context, sessionID string) ([]assistant.Turn, error) {
	messages, err := s.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns := make([]assistant.Turn, len(messages))
	for i, msg := range messages {
		turns[i] = assistant.Turn{Role: msg.Role, Content: msg.Content}
	}
	return turns, nil
}
