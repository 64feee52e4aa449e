package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hurricanerix/parley/internal/session"
)

// sessionInfo describes one conversation in listing responses.
type sessionInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname,omitempty"`
}

// handleListSessions returns all conversations and which one the cookie
// currently points at.
// GET /api/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.logger.Error("Failed to list sessions: %v", err)
		s.writeError(w, http.StatusInternalServerError, "error listing conversations")
		return
	}

	infos := make([]sessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = sessionInfo{ID: sess.ID, Nickname: sess.Nickname}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": infos,
		"current":  GetSessionID(r.Context()),
	})
}

// handleCreateSession starts a new conversation and makes it current.
// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.CreateSession(r.Context())
	if err != nil {
		s.logger.Error("Failed to create session: %v", err)
		s.writeError(w, http.StatusInternalServerError, "error creating conversation")
		return
	}

	setSessionCookie(w, sess.ID)
	s.writeJSON(w, http.StatusOK, sessionInfo{ID: sess.ID})
}

// handleSwitchSession makes an existing conversation current.
// POST /api/sessions/switch with body {"id": "..."}
func (s *Server) handleSwitchSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !session.ValidID(req.ID) {
		s.writeError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	sess, err := s.store.GetSession(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("Failed to look up session %s: %v", req.ID, err)
		s.writeError(w, http.StatusInternalServerError, "error switching conversation")
		return
	}

	setSessionCookie(w, sess.ID)
	s.writeJSON(w, http.StatusOK, sessionInfo{ID: sess.ID, Nickname: sess.Nickname})
}

// handleNickname sets the nickname of the current conversation.
// POST /api/sessions/nickname with body {"nickname": "..."}
func (s *Server) handleNickname(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if len(nickname) > MaxNicknameLength {
		s.writeError(w, http.StatusBadRequest, "nickname too long")
		return
	}

	if err := s.store.SetNickname(r.Context(), sessionID, nickname); err != nil {
		s.logger.Error("Failed to set nickname for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusInternalServerError, "error updating nickname")
		return
	}

	s.writeJSON(w, http.StatusOK, sessionInfo{ID: sessionID, Nickname: nickname})
}

// handleClear removes all messages from the current conversation.
// The conversation itself, including its nickname, is kept.
// POST /api/sessions/clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	if err := s.store.ClearHistory(r.Context(), sessionID); err != nil {
		s.logger.Error("Failed to clear history for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusInternalServerError, "error clearing conversation")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleHistory returns the messages of the current conversation.
// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	messages, err := s.store.Messages(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("Failed to load history for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusInternalServerError, "error loading history")
		return
	}
	if messages == nil {
		messages = []session.Message{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}
