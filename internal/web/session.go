package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hurricanerix/parley/internal/session"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "parley_session"

	// SessionExpiry is how long a session cookie lasts.
	SessionExpiry = 30 * 24 * time.Hour
)

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey int

const (
	sessionIDKey contextKey = iota
)

// GetSessionID retrieves the session ID from the request context.
// Returns an empty string if no session ID exists in the context.
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// setSessionID stores the session ID in the context.
func setSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// setSessionCookie writes the session cookie on the response.
// SECURITY: Secure flag requires HTTPS in production.
func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(SessionExpiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
	})
}

// sessionMiddleware ensures every request is bound to a conversation that
// exists in the store. If the request carries a valid session cookie whose
// conversation still exists, that conversation is used. Otherwise a new
// conversation is created and a fresh cookie is set.
// The session ID is stored in the request context for handlers to access.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string

		// Try to get session ID from cookie
		cookie, err := r.Cookie(SessionCookieName)
		if err == nil && cookie.Value != "" && session.ValidID(cookie.Value) {
			// A well-formed ID is only trusted if the conversation exists.
			// Stale cookies (e.g. after a database reset) get a new session.
			if _, err := s.store.GetSession(r.Context(), cookie.Value); err == nil {
				sessionID = cookie.Value
			} else if !errors.Is(err, session.ErrNotFound) {
				s.logger.Error("Session lookup failed: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		// Create a new conversation if none exists or validation failed
		if sessionID == "" {
			sess, err := s.store.CreateSession(r.Context())
			if err != nil {
				s.logger.Error("Failed to create session: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			sessionID = sess.ID
			setSessionCookie(w, sessionID)
		}

		// Store session ID in context
		ctx := setSessionID(r.Context(), sessionID)

		// Call next handler with updated context
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
