// Package web provides the HTTP API for the chat relay.
//
// All endpoints live under /api/ and speak JSON. Each request is bound to a
// conversation via a session cookie; handlers read the current session ID
// from the request context.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hurricanerix/parley/internal/assistant"
	"github.com/hurricanerix/parley/internal/blob"
	"github.com/hurricanerix/parley/internal/extract"
	"github.com/hurricanerix/parley/internal/logging"
	"github.com/hurricanerix/parley/internal/session"
)

const (
	// DefaultAddr is the default address the server listens on.
	DefaultAddr = "localhost:8080"

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 60 * time.Second

	// WriteTimeout is the maximum duration before timing out writes.
	// Chat requests block on the remote assistant, so this must exceed
	// the worst-case polling window.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout = 60 * time.Second

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxRequestBodySize is the maximum size of JSON POST request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength is the maximum length of a chat message (10KB).
	MaxMessageLength = 10 * 1024

	// DefaultMaxUploadBytes is the default upload size limit (10MB).
	DefaultMaxUploadBytes = 10 * 1024 * 1024

	// MaxNicknameLength is the maximum length of a conversation nickname.
	MaxNicknameLength = 100
)

// assistantClient is an interface for remote assistant operations.
// This allows for mocking in tests.
type assistantClient interface {
	AwaitReply(ctx context.Context, req assistant.Request, cfg assistant.PollConfig) (string, error)
}

// Config holds server configuration.
type Config struct {
	// Addr is the address to listen on. Empty means DefaultAddr.
	Addr string

	// AllowedOrigin is the value for Access-Control-Allow-Origin.
	// Empty means "*".
	AllowedOrigin string

	// MaxUploadBytes caps the size of uploaded files.
	// Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// Poll controls how run completion is polled.
	Poll assistant.PollConfig
}

// Server provides HTTP serving for the chat relay API.
type Server struct {
	addr   string
	server *http.Server
	logger *logging.Logger

	assistant      assistantClient
	store          session.Store
	extractor      *extract.Extractor
	blobs          *blob.Storage
	rateLimiter    *rateLimiter
	pollCfg        assistant.PollConfig
	allowedOrigin  string
	maxUploadBytes int64

	// inFlight tracks sessions with a chat request currently awaiting the
	// remote assistant. One outstanding run per conversation.
	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// NewServer creates a new Server with the given dependencies.
func NewServer(cfg Config, client assistantClient, store session.Store, extractor *extract.Extractor, blobs *blob.Storage, logger *logging.Logger) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logging.New(logging.LevelInfo, nil)
	}
	if extractor == nil {
		extractor = &extract.Extractor{}
	}
	if blobs == nil {
		blobs = blob.NewStorage()
	}

	s := &Server{
		addr:           addr,
		logger:         logger,
		assistant:      client,
		store:          store,
		extractor:      extractor,
		blobs:          blobs,
		rateLimiter:    newRateLimiter(),
		pollCfg:        cfg.Poll,
		allowedOrigin:  origin,
		maxUploadBytes: maxUpload,
		inFlight:       make(map[string]struct{}),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// CORS runs outermost so preflight requests never touch session state.
	handler := s.corsMiddleware(s.sessionMiddleware(mux))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/upload", s.handleUpload)

	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/sessions/switch", s.handleSwitchSession)
	mux.HandleFunc("POST /api/sessions/nickname", s.handleNickname)
	mux.HandleFunc("POST /api/sessions/clear", s.handleClear)

	mux.HandleFunc("GET /api/files/{id}", s.handleFile)
}

// corsMiddleware sets CORS headers on all API responses and answers
// preflight OPTIONS requests directly.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server and blocks until the context is cancelled.
// Returns an error if the server fails to start or encounters a non-graceful shutdown error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Start rate limiter cleanup goroutine
	s.rateLimiter.startCleanup(ctx)

	// Channel to capture server errors
	errCh := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("Starting web server on http://%s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// Context cancelled, initiate graceful shutdown
		s.logger.Info("Shutting down web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		s.logger.Info("Web server stopped")
		return nil

	case err := <-errCh:
		// Server failed to start or encountered error
		return fmt.Errorf("server error: %w", err)
	}
}

// beginChat marks a session as having a chat request in flight.
// Returns false if one is already outstanding.
func (s *Server) beginChat(sessionID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

// endChat clears the in-flight marker for a session.
func (s *Server) endChat(sessionID string) {
	s.inFlightMu.Lock()
	delete(s.inFlight, sessionID)
	s.inFlightMu.Unlock()
}

// writeJSON encodes v as the JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// writeError sends a JSON error response of the form {"error": message}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
