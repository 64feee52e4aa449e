package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/hurricanerix/parley/internal/blob"
	"github.com/hurricanerix/parley/internal/extract"
)

// uploadResponse is the body of a successful POST /api/upload.
type uploadResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// handleUpload accepts a multipart file upload, extracts whatever text it
// can, and returns the extracted content. Non-text files are retained in
// blob storage and referenced by URL so the client can link to the original.
//
// Extraction failures do not fail the request; the content field carries a
// placeholder notice instead so the upload can still be attached to a chat
// message.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	// SECURITY: Check rate limit
	if !s.rateLimiter.allowUpload(sessionID) {
		s.logger.Warn("Rate limit exceeded for session %s (upload)", sessionID)
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	// SECURITY: Limit request body size. The slack covers multipart framing
	// overhead so a file exactly at the limit still parses.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+64*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		if errors.Is(err, http.ErrMissingFile) {
			s.writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		s.logger.Error("Failed to parse upload for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusBadRequest, "invalid upload request")
		return
	}
	defer file.Close()

	// Read one byte past the limit to distinguish at-limit from over-limit.
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		s.logger.Error("Failed to read upload for session %s: %v", sessionID, err)
		s.writeError(w, http.StatusInternalServerError, "error processing uploaded file")
		return
	}
	if int64(len(data)) > s.maxUploadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	filename := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	kind := extract.DetectKind(contentType, filename)

	s.logger.Info("Upload for session %s: %s (%s, %d bytes, kind=%s)",
		sessionID, filename, contentType, len(data), kind)

	content := s.extractor.Extract(r.Context(), filename, contentType, data)

	resp := uploadResponse{Success: true, Content: content}

	// Keep the original bytes for non-text files so the client can reference
	// them. Plain text is fully represented by the extracted content.
	if kind != extract.KindText {
		id, err := s.blobs.Store(data, filename, contentType)
		if err != nil {
			// Retention is best-effort. The extracted content still stands.
			if errors.Is(err, blob.ErrTooLarge) {
				s.logger.Warn("Upload %s too large to retain (%d bytes)", filename, len(data))
			} else {
				s.logger.Error("Failed to retain upload %s: %v", filename, err)
			}
		} else {
			resp.URL = fmt.Sprintf("/api/files/%s", id)
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
