package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hurricanerix/parley/internal/blob"
)

// handleFile serves a retained uploaded file by ID.
// GET /api/files/{id}
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing file ID")
		return
	}

	data, name, contentType, err := s.blobs.Get(id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "file not found")
			return
		}
		if errors.Is(err, blob.ErrInvalidID) {
			s.writeError(w, http.StatusBadRequest, "invalid file ID")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write file data for %s: %v", id, err)
	}
}
