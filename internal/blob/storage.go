// Package blob provides bounded in-memory storage for uploaded files.
//
// Stored blobs back the reference URL returned by the upload endpoint.
// This is working storage, not an archive: blobs age out and the total
// count is capped. Swapping in durable object storage means replacing
// this package behind the same Store/Get surface.
package blob

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hurricanerix/parley/internal/logging"
)

const (
	// MaxBlobs is the maximum number of blobs to keep in storage
	MaxBlobs = 100
	// MaxAge is the maximum age of a blob before cleanup
	MaxAge = 1 * time.Hour
	// CleanupInterval is how often cleanup runs
	CleanupInterval = 10 * time.Minute
	// MaxBlobSize is the maximum size of a single blob (20MB)
	MaxBlobSize = 20 * 1024 * 1024
)

var (
	// ErrNotFound indicates the requested blob does not exist
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidID indicates the provided blob ID is invalid
	ErrInvalidID = errors.New("invalid blob ID")
	// ErrTooLarge indicates the blob exceeds the maximum allowed size
	ErrTooLarge = errors.New("blob exceeds maximum size")
)

// storedBlob holds blob data with metadata
type storedBlob struct {
	Data        []byte
	Name        string
	ContentType string
	CreatedAt   time.Time
	AccessedAt  time.Time
}

// Storage provides thread-safe in-memory blob storage
type Storage struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewStorage creates a new blob storage
func NewStorage() *Storage {
	return &Storage{
		blobs: make(map[string]*storedBlob),
	}
}

// Store saves blob bytes and returns a unique ID
func (s *Storage) Store(data []byte, name, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty blob data")
	}

	if len(data) > MaxBlobSize {
		return "", ErrTooLarge
	}

	id := uuid.New().String()

	now := time.Now()
	blob := &storedBlob{
		Data:        data,
		Name:        name,
		ContentType: contentType,
		CreatedAt:   now,
		AccessedAt:  now,
	}

	s.mu.Lock()
	s.blobs[id] = blob
	s.mu.Unlock()

	return id, nil
}

// Get retrieves blob bytes by ID along with the original file name and
// content type. Returns ErrNotFound if the blob does not exist.
func (s *Storage) Get(id string) ([]byte, string, string, error) {
	// Validate ID format (no lock needed)
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", "", ErrInvalidID
	}

	s.mu.RLock()
	blob, exists := s.blobs[id]
	s.mu.RUnlock()

	if !exists {
		return nil, "", "", ErrNotFound
	}

	// Update access time with write lock (separate from read)
	s.mu.Lock()
	blob.AccessedAt = time.Now()
	s.mu.Unlock()

	// Return copy of data to prevent external modification
	data := make([]byte, len(blob.Data))
	copy(data, blob.Data)
	return data, blob.Name, blob.ContentType, nil
}

// Count returns number of stored blobs
func (s *Storage) Count() int {
	s.mu.RLock()
	count := len(s.blobs)
	s.mu.RUnlock()
	return count
}

// Delete removes a blob by ID. Returns true if a blob was deleted.
func (s *Storage) Delete(id string) bool {
	s.mu.Lock()
	_, exists := s.blobs[id]
	if exists {
		delete(s.blobs, id)
	}
	s.mu.Unlock()
	return exists
}

// StartCleanup starts a background goroutine that periodically removes
// old blobs (older than MaxAge) and enforces the MaxBlobs limit via LRU.
// The goroutine runs until ctx is cancelled. Caller MUST cancel ctx
// to stop cleanup and prevent goroutine leak.
func (s *Storage) StartCleanup(ctx context.Context, logger *logging.Logger) {
	ticker := time.NewTicker(CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug("Blob cleanup goroutine stopping")
				return
			case <-ticker.C:
				s.cleanup(logger)
			}
		}
	}()
}

// cleanup removes blobs older than MaxAge and enforces the MaxBlobs limit
func (s *Storage) cleanup(logger *logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	initialCount := len(s.blobs)

	ageDeleted := 0
	for id, blob := range s.blobs {
		if now.Sub(blob.CreatedAt) > MaxAge {
			delete(s.blobs, id)
			ageDeleted++
		}
	}

	if ageDeleted > 0 {
		logger.Debug("Removed %d blobs older than %v", ageDeleted, MaxAge)
	}

	// Enforce MaxBlobs limit using LRU eviction
	if len(s.blobs) > MaxBlobs {
		type blobEntry struct {
			id         string
			accessedAt time.Time
		}

		entries := make([]blobEntry, 0, len(s.blobs))
		for id, blob := range s.blobs {
			entries = append(entries, blobEntry{
				id:         id,
				accessedAt: blob.AccessedAt,
			})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].accessedAt.Before(entries[j].accessedAt)
		})

		toDelete := len(entries) - MaxBlobs
		for i := 0; i < toDelete; i++ {
			delete(s.blobs, entries[i].id)
		}

		if toDelete > 0 {
			logger.Debug("LRU eviction removed %d blobs (limit: %d)", toDelete, MaxBlobs)
		}
	}

	finalCount := len(s.blobs)
	if initialCount != finalCount {
		logger.Debug("Cleanup complete: %d -> %d blobs", initialCount, finalCount)
	}
}
