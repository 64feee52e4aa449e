// Package startup handles application initialization and shutdown.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/hurricanerix/parley/internal/assistant"
	"github.com/hurricanerix/parley/internal/blob"
	"github.com/hurricanerix/parley/internal/config"
	"github.com/hurricanerix/parley/internal/extract"
	"github.com/hurricanerix/parley/internal/logging"
	"github.com/hurricanerix/parley/internal/session"
	"github.com/hurricanerix/parley/internal/web"
)

// clientTimeout is the per-request timeout for remote assistant calls.
// Individual run status checks are short; the overall polling window is
// bounded separately by the poll configuration.
const clientTimeout = 60 * time.Second

// Components holds all initialized application components
type Components struct {
	AssistantClient *assistant.Client
	Store           session.Store
	BlobStorage     *blob.Storage
	Extractor       *extract.Extractor
	WebServer       *web.Server
	Logger          *logging.Logger
}

// CreateLogger creates a logger with the configured log level
func CreateLogger(cfg *config.Config) *logging.Logger {
	return logging.NewFromString(cfg.LogLevel, nil)
}

// CreateAssistantClient creates a remote assistant client from the config.
// It does not validate the connection; the first chat request will surface
// connectivity problems.
func CreateAssistantClient(cfg *config.Config) *assistant.Client {
	return assistant.NewClient(cfg.BaseURL, cfg.APIKey, cfg.AssistantID, clientTimeout)
}

// CreateStore opens the conversation store. With a data path configured the
// store is SQLite-backed and survives restarts; otherwise it is in-memory.
func CreateStore(cfg *config.Config, logger *logging.Logger) (session.Store, error) {
	if cfg.DataPath == "" {
		logger.Info("Using in-memory conversation store")
		return session.NewMemoryStore(), nil
	}

	store, err := session.OpenSQLite(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	logger.Info("Using SQLite conversation store at %s", cfg.DataPath)
	return store, nil
}

// CreateBlobStorage creates blob storage and starts its cleanup goroutine
func CreateBlobStorage(ctx context.Context, logger *logging.Logger) *blob.Storage {
	storage := blob.NewStorage()
	storage.StartCleanup(ctx, logger)
	return storage
}

// CreateExtractor creates the upload content extractor. Audio transcription
// uses the assistant client and is only wired up when enabled.
func CreateExtractor(cfg *config.Config, client *assistant.Client) *extract.Extractor {
	e := &extract.Extractor{}
	if cfg.TranscribeAudio {
		e.Transcriber = client
	}
	return e
}

// CreateWebServer creates the HTTP server with all dependencies wired
func CreateWebServer(cfg *config.Config, client *assistant.Client, store session.Store, extractor *extract.Extractor, blobs *blob.Storage, logger *logging.Logger) *web.Server {
	webCfg := web.Config{
		Addr:           fmt.Sprintf("localhost:%d", cfg.Port),
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxUploadBytes: int64(cfg.MaxUploadMB) * 1024 * 1024,
		Poll: assistant.PollConfig{
			Interval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
			MaxInterval: time.Duration(cfg.PollMaxIntervalMS) * time.Millisecond,
			MaxAttempts: cfg.PollMaxAttempts,
		},
	}
	return web.NewServer(webCfg, client, store, extractor, blobs, logger.WithComponent("web"))
}

// InitializeAll creates and initializes all application components.
func InitializeAll(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Components, error) {
	logger.Debug("Initializing components")

	client := CreateAssistantClient(cfg)
	logger.Debug("Created assistant client: base-url=%s, assistant=%s", cfg.BaseURL, cfg.AssistantID)

	store, err := CreateStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	blobs := CreateBlobStorage(ctx, logger.WithComponent("blob"))
	logger.Debug("Created blob storage with cleanup enabled")

	extractor := CreateExtractor(cfg, client)
	logger.Debug("Created extractor (transcribe-audio=%v)", cfg.TranscribeAudio)

	webServer := CreateWebServer(cfg, client, store, extractor, blobs, logger)
	logger.Debug("Created web server on port %d", cfg.Port)

	return &Components{
		AssistantClient: client,
		Store:           store,
		BlobStorage:     blobs,
		Extractor:       extractor,
		WebServer:       webServer,
		Logger:          logger,
	}, nil
}

// Shutdown releases resources held by the components. Errors are logged
// but do not stop the remaining cleanup steps.
func Shutdown(components *Components, logger *logging.Logger) {
	if components == nil {
		return
	}
	if components.Store != nil {
		if err := components.Store.Close(); err != nil {
			logger.Error("Failed to close conversation store: %v", err)
		}
	}
}
