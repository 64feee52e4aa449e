package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hurricanerix/parley/internal/config"
	"github.com/hurricanerix/parley/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse configuration from CLI flags, config file, and environment
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrShowHelp) || errors.Is(err, config.ErrShowVersion) {
		// Help or version was shown, exit successfully
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Create logger early
	logger := startup.CreateLogger(cfg)

	logger.Info("Starting parley...")
	logger.Debug("Configuration: port=%d, base-url=%s, assistant=%s", cfg.Port, cfg.BaseURL, cfg.AssistantID)
	logger.Debug("Polling: interval=%dms, max-interval=%dms, max-attempts=%d",
		cfg.PollIntervalMS, cfg.PollMaxIntervalMS, cfg.PollMaxAttempts)
	logger.Debug("Uploads: max=%dMB, transcribe-audio=%v", cfg.MaxUploadMB, cfg.TranscribeAudio)
	logger.Debug("Log level: %s", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize all components
	logger.Debug("Initializing components...")
	components, err := startup.InitializeAll(ctx, cfg, logger)
	if err != nil {
		logger.Error("Initialization failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer startup.Shutdown(components, logger)

	logger.Info("Listening on http://localhost:%d", cfg.Port)

	// Run server and wait for shutdown signal
	if err := startup.Run(ctx, components.WebServer, logger); err != nil {
		logger.Error("Server error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
