package startup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hurricanerix/parley/internal/logging"
	"github.com/hurricanerix/parley/internal/web"
)

// Run starts the web server and blocks until a shutdown signal is received
// or the server fails. SIGINT and SIGTERM trigger a graceful shutdown.
func Run(ctx context.Context, server *web.Server, logger *logging.Logger) error {
	// Create context that will be cancelled on signal
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ListenAndServe blocks until context is cancelled or error occurs.
	// The web.Server itself logs "Shutting down..." and "Web server stopped".
	if err := server.ListenAndServe(shutdownCtx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
