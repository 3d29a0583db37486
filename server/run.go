package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// RunWithGracefulShutdown serves until SIGINT or SIGTERM, then gives
// in-flight requests up to timeout to finish.
func RunWithGracefulShutdown(server *http.Server, logger *slog.Logger, timeout time.Duration) error {
	serverErrChan := make(chan error, 1)

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		} else {
			serverErrChan <- nil
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)

	select {
	case sig := <-osSignalChan:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	// Shutdown stops accepting connections at once; requests in flight
	// get until the deadline.
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if err := <-serverErrChan; err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
