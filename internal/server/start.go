package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ShutdownTimeout bounds how long a graceful shutdown may take.
const ShutdownTimeout = 10 * time.Second

// Start runs the HTTP server until ctx is cancelled, then shuts everything
// down. Callers usually derive ctx from signal.NotifyContext.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "event", "server_start", "addr", addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var startErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received", "event", "server_shutdown_requested")
	case startErr = <-errCh:
		if startErr != nil {
			slog.Error("Server stopped unexpectedly", "event", "server_start_failed", "error", startErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return errors.Join(startErr, s.Shutdown(shutdownCtx))
}

// Shutdown stops accepting requests, then shuts down the modules in reverse
// boot order, the bus and the store. Every step runs even if an earlier one
// fails. Later calls return the first call's result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	var errs []error

	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for i := len(s.modules) - 1; i >= 0; i-- {
		m := s.modules[i]
		if err := m.Shutdown(ctx); err != nil {
			slog.Error("Module shutdown failed", "event", "module_shutdown_failed", "module", m.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	s.modules = nil

	if err := s.Bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Store.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err == nil {
		slog.Info("Server stopped", "event", "server_stopped")
	}
	return err
}
