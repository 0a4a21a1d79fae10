package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Start serves until ctx is cancelled, then drains in-flight requests and
// closes open sockets.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.Addr())
		if err := s.E.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.deps.Gateway != nil {
		s.deps.Gateway.CloseAll()
	}
	if err := s.E.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
