package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ServerConfig configures the HTTP server started by the web plugin.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// HTTPServer is the part of *http.Server that [Server] drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Server runs an HTTP server as a suture.Service: Serve blocks until the
// context is cancelled, then shuts the server down gracefully.
type Server struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewServer wraps srv. A non-positive timeout means 10 seconds.
func NewServer(srv HTTPServer, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{server: srv, shutdownTimeout: shutdownTimeout}
}

func (s *Server) String() string { return "http-server" }

func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}
