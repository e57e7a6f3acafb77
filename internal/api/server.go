package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/acadport/backend/pkg/config"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *logger.Logger
	env             string
}

// New creates a new API server. Zero timeouts in cfg fall back to defaults.
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadTimeout:       orDefault(cfg.ReadTimeout, 15*time.Second),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      orDefault(cfg.WriteTimeout, 60*time.Second),
			IdleTimeout:       60 * time.Second,
		},
		shutdownTimeout: orDefault(cfg.ShutdownTimeout, 30*time.Second),
		logger:          log,
		env:             cfg.Env,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Run listens until ctx is cancelled, then drains in-flight requests.
// onListen, if set, receives the bound address.
func (s *Server) Run(ctx context.Context, onListen func(addr string)) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	addr := ln.Addr().String()
	s.logger.WithFields(map[string]interface{}{
		"addr": addr,
		"env":  s.env,
	}).Info("Starting API server")
	if onListen != nil {
		onListen(addr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
