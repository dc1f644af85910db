// Package server exposes the broker over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/core/config"
)

// Server serves the broker's HTTP API.
type Server struct {
	cfg      config.ServerConfig
	broker   *broker.Broker
	activity broker.ActivityReader
	logger   zerolog.Logger
	engine   *gin.Engine
}

// New creates a server for b. A nil activity reader disables the /activity
// endpoint.
func New(cfg config.ServerConfig, b *broker.Broker, activity broker.ActivityReader, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		broker:   b,
		activity: activity,
		logger:   logger,
		engine:   gin.New(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or serving fails. On
// shutdown the broker is closed first so open event streams end, then
// in-flight requests are given ShutdownTimeout to complete.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownComplete := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.broker.Close(shutdownCtx); err != nil && !errors.Is(err, broker.ErrClosed) {
			s.logger.Error().Err(err).Msg("close broker")
		}

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
			_ = srv.Close()
		}
		shutdownComplete <- err
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	err := srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownComplete
		return fmt.Errorf("serve http: %w", err)
	}

	if err := <-shutdownComplete; err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
