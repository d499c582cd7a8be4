// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the normalization pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/pkg/types"
)

// Normalizer runs the pipeline.
type Normalizer interface {
	Normalize(ctx context.Context, in normalize.Input, opts normalize.Options) (*types.NormalizedRequest, error)
}

// Recorder persists audit records.
type Recorder interface {
	Record(ctx context.Context, rec types.AuditRecord) (int64, error)
}

// Options wires a Server. Recorder and Logger may be nil.
type Options struct {
	Config      types.ServerConfig
	Normalizer  Normalizer
	Validator   normalize.Checker
	CatalogPath string
	Recorder    Recorder
	Logger      *slog.Logger
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg         types.ServerConfig
	normalizer  Normalizer
	validator   normalize.Checker
	catalogPath string
	recorder    Recorder
	logger      *slog.Logger
	limiter     *rate.Limiter
	engine      *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		cfg:         opts.Config,
		normalizer:  opts.Normalizer,
		validator:   opts.Validator,
		catalogPath: opts.CatalogPath,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1", rateLimit(s.limiter))
	v1.POST("/normalize", s.handleNormalize)
	v1.POST("/validate", s.handleValidate)
	v1.GET("/metrics/hints", s.handleHints)

	s.engine = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
