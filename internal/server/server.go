// Package server exposes the viewer over HTTP: the page shell, the
// conditional content endpoint, the client script, a health check and
// optional Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/ariel/internal/config"
	"github.com/hupe1980/ariel/internal/content"
	"github.com/hupe1980/ariel/internal/logging"
	"github.com/hupe1980/ariel/internal/watch"
	"github.com/hupe1980/ariel/internal/web"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server serves one watched file. Request handling shares no mutable state
// apart from the content cache, which swaps immutable snapshots.
type Server struct {
	cfg     config.ServerConfig
	source  *content.Source
	page    *web.Page
	metrics *Metrics
	tracker *watch.Tracker
	logger  *slog.Logger
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collectors, overriding cfg.Metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds a Server for cfg. It fails only when the embedded page shell
// cannot be loaded.
func New(cfg config.ServerConfig, opts ...Option) (*Server, error) {
	page, err := web.NewPage()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		source:  content.NewSource(cfg.FilePath, content.WithCache(cfg.Cache)),
		page:    page,
		tracker: watch.NewTracker(cfg.DisplayName()),
		logger:  slog.Default(),
	}

	if cfg.Metrics {
		s.metrics = NewMetrics()
	}

	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.routes()

	return s, nil
}

// Config returns the server configuration.
func (s *Server) Config() config.ServerConfig { return s.cfg }

// Source returns the content source of the watched file.
func (s *Server) Source() *content.Source { return s.source }

// Handler returns the HTTP handler of the viewer.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(s.metrics.middleware)
	r.Use(middleware.GetHead)

	r.Get("/", s.handleIndex)
	r.Get(web.ContentPath, s.handleContent)
	r.Get(web.ScriptPath, s.handleScript)
	r.Get("/healthz", s.handleHealth)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// When watching is enabled the file watcher runs for the same lifetime.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan struct{})

	if s.cfg.Watch {
		go func() {
			defer close(watchDone)
			s.watchFile(ctx)
		}()
	} else {
		close(watchDone)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- srv.Serve(ln)
	}()

	var err error

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else {
			err = fmt.Errorf("serving: %w", err)
		}

	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("shutting down: %w", shutdownErr)
		}
	}

	cancel()
	<-watchDone

	return err
}
