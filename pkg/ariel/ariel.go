// Package ariel provides a public Go API for embedding the Mermaid live
// viewer in another program.
//
// The viewer serves the page shell on "/", the raw diagram on "/mermaid"
// and the client script on "/app.js", so the handler must be mounted at
// the root of its server.
//
// Basic usage:
//
//	h, err := ariel.NewHandler("docs/flow.mmd")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(http.ListenAndServe("127.0.0.1:5000", h))
//
// With a file watcher and graceful shutdown:
//
//	v, err := ariel.New("docs/flow.mmd",
//	    ariel.WithAddr("127.0.0.1", 8080),
//	    ariel.WithPollInterval(500*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = v.Run(ctx)
package ariel

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/ariel/internal/config"
	"github.com/hupe1980/ariel/internal/logging"
	"github.com/hupe1980/ariel/internal/server"
)

// Option configures a Viewer. Use the With* functions to create Options.
type Option func(*options)

type options struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics bool
}

// WithAddr sets the listen address used by Run.
func WithAddr(host string, port int) Option {
	return func(o *options) {
		o.cfg.Host = host
		o.cfg.Port = port
	}
}

// WithPollInterval sets the browser poll interval (default: 1s).
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.cfg.PollInterval = d }
}

// WithMermaidVersion sets the Mermaid version or constraint loaded from the
// CDN (default: "10").
func WithMermaidVersion(v string) Option {
	return func(o *options) { o.cfg.MermaidVersion = v }
}

// WithoutCache re-reads the file on every request.
func WithoutCache() Option {
	return func(o *options) { o.cfg.NoCache = true }
}

// WithDebounce sets the debounce interval of the file watcher used by Run.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.cfg.Debounce = d }
}

// WithoutWatch disables the file watcher in Run.
func WithoutWatch() Option {
	return func(o *options) { o.cfg.NoWatch = true }
}

// WithMetrics exposes Prometheus metrics on "/metrics".
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// WithLogger sets the logger for the viewer. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Viewer serves one Mermaid file.
type Viewer struct {
	srv     *server.Server
	metrics *server.Metrics
}

// New validates the options and builds a Viewer for the file at path. The
// file does not have to exist yet.
func New(path string, opts ...Option) (*Viewer, error) {
	o := &options{
		cfg:    config.Default(),
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.cfg.Metrics = o.metrics

	sc, err := config.NewServerConfig(path, o.cfg)
	if err != nil {
		return nil, err
	}

	v := &Viewer{}
	if o.metrics {
		v.metrics = server.NewMetrics()
	}

	v.srv, err = server.New(sc, server.WithLogger(o.logger), server.WithMetrics(v.metrics))
	if err != nil {
		return nil, err
	}

	return v, nil
}

// NewHandler returns the HTTP handler of a viewer for the file at path.
// Without Run no watcher is started; changes are still detected on every
// request from the file's modification time and size.
func NewHandler(path string, opts ...Option) (http.Handler, error) {
	v, err := New(path, opts...)
	if err != nil {
		return nil, err
	}

	return v.Handler(), nil
}

// Handler returns the HTTP handler of the viewer.
func (v *Viewer) Handler() http.Handler { return v.srv.Handler() }

// Path returns the absolute path of the watched file.
func (v *Viewer) Path() string { return v.srv.Source().Path() }

// URL returns the browser URL Run serves on.
func (v *Viewer) URL() string { return v.srv.Config().URL() }

// Registry returns the Prometheus registry served on "/metrics", or nil
// without WithMetrics. Collectors registered on it are served alongside the
// viewer's own.
func (v *Viewer) Registry() *prometheus.Registry {
	if v.metrics == nil {
		return nil
	}

	return v.metrics.Registry()
}

// Run listens on the configured address, watches the file and serves until
// ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) error { return v.srv.Run(ctx) }
