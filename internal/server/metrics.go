package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/ariel/internal/content"
)

const metricsNamespace = "ariel"

// Metrics holds the Prometheus collectors of the viewer. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	contentRequests *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fileChanges     *prometheus.CounterVec
}

// NewMetrics registers the viewer collectors on a fresh registry, together
// with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		contentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "content_requests_total",
			Help:      "Content requests by outcome (fresh, not_modified, not_found).",
		}, []string{"outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),

		fileChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "file_changes_total",
			Help:      "Filesystem changes of the watched file by kind.",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeOutcome(o content.Outcome) {
	if m == nil {
		return
	}

	m.contentRequests.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeChange(kind string) {
	if m == nil {
		return
	}

	m.fileChanges.WithLabelValues(kind).Inc()
}

// middleware records request durations by route pattern.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
