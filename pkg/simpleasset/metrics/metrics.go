// Package metrics exposes Prometheus instrumentation for the asset service:
// lifecycle event counters, HTTP request metrics and circuit breaker state.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

const namespace = "simple_asset"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	orphans         prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a registry with runtime collectors and the service metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Asset lifecycle events by type.",
		}, []string{"event"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_objects_total",
			Help:      "Objects left in storage after a failed upload compensation.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.events, m.orphans, m.requests, m.requestDuration)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WatchBreaker exports a circuit breaker's state as 0 (closed), 1 (half-open)
// or 2 (open).
func (m *Metrics) WatchBreaker(name string, state func() string) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "storage_breaker_state",
		Help:        "Circuit breaker state per storage family.",
		ConstLabels: prometheus.Labels{"family": name},
	}, func() float64 {
		switch state() {
		case "half-open":
			return 1
		case "open":
			return 2
		default:
			return 0
		}
	}))
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Sink counts lifecycle events. It never fails.
type Sink struct {
	m *Metrics
}

var _ simpleasset.EventSink = (*Sink)(nil)

// Sink returns an EventSink backed by m.
func (m *Metrics) Sink() *Sink {
	return &Sink{m: m}
}

func (s *Sink) inc(event string) error {
	s.m.events.WithLabelValues(event).Inc()
	return nil
}

func (s *Sink) AssetUploaded(ctx context.Context, asset *simpleasset.Asset) error {
	return s.inc("uploaded")
}

func (s *Sink) AssetUpdated(ctx context.Context, asset *simpleasset.Asset) error {
	return s.inc("updated")
}

func (s *Sink) AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return s.inc("soft_deleted")
}

func (s *Sink) AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return s.inc("restored")
}

func (s *Sink) AssetHardDeleted(ctx context.Context, asset *simpleasset.Asset) error {
	return s.inc("hard_deleted")
}

func (s *Sink) AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return s.inc("processed")
}

func (s *Sink) CompensationFailed(ctx context.Context, failure *simpleasset.CompensationFailureError) error {
	s.m.orphans.Inc()
	return s.inc("compensation_failed")
}
