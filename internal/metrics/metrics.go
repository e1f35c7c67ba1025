// Package metrics exports cache, engine and retry counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitlens"

// Exporter records metrics on a private registry. All methods are safe to
// call on a nil *Exporter, which records nothing.
type Exporter struct {
	registry *prometheus.Registry

	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheEvictions     *prometheus.CounterVec
	cacheWriteFailures prometheus.Counter

	engineRequests *prometheus.CounterVec
	engineLatency  *prometheus.HistogramVec

	retryAttempts *prometheus.CounterVec
	online        prometheus.Gauge
}

// New creates an exporter with its own registry.
func New() *Exporter {
	e := &Exporter{registry: prometheus.NewRegistry()}

	e.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Analytics lookups served from the cache",
	})
	e.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Analytics lookups that found no fresh entry",
	})
	e.cacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Cache entries removed, by reason",
	}, []string{"reason"})
	e.cacheWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "write_failures_total",
		Help:      "Cache writes that failed and were dropped",
	})

	e.engineRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "requests_total",
		Help:      "Engine requests by operation and reply type",
	}, []string{"op", "status"})
	e.engineLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "request_duration_seconds",
		Help:      "Round trip time of engine requests",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op"})

	e.retryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retry",
		Name:      "failed_attempts_total",
		Help:      "Failed attempts seen by the retry policy, by operation and error kind",
	}, []string{"operation", "kind"})
	e.online = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "online",
		Help:      "1 when the connectivity monitor reports online",
	})

	e.registry.MustRegister(
		e.cacheHits,
		e.cacheMisses,
		e.cacheEvictions,
		e.cacheWriteFailures,
		e.engineRequests,
		e.engineLatency,
		e.retryAttempts,
		e.online,
	)
	return e
}

// CacheHit records a fresh cache read.
func (e *Exporter) CacheHit() {
	if e != nil {
		e.cacheHits.Inc()
	}
}

// CacheMiss records a lookup that found nothing usable.
func (e *Exporter) CacheMiss() {
	if e != nil {
		e.cacheMisses.Inc()
	}
}

// CacheEviction records an entry removal. reason is expired, corrupt or cleanup.
func (e *Exporter) CacheEviction(reason string) {
	if e != nil {
		e.cacheEvictions.WithLabelValues(reason).Inc()
	}
}

// CacheWriteFailure records a swallowed write error.
func (e *Exporter) CacheWriteFailure() {
	if e != nil {
		e.cacheWriteFailures.Inc()
	}
}

// EngineRequest records one engine round trip.
func (e *Exporter) EngineRequest(op, status string, latency time.Duration) {
	if e == nil {
		return
	}
	e.engineRequests.WithLabelValues(op, status).Inc()
	e.engineLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// RetryAttempt records a failed attempt of a retried operation.
func (e *Exporter) RetryAttempt(operation, kind string) {
	if e != nil {
		e.retryAttempts.WithLabelValues(operation, kind).Inc()
	}
}

// SetOnline records the current connectivity state.
func (e *Exporter) SetOnline(online bool) {
	if e == nil {
		return
	}
	if online {
		e.online.Set(1)
	} else {
		e.online.Set(0)
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
