// Package metrics holds the Prometheus collectors for the lending service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "izposoja",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "izposoja",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "izposoja",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "izposoja",
			Subsystem: "lending",
			Name:      "transitions_total",
			Help:      "Item state transitions attempted, by event and result kind.",
		},
		[]string{"event", "result"},
	)

	ratings = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "izposoja",
			Subsystem: "lending",
			Name:      "rating_value",
			Help:      "Distribution of recorded rating values.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	expired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "izposoja",
			Subsystem: "expiry",
			Name:      "items_retired_total",
			Help:      "Items retired by the expiry sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transitions,
		ratings,
		expired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by the ServeMux pattern they matched, so path
// parameters do not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordTransition counts one attempted state transition. result is "ok" or
// an error kind.
func RecordTransition(event, result string) {
	if result == "" {
		result = "error"
	}
	transitions.WithLabelValues(event, result).Inc()
}

// RecordRating observes one recorded rating value.
func RecordRating(value int) {
	ratings.Observe(float64(value))
}

// RecordExpired counts items retired by an expiry sweep.
func RecordExpired(n int) {
	if n > 0 {
		expired.Add(float64(n))
	}
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	// Drop the method prefix; it is already a separate label.
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
