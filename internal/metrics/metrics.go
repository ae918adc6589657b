package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)

	// ModelBuilds counts model builds by variant and outcome (ok, invalid)
	ModelBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cmdvrp_model_builds_total", Help: "Model builds by variant and outcome."},
		[]string{"variant", "outcome"},
	)
	// BuildDuration records model construction time in seconds
	BuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cmdvrp_model_build_seconds", Help: "Model construction time in seconds.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}},
		[]string{"variant"},
	)
	// ModelSize records the size of the last model built per variant
	ModelSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cmdvrp_model_size", Help: "Variables and constraints of the last model built."},
		[]string{"variant", "kind"},
	)
	// Solves counts solves by variant and final status
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cmdvrp_solves_total", Help: "Solves by variant and status."},
		[]string{"variant", "status"},
	)
	// SolveDuration records optimiser wall time in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cmdvrp_solve_seconds", Help: "Optimiser wall time in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 4, 10)},
		[]string{"variant", "status"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type"},
	)
)

// ObserveBuild records one model build. Invalid builds have no size.
func ObserveBuild(variant string, seconds float64, vars, cons int, ok bool) {
	if !ok {
		ModelBuilds.WithLabelValues(variant, "invalid").Inc()
		return
	}
	ModelBuilds.WithLabelValues(variant, "ok").Inc()
	BuildDuration.WithLabelValues(variant).Observe(seconds)
	ModelSize.WithLabelValues(variant, "variables").Set(float64(vars))
	ModelSize.WithLabelValues(variant, "constraints").Set(float64(cons))
}

// ObserveSolve records one finished solve.
func ObserveSolve(variant, status string, seconds float64) {
	Solves.WithLabelValues(variant, status).Inc()
	SolveDuration.WithLabelValues(variant, status).Observe(seconds)
}

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
		Registry.MustRegister(ModelBuilds, BuildDuration, ModelSize, Solves, SolveDuration)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
