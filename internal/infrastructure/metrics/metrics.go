package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generation
	GenerationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_generation_requests_total",
			Help: "Number of generation requests by provider and model",
		},
		[]string{"provider", "model"},
	)
	GenerationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iacgenius_generation_duration_seconds",
			Help:    "Histogram of generation call durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
		[]string{"provider"},
	)

	// Sessions
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_session_transitions_total",
			Help: "Session state machine transitions",
		},
		[]string{"transition", "result"}, // transition: generate|modify|save|stop, result: ok|error
	)

	// Model listing
	ListingDegradations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_model_listing_degraded_total",
			Help: "Model listings that fell back to an unconstrained result",
		},
		[]string{"provider"},
	)

	// Settings store
	SettingsOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_settings_ops_total",
			Help: "Settings store operations performed",
		},
		[]string{"op"}, // op: read|write|update
	)

	// History store
	HistoryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_history_ops_total",
			Help: "History store operations performed",
		},
		[]string{"op"}, // op: save|get|list|delete
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iacgenius_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		GenerationRequests,
		GenerationDurationSeconds,
		SessionTransitions,
		ListingDegradations,
		SettingsOps,
		HistoryOps,
		Errors,
	)
}

func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(addr, nil)
}

func IncGenerationRequest(provider, model string) {
	GenerationRequests.WithLabelValues(provider, model).Inc()
}

func ObserveGenerationDuration(provider string, d time.Duration) {
	GenerationDurationSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

func IncSessionTransition(transition, result string) {
	SessionTransitions.WithLabelValues(transition, result).Inc()
}

func IncListingDegraded(provider string) {
	ListingDegradations.WithLabelValues(provider).Inc()
}

func IncSettingsOp(op string) {
	SettingsOps.WithLabelValues(op).Inc()
}

func IncHistoryOp(op string) {
	HistoryOps.WithLabelValues(op).Inc()
}

func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
