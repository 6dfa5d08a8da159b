package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscout_chat_requests_total",
			Help: "Total chat turns processed, labeled by the dialogue step they landed on",
		},
		[]string{"step"},
	)

	SearchesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealscout_searches_total",
			Help: "Total property searches run, labeled by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	EstimateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dealscout_estimate_latency_seconds",
			Help: "Fair-value estimation call latency in seconds",
		},
	)

	EstimateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealscout_estimate_failures_total",
			Help: "Fair-value estimation calls that errored, timed out or returned malformed signals",
		},
	)

	UndervaluedFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealscout_undervalued_properties_total",
			Help: "Properties flagged as potentially undervalued across all searches",
		},
	)

	// Session liveness is owned by the store (TTL eviction happens there,
	// invisibly to the handler), so only creation is counted here.
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealscout_sessions_started_total",
			Help: "Conversation sessions created",
		},
	)
)
