package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Triage service metrics for production monitoring
var (
	// Investigation metrics
	InvestigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_investigations_total",
			Help: "Total number of investigations completed",
		},
		[]string{"verdict", "strategy"},
	)

	InvestigationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_investigation_duration_seconds",
			Help:    "End-to-end investigation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
		},
	)

	// Specialist metrics
	SpecialistFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_specialist_findings_total",
			Help: "Total number of specialist findings by outcome",
		},
		[]string{"domain", "status"},
	)

	SpecialistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_specialist_duration_seconds",
			Help:    "Specialist investigation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"domain"},
	)

	// Reasoning backend metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_requests_total",
			Help: "Total number of reasoning backend requests",
		},
		[]string{"backend", "status"}, // status: ok/rate_limited/unavailable/malformed/error
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_llm_request_duration_seconds",
			Help:    "Reasoning backend request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"backend"},
	)

	// Fallback metrics
	FallbackEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_fallback_escalations_total",
			Help: "Total number of synthesis tier escalations",
		},
		[]string{"from", "to"},
	)

	// Tool bridge metrics
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_tool_calls_total",
			Help: "Total number of domain tool calls",
		},
		[]string{"domain", "tool", "status"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_websocket_connections",
			Help: "Current number of active WebSocket observers",
		},
	)

	// Request handling metrics
	RejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_rejected_requests_total",
			Help: "Total number of requests rejected before dispatch",
		},
		[]string{"reason"}, // reason: malformed_body/invalid_alert/saturated
	)
)
