// Package metrics declares the Prometheus collectors of the support
// orchestrator. Collectors are registered with the default registry on init
// and exposed by supportctl through promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn metrics
	TurnsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_turns_started_total",
			Help: "Total number of supervisor turns started",
		},
	)

	TurnsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_turns_completed_total",
			Help: "Total number of supervisor turns completed",
		},
		[]string{"outcome"}, // resolved, escalated, failed
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_turn_duration_seconds",
			Help:    "Supervisor turn duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	TurnSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_turn_steps",
			Help:    "Steps charged to the turn limiter per turn",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90},
		},
	)

	TurnsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_turns_rejected_total",
			Help: "Turns rejected because the thread already had a turn in flight",
		},
	)

	// Routing metrics
	RouteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_route_decisions_total",
			Help: "Routing decisions taken at ROUTE_DECISION",
		},
		[]string{"urgency", "route"},
	)

	RetrievalConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_retrieval_confidence",
			Help:    "Retrieval confidence reported by the retriever",
			Buckets: []float64{0.2, 0.4, 0.6, 0.75, 0.8, 0.9, 1},
		},
		[]string{"band"},
	)

	// Agent metrics
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_model_calls_total",
			Help: "Model invocations by agent and status",
		},
		[]string{"agent", "status"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_model_call_duration_ms",
			Help:    "Model call duration in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"agent"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_tool_calls_total",
			Help: "Tool calls by agent, tool and status",
		},
		[]string{"agent", "tool", "status"},
	)

	StepLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_step_limit_hits_total",
			Help: "Number of times a step ceiling terminated a loop",
		},
		[]string{"scope"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_escalations_total",
			Help: "Escalations by origin",
		},
		[]string{"origin"}, // route, resolver
	)
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
