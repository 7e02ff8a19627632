package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowTransitions counts workflow engine transitions by action and outcome.
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partrack_workflow_transitions_total",
		Help: "Total workflow transitions by action and outcome",
	}, []string{"action", "outcome"})

	// JobIDAllocations counts job identifier allocations.
	JobIDAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partrack_job_id_allocations_total",
		Help: "Total job identifiers allocated",
	})

	// ActiveWebSockets tracks currently connected websocket clients.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partrack_active_websockets",
		Help: "Number of active websocket connections",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partrack_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// RecordTransition increments the workflow transition counter.
func RecordTransition(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	WorkflowTransitions.WithLabelValues(action, outcome).Inc()
}

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording per-request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
