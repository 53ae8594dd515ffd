// Package prometheus keeps slipway's metrics on a private registry so the
// metrics endpoint exports only what slipway itself registers, with the Go
// collector opted in by the gateway tracer.
package prometheus

import "github.com/prometheus/client_golang/prometheus"

var registry = prometheus.NewRegistry()

// Registry exposes the private registry for the gateway's metrics tracer.
func Registry() *prometheus.Registry {
	return registry
}

// Agent-run metrics, exported through the gateway's metrics endpoint.
var (
	AgentRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slipway",
		Subsystem: "agent",
		Name:      "runs_total",
		Help:      "Agent CLI invocations by outcome (ok, error, nonzero_exit).",
	}, []string{"outcome"})

	AgentRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "slipway",
		Subsystem: "agent",
		Name:      "run_duration_seconds",
		Help:      "Wall time of agent CLI invocations.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	})

	SchedJobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slipway",
		Subsystem: "sched",
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by outcome (ok, error, nonzero_exit).",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(AgentRunsTotal, AgentRunDuration, SchedJobRunsTotal)
}
