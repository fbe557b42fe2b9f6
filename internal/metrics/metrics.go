// Package metrics counts task outcomes per stage with Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "get"

// Metrics implements worker.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Handled tasks by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished runs by command and result.",
			},
			[]string{"command", "result"},
		),
	}
	m.registry.MustRegister(
		m.tasks,
		m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TaskDone counts one handled task.
func (m *Metrics) TaskDone(stage, outcome string) {
	m.tasks.WithLabelValues(stage, outcome).Inc()
}

// RunDone counts one finished run.
func (m *Metrics) RunDone(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(command, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
