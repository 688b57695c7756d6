// Package metrics exposes the service's Prometheus instrumentation.
// Counters live on a dedicated registry so tests can build isolated
// instances, and an optional pushgateway publishes them from
// short-lived deployments.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Metrics struct {
	registry *prometheus.Registry

	EventsProcessed *prometheus.CounterVec
	TasksSubmitted  *prometheus.CounterVec
	TasksCompleted  *prometheus.CounterVec
	TaskRetries     prometheus.Counter
	GateDenials     prometheus.Counter
	TaskDuration    *prometheus.HistogramVec
	QueueDepth      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forgebot_events_processed_total",
			Help: "Inbound events by kind and dispatch decision.",
		}, []string{"kind", "decision"}),
		TasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forgebot_tasks_submitted_total",
			Help: "Tasks handed to the queue, by handler.",
		}, []string{"handler"}),
		TasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forgebot_tasks_completed_total",
			Help: "Finished task runs, by handler and result.",
		}, []string{"handler", "result"}),
		TaskRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgebot_task_retries_total",
			Help: "Task runs re-enqueued for a later attempt.",
		}),
		GateDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forgebot_gate_denials_total",
			Help: "Events rejected by the access gate.",
		}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forgebot_task_duration_seconds",
			Help:    "Wall time of handler runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forgebot_queue_depth",
			Help: "Tasks currently waiting in the queue.",
		}),
	}
	m.registry.MustRegister(
		m.EventsProcessed,
		m.TasksSubmitted,
		m.TasksCompleted,
		m.TaskRetries,
		m.GateDenials,
		m.TaskDuration,
		m.QueueDepth,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push publishes the current metric state to a pushgateway. No-op when
// no gateway is configured.
func (m *Metrics) Push(gatewayURL, jobName string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, jobName).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
