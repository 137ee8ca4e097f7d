// Package metrics exposes Prometheus collectors for conversations, emitter
// fan-out and scheduler runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wellbot"

// Metrics holds every collector on its own registry so tests and multiple
// instances never collide on the default registerer. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	ConversationsStarted   *prometheus.CounterVec
	ConversationsCompleted *prometheus.CounterVec
	MessagesProcessed      *prometheus.CounterVec
	RecordWriteFailures    *prometheus.CounterVec
	EmitterResults         *prometheus.CounterVec
	SchedulerRuns          *prometheus.CounterVec
	SchedulerRunDuration   *prometheus.HistogramVec
	NotifyDeliveries       *prometheus.CounterVec
	WebsocketConnections   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConversationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_started_total",
			Help:      "Conversations opened, by conversation type.",
		}, []string{"type"}),
		ConversationsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_completed_total",
			Help:      "Conversations that reached completion, by conversation type.",
		}, []string{"type"}),
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Inbound user messages, by conversation type and outcome.",
		}, []string{"type", "outcome"}),
		RecordWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derived_record_failures_total",
			Help:      "Derived checkin/burnout record writes that failed at completion.",
		}, []string{"type"}),
		EmitterResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emitter_results_total",
			Help:      "Per-user trigger outcomes.",
		}, []string{"trigger", "status"}),
		SchedulerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Scheduled trigger executions.",
		}, []string{"trigger"}),
		SchedulerRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Duration of one trigger fan-out.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		NotifyDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_deliveries_total",
			Help:      "Notification deliveries per subscriber and status.",
		}, []string{"subscriber", "status"}),
		WebsocketConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket connections.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ConversationStarted(convType string) {
	if m == nil {
		return
	}
	m.ConversationsStarted.WithLabelValues(convType).Inc()
}

func (m *Metrics) ConversationCompleted(convType string) {
	if m == nil {
		return
	}
	m.ConversationsCompleted.WithLabelValues(convType).Inc()
}

func (m *Metrics) MessageProcessed(convType, outcome string) {
	if m == nil {
		return
	}
	m.MessagesProcessed.WithLabelValues(convType, outcome).Inc()
}

func (m *Metrics) RecordWriteFailed(convType string) {
	if m == nil {
		return
	}
	m.RecordWriteFailures.WithLabelValues(convType).Inc()
}

func (m *Metrics) EmitterResult(trigger string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.EmitterResults.WithLabelValues(trigger, status).Inc()
}

func (m *Metrics) SchedulerRun(trigger string, seconds float64) {
	if m == nil {
		return
	}
	m.SchedulerRuns.WithLabelValues(trigger).Inc()
	m.SchedulerRunDuration.WithLabelValues(trigger).Observe(seconds)
}

func (m *Metrics) NotifyDelivery(subscriber string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.NotifyDeliveries.WithLabelValues(subscriber, status).Inc()
}

func (m *Metrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Inc()
}

func (m *Metrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Dec()
}
