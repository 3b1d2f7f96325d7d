// Package metrics provides Prometheus metrics for the concierge service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "concierge"

// Metrics holds the service's Prometheus collectors.
// A nil *Metrics is valid and turns every recording method into a no-op.
type Metrics struct {
	reg *prometheus.Registry

	activeSessions prometheus.Gauge
	messagesTotal  prometheus.Counter
	handoffsTotal  *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	platformErrors prometheus.Counter
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
	}

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Currently connected chat sessions",
	})
	m.messagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "messages_total",
		Help:      "Total user messages processed",
	})
	m.handoffsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "handoffs_total",
		Help:      "Messages routed per agent type",
	}, []string{"agent_type"})
	m.toolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "tool_calls_total",
		Help:      "Tool invocations resolved for the platform",
	}, []string{"tool"})
	m.platformErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "platform_errors_total",
		Help:      "Failed calls to the external agent platform",
	})

	m.reg.MustRegister(m.activeSessions, m.messagesTotal, m.handoffsTotal, m.toolCallsTotal, m.platformErrors)
	return m
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// SessionOpened records a new chat session.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

// SessionClosed records a chat session ending.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// MessageProcessed records one handled user message.
func (m *Metrics) MessageProcessed() {
	if m != nil {
		m.messagesTotal.Inc()
	}
}

// Handoff records a routing decision.
func (m *Metrics) Handoff(agentType string) {
	if m != nil {
		m.handoffsTotal.WithLabelValues(agentType).Inc()
	}
}

// ToolCall records a resolved tool invocation.
func (m *Metrics) ToolCall(tool string) {
	if m != nil {
		m.toolCallsTotal.WithLabelValues(tool).Inc()
	}
}

// PlatformError records a failed platform call.
func (m *Metrics) PlatformError() {
	if m != nil {
		m.platformErrors.Inc()
	}
}
