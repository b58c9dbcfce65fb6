// Package metrics provides Prometheus metrics for the conversation engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the conversation engine
type Metrics struct {
	// Turn metrics
	TurnsTotal    *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	TurnsInFlight prometheus.Gauge

	// Model gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// Degradation metrics
	ExtractionFallbacksTotal *prometheus.CounterVec
	ReplyFallbacksTotal      *prometheus.CounterVec

	// Search metrics
	CandidateSearchesTotal *prometheus.CounterVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "righthome_turns_total",
				Help: "Total number of conversation turns by resulting stage band",
			},
			[]string{"band"},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "righthome_turn_duration_seconds",
				Help:    "End-to-end duration of a conversation turn",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		TurnsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "righthome_turns_in_flight",
				Help: "Number of conversation turns currently being processed",
			},
		),
		GatewayCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "righthome_gateway_calls_total",
				Help: "Model gateway calls by purpose and outcome",
			},
			[]string{"purpose", "outcome"},
		),
		GatewayCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "righthome_gateway_call_duration_seconds",
				Help:    "Duration of model gateway calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"purpose"},
		),
		ExtractionFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "righthome_extraction_fallbacks_total",
				Help: "Turns where requirement extraction degraded, by cause",
			},
			[]string{"cause"},
		),
		ReplyFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "righthome_reply_fallbacks_total",
				Help: "Replies served from canned text, by stage band",
			},
			[]string{"band"},
		),
		CandidateSearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "righthome_candidate_searches_total",
				Help: "Candidate property searches by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// NewNop returns metrics bound to a private registry. Used by tests and tools
// that never expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveGatewayCall records one model call
func (m *Metrics) ObserveGatewayCall(purpose, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.GatewayCallsTotal.WithLabelValues(purpose, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(purpose).Observe(time.Since(started).Seconds())
}

// ExtractionFallback records a degraded extraction turn
func (m *Metrics) ExtractionFallback(cause string) {
	if m == nil {
		return
	}
	m.ExtractionFallbacksTotal.WithLabelValues(cause).Inc()
}

// ReplyFallback records a canned reply
func (m *Metrics) ReplyFallback(band string) {
	if m == nil {
		return
	}
	m.ReplyFallbacksTotal.WithLabelValues(band).Inc()
}

// CandidateSearch records one candidate lookup
func (m *Metrics) CandidateSearch(outcome string) {
	if m == nil {
		return
	}
	m.CandidateSearchesTotal.WithLabelValues(outcome).Inc()
}

// TurnStarted marks a turn in flight. The returned func records its
// duration and resulting band.
func (m *Metrics) TurnStarted() func(band string) {
	if m == nil {
		return func(string) {}
	}
	started := time.Now()
	m.TurnsInFlight.Inc()
	return func(band string) {
		m.TurnsInFlight.Dec()
		m.TurnDuration.Observe(time.Since(started).Seconds())
		if band != "" {
			m.TurnsTotal.WithLabelValues(band).Inc()
		}
	}
}
