package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/triage/pkg/domain"
)

// Metrics holds the triage collectors.
type Metrics struct {
	registry    *prometheus.Registry
	flowStarts  *prometheus.CounterVec
	stageVisits *prometheus.CounterVec
	summaries   *prometheus.CounterVec
	classified  *prometheus.CounterVec
	turns       *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, alongside the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		flowStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_flow_starts_total",
			Help: "Flows started, by domain.",
		}, []string{"domain"}),
		stageVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_stage_visits_total",
			Help: "Stage advances, by domain and stage.",
		}, []string{"domain", "stage"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_summaries_total",
			Help: "Flows that reached their summary, by domain.",
		}, []string{"domain"}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Classifier calls, by classifier and whether the pattern fallback was used.",
		}, []string{"classifier", "fallback"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_turns_total",
			Help: "Handled messages, by reply kind.",
		}, []string{"kind"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_turn_duration_seconds",
			Help:    "Time to handle one message, store round-trip included.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.flowStarts, m.stageVisits, m.summaries, m.classified, m.turns, m.turnLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records every lifecycle event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(_ context.Context, e *domain.FlowEvent) {
			m.flowStarts.WithLabelValues(string(e.Domain)).Inc()
			m.stageVisits.WithLabelValues(string(e.Domain), e.Stage).Inc()
		},
		OnStageAdvance: func(_ context.Context, e *domain.FlowEvent) {
			m.stageVisits.WithLabelValues(string(e.Domain), e.Stage).Inc()
		},
		OnFlowSummary: func(_ context.Context, e *domain.FlowEvent) {
			m.summaries.WithLabelValues(string(e.Domain)).Inc()
		},
		OnClassify: func(_ context.Context, e *domain.ClassifyEvent) {
			fallback := "false"
			if e.Fallback {
				fallback = "true"
			}
			m.classified.WithLabelValues(e.Classifier, fallback).Inc()
		},
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(string(e.Kind)).Inc()
			m.turnLatency.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
		},
	}
}
