package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace_assistant"

// Turn outcomes
const (
	OutcomeOK               = "ok"
	OutcomeRetrievalError   = "retrieval_error"
	OutcomeClassifierError  = "classification_error"
	OutcomeTemplateError    = "template_error"
	OutcomeGenerationError  = "generation_error"
	OutcomeUnrecognizedKept = "unrecognized_stage"
)

// JourneyMetrics groups the collectors of the conversational pipeline on a private registry
type JourneyMetrics struct {
	registry *prometheus.Registry

	Turns              *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	Transitions        *prometheus.CounterVec
	RetrievedDocuments prometheus.Histogram
	SessionsEnded      prometheus.Counter
	JourneyEvents      *prometheus.CounterVec
}

func NewJourneyMetrics() *JourneyMetrics {
	m := &JourneyMetrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by pipeline mode, resulting stage and outcome.",
		}, []string{"mode", "stage", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full turn including retrieval, classification and generation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"mode"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Applied stage transitions.",
		}, []string{"from", "to"}),
		RetrievedDocuments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_documents",
			Help:      "Documents returned per catalog search.",
			Buckets:   []float64{0, 1, 2, 4, 8},
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions whose transcript was persisted.",
		}),
		JourneyEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journey_events_consumed_total",
			Help:      "Journey events read back from the bus, by type and stage.",
		}, []string{"type", "stage"}),
	}

	m.registry.MustRegister(
		m.Turns,
		m.TurnDuration,
		m.Transitions,
		m.RetrievedDocuments,
		m.SessionsEnded,
		m.JourneyEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *JourneyMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *JourneyMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
