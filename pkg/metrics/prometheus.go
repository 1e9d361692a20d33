package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal      *prometheus.CounterVec
	tokensTotal        *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	turnDuration       *prometheus.HistogramVec
	transitionsTotal   *prometheus.CounterVec
	invalidTransitions *prometheus.CounterVec
	crisisTotal        *prometheus.CounterVec
	gateBlockedTotal   prometheus.Counter
	exerciseEvents     *prometheus.CounterVec
}

// NewRegistry returns a registry with the standard Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewPrometheusRecorder creates a recorder whose metrics are registered on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of model requests by model, state, and status",
			},
			[]string{"model", "state", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in model requests",
			},
			[]string{"model", "state", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of model requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "state"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conversation_turn_duration_seconds",
				Help:    "Duration of a full conversation turn in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversation_transitions_total",
				Help: "Accepted conversation state changes",
			},
			[]string{"from", "to"},
		),
		invalidTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversation_invalid_transitions_total",
				Help: "Proposed state changes rejected by the transition table",
			},
			[]string{"from", "to"},
		),
		crisisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crisis_detections_total",
				Help: "Crisis detections by severity",
			},
			[]string{"severity"},
		),
		gateBlockedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gate_blocked_searches_total",
				Help: "Exercise searches refused because gate conditions were unmet",
			},
		),
		exerciseEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exercise_events_total",
				Help: "Exercise lifecycle events",
			},
			[]string{"event"},
		),
	}
}

// ObserveRequest records metrics for a completed model request.
func (p *PrometheusRecorder) ObserveRequest(
	model, state string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, state, status, errorType).Inc()

	// Tokens only count on success
	if success {
		p.tokensTotal.WithLabelValues(model, state, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, state, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, state).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveTurn(state string, duration time.Duration) {
	p.turnDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncTransition(from, to string) {
	p.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) IncInvalidTransition(from, to string) {
	p.invalidTransitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) IncCrisis(severity string) {
	p.crisisTotal.WithLabelValues(severity).Inc()
}

func (p *PrometheusRecorder) IncGateBlocked() {
	p.gateBlockedTotal.Inc()
}

func (p *PrometheusRecorder) IncExerciseEvent(event string) {
	p.exerciseEvents.WithLabelValues(event).Inc()
}
