package observability

import (
	"net/http"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LifecycleMetrics exports question lifecycle signals to Prometheus.
type LifecycleMetrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	allocations    *prometheus.CounterVec
	allocationSize *prometheus.HistogramVec
	answerQuality  *prometheus.HistogramVec
	failures       *prometheus.CounterVec
}

// NewLifecycleMetrics registers collectors on a private registry so tests and
// multiple instances never collide on the global one.
func NewLifecycleMetrics() *LifecycleMetrics {
	m := &LifecycleMetrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrivote_question_transitions_total",
				Help: "Question status transitions",
			},
			[]string{"from", "to"},
		),
		allocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrivote_allocations_total",
				Help: "Allocation rounds by domain and outcome",
			},
			[]string{"domain", "outcome"},
		),
		allocationSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agrivote_allocation_experts",
				Help:    "Experts assigned per allocation round",
				Buckets: []float64{0, 1, 2, 3},
			},
			[]string{"domain"},
		),
		answerQuality: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agrivote_answer_quality_score",
				Help:    "Quality score of submitted and edited answers",
				Buckets: []float64{50, 60, 70, 80, 90, 100},
			},
			[]string{"domain"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrivote_command_failures_total",
				Help: "Rejected or failed lifecycle commands",
			},
			[]string{"command", "reason"},
		),
	}
	m.registry.MustRegister(
		m.transitions,
		m.allocations,
		m.allocationSize,
		m.answerQuality,
		m.failures,
	)
	return m
}

func (m *LifecycleMetrics) QuestionTransitioned(from entities.QuestionStatus, to entities.QuestionStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *LifecycleMetrics) AllocationCompleted(domain entities.Domain, expertCount int) {
	outcome := "staffed"
	if expertCount == 0 {
		outcome = "empty"
	}
	m.allocations.WithLabelValues(string(domain), outcome).Inc()
	m.allocationSize.WithLabelValues(string(domain)).Observe(float64(expertCount))
}

func (m *LifecycleMetrics) AnswerScored(domain entities.Domain, score int) {
	m.answerQuality.WithLabelValues(string(domain)).Observe(float64(score))
}

func (m *LifecycleMetrics) CommandFailed(command string, reason string) {
	m.failures.WithLabelValues(command, reason).Inc()
}

func (m *LifecycleMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *LifecycleMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ ports.LifecycleMetrics = (*LifecycleMetrics)(nil)
