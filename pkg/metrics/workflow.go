package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records lifecycle transitions and demand expansions.
type WorkflowMetrics struct {
	transitions         *prometheus.CounterVec
	rejectedTransitions *prometheus.CounterVec
	expansions          *prometheus.CounterVec
	expansionRows       prometheus.Histogram
}

// NewWorkflowMetrics registers the workflow metrics on the provided
// registerer. A nil registerer yields a no-op instance.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Applied lifecycle transitions.",
	}, []string{"aggregate", "transition"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_rejected_total",
		Help: "Lifecycle transitions rejected as illegal.",
	}, []string{"aggregate", "transition"})
	expansions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_expansions_total",
		Help: "Demand expansions by outcome.",
	}, []string{"outcome"})
	expansionRows := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "workflow_expansion_rows",
		Help:    "Composition rows emitted per expansion.",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
	reg.MustRegister(transitions, rejected, expansions, expansionRows)
	return &WorkflowMetrics{
		transitions:         transitions,
		rejectedTransitions: rejected,
		expansions:          expansions,
		expansionRows:       expansionRows,
	}
}

// IncTransition counts one applied transition.
func (w *WorkflowMetrics) IncTransition(aggregate, transition string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(aggregate), normalizeLabel(transition)).Inc()
}

// IncRejected counts one transition refused by a state guard.
func (w *WorkflowMetrics) IncRejected(aggregate, transition string) {
	if w == nil || w.rejectedTransitions == nil {
		return
	}
	w.rejectedTransitions.WithLabelValues(normalizeLabel(aggregate), normalizeLabel(transition)).Inc()
}

// ObserveExpansion records one expansion with its emitted row count.
func (w *WorkflowMetrics) ObserveExpansion(outcome string, rows int) {
	if w == nil {
		return
	}
	if w.expansions != nil {
		w.expansions.WithLabelValues(normalizeLabel(outcome)).Inc()
	}
	if w.expansionRows != nil && rows >= 0 {
		w.expansionRows.Observe(float64(rows))
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
