// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dash"

// Metrics holds the engine's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	attempts         *prometheus.CounterVec
	attemptDuration  prometheus.Histogram
	updates          *prometheus.CounterVec
	affected         prometheus.Histogram
	selections       *prometheus.CounterVec
	selectionLatency prometheus.Histogram
	unlocks          *prometheus.CounterVec
	enrollments      *prometheus.CounterVec
	errors           *prometheus.CounterVec
	catalogSkills    prometheus.Gauge
	catalogReloads   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "processed_total",
			Help:      "Attempts processed, by correctness",
		}, []string{"correct"}),
		attemptDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "duration_seconds",
			Help:      "Time to lock, load, update and save one attempt",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "skill_updates_total",
			Help:      "Skill strength updates, by source (direct, prerequisite, or cascade category)",
		}, []string{"source"}),
		affected: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attempt",
			Name:      "affected_skills",
			Help:      "Distinct skills changed by one attempt",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		selections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "selections_total",
			Help:      "Next-question requests, by outcome (question, exhausted)",
		}, []string{"outcome"}),
		selectionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "selection_duration_seconds",
			Help:      "Time to select the next question",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		unlocks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "grade_unlocks_total",
			Help:      "Grade unlocks, by the grade unlocked",
		}, []string{"grade"}),
		enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "learner",
			Name:      "enrollments_total",
			Help:      "Cold starts, by starting grade",
		}, []string{"grade"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Failed engine operations, by operation and error kind",
		}, []string{"op", "kind"}),
		catalogSkills: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "skills",
			Help:      "Skills in the active catalog",
		}),
		catalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Catalog reloads, by status (success, error)",
		}, []string{"status"}),
	}
}

// ObserveAttempt records one processed attempt.
func (m *Metrics) ObserveAttempt(correct bool, affected int, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(strconv.FormatBool(correct)).Inc()
	m.affected.Observe(float64(affected))
	m.attemptDuration.Observe(d.Seconds())
}

// ObserveUpdate records one skill update from source.
func (m *Metrics) ObserveUpdate(source string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(source).Inc()
}

// ObserveSelection records a next-question request.
func (m *Metrics) ObserveSelection(found bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "question"
	if !found {
		outcome = "exhausted"
	}
	m.selections.WithLabelValues(outcome).Inc()
	m.selectionLatency.Observe(d.Seconds())
}

// ObserveUnlock records a grade unlock.
func (m *Metrics) ObserveUnlock(grade string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(grade).Inc()
}

// ObserveEnroll records a cold start.
func (m *Metrics) ObserveEnroll(grade string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(grade).Inc()
}

// ObserveError records a failed operation. kind should be a small fixed set
// (not_found, validation, conflict, internal).
func (m *Metrics) ObserveError(op, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, kind).Inc()
}

// ObserveCatalog records a catalog reload attempt and, on success, its size.
func (m *Metrics) ObserveCatalog(skills int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.catalogReloads.WithLabelValues("error").Inc()
		return
	}
	m.catalogReloads.WithLabelValues("success").Inc()
	m.catalogSkills.Set(float64(skills))
}
