// Package telemetry exposes prometheus metrics for the generation pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors the pipeline reports into. All record
// methods tolerate a nil receiver so wiring metrics stays optional in tests
// and one-shot CLI runs.
type Metrics struct {
	Registry *prometheus.Registry

	questionsGenerated prometheus.Counter
	examsGenerated     prometheus.Counter
	batchRuns          *prometheus.CounterVec
	topicOutcomes      *prometheus.CounterVec
	qualityScores      prometheus.Histogram
	batchDuration      prometheus.Histogram
	budgetUsed         prometheus.Gauge
}

// New creates a Metrics with its own registry, suitable for serving via
// promhttp.HandlerFor.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		questionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "studygen_questions_generated_total",
			Help: "Quiz questions accepted and saved.",
		}),
		examsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "studygen_exams_generated_total",
			Help: "Exam papers accepted and saved.",
		}),
		batchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studygen_batch_runs_total",
			Help: "Batch runs by terminal status.",
		}, []string{"status"}),
		topicOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studygen_batch_topics_total",
			Help: "Per-topic generation outcomes within batch runs.",
		}, []string{"outcome"}),
		qualityScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "studygen_question_quality_score",
			Help:    "Validator quality scores of accepted questions.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "studygen_batch_duration_seconds",
			Help:    "Wall-clock duration of batch runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		budgetUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "studygen_daily_budget_used",
			Help: "Questions consumed from today's budget.",
		}),
	}
}

func (m *Metrics) AddQuestions(n int) {
	if m == nil {
		return
	}
	m.questionsGenerated.Add(float64(n))
}

func (m *Metrics) AddExam() {
	if m == nil {
		return
	}
	m.examsGenerated.Inc()
}

func (m *Metrics) RecordBatchRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(status).Inc()
	m.batchDuration.Observe(seconds)
}

func (m *Metrics) RecordTopic(outcome string) {
	if m == nil {
		return
	}
	m.topicOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQuality(score float64) {
	if m == nil {
		return
	}
	m.qualityScores.Observe(score)
}

func (m *Metrics) SetBudgetUsed(n int) {
	if m == nil {
		return
	}
	m.budgetUsed.Set(float64(n))
}
