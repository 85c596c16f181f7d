// Package metrics exposes Prometheus collectors for the attempt lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors recorded by the services. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	AttemptsStarted   prometheus.Counter
	AnswersRecorded   prometheus.Counter
	AttemptsSubmitted *prometheus.CounterVec
	Scores            prometheus.Histogram
	AuthAttempts      *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Total number of quiz attempts started",
		}),
		AnswersRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_answers_recorded_total",
			Help: "Total number of answer writes accepted",
		}),
		AttemptsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_attempts_submitted_total",
			Help: "Total number of quiz attempts submitted",
		}, []string{"trigger"}), // trigger: manual/auto
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_attempt_score_percent",
			Help:    "Distribution of submitted attempt scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_auth_attempts_total",
			Help: "Total number of login and registration attempts",
		}, []string{"action", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_cache_lookups_total",
			Help: "Quiz cache lookups by result",
		}, []string{"cache", "result"}), // result: hit/miss
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsStarted, m.AnswersRecorded, m.AttemptsSubmitted, m.Scores, m.AuthAttempts, m.CacheLookups)
	}
	return m
}

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.AttemptsStarted.Inc()
}

func (m *Metrics) AnswerRecorded() {
	if m == nil {
		return
	}
	m.AnswersRecorded.Inc()
}

func (m *Metrics) AttemptSubmitted(score int, auto bool) {
	if m == nil {
		return
	}
	trigger := "manual"
	if auto {
		trigger = "auto"
	}
	m.AttemptsSubmitted.WithLabelValues(trigger).Inc()
	m.Scores.Observe(float64(score))
}

func (m *Metrics) Auth(action string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.AuthAttempts.WithLabelValues(action, status).Inc()
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}
