package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndHistogram(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AttemptStarted()
	m.AttemptSubmitted(80, false)
	m.AttemptSubmitted(40, true)
	m.Auth("login", errors.New("nope"))
	m.CacheLookup("memory", true)

	if got := testutil.ToFloat64(m.AttemptsStarted); got != 1 {
		t.Fatalf("expected 1 start, got %v", got)
	}
	if got := testutil.ToFloat64(m.AttemptsSubmitted.WithLabelValues("auto")); got != 1 {
		t.Fatalf("expected 1 auto submit, got %v", got)
	}
	if got := testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", "failure")); got != 1 {
		t.Fatalf("expected 1 failed login, got %v", got)
	}
	if got := testutil.CollectAndCount(m.Scores); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.AttemptStarted()
	m.AnswerRecorded()
	m.AttemptSubmitted(100, false)
	m.Auth("register", nil)
	m.CacheLookup("redis", false)
}
