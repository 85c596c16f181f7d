package projection

import (
	"math"

	"quiz-attempt-service/internal/domain"
)

// minutesPerQuestion is the pacing used when a quiz carries no timing data.
const minutesPerQuestion = 1.5

// EstimatedMinutes derives a quiz's estimated time. activeQuestions is the
// number of non-archived questions that still exist; every caller passes the
// same count so listing, opening and starting agree.
func EstimatedMinutes(q domain.QuizRecord, activeQuestions int) float64 {
	if q.EstimatedTime > 0 && !math.IsInf(q.EstimatedTime, 0) {
		return q.EstimatedTime
	}
	if q.Timing != nil && q.Timing.Enabled && q.Timing.DurationSeconds > 0 {
		return math.Max(1, math.Ceil(float64(q.Timing.DurationSeconds)/60))
	}
	return math.Max(1, math.Ceil(float64(activeQuestions)*minutesPerQuestion))
}

// ResolveTiming builds the timer configuration an attempt snapshots at start.
// A quiz without a timing record is timed for its estimated duration.
func ResolveTiming(q domain.QuizRecord, activeQuestions int) domain.Timing {
	est := EstimatedMinutes(q, activeQuestions)
	timing := domain.Timing{
		Enabled:         true,
		DurationSeconds: int(math.Round(est * 60)),
		PerQuestion:     perQuestion(q),
	}
	if q.Timing != nil {
		timing.Enabled = q.Timing.Enabled
		if q.Timing.Enabled && q.Timing.DurationSeconds > 0 {
			timing.DurationSeconds = q.Timing.DurationSeconds
		}
	}
	return timing
}

func perQuestion(q domain.QuizRecord) bool {
	if q.IsTimePerQuestion != nil {
		return *q.IsTimePerQuestion
	}
	return q.Timing != nil && q.Timing.PerQuestion
}
