package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/metrics"
	"quiz-attempt-service/internal/scoring"
)

// AttemptService drives the in_progress -> submitted lifecycle of attempts.
// The acting user is read from the context (identity.WithUser).
type AttemptService struct {
	attempts AttemptRepository
	quizzes  QuizSource
	locks    SubmitLock
	events   EventPublisher
	clock    func() time.Time
	newID    func() string
	after    AfterFunc
	timers   *timerSet
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

// answerPrecision is the coarsest timestamp resolution of the attempt stores.
const answerPrecision = time.Millisecond

type AttemptOption func(*AttemptService)

func WithClock(now func() time.Time) AttemptOption {
	return func(s *AttemptService) { s.clock = now }
}

func WithIDGenerator(newID func() string) AttemptOption {
	return func(s *AttemptService) { s.newID = newID }
}

func WithEvents(p EventPublisher) AttemptOption {
	return func(s *AttemptService) { s.events = p }
}

func WithSubmitLock(l SubmitLock) AttemptOption {
	return func(s *AttemptService) { s.locks = l }
}

func WithAfterFunc(f AfterFunc) AttemptOption {
	return func(s *AttemptService) { s.after = f }
}

func WithLogger(l *logrus.Logger) AttemptOption {
	return func(s *AttemptService) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) AttemptOption {
	return func(s *AttemptService) { s.metrics = m }
}

func NewAttemptService(attempts AttemptRepository, quizzes QuizSource, opts ...AttemptOption) *AttemptService {
	s := &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		locks:    newLocalLock(),
		events:   NopPublisher{},
		clock:    time.Now,
		newID:    uuid.NewString,
		after:    realAfterFunc,
		timers:   newTimerSet(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens an attempt of quizID for userID, snapshotting the quiz timing.
// Only the user themselves may start their attempt.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	actor, ok := identity.UserID(ctx)
	if !ok {
		return domain.Attempt{}, domain.ErrNotAuthenticated
	}
	if actor != userID {
		return domain.Attempt{}, domain.ErrNotAuthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}

	attempt := domain.Attempt{
		ID:             s.newID(),
		UserID:         userID,
		QuizID:         quiz.ID,
		Status:         domain.AttemptInProgress,
		TimingSnapshot: quiz.Timing,
		StartedAt:      s.clock().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}

	s.metrics.AttemptStarted()
	s.publish(ctx, domain.AttemptEvent{
		Type:      domain.EventAttemptStarted,
		AttemptID: attempt.ID,
		UserID:    attempt.UserID,
		QuizID:    attempt.QuizID,
		At:        attempt.StartedAt,
	})
	s.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"quiz_id":    quizID,
		"user_id":    userID,
		"timed":      attempt.TimingSnapshot.Timed(),
	}).Info("attempt started")
	return attempt, nil
}

// GetAttempt returns an attempt owned by the acting user.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	_, attempt, err := s.owned(ctx, attemptID)
	return attempt, err
}

// RecordAnswer writes the acting user's answer to one question. Writes are
// last-write-wins by AnsweredAt and are rejected once the attempt is submitted.
func (s *AttemptService) RecordAnswer(ctx context.Context, attemptID string, sub domain.AnswerSubmission) (domain.Answer, error) {
	actor, attempt, err := s.owned(ctx, attemptID)
	if err != nil {
		return domain.Answer{}, err
	}
	if attempt.Status == domain.AttemptSubmitted {
		return domain.Answer{}, domain.ErrAttemptSubmitted
	}
	if strings.TrimSpace(sub.QuestionID) == "" {
		return domain.Answer{}, domain.NewValidationError("questionId", "is required")
	}

	answeredAt := sub.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = s.clock()
	}
	// Every store must compare the same instant; mongo keeps milliseconds.
	answeredAt = answeredAt.UTC().Truncate(answerPrecision)
	live, err := s.attempts.UpsertAttemptAnswer(ctx, domain.Answer{
		AttemptID:  attemptID,
		QuestionID: sub.QuestionID,
		UserID:     actor,
		Value:      sub.Answer,
		AnsweredAt: answeredAt,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("record answer: %w", err)
	}
	s.metrics.AnswerRecorded()
	return live, nil
}

// Unanswered lists, in quiz order, the questions without a non-blank answer.
func (s *AttemptService) Unanswered(ctx context.Context, attemptID string) ([]string, error) {
	actor, attempt, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answerMap(ctx, attemptID, actor)
	if err != nil {
		return nil, err
	}
	missing := make([]string, 0)
	for _, q := range quiz.Questions {
		if strings.TrimSpace(answers[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	return missing, nil
}

// Submit scores and closes the attempt. It runs at most once per attempt; a
// second call fails with domain.ErrAttemptSubmitted.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (domain.SubmitResult, error) {
	return s.submit(ctx, attemptID, false)
}

func (s *AttemptService) submit(ctx context.Context, attemptID string, auto bool) (domain.SubmitResult, error) {
	actor, attempt, err := s.owned(ctx, attemptID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if attempt.Status == domain.AttemptSubmitted {
		return domain.SubmitResult{}, domain.ErrAttemptSubmitted
	}

	release, err := s.locks.Acquire(ctx, attemptID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	defer release()

	// Another submission may have finished between the read and the lock.
	attempt, err = s.attempts.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if attempt.Status == domain.AttemptSubmitted {
		return domain.SubmitResult{}, domain.ErrAttemptSubmitted
	}

	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	var result domain.ScoreResult
	submitted, err := s.attempts.SubmitAttempt(ctx, attemptID, s.clock().UTC(), func(answers []domain.Answer) int {
		result = scoring.Score(quiz, toAnswerMap(answers))
		return result.Score
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptSubmitted) {
			return domain.SubmitResult{}, err
		}
		return domain.SubmitResult{}, fmt.Errorf("submit attempt: %w", err)
	}
	s.timers.stopAll(attemptID)

	var submittedAt time.Time
	if submitted.SubmittedAt != nil {
		submittedAt = *submitted.SubmittedAt
	}
	score := result.Score
	s.metrics.AttemptSubmitted(score, auto)
	s.publish(ctx, domain.AttemptEvent{
		Type:      domain.EventAttemptSubmitted,
		AttemptID: attemptID,
		UserID:    actor,
		QuizID:    attempt.QuizID,
		Score:     &score,
		Auto:      auto,
		At:        submittedAt,
	})
	s.logger.WithFields(logrus.Fields{
		"attempt_id": attemptID,
		"score":      score,
		"correct":    result.CorrectAnswers,
		"total":      result.TotalQuestions,
		"auto":       auto,
	}).Info("attempt submitted")

	return domain.SubmitResult{
		AttemptID:      attemptID,
		Score:          score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		SubmittedAt:    submittedAt,
		Auto:           auto,
	}, nil
}

// GetResults recomputes the score of a submitted attempt from its stored
// answers. The persisted score is used only when the quiz now has no questions.
func (s *AttemptService) GetResults(ctx context.Context, attemptID string) (domain.Results, error) {
	actor, attempt, err := s.owned(ctx, attemptID)
	if err != nil {
		return domain.Results{}, err
	}
	if attempt.Status != domain.AttemptSubmitted {
		return domain.Results{}, domain.ErrResultsNotReady
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Results{}, err
	}
	answers, err := s.answerMap(ctx, attemptID, actor)
	if err != nil {
		return domain.Results{}, err
	}

	result := scoring.Score(quiz, answers)
	if result.TotalQuestions == 0 && attempt.Score != nil {
		result.Score = *attempt.Score
		result.Diagnosis = scoring.Diagnose(result.Score)
	}
	return domain.Results{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		CompletedAt: attempt.SubmittedAt,
		ScoreResult: result,
	}, nil
}

// ScheduleAutoSubmit submits the attempt at its timing deadline if it is still
// in progress, skipping the unanswered-question confirmation. notify receives
// the outcome; it is not called when the attempt was already submitted. The
// returned cancel stops only this schedule. Untimed attempts get a no-op.
func (s *AttemptService) ScheduleAutoSubmit(ctx context.Context, attemptID string, notify func(domain.SubmitResult, error)) (func(), error) {
	_, attempt, err := s.owned(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == domain.AttemptSubmitted {
		return nil, domain.ErrAttemptSubmitted
	}
	deadline, timed := attempt.Deadline()
	if !timed {
		return func() {}, nil
	}
	delay := deadline.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}

	owner := attempt.UserID
	cancel := s.timers.schedule(s.after, attemptID, delay, func() {
		// The request context is long gone by the deadline.
		res, err := s.submit(identity.WithUser(context.Background(), owner), attemptID, true)
		if errors.Is(err, domain.ErrAttemptSubmitted) || errors.Is(err, domain.ErrSubmitInProgress) {
			return
		}
		if err != nil {
			s.logger.WithError(err).WithField("attempt_id", attemptID).Warn("auto submit failed")
		}
		if notify != nil {
			notify(res, err)
		}
	})
	s.logger.WithFields(logrus.Fields{"attempt_id": attemptID, "deadline": deadline}).Debug("auto submit scheduled")
	return cancel, nil
}

// owned loads the attempt and checks it belongs to the acting user.
func (s *AttemptService) owned(ctx context.Context, attemptID string) (string, domain.Attempt, error) {
	actor, ok := identity.UserID(ctx)
	if !ok {
		return "", domain.Attempt{}, domain.ErrNotAuthenticated
	}
	attempt, err := s.attempts.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return "", domain.Attempt{}, err
	}
	if attempt.UserID != actor {
		return "", domain.Attempt{}, domain.ErrNotAuthorized
	}
	return actor, attempt, nil
}

func (s *AttemptService) answerMap(ctx context.Context, attemptID, userID string) (map[string]string, error) {
	answers, err := s.attempts.GetAttemptAnswers(ctx, attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return toAnswerMap(answers), nil
}

func toAnswerMap(answers []domain.Answer) map[string]string {
	out := make(map[string]string, len(answers))
	for _, a := range answers {
		out[a.QuestionID] = a.Value
	}
	return out
}

func (s *AttemptService) publish(ctx context.Context, evt domain.AttemptEvent) {
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"event": evt.Type, "attempt_id": evt.AttemptID}).Warn("publish event failed")
	}
}
