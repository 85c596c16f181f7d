package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/infra/memory"
)

func TestStartRequiresMatchingIdentity(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Start(context.Background(), "quiz-1", "u1"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := svc.Start(as("u2"), "quiz-1", "u1"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if _, err := svc.Start(as("u1"), "quiz-missing", "u1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := svc.Start(as("u1"), "quiz-archived", "u1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected archived quiz not found, got %v", err)
	}

	attempt, err := svc.Start(as("u1"), "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.Status != domain.AttemptInProgress || attempt.TimingSnapshot.DurationSeconds != 300 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestFourMCQAttemptScoresSeventyFive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")

	for qid, answer := range map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "x"} {
		if _, err := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: qid, Answer: answer}); err != nil {
			t.Fatalf("record %s: %v", qid, err)
		}
	}
	res, err := svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 75 || res.CorrectAnswers != 3 {
		t.Fatalf("expected 75, got %+v", res)
	}

	results, err := svc.GetResults(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Diagnosis.Band != "great" || results.CompletedAt == nil {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestSubmitByOtherUserIsRejected(t *testing.T) {
	svc, store := newTestService(t)
	attempt := mustStart(t, svc, as("u1"), "quiz-1")

	if _, err := svc.Submit(as("intruder"), attempt.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	stored, _ := store.GetAttemptByID(context.Background(), attempt.ID)
	if stored.Score != nil || stored.Status != domain.AttemptInProgress {
		t.Fatalf("expected no score written, got %+v", stored)
	}
	if _, err := svc.Submit(as("u1"), "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestResultsBeforeSubmitNotReady(t *testing.T) {
	svc, _ := newTestService(t)
	attempt := mustStart(t, svc, as("u1"), "quiz-1")

	if _, err := svc.GetResults(as("u1"), attempt.ID); !errors.Is(err, domain.ErrResultsNotReady) {
		t.Fatalf("expected results not ready, got %v", err)
	}
	if _, err := svc.GetResults(as("u2"), attempt.ID); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
}

func TestLatestAnswerIsScored(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")

	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "x"})
	live, err := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"})
	if err != nil || live.Value != "a" {
		t.Fatalf("expected latest answer live, got %+v %v", live, err)
	}
	res, _ := svc.Submit(ctx, attempt.ID)
	if res.CorrectAnswers != 1 {
		t.Fatalf("expected the latest answer to be scored, got %+v", res)
	}
}

func TestOutOfOrderAnswerDoesNotOverwrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "b", AnsweredAt: t0.Add(time.Second)})
	live, _ := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a", AnsweredAt: t0})
	if live.Value != "b" {
		t.Fatalf("expected retry of older write to lose, got %q", live.Value)
	}
}

func TestSubmitTwiceAndAnswerAfterSubmit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")

	if _, err := svc.Submit(ctx, attempt.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, attempt.ID); !errors.Is(err, domain.ErrAttemptSubmitted) {
		t.Fatalf("expected second submit rejected, got %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"}); !errors.Is(err, domain.ErrAttemptSubmitted) {
		t.Fatalf("expected answer after submit rejected, got %v", err)
	}
}

func TestConcurrentSubmitRunsOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, attempt.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrAttemptSubmitted) && !errors.Is(err, domain.ErrSubmitInProgress) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful submit, got %d", successes)
	}
}

func TestUnanswered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")
	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q2", Answer: "b"})
	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q3", Answer: "  "})

	missing, err := svc.Unanswered(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("unanswered: %v", err)
	}
	want := []string{"q1", "q3", "q4"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, missing)
		}
	}
}

func TestResultsFallBackToPersistedScoreForEmptyQuiz(t *testing.T) {
	catalog := memory.NewCatalogStoreFrom(testCatalog())
	attempts := memory.NewAttemptStore()
	catalogSvc := app.NewCatalogService(catalog, catalog, catalog, nil)
	svc := app.NewAttemptService(attempts, catalogSvc)
	ctx := as("u1")

	attempt := mustStart(t, svc, ctx, "quiz-1")
	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"})
	_, _ = svc.Submit(ctx, attempt.ID)

	quiz, _ := catalog.GetQuizByID(context.Background(), "quiz-1")
	quiz.QuestionIDs = nil
	_ = catalog.SaveQuiz(context.Background(), quiz)

	results, err := svc.GetResults(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.TotalQuestions != 0 || results.Score != 25 {
		t.Fatalf("expected persisted score 25 with no questions, got %+v", results.ScoreResult)
	}
}

func TestAutoSubmitFiresAtDeadline(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, app.WithClock(clock.Now), app.WithAfterFunc(clock.AfterFunc))
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")
	_, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"})

	got := make(chan domain.SubmitResult, 1)
	cancel, err := svc.ScheduleAutoSubmit(ctx, attempt.ID, func(res domain.SubmitResult, err error) {
		if err != nil {
			t.Errorf("auto submit: %v", err)
		}
		got <- res
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer cancel()

	if clock.lastDelay() != 300*time.Second {
		t.Fatalf("expected 5 minute delay, got %s", clock.lastDelay())
	}
	clock.FireAll()

	select {
	case res := <-got:
		if !res.Auto || res.Score != 25 {
			t.Fatalf("unexpected auto submit result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("auto submit did not fire")
	}
	stored, _ := svc.GetAttempt(ctx, attempt.ID)
	if stored.Status != domain.AttemptSubmitted {
		t.Fatalf("expected attempt submitted, got %s", stored.Status)
	}
}

func TestAutoSubmitCancelledByManualSubmitAndNavigation(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, app.WithClock(clock.Now), app.WithAfterFunc(clock.AfterFunc))
	ctx := as("u1")

	navigated := mustStart(t, svc, ctx, "quiz-1")
	cancel, err := svc.ScheduleAutoSubmit(ctx, navigated.ID, func(domain.SubmitResult, error) {
		t.Errorf("cancelled timer must not fire")
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	cancel()

	submitted := mustStart(t, svc, ctx, "quiz-1")
	if _, err := svc.ScheduleAutoSubmit(ctx, submitted.ID, func(domain.SubmitResult, error) {
		t.Errorf("timer should have been stopped by submit")
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := svc.Submit(ctx, submitted.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if clock.active() != 0 {
		t.Fatalf("expected no active timers, got %d", clock.active())
	}
	clock.FireAll()

	untimed := mustStart(t, svc, ctx, "quiz-untimed")
	noop, err := svc.ScheduleAutoSubmit(ctx, untimed.ID, nil)
	if err != nil || noop == nil {
		t.Fatalf("expected no-op cancel for untimed attempt, got %v", err)
	}
	if clock.active() != 0 {
		t.Fatalf("untimed attempts must not schedule a timer")
	}
}

func TestSubmitLandingBeforeAnswerWriteRefusesTheAnswer(t *testing.T) {
	catalog := memory.NewCatalogStoreFrom(testCatalog())
	store := &interleavingStore{AttemptStore: memory.NewAttemptStore()}
	svc := app.NewAttemptService(store, app.NewCatalogService(catalog, catalog, catalog, nil))
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")

	// The submit runs after RecordAnswer saw in_progress but before the write.
	store.beforeUpsert = func() {
		if _, err := svc.Submit(ctx, attempt.ID); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"}); !errors.Is(err, domain.ErrAttemptSubmitted) {
		t.Fatalf("expected the late answer to be refused, got %v", err)
	}

	stored, _ := store.GetAttemptByID(context.Background(), attempt.ID)
	results, err := svc.GetResults(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if stored.Score == nil || *stored.Score != results.Score || results.Score != 0 {
		t.Fatalf("results drifted from the persisted score: stored=%v results=%d", stored.Score, results.Score)
	}
}

func TestTimingSnapshotSurvivesQuizEdit(t *testing.T) {
	catalog := memory.NewCatalogStoreFrom(testCatalog())
	catalogSvc := app.NewCatalogService(catalog, catalog, catalog, nil)
	svc := app.NewAttemptService(memory.NewAttemptStore(), catalogSvc)

	attempt := mustStart(t, svc, as("u1"), "quiz-1")
	before, _ := attempt.Deadline()

	edited := testCatalog().Quizzes[0]
	edited.EstimatedTime = 1
	if _, err := catalogSvc.UpdateQuiz(as("author"), edited); err != nil {
		t.Fatalf("update quiz: %v", err)
	}

	reread, err := svc.GetAttempt(as("u1"), attempt.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	after, _ := reread.Deadline()
	if reread.TimingSnapshot.DurationSeconds != 300 || !after.Equal(before) {
		t.Fatalf("in-flight attempt timing moved: %+v deadline %v -> %v", reread.TimingSnapshot, before, after)
	}
	if fresh := mustStart(t, svc, as("u2"), "quiz-1"); fresh.TimingSnapshot.DurationSeconds != 60 {
		t.Fatalf("expected new attempts to pick up the edit, got %+v", fresh.TimingSnapshot)
	}
}

func TestRecordAnswerByOtherUserWritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	attempt := mustStart(t, svc, as("u1"), "quiz-1")

	_, err := svc.RecordAnswer(as("intruder"), attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a"})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	for _, user := range []string{"u1", "intruder"} {
		if answers, _ := store.GetAttemptAnswers(context.Background(), attempt.ID, user); len(answers) != 0 {
			t.Fatalf("expected no answers for %s, got %+v", user, answers)
		}
	}
}

func TestAnswerTimestampsShareStorePrecision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := as("u1")
	attempt := mustStart(t, svc, ctx, "quiz-1")
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	live, err := svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "b", AnsweredAt: t0.Add(900 * time.Microsecond)})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !live.AnsweredAt.Equal(t0) {
		t.Fatalf("expected answeredAt truncated to the millisecond, got %v", live.AnsweredAt)
	}
	// Same millisecond: equal timestamps, so the later arrival wins.
	live, _ = svc.RecordAnswer(ctx, attempt.ID, domain.AnswerSubmission{QuestionID: "q1", Answer: "a", AnsweredAt: t0.Add(100 * time.Microsecond)})
	if live.Value != "a" {
		t.Fatalf("expected the later arrival to win within one millisecond, got %q", live.Value)
	}
}

type interleavingStore struct {
	*memory.AttemptStore
	beforeUpsert func()
}

func (s *interleavingStore) UpsertAttemptAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if hook := s.beforeUpsert; hook != nil {
		s.beforeUpsert = nil
		hook()
	}
	return s.AttemptStore.UpsertAttemptAnswer(ctx, answer)
}

func as(userID string) context.Context {
	return identity.WithUser(context.Background(), userID)
}

func mustStart(t *testing.T, svc *app.AttemptService, ctx context.Context, quizID string) domain.Attempt {
	t.Helper()
	userID, _ := identity.UserID(ctx)
	attempt, err := svc.Start(ctx, quizID, userID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return attempt
}

func newTestService(t *testing.T, opts ...app.AttemptOption) (*app.AttemptService, *memory.AttemptStore) {
	t.Helper()
	catalog := memory.NewCatalogStoreFrom(testCatalog())
	attempts := memory.NewAttemptStore()
	catalogSvc := app.NewCatalogService(catalog, catalog, catalog, nil)
	return app.NewAttemptService(attempts, catalogSvc, opts...), attempts
}

func testCatalog() domain.Catalog {
	mcq := func(id, topic, correct string) domain.QuestionRecord {
		return domain.QuestionRecord{
			ID: id, Type: "mcq", Text: "Pick " + correct, Topic: topic, Difficulty: 1, SkillCategory: 1,
			Metadata: domain.QuestionMetadata{
				Options:       []domain.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}, {ID: "d", Text: "D"}},
				CorrectOption: correct,
			},
		}
	}
	return domain.Catalog{
		Questions: []domain.QuestionRecord{mcq("q1", "Algebra", "a"), mcq("q2", "Algebra", "b"), mcq("q3", "Geometry", "c"), mcq("q4", "Geometry", "d")},
		Quizzes: []domain.QuizRecord{
			{ID: "quiz-1", Title: "Math", Description: "Basics", Topic: "Math", Difficulty: 1, EstimatedTime: 5, QuestionIDs: []string{"q1", "q2", "q3", "q4"}},
			{ID: "quiz-untimed", Title: "Practice", Topic: "Math", Timing: &domain.TimingRecord{Enabled: false}, QuestionIDs: []string{"q1"}},
			{ID: "quiz-archived", Title: "Old", Archived: true, QuestionIDs: []string{"q1"}},
		},
	}
}

// manualClock hands out timers that only fire when the test says so.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (c *manualClock) FireAll() {
	c.mu.Lock()
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

func (c *manualClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *manualClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return 0
	}
	return c.timers[len(c.timers)-1].delay
}
