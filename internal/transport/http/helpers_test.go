package http

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	tokens *identity.TokenIssuer
	timers *fakeTimers
	svc    Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog := memory.NewCatalogStoreFrom(sampleCatalog())
	users := memory.NewUserStore()
	tokens := identity.NewTokenIssuer("test-secret", "quiz-service", time.Hour)
	timers := &fakeTimers{}

	catalogSvc := app.NewCatalogService(catalog, catalog, catalog, nil)
	svc := Services{
		Catalog:    catalogSvc,
		Attempts:   app.NewAttemptService(memory.NewAttemptStore(), catalogSvc, app.WithAfterFunc(timers.AfterFunc)),
		Auth:       app.NewAuthService(users, tokens, nil, nil),
		Discussion: app.NewDiscussionService(memory.NewDiscussionStore(), users),
	}
	server := httptest.NewServer(NewRouter(svc, tokens, RouterOptions{}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, tokens: tokens, timers: timers, svc: svc}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.Issue(userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// sampleCatalog has one timed quiz of two mcq questions (3 minutes).
func sampleCatalog() domain.Catalog {
	mcq := func(id, correct string) domain.QuestionRecord {
		return domain.QuestionRecord{
			ID: id, Type: "mcq", Text: "Pick " + correct, Topic: "Algebra", Difficulty: 1, SkillCategory: 1,
			Metadata: domain.QuestionMetadata{
				Options:       []domain.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
				CorrectOption: correct,
			},
		}
	}
	return domain.Catalog{
		Questions: []domain.QuestionRecord{mcq("q1", "a"), mcq("q2", "b")},
		Quizzes: []domain.QuizRecord{{
			ID: "quiz-1", Title: "Algebra", Description: "Warm up", Topic: "Math", Difficulty: 1,
			EstimatedTime: 3, QuestionIDs: []string{"q1", "q2"},
		}},
	}
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) app.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timers) == 0 {
		return nil
	}
	return f.timers[len(f.timers)-1]
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTimer) fire() {
	go t.fn()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
