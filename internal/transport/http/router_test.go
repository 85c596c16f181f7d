package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/metrics"
)

func TestAttemptLifecycleOverREST(t *testing.T) {
	env := newTestEnv(t)

	var sess struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	status := call(t, env, "POST", "/auth/register", "", map[string]any{"email": "ann@example.com", "password": "secret1"}, &sess)
	if status != http.StatusCreated || sess.Token == "" || sess.User.DisplayName != "ann" {
		t.Fatalf("register: %d %+v", status, sess)
	}
	token := sess.Token

	var quizzes []domain.Quiz
	if status := call(t, env, "GET", "/quizzes", "", nil, &quizzes); status != http.StatusOK || len(quizzes) != 1 || quizzes[0].QuestionCount != 2 {
		t.Fatalf("list quizzes: %d %+v", status, quizzes)
	}

	var attempt domain.Attempt
	if status := call(t, env, "POST", "/quizzes/quiz-1/attempts", token, nil, &attempt); status != http.StatusCreated {
		t.Fatalf("start: %d", status)
	}
	if attempt.TimingSnapshot.DurationSeconds != 180 {
		t.Fatalf("expected 180s snapshot, got %+v", attempt.TimingSnapshot)
	}

	base := "/attempts/" + attempt.ID
	var failure errorPayload
	if status := call(t, env, "GET", base+"/results", token, nil, &failure); status != http.StatusConflict || failure.Code != "results_not_ready" {
		t.Fatalf("expected results_not_ready, got %d %+v", status, failure)
	}

	call(t, env, "PUT", base+"/answers/q1", token, map[string]any{"answer": "a"}, nil)
	call(t, env, "PUT", base+"/answers/q2", token, map[string]any{"answer": "a"}, nil)

	var submitted domain.SubmitResult
	if status := call(t, env, "POST", base+"/submit", token, nil, &submitted); status != http.StatusOK || submitted.Score != 50 {
		t.Fatalf("submit: %d %+v", status, submitted)
	}
	if status := call(t, env, "POST", base+"/submit", token, nil, &failure); status != http.StatusConflict || failure.Code != "attempt_submitted" {
		t.Fatalf("expected second submit to conflict, got %d %+v", status, failure)
	}

	var results domain.Results
	if status := call(t, env, "GET", base+"/results", token, nil, &results); status != http.StatusOK {
		t.Fatalf("results: %d", status)
	}
	if results.Score != 50 || results.CorrectAnswers != 1 || results.Diagnosis.Band != "building_fundamentals" {
		t.Fatalf("unexpected results %+v", results.ScoreResult)
	}
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, "u1")
	attemptID := startAttempt(t, env, "u1")

	cases := []struct {
		method, path, token string
		body                any
		want                int
	}{
		{"GET", "/quizzes/missing", "", nil, http.StatusNotFound},
		{"POST", "/quizzes/quiz-1/attempts", "", nil, http.StatusUnauthorized},
		{"GET", "/attempts/" + attemptID, "garbage", nil, http.StatusUnauthorized},
		{"GET", "/attempts/" + attemptID, env.token(t, "u2"), nil, http.StatusForbidden},
		{"GET", "/attempts/nope", owner, nil, http.StatusNotFound},
		{"POST", "/auth/register", "", map[string]any{"email": "x@example.com", "password": "123"}, http.StatusBadRequest},
		{"POST", "/auth/login", "", map[string]any{"email": "x@example.com", "password": "123456"}, http.StatusUnauthorized},
		{"POST", "/questions", owner, map[string]any{"type": "essay"}, http.StatusBadRequest},
		{"POST", "/questions/q1/comments/none/upvote", owner, nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := call(t, env, tc.method, tc.path, tc.token, tc.body, nil); got != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestDiscussionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1")

	var comment domain.Comment
	if status := call(t, env, "POST", "/questions/q1/comments", token, map[string]any{"text": "Why A?"}, &comment); status != http.StatusCreated {
		t.Fatalf("post comment: %d", status)
	}
	if comment.Author != "Quiz User" || comment.Status != "new" {
		t.Fatalf("unexpected comment %+v", comment)
	}
	call(t, env, "POST", "/questions/q1/comments/"+comment.ID+"/upvote", token, nil, &comment)
	if comment.Upvotes != 1 {
		t.Fatalf("expected one upvote, got %d", comment.Upvotes)
	}

	var thread []domain.Comment
	call(t, env, "GET", "/questions/q1/comments", "", nil, &thread)
	if len(thread) != 1 || thread[0].Upvotes != 1 {
		t.Fatalf("unexpected thread %+v", thread)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.AttemptStarted()

	env := newTestEnv(t)
	server := httptest.NewServer(NewRouter(env.svc, env.tokens, RouterOptions{Gatherer: reg}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("quiz_attempts_started_total 1")) {
		t.Fatalf("expected counter in exposition, got:\n%s", body)
	}
}

func TestDescribeUnknownErrorIsInternal(t *testing.T) {
	status, payload := describe(fmt.Errorf("wrapped: %w", errors.New("boom")))
	if status != http.StatusInternalServerError || payload.Code != "internal" {
		t.Fatalf("unexpected mapping %d %+v", status, payload)
	}
	status, payload = describe(fmt.Errorf("load: %w", domain.ErrQuizNotFound))
	if status != http.StatusNotFound || payload.Message != "Quiz not found." {
		t.Fatalf("wrapped sentinel should map through, got %d %+v", status, payload)
	}
}

func call(t *testing.T, env *testEnv, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestQuizViewsExposeChoicesButNotAnswerKey(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/quizzes/quiz-1", "/quizzes/quiz-1/questions", "/quizzes/quiz-1/questions/q1"} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: %d %s", path, resp.StatusCode, raw)
		}
		body := string(raw)
		if !bytes.Contains(raw, []byte(`"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}]`)) {
			t.Fatalf("expected mcq options in %s, got %s", path, body)
		}
		if bytes.Contains(raw, []byte("correctOption")) {
			t.Fatalf("answer key leaked by %s: %s", path, body)
		}
	}

	var quiz domain.Quiz
	call(t, env, "GET", "/quizzes/quiz-1", "", nil, &quiz)
	if len(quiz.Questions) != 2 || quiz.Questions[0].ID != "q1" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
}
