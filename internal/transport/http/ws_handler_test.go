package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/identity"
)

func TestWebSocketAnswerAndSubmitFlow(t *testing.T) {
	env := newTestEnv(t)
	attemptID := startAttempt(t, env, "u1")
	conn := dialAttempt(t, env, attemptID, env.token(t, "u1"))

	_, joined := readNext(conn, t, "joined")
	if unanswered, _ := joined["unanswered"].([]any); len(unanswered) != 2 {
		t.Fatalf("expected 2 unanswered questions, got %v", joined["unanswered"])
	}
	if joined["deadline"] == nil {
		t.Fatalf("expected a deadline for a timed attempt")
	}

	writeMsg(t, conn, "answer", map[string]any{"questionId": "q1", "answer": "a"})
	_, saved := readNext(conn, t, "answerSaved")
	if saved["questionId"] != "q1" || saved["answer"] != "a" {
		t.Fatalf("unexpected saved answer %v", saved)
	}

	// q2 is still open, so a plain submit asks for confirmation.
	writeMsg(t, conn, "submit", map[string]any{})
	_, confirm := readNext(conn, t, "confirmUnanswered")
	if ids, _ := confirm["questionIds"].([]any); len(ids) != 1 || ids[0] != "q2" {
		t.Fatalf("expected q2 unanswered, got %v", confirm)
	}

	writeMsg(t, conn, "submit", map[string]any{"force": true})
	_, submitted := readNext(conn, t, "submitted")
	if submitted["score"] != float64(50) || submitted["auto"] == true {
		t.Fatalf("unexpected submit result %v", submitted)
	}
	if !env.timers.last().isStopped() {
		t.Fatalf("manual submit must cancel the auto-submit")
	}

	writeMsg(t, conn, "answer", map[string]any{"questionId": "q2", "answer": "b"})
	_, failure := readNext(conn, t, "error")
	if failure["code"] != "attempt_submitted" {
		t.Fatalf("expected attempt_submitted, got %v", failure)
	}
}

func TestWebSocketPushesAutoSubmit(t *testing.T) {
	env := newTestEnv(t)
	attemptID := startAttempt(t, env, "u1")
	conn := dialAttempt(t, env, attemptID, env.token(t, "u1"))
	readNext(conn, t, "joined")

	timer := env.timers.last()
	if timer == nil || timer.delay <= 0 || timer.delay > 180*time.Second {
		t.Fatalf("expected auto-submit within 180s, got %+v", timer)
	}
	timer.fire()

	_, submitted := readNext(conn, t, "submitted")
	if submitted["auto"] != true || submitted["score"] != float64(0) {
		t.Fatalf("expected auto submit with score 0, got %v", submitted)
	}
}

func TestWebSocketCloseCancelsAutoSubmit(t *testing.T) {
	env := newTestEnv(t)
	attemptID := startAttempt(t, env, "u1")
	conn := dialAttempt(t, env, attemptID, env.token(t, "u1"))
	readNext(conn, t, "joined")

	timer := env.timers.last()
	conn.Close()
	waitFor(t, timer.isStopped)
}

func TestWebSocketRejectsOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	attemptID := startAttempt(t, env, "u1")

	u := "ws" + env.server.URL[len("http"):] + "/ws/attempts/" + attemptID + "?token=" + env.token(t, "u2")
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func startAttempt(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	ctx := identity.WithUser(context.Background(), userID)
	attempt, err := env.svc.Attempts.Start(ctx, "quiz-1", userID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return attempt.ID
}

func dialAttempt(t *testing.T, env *testEnv, attemptID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + env.server.URL[len("http"):] + "/ws/attempts/" + attemptID + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
