package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
)

// WSHandler runs one attempt over a websocket: answers stream in, submits
// are confirmed against unanswered questions, and the auto-submit at the
// deadline is pushed to the client.
type WSHandler struct {
	attempts *app.AttemptService
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, logger *logrus.Logger) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string    `json:"questionId"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answeredAt"`
}

type submitPayload struct {
	// Force skips the unanswered-question confirmation.
	Force bool `json:"force"`
}

type joinedPayload struct {
	Attempt    domain.Attempt `json:"attempt"`
	Unanswered []string       `json:"unanswered"`
	Deadline   *time.Time     `json:"deadline,omitempty"`
}

type unansweredPayload struct {
	QuestionIDs []string `json:"questionIds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and drives the attempt named in the path. The
// pending auto-submit is cancelled when the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	// the attempt must be owned by the caller before we upgrade
	attempt, err := h.attempts.GetAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	// Outlive the request so a late auto-submit can still be reported.
	userID, _ := identity.UserID(r.Context())
	ctx := identity.WithUser(context.Background(), userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer; send is never closed so timer callbacks cannot panic.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.WithError(err).Debug("ws write error")
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()
	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-closeSignals:
		case <-writerDone:
		}
	}
	emitErr := func(err error) {
		_, payload := describe(err)
		emit("error", payload)
	}

	unanswered, err := h.attempts.Unanswered(ctx, attemptID)
	if err != nil {
		emitErr(err)
	}
	joined := joinedPayload{Attempt: attempt, Unanswered: unanswered}
	if deadline, ok := attempt.Deadline(); ok {
		joined.Deadline = &deadline
	}
	emit("joined", joined)

	cancelAuto := func() {}
	if attempt.Status == domain.AttemptInProgress {
		cancelAuto, err = h.attempts.ScheduleAutoSubmit(ctx, attemptID, func(res domain.SubmitResult, err error) {
			if err != nil {
				emitErr(err)
				return
			}
			emit("submitted", res)
		})
		if err != nil {
			emitErr(err)
			cancelAuto = func() {}
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitErr(domain.NewValidationError("payload", "invalid answer payload"))
				continue
			}
			answer, err := h.attempts.RecordAnswer(ctx, attemptID, domain.AnswerSubmission{
				QuestionID: payload.QuestionID,
				Answer:     payload.Answer,
				AnsweredAt: payload.AnsweredAt,
			})
			if err != nil {
				emitErr(err)
				continue
			}
			emit("answerSaved", answer)
		case "submit":
			var payload submitPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emitErr(domain.NewValidationError("payload", "invalid submit payload"))
					continue
				}
			}
			if !payload.Force {
				missing, err := h.attempts.Unanswered(ctx, attemptID)
				if err != nil {
					emitErr(err)
					continue
				}
				if len(missing) > 0 {
					emit("confirmUnanswered", unansweredPayload{QuestionIDs: missing})
					continue
				}
			}
			res, err := h.attempts.Submit(ctx, attemptID)
			if err != nil {
				emitErr(err)
				continue
			}
			emit("submitted", res)
		default:
			emitErr(domain.NewValidationError("type", "unsupported message type"))
		}
	}

	// Navigating away cancels the pending auto-submit.
	cancelAuto()
	close(closeSignals)
	<-writerDone
}
