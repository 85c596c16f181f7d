package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"quiz-attempt-service/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// describe maps a service error to a status and a message fit for users.
func describe(err error) (int, errorPayload) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorPayload{Code: "validation", Message: verr.Error(), Field: verr.Field}
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest, errorPayload{Code: "weak_password", Message: "Password must be at least 6 characters."}
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorPayload{Code: "not_authenticated", Message: "Please sign in to continue."}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{Code: "invalid_credentials", Message: "Email or password is incorrect."}
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden, errorPayload{Code: "not_authorized", Message: "You do not have access to this attempt."}
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, errorPayload{Code: "quiz_not_found", Message: "Quiz not found."}
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, errorPayload{Code: "attempt_not_found", Message: "Attempt not found."}
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, errorPayload{Code: "question_not_found", Message: "Question not found."}
	case errors.Is(err, domain.ErrCourseNotFound):
		return http.StatusNotFound, errorPayload{Code: "course_not_found", Message: "Course not found."}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorPayload{Code: "user_not_found", Message: "User not found."}
	case errors.Is(err, domain.ErrCommentNotFound):
		return http.StatusNotFound, errorPayload{Code: "comment_not_found", Message: "Comment not found."}
	case errors.Is(err, domain.ErrResultsNotReady):
		return http.StatusConflict, errorPayload{Code: "results_not_ready", Message: "Results are available once the attempt is submitted."}
	case errors.Is(err, domain.ErrAttemptSubmitted):
		return http.StatusConflict, errorPayload{Code: "attempt_submitted", Message: "This attempt has already been submitted."}
	case errors.Is(err, domain.ErrSubmitInProgress):
		return http.StatusConflict, errorPayload{Code: "submit_in_progress", Message: "This attempt is being submitted."}
	case errors.Is(err, domain.ErrEmailInUse):
		return http.StatusConflict, errorPayload{Code: "email_in_use", Message: "An account with this email already exists."}
	default:
		return http.StatusInternalServerError, errorPayload{Code: "internal", Message: "Something went wrong. Please try again."}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status, payload := describe(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "must be valid JSON")
	}
	return nil
}
