package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when an operation needs an identity and none is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAuthorized is returned when the caller does not own the targeted attempt.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrQuizNotFound indicates the quiz does not exist or is archived.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates the attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrResultsNotReady is returned when results are requested before submission.
	ErrResultsNotReady = errors.New("results are not available for this attempt yet")
	// ErrAttemptSubmitted is returned when a submitted attempt is written to or submitted again.
	ErrAttemptSubmitted = errors.New("attempt already submitted")
	// ErrSubmitInProgress is returned when another submission of the same attempt holds the lock.
	ErrSubmitInProgress = errors.New("attempt submission already in progress")
	// ErrInvalidCredentials is returned by the identity provider on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailInUse is returned when registering an email that already has an account.
	ErrEmailInUse = errors.New("an account with this email already exists")
	// ErrWeakPassword is returned when a password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password is too weak")
	// ErrUserNotFound indicates the user profile does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCommentNotFound indicates an upvote targeted an unknown comment.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects malformed authoring input before persistence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError reports a malformed field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func invalid(field, message string) error {
	return NewValidationError(field, message)
}
