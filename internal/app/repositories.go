package app

import (
	"context"
	"time"

	"quiz-attempt-service/internal/domain"
)

// QuizRepository loads and stores quiz records (document DB, cache, etc).
type QuizRepository interface {
	GetQuizzes(ctx context.Context) ([]domain.QuizRecord, error)
	// GetQuizByID returns domain.ErrQuizNotFound for unknown ids. Archived
	// records are returned; callers decide visibility.
	GetQuizByID(ctx context.Context, quizID string) (domain.QuizRecord, error)
	SaveQuiz(ctx context.Context, quiz domain.QuizRecord) error
}

// QuestionRepository loads and stores question records.
type QuestionRepository interface {
	GetQuestionByID(ctx context.Context, questionID string) (domain.QuestionRecord, error)
	// GetQuestionsByIDs is a batched lookup; the result order is not
	// guaranteed and unknown ids are skipped.
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]domain.QuestionRecord, error)
	SaveQuestion(ctx context.Context, question domain.QuestionRecord) error
}

// CourseRepository loads and stores course records.
type CourseRepository interface {
	GetCourses(ctx context.Context) ([]domain.CourseRecord, error)
	GetCourseByID(ctx context.Context, courseID string) (domain.CourseRecord, error)
	SaveCourse(ctx context.Context, course domain.CourseRecord) error
}

// AttemptRepository persists attempts and their answers.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttemptByID(ctx context.Context, attemptID string) (domain.Attempt, error)
	// UpsertAttemptAnswer keeps one answer per (attempt, question, user). The
	// write with the latest AnsweredAt wins; on equal timestamps the incoming
	// write wins. It returns the answer that is live after the write, or
	// domain.ErrAttemptSubmitted once the attempt has left in_progress.
	UpsertAttemptAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	GetAttemptAnswers(ctx context.Context, attemptID, userID string) ([]domain.Answer, error)
	// SubmitAttempt moves an in-progress attempt to submitted and stores the
	// score computed from the owner's answers as of that transition; no answer
	// write can land in between. It returns domain.ErrAttemptSubmitted when the
	// attempt is no longer in progress.
	SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time, score ScoreFunc) (domain.Attempt, error)
}

// ScoreFunc scores the final answers of an attempt.
type ScoreFunc func(answers []domain.Answer) int

// UserRepository stores identity provider accounts and profiles.
type UserRepository interface {
	// CreateUser returns domain.ErrEmailInUse when the email is taken.
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateDisplayName(ctx context.Context, userID, displayName string) (domain.User, error)
}

// DiscussionStore keeps per-question comment threads. It never takes part in scoring.
type DiscussionStore interface {
	ListComments(ctx context.Context, questionID string) ([]domain.Comment, error)
	AppendComment(ctx context.Context, comment domain.Comment) error
	// UpvoteComment returns domain.ErrCommentNotFound for unknown comments.
	UpvoteComment(ctx context.Context, questionID, commentID string) (domain.Comment, error)
}

// SubmitLock serializes submissions of one attempt (in-process or Redis).
type SubmitLock interface {
	// Acquire returns domain.ErrSubmitInProgress when the lock is held.
	Acquire(ctx context.Context, attemptID string) (release func(), err error)
}

// EventPublisher announces attempt state changes (AMQP, etc).
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AttemptEvent) error
}

// QuizSource yields normalized quizzes; CatalogService is the production one.
type QuizSource interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.AttemptEvent) error { return nil }
