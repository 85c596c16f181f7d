package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/projection"
)

// listConcurrency bounds the per-quiz question lookups of a listing.
const listConcurrency = 8

// CatalogService is the read side over quizzes, questions and courses plus
// the authoring operations that write them.
type CatalogService struct {
	quizzes   QuizRepository
	questions QuestionRepository
	courses   CourseRepository
	clock     func() time.Time
	logger    *logrus.Logger
}

func NewCatalogService(quizzes QuizRepository, questions QuestionRepository, courses CourseRepository, logger *logrus.Logger) *CatalogService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CatalogService{
		quizzes:   quizzes,
		questions: questions,
		courses:   courses,
		clock:     time.Now,
		logger:    logger,
	}
}

// GetQuizzes lists every active quiz with its derived topic, timing and
// active question count. Questions are not included.
func (s *CatalogService) GetQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var (
		records []domain.QuizRecord
		courses []domain.CourseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.quizzes.GetQuizzes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		courses, err = s.courses.GetCourses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	records = projection.FilterQuizzes(records)
	byQuiz := projection.CourseIndex(courses)
	out := make([]domain.Quiz, len(records))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			questions, err := s.questions.GetQuestionsByIDs(gctx, rec.QuestionIDs)
			if err != nil {
				return fmt.Errorf("questions of quiz %s: %w", rec.ID, err)
			}
			quiz, err := projection.Project(rec, questions, byQuiz[rec.ID])
			if err != nil {
				return err
			}
			out[i] = quiz.Summary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQuiz returns the normalized quiz with its ordered, active questions.
func (s *CatalogService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	rec, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if rec.Archived {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	questions, err := s.questions.GetQuestionsByIDs(ctx, rec.QuestionIDs)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("questions of quiz %s: %w", quizID, err)
	}
	course, err := s.courseFor(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return projection.Project(rec, questions, course)
}

// GetQuizQuestions returns the ordered, filtered questions of a quiz.
func (s *CatalogService) GetQuizQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

// GetQuestionDetails looks the question up inside the quiz first and falls
// back to the question store, so review links survive quiz edits.
func (s *CatalogService) GetQuestionDetails(ctx context.Context, quizID, questionID string) (domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	rec, err := s.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	return projection.ProjectQuestion(rec), nil
}

func (s *CatalogService) courseFor(ctx context.Context, quizID string) (*domain.CourseRecord, error) {
	courses, err := s.courses.GetCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return projection.CourseIndex(courses)[quizID], nil
}

// CreateQuestion validates and stores a new question under a fresh id; a
// client supplied id is ignored.
func (s *CatalogService) CreateQuestion(ctx context.Context, q domain.QuestionRecord) (domain.QuestionRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.QuestionRecord{}, err
	}
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.QuestionRecord{}, err
	}
	now := s.clock()
	q.ID = uuid.NewString()
	q.CreatedAt, q.UpdatedAt = now, now
	if err := s.questions.SaveQuestion(ctx, q); err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("save question: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"question_id": q.ID, "type": q.Type}).Info("question created")
	return q, nil
}

// UpdateQuestion replaces an existing question, keeping its creation time.
func (s *CatalogService) UpdateQuestion(ctx context.Context, q domain.QuestionRecord) (domain.QuestionRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.QuestionRecord{}, err
	}
	existing, err := s.questions.GetQuestionByID(ctx, q.ID)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.QuestionRecord{}, err
	}
	q.CreatedAt, q.UpdatedAt = existing.CreatedAt, s.clock()
	if err := s.questions.SaveQuestion(ctx, q); err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("save question: %w", err)
	}
	return q, nil
}

// CreateQuiz validates and stores a new quiz under a fresh id.
func (s *CatalogService) CreateQuiz(ctx context.Context, q domain.QuizRecord) (domain.QuizRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.QuizRecord{}, err
	}
	if err := domain.ValidateQuiz(q); err != nil {
		return domain.QuizRecord{}, err
	}
	now := s.clock()
	q.ID = uuid.NewString()
	q.CreatedAt, q.UpdatedAt = now, now
	if q.QuestionIDs == nil {
		q.QuestionIDs = []string{}
	}
	if err := s.quizzes.SaveQuiz(ctx, q); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("save quiz: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"quiz_id": q.ID, "questions": len(q.QuestionIDs)}).Info("quiz created")
	return q, nil
}

// UpdateQuiz replaces an existing quiz. In-flight attempts keep their timing snapshot.
func (s *CatalogService) UpdateQuiz(ctx context.Context, q domain.QuizRecord) (domain.QuizRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.QuizRecord{}, err
	}
	existing, err := s.quizzes.GetQuizByID(ctx, q.ID)
	if err != nil {
		return domain.QuizRecord{}, err
	}
	if err := domain.ValidateQuiz(q); err != nil {
		return domain.QuizRecord{}, err
	}
	q.CreatedAt, q.UpdatedAt = existing.CreatedAt, s.clock()
	if q.QuestionIDs == nil {
		q.QuestionIDs = []string{}
	}
	if err := s.quizzes.SaveQuiz(ctx, q); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("save quiz: %w", err)
	}
	return q, nil
}

// CreateCourse validates and stores a new course under a fresh id.
func (s *CatalogService) CreateCourse(ctx context.Context, c domain.CourseRecord) (domain.CourseRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.CourseRecord{}, err
	}
	if err := domain.ValidateCourse(c); err != nil {
		return domain.CourseRecord{}, err
	}
	now := s.clock()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.QuizIDs == nil {
		c.QuizIDs = []string{}
	}
	if err := s.courses.SaveCourse(ctx, c); err != nil {
		return domain.CourseRecord{}, fmt.Errorf("save course: %w", err)
	}
	return c, nil
}

// UpdateCourse replaces an existing course.
func (s *CatalogService) UpdateCourse(ctx context.Context, c domain.CourseRecord) (domain.CourseRecord, error) {
	if err := requireIdentity(ctx); err != nil {
		return domain.CourseRecord{}, err
	}
	existing, err := s.courses.GetCourseByID(ctx, c.ID)
	if err != nil {
		return domain.CourseRecord{}, err
	}
	if err := domain.ValidateCourse(c); err != nil {
		return domain.CourseRecord{}, err
	}
	c.CreatedAt, c.UpdatedAt = existing.CreatedAt, s.clock()
	if c.QuizIDs == nil {
		c.QuizIDs = []string{}
	}
	if err := s.courses.SaveCourse(ctx, c); err != nil {
		return domain.CourseRecord{}, fmt.Errorf("save course: %w", err)
	}
	return c, nil
}

func requireIdentity(ctx context.Context) error {
	if _, ok := identity.UserID(ctx); !ok {
		return domain.ErrNotAuthenticated
	}
	return nil
}

// IsNotFound reports whether err is any of the lookup misses.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuizNotFound) ||
		errors.Is(err, domain.ErrAttemptNotFound) ||
		errors.Is(err, domain.ErrQuestionNotFound) ||
		errors.Is(err, domain.ErrCourseNotFound) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrCommentNotFound)
}
