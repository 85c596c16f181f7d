package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// CatalogStore is an in-memory implementation of app.QuizRepository,
// app.QuestionRepository and app.CourseRepository.
type CatalogStore struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.QuizRecord
	questions map[string]domain.QuestionRecord
	courses   map[string]domain.CourseRecord
	// insertion order, so listings are stable
	quizOrder   []string
	courseOrder []string
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		quizzes:   make(map[string]domain.QuizRecord),
		questions: make(map[string]domain.QuestionRecord),
		courses:   make(map[string]domain.CourseRecord),
	}
}

// NewCatalogStoreFrom seeds a store with a fixture catalog.
func NewCatalogStoreFrom(c domain.Catalog) *CatalogStore {
	s := NewCatalogStore()
	ctx := context.Background()
	for _, q := range c.Questions {
		_ = s.SaveQuestion(ctx, q)
	}
	for _, q := range c.Quizzes {
		_ = s.SaveQuiz(ctx, q)
	}
	for _, co := range c.Courses {
		_ = s.SaveCourse(ctx, co)
	}
	return s
}

func (s *CatalogStore) GetQuizzes(_ context.Context) ([]domain.QuizRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizRecord, 0, len(s.quizOrder))
	for _, id := range s.quizOrder {
		out = append(out, cloneQuiz(s.quizzes[id]))
	}
	return out, nil
}

func (s *CatalogStore) GetQuizByID(_ context.Context, quizID string) (domain.QuizRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(q), nil
}

func (s *CatalogStore) SaveQuiz(_ context.Context, quiz domain.QuizRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		s.quizOrder = append(s.quizOrder, quiz.ID)
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *CatalogStore) GetQuestionByID(_ context.Context, questionID string) (domain.QuestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.QuestionRecord{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

// GetQuestionsByIDs returns the known questions sorted by id, not in request
// order, mirroring a batched document lookup.
func (s *CatalogStore) GetQuestionsByIDs(_ context.Context, ids []string) ([]domain.QuestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuestionRecord, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if q, ok := s.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CatalogStore) SaveQuestion(_ context.Context, question domain.QuestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (s *CatalogStore) GetCourses(_ context.Context) ([]domain.CourseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourseRecord, 0, len(s.courseOrder))
	for _, id := range s.courseOrder {
		c := s.courses[id]
		c.QuizIDs = append([]string(nil), c.QuizIDs...)
		out = append(out, c)
	}
	return out, nil
}

func (s *CatalogStore) GetCourseByID(_ context.Context, courseID string) (domain.CourseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[courseID]
	if !ok {
		return domain.CourseRecord{}, domain.ErrCourseNotFound
	}
	return c, nil
}

func (s *CatalogStore) SaveCourse(_ context.Context, course domain.CourseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[course.ID]; !ok {
		s.courseOrder = append(s.courseOrder, course.ID)
	}
	course.QuizIDs = append([]string(nil), course.QuizIDs...)
	s.courses[course.ID] = course
	return nil
}

func cloneQuiz(q domain.QuizRecord) domain.QuizRecord {
	q.QuestionIDs = append([]string(nil), q.QuestionIDs...)
	q.Tags = append([]string(nil), q.Tags...)
	if q.Timing != nil {
		t := *q.Timing
		q.Timing = &t
	}
	return q
}

func cloneQuestion(q domain.QuestionRecord) domain.QuestionRecord {
	q.Tags = append([]string(nil), q.Tags...)
	q.Metadata.Options = append([]domain.Option(nil), q.Metadata.Options...)
	q.Metadata.AcceptedAnswers = append([]string(nil), q.Metadata.AcceptedAnswers...)
	if q.Metadata.NumericAnswer != nil {
		v := *q.Metadata.NumericAnswer
		q.Metadata.NumericAnswer = &v
	}
	if q.Metadata.Tolerance != nil {
		v := *q.Metadata.Tolerance
		q.Metadata.Tolerance = &v
	}
	return q
}
