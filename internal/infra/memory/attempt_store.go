package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

type answerKey struct {
	attemptID, questionID, userID string
}

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	answers  map[answerKey]domain.Answer
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		answers:  make(map[answerKey]domain.Answer),
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttemptByID(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) UpsertAttemptAnswer(_ context.Context, answer domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[answer.AttemptID]
	if !ok {
		return domain.Answer{}, domain.ErrAttemptNotFound
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Answer{}, domain.ErrAttemptSubmitted
	}
	key := answerKey{answer.AttemptID, answer.QuestionID, answer.UserID}
	if existing, ok := s.answers[key]; ok && existing.AnsweredAt.After(answer.AnsweredAt) {
		return existing, nil
	}
	s.answers[key] = answer
	return answer, nil
}

// GetAttemptAnswers returns the live answers ordered by question id.
func (s *AttemptStore) GetAttemptAnswers(_ context.Context, attemptID, userID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answersOf(attemptID, userID), nil
}

func (s *AttemptStore) answersOf(attemptID, userID string) []domain.Answer {
	out := make([]domain.Answer, 0)
	for key, answer := range s.answers {
		if key.attemptID == attemptID && key.userID == userID {
			out = append(out, answer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// SubmitAttempt scores and flips the attempt under the store lock, so answer
// writes are either counted or refused.
func (s *AttemptStore) SubmitAttempt(_ context.Context, attemptID string, submittedAt time.Time, scoreFn app.ScoreFunc) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptSubmitted
	}
	score := scoreFn(s.answersOf(attemptID, attempt.UserID))
	attempt.Status = domain.AttemptSubmitted
	attempt.Score = &score
	attempt.SubmittedAt = &submittedAt
	s.attempts[attemptID] = attempt
	return attempt, nil
}
