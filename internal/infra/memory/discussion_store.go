package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// DiscussionStore keeps comment threads in process memory.
type DiscussionStore struct {
	mu      sync.RWMutex
	threads map[string][]domain.Comment
}

func NewDiscussionStore() *DiscussionStore {
	return &DiscussionStore{threads: make(map[string][]domain.Comment)}
}

func (s *DiscussionStore) ListComments(_ context.Context, questionID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Comment(nil), s.threads[questionID]...), nil
}

func (s *DiscussionStore) AppendComment(_ context.Context, comment domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[comment.QuestionID] = append(s.threads[comment.QuestionID], comment)
	return nil
}

func (s *DiscussionStore) UpvoteComment(_ context.Context, questionID, commentID string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.threads[questionID]
	for i := range thread {
		if thread[i].ID == commentID {
			thread[i].Upvotes++
			return thread[i], nil
		}
	}
	return domain.Comment{}, domain.ErrCommentNotFound
}
