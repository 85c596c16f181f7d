package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
)

// DiscussionService manages the per-question comment threads.
type DiscussionService struct {
	store DiscussionStore
	users UserRepository
	clock func() time.Time
}

func NewDiscussionService(store DiscussionStore, users UserRepository) *DiscussionService {
	return &DiscussionService{store: store, users: users, clock: time.Now}
}

func (s *DiscussionService) List(ctx context.Context, questionID string) ([]domain.Comment, error) {
	comments, err := s.store.ListComments(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// Post appends a comment authored by the acting user.
func (s *DiscussionService) Post(ctx context.Context, questionID, text string) (domain.Comment, error) {
	userID, ok := identity.UserID(ctx)
	if !ok {
		return domain.Comment{}, domain.ErrNotAuthenticated
	}
	if err := domain.ValidateComment(text); err != nil {
		return domain.Comment{}, err
	}
	author := defaultDisplayName
	if user, err := s.users.GetUserByID(ctx, userID); err == nil {
		author = ResolveDisplayName(user.DisplayName, user.Email)
	}

	comment := domain.Comment{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		Text:       strings.TrimSpace(text),
		Author:     author,
		Status:     "new",
		Upvotes:    0,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.store.AppendComment(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("append comment: %w", err)
	}
	return comment, nil
}

func (s *DiscussionService) Upvote(ctx context.Context, questionID, commentID string) (domain.Comment, error) {
	if _, ok := identity.UserID(ctx); !ok {
		return domain.Comment{}, domain.ErrNotAuthenticated
	}
	return s.store.UpvoteComment(ctx, questionID, commentID)
}
