package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

// DiscussionStore keeps comment threads in Redis:
//
//	RPUSH discussion:{questionID} {comment json}
//	HINCRBY discussion:{questionID}:upvotes {commentID} 1
//
// The list preserves posting order; upvotes live in a hash so concurrent
// votes never rewrite the list.
type DiscussionStore struct {
	client *redis.Client
}

func NewDiscussionStore(client *redis.Client) *DiscussionStore {
	return &DiscussionStore{client: client}
}

func (s *DiscussionStore) ListComments(ctx context.Context, questionID string) ([]domain.Comment, error) {
	raw, err := s.client.LRange(ctx, s.threadKey(questionID), 0, -1).Result()
	if err != nil && !isMiss(err) {
		return nil, fmt.Errorf("read thread: %w", err)
	}
	votes, err := s.client.HGetAll(ctx, s.votesKey(questionID)).Result()
	if err != nil && !isMiss(err) {
		return nil, fmt.Errorf("read upvotes: %w", err)
	}

	comments := make([]domain.Comment, 0, len(raw))
	for _, item := range raw {
		var c domain.Comment
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		if v, ok := votes[c.ID]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				c.Upvotes = n
			}
		}
		comments = append(comments, c)
	}
	return comments, nil
}

func (s *DiscussionStore) AppendComment(ctx context.Context, comment domain.Comment) error {
	payload, err := json.Marshal(comment)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.threadKey(comment.QuestionID), payload)
	pipe.HSet(ctx, s.votesKey(comment.QuestionID), comment.ID, comment.Upvotes)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *DiscussionStore) UpvoteComment(ctx context.Context, questionID, commentID string) (domain.Comment, error) {
	exists, err := s.client.HExists(ctx, s.votesKey(questionID), commentID).Result()
	if err != nil {
		return domain.Comment{}, fmt.Errorf("check comment: %w", err)
	}
	if !exists {
		return domain.Comment{}, domain.ErrCommentNotFound
	}
	if err := s.client.HIncrBy(ctx, s.votesKey(questionID), commentID, 1).Err(); err != nil {
		return domain.Comment{}, fmt.Errorf("upvote: %w", err)
	}
	comments, err := s.ListComments(ctx, questionID)
	if err != nil {
		return domain.Comment{}, err
	}
	for _, c := range comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return domain.Comment{}, domain.ErrCommentNotFound
}

func (s *DiscussionStore) threadKey(questionID string) string {
	return "discussion:" + questionID
}

func (s *DiscussionStore) votesKey(questionID string) string {
	return "discussion:" + questionID + ":upvotes"
}
