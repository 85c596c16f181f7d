package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// attemptDoc embeds the live answers in their attempt. Answer writes and the
// submit transition are then single-document updates, atomic without a
// replica set.
type attemptDoc struct {
	domain.Attempt `bson:",inline"`
	Answers        []domain.Answer `bson:"answers,omitempty"`
}

// upsertRetries bounds the update/push race between concurrent first writes
// of the same answer.
const upsertRetries = 3

func (d attemptDoc) answersOf(userID string) []domain.Answer {
	out := make([]domain.Answer, 0, len(d.Answers))
	for _, a := range d.Answers {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := s.attempts.InsertOne(ctx, attemptDoc{Attempt: attempt})
	return err
}

func (s *Store) GetAttemptByID(ctx context.Context, attemptID string) (domain.Attempt, error) {
	doc, err := s.attemptDoc(ctx, attemptID)
	return doc.Attempt, err
}

func (s *Store) attemptDoc(ctx context.Context, attemptID string) (attemptDoc, error) {
	return findOne[attemptDoc](ctx, s.attempts, bson.M{"_id": attemptID}, domain.ErrAttemptNotFound)
}

// UpsertAttemptAnswer replaces a stored answer that is not newer, or appends
// the first one, in both cases only while the attempt is in progress. When
// neither update matches, the attempt is re-read to tell a newer live answer
// from a closed attempt.
func (s *Store) UpsertAttemptAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	same := bson.M{"questionId": answer.QuestionID, "userId": answer.UserID}
	for i := 0; i < upsertRetries; i++ {
		res, err := s.attempts.UpdateOne(ctx,
			bson.M{
				"_id":    answer.AttemptID,
				"status": domain.AttemptInProgress,
				"answers": bson.M{"$elemMatch": bson.M{
					"questionId": answer.QuestionID,
					"userId":     answer.UserID,
					"answeredAt": bson.M{"$lte": answer.AnsweredAt},
				}},
			},
			bson.M{"$set": bson.M{"answers.$": answer}},
		)
		if err != nil {
			return domain.Answer{}, err
		}
		if res.MatchedCount > 0 {
			return answer, nil
		}

		res, err = s.attempts.UpdateOne(ctx,
			bson.M{
				"_id":     answer.AttemptID,
				"status":  domain.AttemptInProgress,
				"answers": bson.M{"$not": bson.M{"$elemMatch": same}},
			},
			bson.M{"$push": bson.M{"answers": answer}},
		)
		if err != nil {
			return domain.Answer{}, err
		}
		if res.MatchedCount > 0 {
			return answer, nil
		}

		doc, err := s.attemptDoc(ctx, answer.AttemptID)
		if err != nil {
			return domain.Answer{}, err
		}
		if doc.Status != domain.AttemptInProgress {
			return domain.Answer{}, domain.ErrAttemptSubmitted
		}
		for _, live := range doc.Answers {
			if live.QuestionID == answer.QuestionID && live.UserID == answer.UserID && live.AnsweredAt.After(answer.AnsweredAt) {
				return live, nil
			}
		}
	}
	return domain.Answer{}, fmt.Errorf("answer %s/%s: concurrent writes did not settle", answer.AttemptID, answer.QuestionID)
}

func (s *Store) GetAttemptAnswers(ctx context.Context, attemptID, userID string) ([]domain.Answer, error) {
	doc, err := s.attemptDoc(ctx, attemptID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		return []domain.Answer{}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.answersOf(userID), nil
}

// SubmitAttempt flips the status first, which freezes the embedded answers,
// then scores them and stores the score.
func (s *Store) SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time, scoreFn app.ScoreFunc) (domain.Attempt, error) {
	var doc attemptDoc
	err := s.attempts.FindOneAndUpdate(ctx,
		bson.M{"_id": attemptID, "status": domain.AttemptInProgress},
		bson.M{"$set": bson.M{"status": domain.AttemptSubmitted, "submittedAt": submittedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.GetAttemptByID(ctx, attemptID); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, domain.ErrAttemptSubmitted
	}
	if err != nil {
		return domain.Attempt{}, err
	}

	score := scoreFn(doc.answersOf(doc.UserID))
	if _, err := s.attempts.UpdateOne(ctx, bson.M{"_id": attemptID}, bson.M{"$set": bson.M{"score": score}}); err != nil {
		return domain.Attempt{}, fmt.Errorf("store score: %w", err)
	}
	doc.Score = &score
	return doc.Attempt, nil
}
