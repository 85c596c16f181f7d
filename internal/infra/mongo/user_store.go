package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-attempt-service/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailInUse
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return findOne[domain.User](ctx, s.users, bson.M{"_id": userID}, domain.ErrUserNotFound)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return findOne[domain.User](ctx, s.users, bson.M{"email": email}, domain.ErrUserNotFound)
}

func (s *Store) UpdateDisplayName(ctx context.Context, userID, displayName string) (domain.User, error) {
	var user domain.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"displayName": displayName}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

func (s *Store) ListComments(ctx context.Context, questionID string) ([]domain.Comment, error) {
	return findAll[domain.Comment](ctx, s.comments, bson.M{"questionId": questionID}, byCreation())
}

func (s *Store) AppendComment(ctx context.Context, comment domain.Comment) error {
	_, err := s.comments.InsertOne(ctx, comment)
	return err
}

func (s *Store) UpvoteComment(ctx context.Context, questionID, commentID string) (domain.Comment, error) {
	var comment domain.Comment
	err := s.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": commentID, "questionId": questionID},
		bson.M{"$inc": bson.M{"upvotes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.ErrCommentNotFound
	}
	return comment, err
}
