// Package mongo keeps the catalog, attempts, users and discussions in a
// MongoDB database, one collection per record kind. Answers live inside
// their attempt document.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-attempt-service/internal/domain"
)

// Store implements the app repositories on a *mongo.Database.
type Store struct {
	quizzes   *mongo.Collection
	questions *mongo.Collection
	courses   *mongo.Collection
	attempts  *mongo.Collection
	users     *mongo.Collection
	comments  *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		quizzes:   db.Collection("quizzes"),
		questions: db.Collection("questions"),
		courses:   db.Collection("courses"),
		attempts:  db.Collection("attempts"),
		users:     db.Collection("users"),
		comments:  db.Collection("comments"),
	}
}

// EnsureIndexes creates the indexes the store relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	_, err = s.attempts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("attempts index: %w", err)
	}
	_, err = s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "questionId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("comments index: %w", err)
	}
	return nil
}

// byCreation lists in creation order with the id as tie-breaker.
func byCreation() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]T, 0)
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, cur.Err()
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter interface{}, notFound error) (T, error) {
	var item T
	err := col.FindOne(ctx, filter).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return item, notFound
	}
	return item, err
}

func replace(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) GetQuizzes(ctx context.Context) ([]domain.QuizRecord, error) {
	return findAll[domain.QuizRecord](ctx, s.quizzes, bson.M{}, byCreation())
}

func (s *Store) GetQuizByID(ctx context.Context, quizID string) (domain.QuizRecord, error) {
	return findOne[domain.QuizRecord](ctx, s.quizzes, bson.M{"_id": quizID}, domain.ErrQuizNotFound)
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.QuizRecord) error {
	return replace(ctx, s.quizzes, quiz.ID, quiz)
}

func (s *Store) GetQuestionByID(ctx context.Context, questionID string) (domain.QuestionRecord, error) {
	return findOne[domain.QuestionRecord](ctx, s.questions, bson.M{"_id": questionID}, domain.ErrQuestionNotFound)
}

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) ([]domain.QuestionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findAll[domain.QuestionRecord](ctx, s.questions, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) SaveQuestion(ctx context.Context, question domain.QuestionRecord) error {
	return replace(ctx, s.questions, question.ID, question)
}

func (s *Store) GetCourses(ctx context.Context) ([]domain.CourseRecord, error) {
	return findAll[domain.CourseRecord](ctx, s.courses, bson.M{}, byCreation())
}

func (s *Store) GetCourseByID(ctx context.Context, courseID string) (domain.CourseRecord, error) {
	return findOne[domain.CourseRecord](ctx, s.courses, bson.M{"_id": courseID}, domain.ErrCourseNotFound)
}

func (s *Store) SaveCourse(ctx context.Context, course domain.CourseRecord) error {
	return replace(ctx, s.courses, course.ID, course)
}

// ImportCatalog upserts every record of a seed bundle.
func (s *Store) ImportCatalog(ctx context.Context, catalog domain.Catalog) error {
	for _, q := range catalog.Questions {
		if err := s.SaveQuestion(ctx, q); err != nil {
			return fmt.Errorf("import question %s: %w", q.ID, err)
		}
	}
	for _, q := range catalog.Quizzes {
		if err := s.SaveQuiz(ctx, q); err != nil {
			return fmt.Errorf("import quiz %s: %w", q.ID, err)
		}
	}
	for _, c := range catalog.Courses {
		if err := s.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("import course %s: %w", c.ID, err)
		}
	}
	return nil
}
