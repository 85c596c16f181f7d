// Package postgres stores catalog documents as JSONB and attempts, answers
// and users as relational rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

const uniqueViolation = "23505"

// Store implements the app repositories on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetQuizzes(ctx context.Context) ([]domain.QuizRecord, error) {
	var out []domain.QuizRecord
	err := s.scanDocuments(ctx, `SELECT data FROM quizzes ORDER BY seq`, nil, func(raw []byte) error {
		var q domain.QuizRecord
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func (s *Store) GetQuizByID(ctx context.Context, quizID string) (domain.QuizRecord, error) {
	var q domain.QuizRecord
	err := s.getDocument(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID, &q)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizRecord{}, domain.ErrQuizNotFound
	}
	return q, err
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.QuizRecord) error {
	return s.putDocument(ctx, "quizzes", quiz.ID, quiz)
}

func (s *Store) GetQuestionByID(ctx context.Context, questionID string) (domain.QuestionRecord, error) {
	var q domain.QuestionRecord
	err := s.getDocument(ctx, `SELECT data FROM questions WHERE id=$1`, questionID, &q)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionRecord{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) ([]domain.QuestionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.QuestionRecord
	err := s.scanDocuments(ctx, `SELECT data FROM questions WHERE id = ANY($1)`, []interface{}{ids}, func(raw []byte) error {
		var q domain.QuestionRecord
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func (s *Store) SaveQuestion(ctx context.Context, question domain.QuestionRecord) error {
	return s.putDocument(ctx, "questions", question.ID, question)
}

func (s *Store) GetCourses(ctx context.Context) ([]domain.CourseRecord, error) {
	var out []domain.CourseRecord
	err := s.scanDocuments(ctx, `SELECT data FROM courses ORDER BY seq`, nil, func(raw []byte) error {
		var c domain.CourseRecord
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func (s *Store) GetCourseByID(ctx context.Context, courseID string) (domain.CourseRecord, error) {
	var c domain.CourseRecord
	err := s.getDocument(ctx, `SELECT data FROM courses WHERE id=$1`, courseID, &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CourseRecord{}, domain.ErrCourseNotFound
	}
	return c, err
}

func (s *Store) SaveCourse(ctx context.Context, course domain.CourseRecord) error {
	return s.putDocument(ctx, "courses", course.ID, course)
}

// ImportCatalog upserts every record of a seed bundle in one transaction.
func (s *Store) ImportCatalog(ctx context.Context, catalog domain.Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	put := func(table, id string, doc interface{}) error {
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, upsertDocumentSQL(table), id, raw)
		return err
	}
	for _, q := range catalog.Questions {
		if err := put("questions", q.ID, q); err != nil {
			return fmt.Errorf("import question %s: %w", q.ID, err)
		}
	}
	for _, q := range catalog.Quizzes {
		if err := put("quizzes", q.ID, q); err != nil {
			return fmt.Errorf("import quiz %s: %w", q.ID, err)
		}
	}
	for _, c := range catalog.Courses {
		if err := put("courses", c.ID, c); err != nil {
			return fmt.Errorf("import course %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) getDocument(ctx context.Context, query, id string, dst interface{}) error {
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return nil
}

func (s *Store) scanDocuments(ctx context.Context, query string, args []interface{}, each func([]byte) error) error {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := each(raw); err != nil {
			return fmt.Errorf("unmarshal document: %w", err)
		}
	}
	return rows.Err()
}

func (s *Store) putDocument(ctx context.Context, table, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertDocumentSQL(table), id, raw)
	return err
}

// upsertDocumentSQL keeps seq on update so listings stay in insertion order.
func upsertDocumentSQL(table string) string {
	return `INSERT INTO ` + table + ` (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
