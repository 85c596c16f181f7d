package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

const attemptColumns = `id, user_id, quiz_id, status, timing, started_at, submitted_at, score`

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	timing, err := json.Marshal(attempt.TimingSnapshot)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.UserID, attempt.QuizID, string(attempt.Status), timing,
		attempt.StartedAt, attempt.SubmittedAt, attempt.Score,
	)
	return err
}

func (s *Store) GetAttemptByID(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, err
}

// UpsertAttemptAnswer only overwrites when the stored answer is not newer.
// A stale write updates nothing, so the live row is read back. The attempt
// row is share-locked for the write, which orders it against SubmitAttempt.
func (s *Store) UpsertAttemptAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Answer{}, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM attempts WHERE id=$1 FOR SHARE`, answer.AttemptID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Answer{}, err
	}
	if domain.AttemptStatus(status) != domain.AttemptInProgress {
		return domain.Answer{}, domain.ErrAttemptSubmitted
	}

	live := answer
	err = tx.QueryRow(ctx, `
		INSERT INTO attempt_answers (attempt_id, question_id, user_id, answer, answered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (attempt_id, question_id, user_id) DO UPDATE
		SET answer = EXCLUDED.answer, answered_at = EXCLUDED.answered_at
		WHERE attempt_answers.answered_at <= EXCLUDED.answered_at
		RETURNING answer, answered_at`,
		answer.AttemptID, answer.QuestionID, answer.UserID, answer.Value, answer.AnsweredAt,
	).Scan(&live.Value, &live.AnsweredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `
			SELECT answer, answered_at FROM attempt_answers
			WHERE attempt_id=$1 AND question_id=$2 AND user_id=$3`,
			answer.AttemptID, answer.QuestionID, answer.UserID,
		).Scan(&live.Value, &live.AnsweredAt)
	}
	if err != nil {
		return domain.Answer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Answer{}, err
	}
	return live, nil
}

func (s *Store) GetAttemptAnswers(ctx context.Context, attemptID, userID string) ([]domain.Answer, error) {
	return queryAnswers(ctx, s.pool, attemptID, userID)
}

// SubmitAttempt locks the attempt row, scores the answers it can see and
// flips the status in one transaction; pending answer writes finish first and
// later ones find the attempt submitted.
func (s *Store) SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time, scoreFn app.ScoreFunc) (domain.Attempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Attempt{}, err
	}
	defer tx.Rollback(ctx)

	var status, userID string
	err = tx.QueryRow(ctx, `SELECT status, user_id FROM attempts WHERE id=$1 FOR UPDATE`, attemptID).Scan(&status, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	if domain.AttemptStatus(status) != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptSubmitted
	}

	answers, err := queryAnswers(ctx, tx, attemptID, userID)
	if err != nil {
		return domain.Attempt{}, err
	}
	row := tx.QueryRow(ctx, `
		UPDATE attempts SET status=$2, score=$3, submitted_at=$4
		WHERE id=$1
		RETURNING `+attemptColumns,
		attemptID, string(domain.AttemptSubmitted), scoreFn(answers), submittedAt,
	)
	attempt, err := scanAttempt(row)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func queryAnswers(ctx context.Context, q querier, attemptID, userID string) ([]domain.Answer, error) {
	rows, err := q.Query(ctx, `
		SELECT question_id, answer, answered_at FROM attempt_answers
		WHERE attempt_id=$1 AND user_id=$2 ORDER BY question_id`, attemptID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		a := domain.Answer{AttemptID: attemptID, UserID: userID}
		if err := rows.Scan(&a.QuestionID, &a.Value, &a.AnsweredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		a      domain.Attempt
		status string
		timing []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &status, &timing, &a.StartedAt, &a.SubmittedAt, &a.Score); err != nil {
		return domain.Attempt{}, err
	}
	a.Status = domain.AttemptStatus(status)
	if err := json.Unmarshal(timing, &a.TimingSnapshot); err != nil {
		return domain.Attempt{}, err
	}
	return a, nil
}
