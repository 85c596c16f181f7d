package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"quiz-attempt-service/internal/domain"
)

const userColumns = `id, email, display_name, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailInUse
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (s *Store) UpdateDisplayName(ctx context.Context, userID, displayName string) (domain.User, error) {
	return s.getUser(ctx, `UPDATE users SET display_name=$2 WHERE id=$1 RETURNING `+userColumns, userID, displayName)
}

func (s *Store) getUser(ctx context.Context, query string, args ...interface{}) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}
