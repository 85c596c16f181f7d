package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/metrics"
)

const (
	defaultDisplayName = "Quiz User"
	maxPasswordBytes   = 72
)

// Session is what a successful login or registration hands back.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// AuthService is the identity provider: email/password accounts with bcrypt
// hashes and signed bearer tokens.
type AuthService struct {
	users   UserRepository
	tokens  *identity.TokenIssuer
	clock   func() time.Time
	cost    int
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewAuthService(users UserRepository, tokens *identity.TokenIssuer, logger *logrus.Logger, m *metrics.Metrics) *AuthService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		clock:   time.Now,
		cost:    bcrypt.DefaultCost,
		logger:  logger,
		metrics: m,
	}
}

// Register creates an account. It fails with domain.ErrWeakPassword,
// domain.ErrEmailInUse or a validation error for a malformed email.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (Session, error) {
	sess, err := s.register(ctx, email, password, displayName)
	s.metrics.Auth("register", err)
	return sess, err
}

func (s *AuthService) register(ctx context.Context, email, password, displayName string) (Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return Session{}, domain.NewValidationError("email", "is not a valid address")
	}
	if len(password) < domain.MinPasswordLength {
		return Session{}, domain.ErrWeakPassword
	}
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	if len(password) > maxPasswordBytes {
		return Session{}, domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Session{}, domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  ResolveDisplayName(displayName, email),
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return s.session(user)
}

// Authenticate checks the credentials; any mismatch is domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (Session, error) {
	sess, err := s.authenticate(ctx, email, password)
	s.metrics.Auth("login", err)
	return sess, err
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, domain.ErrInvalidCredentials
	}
	user.DisplayName = ResolveDisplayName(user.DisplayName, user.Email)
	return s.session(user)
}

// CurrentUser returns the profile of the acting user.
func (s *AuthService) CurrentUser(ctx context.Context) (domain.User, error) {
	userID, ok := identity.UserID(ctx)
	if !ok {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.DisplayName = ResolveDisplayName(user.DisplayName, user.Email)
	return user, nil
}

// UpdateDisplayName renames the acting user.
func (s *AuthService) UpdateDisplayName(ctx context.Context, displayName string) (domain.User, error) {
	userID, ok := identity.UserID(ctx)
	if !ok {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	if err := domain.ValidateDisplayName(displayName); err != nil {
		return domain.User{}, err
	}
	return s.users.UpdateDisplayName(ctx, userID, strings.TrimSpace(displayName))
}

func (s *AuthService) session(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user, Token: token}, nil
}

// ResolveDisplayName picks the preferred name, else the email local part,
// else "Quiz User".
func ResolveDisplayName(preferred, email string) string {
	if name := strings.TrimSpace(preferred); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return local
	}
	return defaultDisplayName
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
