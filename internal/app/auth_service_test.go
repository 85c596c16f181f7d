package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/infra/memory"
)

func newAuth() (*app.AuthService, *identity.TokenIssuer) {
	tokens := identity.NewTokenIssuer("test-secret", "quiz-service", time.Hour)
	return app.NewAuthService(memory.NewUserStore(), tokens, nil, nil), tokens
}

func TestRegisterAndAuthenticate(t *testing.T) {
	auth, tokens := newAuth()
	ctx := context.Background()

	sess, err := auth.Register(ctx, " Alice@Example.com ", "secret1", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Email != "alice@example.com" || sess.User.DisplayName != "alice" {
		t.Fatalf("unexpected user %+v", sess.User)
	}
	if userID, err := tokens.Parse(sess.Token); err != nil || userID != sess.User.ID {
		t.Fatalf("token should identify the user, got %q %v", userID, err)
	}

	login, err := auth.Authenticate(ctx, "alice@example.com", "secret1")
	if err != nil || login.User.ID != sess.User.ID {
		t.Fatalf("authenticate: %+v %v", login, err)
	}
	if _, err := auth.Authenticate(ctx, "alice@example.com", "wrong!!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, "bob@example.com", "secret1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestRegisterRejections(t *testing.T) {
	auth, _ := newAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "a@example.com", "12345", "A"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if _, err := auth.Register(ctx, "not-an-email", "123456", "A"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := auth.Register(ctx, "long@example.com", strings.Repeat("p", 73), "L"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected over-long password rejected as validation, got %v", err)
	}
	if _, err := auth.Register(ctx, "a@example.com", "123456", "A"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.Register(ctx, "A@example.com", "123456", "B"); !errors.Is(err, domain.ErrEmailInUse) {
		t.Fatalf("expected email in use, got %v", err)
	}
}

func TestProfileUpdates(t *testing.T) {
	auth, _ := newAuth()
	sess, _ := auth.Register(context.Background(), "carol@example.com", "123456", "Carol")
	ctx := identity.WithUser(context.Background(), sess.User.ID)

	if _, err := auth.UpdateDisplayName(ctx, "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected empty name rejected, got %v", err)
	}
	user, err := auth.UpdateDisplayName(ctx, " Caz ")
	if err != nil || user.DisplayName != "Caz" {
		t.Fatalf("update: %+v %v", user, err)
	}
	current, err := auth.CurrentUser(ctx)
	if err != nil || current.DisplayName != "Caz" {
		t.Fatalf("current user: %+v %v", current, err)
	}
	if _, err := auth.CurrentUser(context.Background()); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}

func TestResolveDisplayName(t *testing.T) {
	cases := []struct{ preferred, email, want string }{
		{"Dana", "d@example.com", "Dana"},
		{"", "dana@example.com", "dana"},
		{"  ", "", "Quiz User"},
	}
	for _, tc := range cases {
		if got := app.ResolveDisplayName(tc.preferred, tc.email); got != tc.want {
			t.Fatalf("ResolveDisplayName(%q, %q) = %q, want %q", tc.preferred, tc.email, got, tc.want)
		}
	}
}

func TestDiscussionThread(t *testing.T) {
	users := memory.NewUserStore()
	_ = users.CreateUser(context.Background(), domain.User{ID: "u1", Email: "erin@example.com", DisplayName: "Erin"})
	svc := app.NewDiscussionService(memory.NewDiscussionStore(), users)

	if _, err := svc.Post(context.Background(), "q1", "hi"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	comment, err := svc.Post(as("u1"), "q1", "  Why is B correct? ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if comment.Author != "Erin" || comment.Status != "new" || comment.Upvotes != 0 || comment.Text != "Why is B correct?" {
		t.Fatalf("unexpected comment %+v", comment)
	}
	up, err := svc.Upvote(as("u1"), "q1", comment.ID)
	if err != nil || up.Upvotes != 1 {
		t.Fatalf("upvote: %+v %v", up, err)
	}
	if _, err := svc.Upvote(as("u1"), "q1", "nope"); !errors.Is(err, domain.ErrCommentNotFound) {
		t.Fatalf("expected comment not found, got %v", err)
	}
	list, _ := svc.List(context.Background(), "q2")
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil thread, got %#v", list)
	}
}
