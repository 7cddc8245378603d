package app_test

import (
	"context"
	"errors"
	"testing"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/domain"
	"lexicon-quiz-service/internal/infra/memory"
)

func TestRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	users := app.NewUserService(memory.NewSessionStore())

	user, err := users.Register(ctx, "  User@Gmail.com ", "first last")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "user@gmail.com" || user.ID == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	got, err := users.Get(ctx, user.ID)
	if err != nil || got.Email != user.Email {
		t.Fatalf("expected stored user, got %+v err=%v", got, err)
	}
	if _, err := users.Get(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	ctx := context.Background()
	users := app.NewUserService(memory.NewSessionStore())

	if _, err := users.Register(ctx, "user@gmail.com", "first"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := users.Register(ctx, "USER@gmail.com", "second"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := users.Register(ctx, "not-an-email", "name"); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for email, got %v", err)
	}
	if _, err := users.Register(ctx, "other@gmail.com", "  "); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for name, got %v", err)
	}
}
