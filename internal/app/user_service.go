package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/domain"
)

// UserRepository persists registered users.
type UserRepository interface {
	// CreateUser stores user together with its initial configuration.
	// It returns domain.ErrEmailTaken when the email is already registered.
	CreateUser(ctx context.Context, user domain.User, cfg domain.GameConfiguration) error
	FindUser(ctx context.Context, userID string) (domain.User, bool, error)
}

// UserService handles registration and lookup.
type UserService struct {
	users UserRepository
	now   func() time.Time
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Register creates a user with the default game configuration.
func (s *UserService) Register(ctx context.Context, email, name string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", domain.ErrInvalidUser)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.User{}, fmt.Errorf("%w: malformed email %q", domain.ErrInvalidUser, email)
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	cfg := domain.DefaultConfiguration()
	cfg.UserID = user.ID

	if err := s.users.CreateUser(ctx, user, cfg); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, err
		}
		return domain.User{}, writeFailure("create user", err)
	}

	log.Info().Str("user", user.ID).Str("email", user.Email).Str("name", user.Name).Msg("registered user")
	return user, nil
}

// Get returns the user or domain.ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	user, ok, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}
