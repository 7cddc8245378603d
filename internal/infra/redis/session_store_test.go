package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"lexicon-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := sampleSession("g1", "u1")
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("lexicon:active:u1") {
		t.Fatalf("expected active pointer to be set")
	}
	if err := store.CreateSession(ctx, sampleSession("g2", "u1")); !errors.Is(err, domain.ErrGameAlreadyActive) {
		t.Fatalf("expected ErrGameAlreadyActive, got %v", err)
	}

	session.Advance(time.Now())
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists("lexicon:active:u1") {
		t.Fatalf("expected active pointer to be removed once completed")
	}
	if _, ok, _ := store.FindActiveSession(ctx, "u1"); ok {
		t.Fatalf("expected no active session")
	}

	if err := store.CreateSession(ctx, sampleSession("g2", "u1")); err != nil {
		t.Fatalf("expected new session after completion, got %v", err)
	}
	history, err := store.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || history[0].ID != "g2" || history[1].ID != "g1" {
		t.Fatalf("expected newest first history, got %+v", history)
	}
	if history[1].State() != domain.GameStateCompleted || history[1].CompletedAt == nil {
		t.Fatalf("expected g1 persisted as completed, got %+v", history[1])
	}
}

func TestSessionStoreConcurrentCreate(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.CreateSession(ctx, sampleSession(string(rune('a'+i)), "u1"))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrGameAlreadyActive) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one session created, got %d", created)
	}
}

func TestSessionStoreUsersAndConfiguration(t *testing.T) {
	_, client := newMiniredis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	user := domain.User{ID: "u1", Email: "user@gmail.com", Name: "first last", CreatedAt: time.Now()}
	cfg := domain.DefaultConfiguration()
	cfg.UserID = "u1"
	if err := store.CreateUser(ctx, user, cfg); err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := domain.User{ID: "u2", Email: "user@gmail.com", Name: "other"}
	if err := store.CreateUser(ctx, dup, cfg); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, ok, err := store.FindUser(ctx, "u1")
	if err != nil || !ok || got.Email != user.Email || got.Name != user.Name {
		t.Fatalf("unexpected user %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := store.FindUser(ctx, "u2"); ok {
		t.Fatalf("rejected user must not be stored")
	}

	stored, ok, err := store.FindConfiguration(ctx, "u1")
	if err != nil || !ok || stored != cfg {
		t.Fatalf("expected default configuration, got %+v ok=%v err=%v", stored, ok, err)
	}

	cfg.TranslateFrom, cfg.TranslateTo, cfg.AnswerCount = "japanese", "german", 10
	if err := store.SaveConfiguration(ctx, cfg); err != nil {
		t.Fatalf("save configuration: %v", err)
	}
	stored, _, _ = store.FindConfiguration(ctx, "u1")
	if stored != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, stored)
	}
	if _, ok, _ := store.FindConfiguration(ctx, "nobody"); ok {
		t.Fatalf("expected no configuration for unknown user")
	}
}

func sampleSession(id, userID string) domain.GameSession {
	return domain.GameSession{
		ID:            id,
		UserID:        userID,
		Configuration: domain.DefaultConfiguration(),
		Steps: []domain.Step{
			{Index: 0, Prompt: "dog", Translation: "perro", Answers: []string{"gato", "perro"}},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
