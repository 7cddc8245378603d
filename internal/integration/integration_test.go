package integration

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/domain"
	"lexicon-quiz-service/internal/infra/memory"
	"lexicon-quiz-service/internal/infra/postgres"
	infraredis "lexicon-quiz-service/internal/infra/redis"
	"lexicon-quiz-service/internal/translation"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedVocabulary(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	vocab := infraredis.NewVocabularyRepository(redisClient, postgres.NewVocabularyLoader(pool), 5*time.Minute)
	translator := translation.NewDictionary(vocab, rand.New(rand.NewSource(1)))
	store := postgres.NewStore(pool)
	configs := app.NewConfigurationManager(store, translator)
	games := app.NewGameService(store, translator, configs, rand.New(rand.NewSource(1)))
	users := app.NewUserService(store)

	user, err := users.Register(ctx, "user@gmail.com", "first last")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := users.Register(ctx, "user@gmail.com", "again"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := games.Configure(ctx, domain.GameConfiguration{
		TranslateFrom:     "japanese",
		TranslateTo:       "german",
		NumberOfSteps:     16,
		StepTimeInSeconds: 15,
		AnswerCount:       10,
	}, user.ID); err != nil {
		t.Fatalf("configure: %v", err)
	}

	session, err := games.InitGameForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("init game: %v", err)
	}
	if len(session.Steps) != 16 {
		t.Fatalf("expected 16 steps, got %d", len(session.Steps))
	}
	for _, step := range session.Steps {
		if len(step.Answers) != 10 || !step.Offers(step.Translation) {
			t.Fatalf("malformed step %+v", step)
		}
	}

	// the partial unique index rejects a second active session even without the in-process lock
	duplicate := session
	duplicate.ID = "duplicate"
	if err := store.CreateSession(ctx, duplicate); !errors.Is(err, domain.ErrGameAlreadyActive) {
		t.Fatalf("expected ErrGameAlreadyActive from the index, got %v", err)
	}

	result, err := games.SubmitAnswer(ctx, user.ID, session.ID, 0, session.Steps[0].Translation)
	if err != nil || !result.Correct || result.Score != 1 {
		t.Fatalf("unexpected answer result %+v err=%v", result, err)
	}
	for i := 1; i < 16; i++ {
		if _, err := games.Advance(ctx, user.ID, session.ID); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if _, err := games.CurrentStep(ctx, user.ID, session.ID); !errors.Is(err, domain.ErrGameCompleted) {
		t.Fatalf("expected ErrGameCompleted, got %v", err)
	}

	next, err := games.InitGameForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected a new game after completion, got %v", err)
	}
	history, err := games.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].ID != next.ID || history[1].Score != 1 || history[1].CompletedAt == nil {
		t.Fatalf("unexpected history %+v", history)
	}

	if n, err := redisClient.Exists(ctx, "lexicon:vocab:japanese", "lexicon:vocab:german").Result(); err != nil || n != 2 {
		t.Fatalf("expected both vocabularies cached in redis, got %d err=%v", n, err)
	}
}

func TestRedisSessionStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	vocabularies, err := translation.SeedVocabularies()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := memory.NewStaticVocabularyLoader(vocabularies)
	translator := translation.NewDictionary(infraredis.NewVocabularyRepository(redisClient, loader, time.Minute), nil)
	store := infraredis.NewSessionStore(redisClient)
	games := app.NewGameService(store, translator, app.NewConfigurationManager(store, translator), nil)

	session, err := games.InitGameForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("init game: %v", err)
	}
	if _, err := games.InitGameForUser(ctx, "u1"); !errors.Is(err, domain.ErrGameAlreadyActive) {
		t.Fatalf("expected ErrGameAlreadyActive, got %v", err)
	}
	for range session.Steps {
		if _, err := games.Advance(ctx, "u1", session.ID); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if _, err := games.ActiveSession(ctx, "u1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "lexicon", "POSTGRES_PASSWORD": "lexiconpass", "POSTGRES_DB": "lexicondb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://lexicon:lexiconpass@%s:%s/lexicondb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedVocabulary migrates the schema (postgres may need a moment after the port opens) and
// loads the bundled vocabulary.
func seedVocabulary(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := postgres.OpenDB(dsn)
	defer db.Close()

	var err error
	for attempt := 0; attempt < 10; attempt++ {
		if _, err = postgres.Migrate(ctx, db); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	vocabularies, err := translation.SeedVocabularies()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if _, err := postgres.SeedVocabularies(ctx, db, vocabularies); err != nil {
		t.Fatalf("seed vocabulary: %v", err)
	}
	// seeding twice is an upsert
	if _, err := postgres.SeedVocabularies(ctx, db, vocabularies); err != nil {
		t.Fatalf("reseed vocabulary: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
