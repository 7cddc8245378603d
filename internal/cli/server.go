package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/config"
	"lexicon-quiz-service/internal/infra/memory"
	"lexicon-quiz-service/internal/infra/postgres"
	redisstore "lexicon-quiz-service/internal/infra/redis"
	"lexicon-quiz-service/internal/translation"
	transport "lexicon-quiz-service/internal/transport/http"
)

// store is what every backend provides: sessions, configurations and users.
type store interface {
	app.SessionRepository
	app.UserRepository
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := newVocabularyLoader(ctx, cfg, pool)
	if err != nil {
		return err
	}

	vocabTTL := config.TTLDuration(cfg.Vocabulary.TTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	var vocab translation.VocabularyRepository
	if redisClient != nil {
		vocab = redisstore.NewVocabularyRepository(redisClient, loader, vocabTTL)
	} else {
		vocab = memory.NewVocabularyRepository(loader, vocabTTL)
	}

	var sessions store
	switch {
	case pool != nil:
		sessions = postgres.NewStore(pool)
	case redisClient != nil:
		sessions = redisstore.NewSessionStore(redisClient)
	default:
		sessions = memory.NewSessionStore()
	}

	translator := translation.NewDictionary(vocab, nil)
	configs := app.NewConfigurationManager(sessions, translator)
	games := app.NewGameService(sessions, translator, configs, nil)
	users := app.NewUserService(sessions)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(games, users),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).
			Bool("postgres", pool != nil).
			Bool("redis", redisClient != nil).
			Msg("starting lexicon quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newVocabularyLoader prefers Postgres, then vocabulary.path, then the bundled set.
// An empty Postgres vocabulary is seeded from the file or bundled set first.
func newVocabularyLoader(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (memory.VocabularyLoader, error) {
	if pool == nil {
		vocabularies, err := loadVocabularies(cfg.Vocabulary.Path)
		if err != nil {
			return nil, err
		}
		return memory.NewStaticVocabularyLoader(vocabularies), nil
	}

	loader := postgres.NewVocabularyLoader(pool)
	languages, err := loader.LoadLanguages(ctx)
	if err != nil {
		return nil, err
	}
	if len(languages) > 0 {
		return loader, nil
	}

	vocabularies, err := loadVocabularies(cfg.Vocabulary.Path)
	if err != nil {
		return nil, err
	}
	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()
	written, err := postgres.SeedVocabularies(ctx, db, vocabularies)
	if err != nil {
		return nil, err
	}
	log.Info().Int("entries", written).Msg("seeded empty vocabulary table")
	return loader, nil
}
