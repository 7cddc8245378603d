package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lexicon-quiz-service/internal/config"
	"lexicon-quiz-service/internal/domain"
	"lexicon-quiz-service/internal/infra/postgres"
	redisstore "lexicon-quiz-service/internal/infra/redis"
	"lexicon-quiz-service/internal/translation"
)

// NewSeedCmd writes vocabulary into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load vocabulary into Postgres (bundled set or --file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "vocabulary YAML file (defaults to vocabulary.path, then the bundled set)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Vocabulary.Path
	}
	vocabularies, err := loadVocabularies(file)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	written, err := postgres.SeedVocabularies(ctx, db, vocabularies)
	if err != nil {
		return fmt.Errorf("seed vocabulary: %w", err)
	}
	log.Info().Int("entries", written).Int("languages", len(vocabularies)).Msg("vocabulary seeded")

	if client := newRedisClient(cfg); client != nil {
		defer client.Close()
		languages := make([]string, len(vocabularies))
		for i, v := range vocabularies {
			languages[i] = v.Language
		}
		if err := redisstore.InvalidateVocabulary(ctx, client, languages...); err != nil {
			log.Warn().Err(err).Msg("vocabulary cache not invalidated")
		}
	}
	return nil
}

func loadVocabularies(file string) ([]domain.Vocabulary, error) {
	if file == "" {
		return translation.SeedVocabularies()
	}
	vocabularies, err := translation.LoadVocabularyFile(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	return vocabularies, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
