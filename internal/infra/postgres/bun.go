package postgres

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"lexicon-quiz-service/internal/domain"
	pgmigrations "lexicon-quiz-service/internal/infra/postgres/migrations"
)

// OpenDB returns a bun handle over dsn. Callers own Close.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies all pending schema migrations and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}
	return migrator.Migrate(ctx)
}

type vocabularyEntry struct {
	bun.BaseModel `bun:"table:vocabulary_entries"`

	Language string `bun:"language,pk"`
	Concept  string `bun:"concept,pk"`
	Word     string `bun:"word,notnull"`
}

// SeedVocabularies upserts every word of vocabularies into vocabulary_entries and
// returns the number of rows written.
func SeedVocabularies(ctx context.Context, db *bun.DB, vocabularies []domain.Vocabulary) (int, error) {
	var entries []vocabularyEntry
	for _, vocab := range vocabularies {
		for _, concept := range vocab.Concepts() {
			entries = append(entries, vocabularyEntry{
				Language: vocab.Language,
				Concept:  concept,
				Word:     vocab.Words[concept],
			})
		}
	}
	if len(entries) == 0 {
		return 0, nil
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&entries).
			On("CONFLICT (language, concept) DO UPDATE").
			Set("word = EXCLUDED.word").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
