package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"lexicon-quiz-service/internal/domain"
)

// VocabularyLoader loads vocabulary rows from Postgres.
type VocabularyLoader struct {
	pool *pgxpool.Pool
}

func NewVocabularyLoader(pool *pgxpool.Pool) *VocabularyLoader {
	return &VocabularyLoader{pool: pool}
}

func (l *VocabularyLoader) LoadLanguages(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT DISTINCT language FROM vocabulary_entries ORDER BY language`)
	if err != nil {
		return nil, fmt.Errorf("load languages: %w", err)
	}
	defer rows.Close()

	var langs []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

func (l *VocabularyLoader) LoadVocabulary(ctx context.Context, language string) (domain.Vocabulary, error) {
	rows, err := l.pool.Query(ctx, `SELECT concept, word FROM vocabulary_entries WHERE language=$1`, language)
	if err != nil {
		return domain.Vocabulary{}, fmt.Errorf("load vocabulary: %w", err)
	}
	defer rows.Close()

	words := make(map[string]string)
	for rows.Next() {
		var concept, word string
		if err := rows.Scan(&concept, &word); err != nil {
			return domain.Vocabulary{}, fmt.Errorf("scan vocabulary: %w", err)
		}
		words[concept] = word
	}
	if err := rows.Err(); err != nil {
		return domain.Vocabulary{}, fmt.Errorf("load vocabulary: %w", err)
	}
	if len(words) == 0 {
		return domain.Vocabulary{}, fmt.Errorf("%w: no vocabulary for %q", domain.ErrTranslationUnavailable, language)
	}
	return domain.Vocabulary{Language: language, Words: words}, nil
}
