package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lexicon-quiz-service/internal/domain"
)

// VocabularyLoader fetches vocabulary from a backing store (e.g., Postgres or a YAML file).
type VocabularyLoader interface {
	LoadLanguages(ctx context.Context) ([]string, error)
	LoadVocabulary(ctx context.Context, language string) (domain.Vocabulary, error)
}

// VocabularyRepository caches vocabularies with TTL to avoid repeated loader hits.
type VocabularyRepository struct {
	loader VocabularyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu           sync.RWMutex
	rnd          *rand.Rand
	vocabularies map[string]cachedVocabulary
	languages    cachedLanguages
}

type cachedVocabulary struct {
	vocabulary domain.Vocabulary
	expiresAt  time.Time
}

type cachedLanguages struct {
	languages []string
	expiresAt time.Time
}

const languagesFlight = "\x00languages"

func NewVocabularyRepository(loader VocabularyLoader, ttl time.Duration) *VocabularyRepository {
	return &VocabularyRepository{
		loader:       loader,
		ttl:          ttl,
		clock:        time.Now,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		vocabularies: make(map[string]cachedVocabulary),
	}
}

func (r *VocabularyRepository) Languages(ctx context.Context) ([]string, error) {
	if langs, ok := r.cachedLanguages(); ok {
		return langs, nil
	}

	result, err, _ := r.sf.Do(languagesFlight, func() (interface{}, error) {
		if langs, ok := r.cachedLanguages(); ok {
			return langs, nil
		}
		langs, err := r.loader.LoadLanguages(ctx)
		if err != nil {
			return nil, err
		}
		sort.Strings(langs)

		r.mu.Lock()
		r.languages = cachedLanguages{
			languages: langs,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return langs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

func (r *VocabularyRepository) GetVocabulary(ctx context.Context, language string) (domain.Vocabulary, error) {
	if vocab, ok := r.cachedVocabulary(language); ok {
		return vocab, nil
	}

	result, err, _ := r.sf.Do(language, func() (interface{}, error) {
		if vocab, ok := r.cachedVocabulary(language); ok {
			return vocab, nil
		}
		vocab, err := r.loader.LoadVocabulary(ctx, language)
		if err != nil {
			return domain.Vocabulary{}, err
		}

		r.mu.Lock()
		r.vocabularies[language] = cachedVocabulary{
			vocabulary: vocab,
			expiresAt:  r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return vocab, nil
	})
	if err != nil {
		return domain.Vocabulary{}, err
	}
	return result.(domain.Vocabulary), nil
}

func (r *VocabularyRepository) cachedLanguages() ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.languages.languages != nil && r.languages.expiresAt.After(r.clock()) {
		return append([]string(nil), r.languages.languages...), true
	}
	return nil, false
}

func (r *VocabularyRepository) cachedVocabulary(language string) (domain.Vocabulary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.vocabularies[language]; ok && entry.expiresAt.After(r.clock()) {
		return entry.vocabulary, true
	}
	return domain.Vocabulary{}, false
}

// ttlWithJitterLocked must be called with mu held; rand.Rand is not safe for concurrent use.
func (r *VocabularyRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticVocabularyLoader is a simple loader backed by in-memory vocabularies (useful for tests/demos).
type StaticVocabularyLoader struct {
	vocabularies map[string]domain.Vocabulary
}

func NewStaticVocabularyLoader(vocabularies []domain.Vocabulary) *StaticVocabularyLoader {
	byLanguage := make(map[string]domain.Vocabulary, len(vocabularies))
	for _, v := range vocabularies {
		byLanguage[v.Language] = v
	}
	return &StaticVocabularyLoader{vocabularies: byLanguage}
}

func (l *StaticVocabularyLoader) LoadLanguages(_ context.Context) ([]string, error) {
	langs := make([]string, 0, len(l.vocabularies))
	for lang := range l.vocabularies {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}

func (l *StaticVocabularyLoader) LoadVocabulary(_ context.Context, language string) (domain.Vocabulary, error) {
	if vocab, ok := l.vocabularies[language]; ok {
		return vocab, nil
	}
	return domain.Vocabulary{}, fmt.Errorf("%w: no vocabulary for %q", domain.ErrTranslationUnavailable, language)
}
