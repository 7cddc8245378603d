package redis

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lexicon-quiz-service/internal/domain"
)

// VocabularyLoader fetches vocabulary from a backing store (e.g., Postgres).
type VocabularyLoader interface {
	LoadLanguages(ctx context.Context) ([]string, error)
	LoadVocabulary(ctx context.Context, language string) (domain.Vocabulary, error)
}

// VocabularyRepository caches vocabularies in Redis and falls back to a loader on cache miss.
// Words are stored as:     HSET lexicon:vocab:{language} {concept} {word}
// Languages are stored as: SADD lexicon:languages {language}
type VocabularyRepository struct {
	client *redis.Client
	loader VocabularyLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

const languagesKey = "lexicon:languages"

func NewVocabularyRepository(client *redis.Client, loader VocabularyLoader, ttl time.Duration) *VocabularyRepository {
	return &VocabularyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *VocabularyRepository) Languages(ctx context.Context) ([]string, error) {
	if langs, err := r.client.SMembers(ctx, languagesKey).Result(); err == nil && len(langs) > 0 {
		sort.Strings(langs)
		return langs, nil
	}

	result, err, _ := r.sf.Do(languagesKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if langs, err := r.client.SMembers(ctx, languagesKey).Result(); err == nil && len(langs) > 0 {
			sort.Strings(langs)
			return langs, nil
		}

		langs, err := r.loader.LoadLanguages(ctx)
		if err != nil {
			return nil, err
		}
		sort.Strings(langs)
		if len(langs) == 0 {
			return langs, nil
		}

		members := make([]interface{}, len(langs))
		for i, lang := range langs {
			members[i] = lang
		}
		pipe := r.client.Pipeline()
		pipe.SAdd(ctx, languagesKey, members...)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, languagesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return langs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

func (r *VocabularyRepository) GetVocabulary(ctx context.Context, language string) (domain.Vocabulary, error) {
	key := vocabularyKey(language)

	if words, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(words) > 0 {
		return domain.Vocabulary{Language: language, Words: words}, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if words, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(words) > 0 {
			return domain.Vocabulary{Language: language, Words: words}, nil
		}

		vocab, err := r.loader.LoadVocabulary(ctx, language)
		if err != nil {
			return domain.Vocabulary{}, err
		}
		if len(vocab.Words) == 0 {
			return vocab, nil
		}

		pipe := r.client.Pipeline()
		for concept, word := range vocab.Words {
			pipe.HSet(ctx, key, concept, word)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return vocab, nil
	})
	if err != nil {
		return domain.Vocabulary{}, err
	}
	return result.(domain.Vocabulary), nil
}

// Invalidate drops cached entries so the next read goes to the loader.
func (r *VocabularyRepository) Invalidate(ctx context.Context, languages ...string) error {
	return InvalidateVocabulary(ctx, r.client, languages...)
}

// InvalidateVocabulary drops the cached language set and the given vocabularies.
func InvalidateVocabulary(ctx context.Context, client *redis.Client, languages ...string) error {
	keys := []string{languagesKey}
	for _, lang := range languages {
		keys = append(keys, vocabularyKey(lang))
	}
	return client.Del(ctx, keys...).Err()
}

func (r *VocabularyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func vocabularyKey(language string) string { return "lexicon:vocab:" + language }
