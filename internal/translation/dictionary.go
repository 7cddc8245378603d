package translation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"lexicon-quiz-service/internal/domain"
)

// VocabularyRepository serves vocabularies, typically through a cache.
type VocabularyRepository interface {
	Languages(ctx context.Context) ([]string, error)
	GetVocabulary(ctx context.Context, language string) (domain.Vocabulary, error)
}

// Dictionary answers translation questions from shared vocabulary concepts.
type Dictionary struct {
	vocab VocabularyRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDictionary builds a dictionary over vocab. rng may be nil to use a time-seeded default.
func NewDictionary(vocab VocabularyRepository, rng *rand.Rand) *Dictionary {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dictionary{vocab: vocab, rng: rng}
}

// SupportedLanguages lists every language that has a vocabulary, sorted.
func (d *Dictionary) SupportedLanguages(ctx context.Context) ([]string, error) {
	langs, err := d.vocab.Languages(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]string(nil), langs...)
	sort.Strings(out)
	return out, nil
}

// GenerateQuestion picks a random concept known in both languages and answerCount-1
// distinct distractors from the target vocabulary.
func (d *Dictionary) GenerateQuestion(ctx context.Context, from, to string, answerCount int) (domain.Question, error) {
	if from == to {
		return domain.Question{}, fmt.Errorf("%w: %s to itself", domain.ErrTranslationUnavailable, from)
	}
	if answerCount < domain.MinAnswerCount {
		return domain.Question{}, fmt.Errorf("%w: answer count %d", domain.ErrTranslationUnavailable, answerCount)
	}

	langs, err := d.vocab.Languages(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: languages: %w", domain.ErrTranslationUnavailable, err)
	}
	supported := domain.SupportedLanguages{Languages: langs}
	if !supported.Contains(from) || !supported.Contains(to) {
		return domain.Question{}, fmt.Errorf("%w: %s to %s is not supported", domain.ErrTranslationUnavailable, from, to)
	}

	source, err := d.load(ctx, from)
	if err != nil {
		return domain.Question{}, err
	}
	target, err := d.load(ctx, to)
	if err != nil {
		return domain.Question{}, err
	}

	shared := make([]string, 0, len(source.Words))
	for _, concept := range source.Concepts() {
		if target.Words[concept] != "" {
			shared = append(shared, concept)
		}
	}
	if len(shared) == 0 {
		return domain.Question{}, fmt.Errorf("%w: no shared words between %s and %s", domain.ErrTranslationUnavailable, from, to)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	concept := shared[d.rng.Intn(len(shared))]
	answer := target.Words[concept]
	pool := distinctWords(target, answer)
	if len(pool) < answerCount-1 {
		return domain.Question{}, fmt.Errorf("%w: vocabulary for %s exhausted (%d distractors available, %d needed)",
			domain.ErrTranslationUnavailable, to, len(pool), answerCount-1)
	}
	d.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	return domain.Question{
		Prompt:      source.Words[concept],
		Answer:      answer,
		Distractors: pool[:answerCount-1],
	}, nil
}

func (d *Dictionary) load(ctx context.Context, language string) (domain.Vocabulary, error) {
	vocab, err := d.vocab.GetVocabulary(ctx, language)
	if err != nil {
		return domain.Vocabulary{}, fmt.Errorf("%w: load %s vocabulary: %w", domain.ErrTranslationUnavailable, language, err)
	}
	return vocab, nil
}

// distinctWords returns the vocabulary's words except exclude, deduplicated and sorted.
func distinctWords(v domain.Vocabulary, exclude string) []string {
	seen := map[string]struct{}{exclude: {}}
	out := make([]string, 0, len(v.Words))
	for _, concept := range v.Concepts() {
		word := v.Words[concept]
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}
