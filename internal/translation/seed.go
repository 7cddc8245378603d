package translation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"lexicon-quiz-service/internal/domain"
)

//go:embed vocabulary.yaml
var embeddedVocabulary []byte

type vocabularyFile struct {
	Concepts map[string]map[string]string `yaml:"concepts"`
}

// SeedVocabularies returns the vocabulary bundled with the binary.
func SeedVocabularies() ([]domain.Vocabulary, error) {
	return ParseVocabularies(embeddedVocabulary)
}

// LoadVocabularyFile reads a vocabulary YAML file from path.
func LoadVocabularyFile(path string) ([]domain.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseVocabularies(data)
}

// ParseVocabularies turns the concept-oriented YAML layout into one vocabulary per language,
// sorted by language.
func ParseVocabularies(data []byte) ([]domain.Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(file.Concepts) == 0 {
		return nil, errors.New("parse vocabulary: no concepts defined")
	}

	byLanguage := make(map[string]map[string]string)
	for concept, words := range file.Concepts {
		for lang, word := range words {
			if word == "" {
				continue
			}
			if byLanguage[lang] == nil {
				byLanguage[lang] = make(map[string]string)
			}
			byLanguage[lang][concept] = word
		}
	}

	out := make([]domain.Vocabulary, 0, len(byLanguage))
	for lang, words := range byLanguage {
		out = append(out, domain.Vocabulary{Language: lang, Words: words})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}
