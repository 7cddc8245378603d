package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/domain"
)

// ConfigurationStore persists per-user game configuration.
type ConfigurationStore interface {
	FindConfiguration(ctx context.Context, userID string) (domain.GameConfiguration, bool, error)
	SaveConfiguration(ctx context.Context, cfg domain.GameConfiguration) error
}

// ConfigurationManager validates and applies configuration changes.
type ConfigurationManager struct {
	store      ConfigurationStore
	translator Translator
}

func NewConfigurationManager(store ConfigurationStore, translator Translator) *ConfigurationManager {
	return &ConfigurationManager{store: store, translator: translator}
}

// GetConfiguration returns the stored configuration or the defaults bound to userID.
// The defaults are not persisted here.
func (m *ConfigurationManager) GetConfiguration(ctx context.Context, userID string) (domain.GameConfiguration, error) {
	cfg, ok, err := m.store.FindConfiguration(ctx, userID)
	if err != nil {
		return domain.GameConfiguration{}, fmt.Errorf("find configuration: %w", err)
	}
	if !ok {
		cfg = domain.DefaultConfiguration()
		cfg.UserID = userID
	}
	return cfg, nil
}

// UpdateConfiguration validates requested against the currently supported languages and
// overwrites the user's stored configuration in place.
// Side effects: one configuration write on success, none on failure.
func (m *ConfigurationManager) UpdateConfiguration(ctx context.Context, userID string, requested domain.GameConfiguration) (domain.GameConfiguration, error) {
	languages, err := m.translator.SupportedLanguages(ctx)
	if err != nil {
		return domain.GameConfiguration{}, fmt.Errorf("supported languages: %w", err)
	}
	if err := domain.Validate(requested, languages); err != nil {
		return domain.GameConfiguration{}, err
	}

	cfg, err := m.GetConfiguration(ctx, userID)
	if err != nil {
		return domain.GameConfiguration{}, err
	}
	cfg.Apply(requested)

	if err := m.store.SaveConfiguration(ctx, cfg); err != nil {
		return domain.GameConfiguration{}, writeFailure("save configuration", err)
	}

	log.Info().
		Str("user", userID).
		Str("from", cfg.TranslateFrom).
		Str("to", cfg.TranslateTo).
		Int("steps", cfg.NumberOfSteps).
		Int("answers", cfg.AnswerCount).
		Msg("game configuration updated")
	return cfg, nil
}

func writeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
