package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/domain"
)

// SessionRepository abstracts how game sessions and configurations are stored (in-memory, Redis, Postgres).
type SessionRepository interface {
	ConfigurationStore

	FindActiveSession(ctx context.Context, userID string) (domain.GameSession, bool, error)
	FindSession(ctx context.Context, sessionID string) (domain.GameSession, bool, error)
	// CreateSession stores session only if its user has no active session,
	// otherwise it returns domain.ErrGameAlreadyActive.
	CreateSession(ctx context.Context, session domain.GameSession) error
	SaveSession(ctx context.Context, session domain.GameSession) error
	// ListSessions returns the user's sessions, newest first.
	ListSessions(ctx context.Context, userID string) ([]domain.GameSession, error)
}

// Translator is the external translation capability.
type Translator interface {
	SupportedLanguages(ctx context.Context) ([]string, error)
	// GenerateQuestion returns a prompt in from, its translation in to and answerCount-1 distractors.
	GenerateQuestion(ctx context.Context, from, to string, answerCount int) (domain.Question, error)
}

// GameService contains the game session use cases.
type GameService struct {
	sessions   SessionRepository
	translator Translator
	configs    *ConfigurationManager
	locks      *keyedMutex
	now        func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGameService wires the engine to its collaborators. rng may be nil to use a time-seeded default.
func NewGameService(sessions SessionRepository, translator Translator, configs *ConfigurationManager, rng *rand.Rand) *GameService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GameService{
		sessions:   sessions,
		translator: translator,
		configs:    configs,
		locks:      newKeyedMutex(),
		now:        time.Now,
		rng:        rng,
	}
}

// InitGameForUser starts a new game from a snapshot of the user's configuration.
// It fails with domain.ErrGameAlreadyActive while another session is active, and with
// domain.ErrGameCreationFailed if any step cannot be generated. Nothing is persisted on failure.
func (s *GameService) InitGameForUser(ctx context.Context, userID string) (domain.GameSession, error) {
	unlock := s.locks.Lock("user:" + userID)
	defer unlock()

	_, active, err := s.sessions.FindActiveSession(ctx, userID)
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("find active session: %w", err)
	}
	if active {
		return domain.GameSession{}, domain.ErrGameAlreadyActive
	}

	cfg, err := s.configs.GetConfiguration(ctx, userID)
	if err != nil {
		return domain.GameSession{}, err
	}

	steps, err := s.buildSteps(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Str("from", cfg.TranslateFrom).Str("to", cfg.TranslateTo).Msg("game creation failed")
		return domain.GameSession{}, err
	}

	session := domain.GameSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		Configuration: cfg,
		Steps:         steps,
		CreatedAt:     s.now().UTC(),
	}
	// The repository re-checks atomically; another instance may have won the race.
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		if errors.Is(err, domain.ErrGameAlreadyActive) {
			return domain.GameSession{}, err
		}
		return domain.GameSession{}, writeFailure("create session", err)
	}

	log.Info().Str("user", userID).Str("game", session.ID).Int("steps", len(steps)).Msg("game started")
	return session, nil
}

// ActiveSession returns the user's in-progress session.
func (s *GameService) ActiveSession(ctx context.Context, userID string) (domain.GameSession, error) {
	session, ok, err := s.sessions.FindActiveSession(ctx, userID)
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("find active session: %w", err)
	}
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// Session returns a session owned by userID.
func (s *GameService) Session(ctx context.Context, userID, sessionID string) (domain.GameSession, error) {
	return s.loadSession(ctx, userID, sessionID)
}

// History lists every session of the user, newest first.
func (s *GameService) History(ctx context.Context, userID string) ([]domain.GameSession, error) {
	sessions, err := s.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CurrentStep returns the step at the cursor or domain.ErrGameCompleted once the session is terminal.
func (s *GameService) CurrentStep(ctx context.Context, userID, sessionID string) (domain.Step, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return domain.Step{}, err
	}
	step, ok := session.CurrentStep()
	if !ok {
		return domain.Step{}, domain.ErrGameCompleted
	}
	return step, nil
}

// Advance moves the session to its next step. Completed sessions are returned unchanged.
func (s *GameService) Advance(ctx context.Context, userID, sessionID string) (domain.GameSession, error) {
	unlock := s.locks.Lock("session:" + sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	if !session.Active() {
		return session, nil
	}

	session.Advance(s.now().UTC())
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.GameSession{}, writeFailure("save session", err)
	}
	s.logCompletion(session)
	return session, nil
}

// SubmitAnswer records answer for the step at stepIndex and advances the session.
func (s *GameService) SubmitAnswer(ctx context.Context, userID, sessionID string, stepIndex int, answer string) (domain.AnswerResult, error) {
	unlock := s.locks.Lock("session:" + sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	correct, err := session.Answer(stepIndex, answer, s.now().UTC())
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return domain.AnswerResult{}, writeFailure("save session", err)
	}
	s.logCompletion(session)

	return domain.AnswerResult{
		Step:        stepIndex,
		Correct:     correct,
		Translation: session.Steps[stepIndex].Translation,
		Score:       session.Score,
		State:       session.State(),
	}, nil
}

// SupportedLanguages returns the translator's languages as a sorted value.
func (s *GameService) SupportedLanguages(ctx context.Context) (domain.SupportedLanguages, error) {
	languages, err := s.translator.SupportedLanguages(ctx)
	if err != nil {
		return domain.SupportedLanguages{}, fmt.Errorf("supported languages: %w", err)
	}
	out := append([]string(nil), languages...)
	sort.Strings(out)
	return domain.SupportedLanguages{Languages: out}, nil
}

// UserConfiguration returns the user's configuration, falling back to defaults.
func (s *GameService) UserConfiguration(ctx context.Context, userID string) (domain.GameConfiguration, error) {
	return s.configs.GetConfiguration(ctx, userID)
}

// Configure validates and stores a new configuration for userID.
func (s *GameService) Configure(ctx context.Context, candidate domain.GameConfiguration, userID string) (domain.GameConfiguration, error) {
	return s.configs.UpdateConfiguration(ctx, userID, candidate)
}

func (s *GameService) loadSession(ctx context.Context, userID, sessionID string) (domain.GameSession, error) {
	session, ok, err := s.sessions.FindSession(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("find session: %w", err)
	}
	if !ok || session.UserID != userID {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// buildSteps asks the translator once per step. Any failure aborts the whole game.
func (s *GameService) buildSteps(ctx context.Context, cfg domain.GameConfiguration) ([]domain.Step, error) {
	steps := make([]domain.Step, 0, cfg.NumberOfSteps)
	for i := 0; i < cfg.NumberOfSteps; i++ {
		question, err := s.translator.GenerateQuestion(ctx, cfg.TranslateFrom, cfg.TranslateTo, cfg.AnswerCount)
		if err == nil {
			err = checkQuestion(question, cfg.AnswerCount)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", domain.ErrGameCreationFailed, i, err)
		}

		answers := make([]string, 0, cfg.AnswerCount)
		answers = append(answers, question.Distractors...)
		answers = append(answers, question.Answer)
		s.shuffle(answers)

		steps = append(steps, domain.Step{
			Index:       i,
			Prompt:      question.Prompt,
			Translation: question.Answer,
			Answers:     answers,
		})
	}
	return steps, nil
}

// checkQuestion guards the candidate-set invariant: exactly answerCount distinct
// candidates with the correct answer present once.
func checkQuestion(q domain.Question, answerCount int) error {
	if q.Prompt == "" || q.Answer == "" {
		return fmt.Errorf("%w: empty prompt or answer", domain.ErrTranslationUnavailable)
	}
	if len(q.Distractors) != answerCount-1 {
		return fmt.Errorf("%w: got %d distractors, want %d", domain.ErrTranslationUnavailable, len(q.Distractors), answerCount-1)
	}
	seen := map[string]struct{}{q.Answer: {}}
	for _, d := range q.Distractors {
		if _, dup := seen[d]; dup {
			return fmt.Errorf("%w: duplicate candidate %q", domain.ErrTranslationUnavailable, d)
		}
		seen[d] = struct{}{}
	}
	return nil
}

func (s *GameService) shuffle(values []string) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
}

func (s *GameService) logCompletion(session domain.GameSession) {
	if session.Active() {
		return
	}
	log.Info().
		Str("user", session.UserID).
		Str("game", session.ID).
		Int("score", session.Score).
		Int("steps", len(session.Steps)).
		Msg("game completed")
}
