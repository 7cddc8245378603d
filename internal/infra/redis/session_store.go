package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lexicon-quiz-service/internal/domain"
)

// SessionStore is a Redis implementation of app.SessionRepository and app.UserRepository.
// Keys:
//
//	lexicon:user:{id}          hash   email, name, created_at
//	lexicon:user-email:{email} string user id (SETNX guards uniqueness)
//	lexicon:config:{user}      hash   configuration fields
//	lexicon:session:{id}       string session JSON
//	lexicon:active:{user}      string id of the active session (written under WATCH)
//	lexicon:history:{user}     list   session ids, newest first
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) CreateUser(ctx context.Context, user domain.User, cfg domain.GameConfiguration) error {
	claimed, err := s.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return domain.ErrEmailTaken
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(user.ID),
			"email", user.Email,
			"name", user.Name,
			"created_at", user.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.HSet(ctx, configKey(user.ID), configFields(cfg)...)
		return nil
	})
	if err != nil {
		// release the email so the registration can be retried
		_ = s.client.Del(ctx, emailKey(user.Email)).Err()
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (s *SessionStore) FindUser(ctx context.Context, userID string) (domain.User, bool, error) {
	fields, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return domain.User{}, false, err
	}
	if len(fields) == 0 {
		return domain.User{}, false, nil
	}
	created, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	return domain.User{
		ID:        userID,
		Email:     fields["email"],
		Name:      fields["name"],
		CreatedAt: created,
	}, true, nil
}

func (s *SessionStore) FindConfiguration(ctx context.Context, userID string) (domain.GameConfiguration, bool, error) {
	fields, err := s.client.HGetAll(ctx, configKey(userID)).Result()
	if err != nil {
		return domain.GameConfiguration{}, false, err
	}
	if len(fields) == 0 {
		return domain.GameConfiguration{}, false, nil
	}
	cfg := domain.GameConfiguration{
		UserID:        userID,
		TranslateFrom: fields["translate_from"],
		TranslateTo:   fields["translate_to"],
	}
	ints := map[string]*int{
		"number_of_steps":      &cfg.NumberOfSteps,
		"step_time_in_seconds": &cfg.StepTimeInSeconds,
		"answer_count":         &cfg.AnswerCount,
	}
	for field, dst := range ints {
		v, err := strconv.Atoi(fields[field])
		if err != nil {
			return domain.GameConfiguration{}, false, fmt.Errorf("config %s: field %s: %w", userID, field, err)
		}
		*dst = v
	}
	return cfg, true, nil
}

func (s *SessionStore) SaveConfiguration(ctx context.Context, cfg domain.GameConfiguration) error {
	return s.client.HSet(ctx, configKey(cfg.UserID), configFields(cfg)...).Err()
}

func (s *SessionStore) FindActiveSession(ctx context.Context, userID string) (domain.GameSession, bool, error) {
	return activeSession(ctx, s.client, userID)
}

func (s *SessionStore) FindSession(ctx context.Context, sessionID string) (domain.GameSession, bool, error) {
	return loadSession(ctx, s.client, sessionID)
}

// CreateSession writes the session and the active pointer in one MULTI, guarded by a
// WATCH on the pointer. A concurrent writer aborts the transaction.
func (s *SessionStore) CreateSession(ctx context.Context, session domain.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pointer := activeKey(session.UserID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if _, active, err := activeSession(ctx, tx, session.UserID); err != nil {
			return err
		} else if active {
			return domain.ErrGameAlreadyActive
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey(session.ID), data, 0)
			pipe.LPush(ctx, historyKey(session.UserID), session.ID)
			if session.Active() {
				pipe.Set(ctx, pointer, session.ID, 0)
			}
			return nil
		})
		return err
	}, pointer)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrGameAlreadyActive
	}
	return err
}

// SaveSession stores progress and clears the active pointer once the session completes.
func (s *SessionStore) SaveSession(ctx context.Context, session domain.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pointer := activeKey(session.UserID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, pointer).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey(session.ID), data, 0)
			if !session.Active() && current == session.ID {
				pipe.Del(ctx, pointer)
			}
			return nil
		})
		return err
	}, pointer)
}

func (s *SessionStore) ListSessions(ctx context.Context, userID string) ([]domain.GameSession, error) {
	ids, err := s.client.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.GameSession{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameSession, 0, len(raws))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var session domain.GameSession
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session %s: %w", ids[i], err)
		}
		out = append(out, session)
	}
	return out, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func activeSession(ctx context.Context, c getter, userID string) (domain.GameSession, bool, error) {
	id, err := c.Get(ctx, activeKey(userID)).Result()
	if err == redis.Nil {
		return domain.GameSession{}, false, nil
	}
	if err != nil {
		return domain.GameSession{}, false, err
	}
	session, ok, err := loadSession(ctx, c, id)
	if err != nil || !ok || !session.Active() {
		return domain.GameSession{}, false, err
	}
	return session, true, nil
}

func loadSession(ctx context.Context, c getter, sessionID string) (domain.GameSession, bool, error) {
	raw, err := c.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return domain.GameSession{}, false, nil
	}
	if err != nil {
		return domain.GameSession{}, false, err
	}
	var session domain.GameSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.GameSession{}, false, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return session, true, nil
}

func configFields(cfg domain.GameConfiguration) []interface{} {
	return []interface{}{
		"translate_from", cfg.TranslateFrom,
		"translate_to", cfg.TranslateTo,
		"number_of_steps", cfg.NumberOfSteps,
		"step_time_in_seconds", cfg.StepTimeInSeconds,
		"answer_count", cfg.AnswerCount,
	}
}

func userKey(id string) string        { return "lexicon:user:" + id }
func emailKey(email string) string    { return "lexicon:user-email:" + email }
func configKey(userID string) string  { return "lexicon:config:" + userID }
func sessionKey(id string) string     { return "lexicon:session:" + id }
func activeKey(userID string) string  { return "lexicon:active:" + userID }
func historyKey(userID string) string { return "lexicon:history:" + userID }
