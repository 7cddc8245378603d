package memory

import (
	"context"
	"sync"

	"lexicon-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository and app.UserRepository.
// State is lost when the process restarts.
type SessionStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string
	configs  map[string]domain.GameConfiguration
	sessions map[string]domain.GameSession
	active   map[string]string   // user id -> active session id
	history  map[string][]string // user id -> session ids, oldest first
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		configs:  make(map[string]domain.GameConfiguration),
		sessions: make(map[string]domain.GameSession),
		active:   make(map[string]string),
		history:  make(map[string][]string),
	}
}

func (s *SessionStore) CreateUser(_ context.Context, user domain.User, cfg domain.GameConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[user.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
	s.configs[user.ID] = cfg
	return nil
}

func (s *SessionStore) FindUser(_ context.Context, userID string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	return user, ok, nil
}

func (s *SessionStore) FindConfiguration(_ context.Context, userID string) (domain.GameConfiguration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	return cfg, ok, nil
}

func (s *SessionStore) SaveConfiguration(_ context.Context, cfg domain.GameConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.UserID] = cfg
	return nil
}

func (s *SessionStore) FindActiveSession(_ context.Context, userID string) (domain.GameSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.activeLocked(userID)
	if !ok {
		return domain.GameSession{}, false, nil
	}
	return session.Clone(), true, nil
}

func (s *SessionStore) FindSession(_ context.Context, sessionID string) (domain.GameSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.GameSession{}, false, nil
	}
	return session.Clone(), true, nil
}

// CreateSession checks and inserts under the same lock, so concurrent callers
// cannot both register an active session for one user.
func (s *SessionStore) CreateSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activeLocked(session.UserID); ok {
		return domain.ErrGameAlreadyActive
	}
	s.sessions[session.ID] = session.Clone()
	s.history[session.UserID] = append(s.history[session.UserID], session.ID)
	if session.Active() {
		s.active[session.UserID] = session.ID
	}
	return nil
}

func (s *SessionStore) SaveSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.ID] = session.Clone()
	if !session.Active() && s.active[session.UserID] == session.ID {
		delete(s.active, session.UserID)
	}
	return nil
}

func (s *SessionStore) ListSessions(_ context.Context, userID string) ([]domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.history[userID]
	out := make([]domain.GameSession, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.sessions[ids[i]].Clone())
	}
	return out, nil
}

func (s *SessionStore) activeLocked(userID string) (domain.GameSession, bool) {
	id, ok := s.active[userID]
	if !ok {
		return domain.GameSession{}, false
	}
	session, ok := s.sessions[id]
	if !ok || !session.Active() {
		return domain.GameSession{}, false
	}
	return session, true
}
