package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lexicon-quiz-service/internal/domain"
)

const (
	uniqueViolation    = "23505"
	emailConstraint    = "users_email_key"
	activeSessionIndex = "game_sessions_one_active"
)

// Store is a Postgres implementation of app.SessionRepository and app.UserRepository.
// The partial unique index game_sessions_one_active turns CreateSession into a conditional insert.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User, cfg domain.GameConfiguration) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
			user.ID, user.Email, user.Name, user.CreatedAt,
		); err != nil {
			return err
		}
		return upsertConfiguration(ctx, tx, cfg)
	})
	if isUniqueViolation(err, emailConstraint) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, userID string) (domain.User, bool, error) {
	user := domain.User{ID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT email, name, created_at FROM users WHERE id=$1`, userID,
	).Scan(&user.Email, &user.Name, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("find user: %w", err)
	}
	return user, true, nil
}

func (s *Store) FindConfiguration(ctx context.Context, userID string) (domain.GameConfiguration, bool, error) {
	cfg := domain.GameConfiguration{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT translate_from, translate_to, number_of_steps, step_time_in_seconds, answer_count
		FROM game_configurations WHERE user_id=$1`, userID,
	).Scan(&cfg.TranslateFrom, &cfg.TranslateTo, &cfg.NumberOfSteps, &cfg.StepTimeInSeconds, &cfg.AnswerCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameConfiguration{}, false, nil
	}
	if err != nil {
		return domain.GameConfiguration{}, false, fmt.Errorf("find configuration: %w", err)
	}
	return cfg, true, nil
}

func (s *Store) SaveConfiguration(ctx context.Context, cfg domain.GameConfiguration) error {
	if err := upsertConfiguration(ctx, s.pool, cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	configuration, steps, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_sessions
			(id, user_id, configuration, steps, step_cursor, score, completed, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.UserID, configuration, steps,
		session.Cursor, session.Score, !session.Active(), session.CreatedAt, session.CompletedAt,
	)
	if isUniqueViolation(err, activeSessionIndex) {
		return domain.ErrGameAlreadyActive
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, session domain.GameSession) error {
	_, steps, err := encodeSession(session)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE game_sessions
		SET steps=$2, step_cursor=$3, score=$4, completed=$5, completed_at=$6
		WHERE id=$1`,
		session.ID, steps, session.Cursor, session.Score, !session.Active(), session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

const sessionColumns = `id, user_id, configuration, steps, step_cursor, score, created_at, completed_at`

func (s *Store) FindSession(ctx context.Context, sessionID string) (domain.GameSession, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id=$1`, sessionID)
	return scanOne(row)
}

func (s *Store) FindActiveSession(ctx context.Context, userID string) (domain.GameSession, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE user_id=$1 AND NOT completed`, userID)
	return scanOne(row)
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]domain.GameSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.GameSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func upsertConfiguration(ctx context.Context, db execer, cfg domain.GameConfiguration) error {
	_, err := db.Exec(ctx, `
		INSERT INTO game_configurations
			(user_id, translate_from, translate_to, number_of_steps, step_time_in_seconds, answer_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			translate_from = EXCLUDED.translate_from,
			translate_to = EXCLUDED.translate_to,
			number_of_steps = EXCLUDED.number_of_steps,
			step_time_in_seconds = EXCLUDED.step_time_in_seconds,
			answer_count = EXCLUDED.answer_count,
			updated_at = now()`,
		cfg.UserID, cfg.TranslateFrom, cfg.TranslateTo, cfg.NumberOfSteps, cfg.StepTimeInSeconds, cfg.AnswerCount,
	)
	return err
}

// encodeSession returns the configuration and steps as JSON text for the jsonb columns.
func encodeSession(session domain.GameSession) (string, string, error) {
	configuration, err := json.Marshal(session.Configuration)
	if err != nil {
		return "", "", fmt.Errorf("marshal configuration: %w", err)
	}
	steps, err := json.Marshal(session.Steps)
	if err != nil {
		return "", "", fmt.Errorf("marshal steps: %w", err)
	}
	return string(configuration), string(steps), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(row pgx.Row) (domain.GameSession, bool, error) {
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSession{}, false, nil
	}
	if err != nil {
		return domain.GameSession{}, false, err
	}
	return session, true, nil
}

func scanSession(row scanner) (domain.GameSession, error) {
	var (
		session       domain.GameSession
		configuration []byte
		steps         []byte
		completedAt   *time.Time
	)
	if err := row.Scan(
		&session.ID, &session.UserID, &configuration, &steps,
		&session.Cursor, &session.Score, &session.CreatedAt, &completedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GameSession{}, err
		}
		return domain.GameSession{}, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(configuration, &session.Configuration); err != nil {
		return domain.GameSession{}, fmt.Errorf("unmarshal configuration %s: %w", session.ID, err)
	}
	if err := json.Unmarshal(steps, &session.Steps); err != nil {
		return domain.GameSession{}, fmt.Errorf("unmarshal steps %s: %w", session.ID, err)
	}
	session.CompletedAt = completedAt
	return session, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
