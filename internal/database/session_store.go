// internal/database/session_store.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

// SessionStore implements game.Store on Postgres. Each session is one row
// with its full aggregate as jsonb; Update holds a FOR UPDATE row lock for
// the duration of the transform, which serializes writers per game while
// distinct games proceed in parallel.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Schema is the DDL the store expects. Applied by ops tooling, kept here so
// the shape of the row lives next to the queries that use it.
const Schema = `
CREATE TABLE IF NOT EXISTS game_sessions (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS game_sessions_status_idx ON game_sessions (status);
`

func (s *SessionStore) Create(ctx context.Context, g *models.GameSession) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", g.ID, err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO game_sessions (id, status, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, g.ID, string(g.Status), data, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", g.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrGameExists
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM game_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return unmarshalSession(data)
}

func (s *SessionStore) Update(ctx context.Context, id uuid.UUID, fn func(*models.GameSession) error) (*models.GameSession, error) {
	var out *models.GameSession
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var data []byte
		err := tx.QueryRow(ctx, `SELECT state FROM game_sessions WHERE id = $1 FOR UPDATE`, id).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return game.ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("lock session %s: %w", id, err)
		}
		sess, err := unmarshalSession(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		updated, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game_sessions SET status = $2, state = $3, updated_at = $4 WHERE id = $1
		`, id, string(sess.Status), updated, sess.UpdatedAt); err != nil {
			return fmt.Errorf("update session %s: %w", id, err)
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SessionStore) ListUnfinished(ctx context.Context) ([]*models.GameSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT state FROM game_sessions WHERE status IN ($1, $2)
	`, string(models.StatusActive), string(models.StatusPaused))
	if err != nil {
		return nil, fmt.Errorf("list unfinished sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.GameSession
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		sess, err := unmarshalSession(data)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func unmarshalSession(data []byte) (*models.GameSession, error) {
	var sess models.GameSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &sess, nil
}
