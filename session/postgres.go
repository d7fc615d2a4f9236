package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "pa-intake/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore snapshots sessions to Postgres. The core requires no
// durability; this store exists for deployments that want sessions to
// survive restarts. State is stored as a JSONB snapshot keyed by id, with
// updated_at split out for the reaper.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

// EnsureSchema creates the required table if it does not already exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS intake_sessions (
            id TEXT PRIMARY KEY,
            state JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_intake_sessions_updated_at ON intake_sessions(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var raw []byte
	err := p.DB.QueryRowContext(ctx,
		`SELECT state FROM intake_sessions WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	return &s, nil
}

func (p *PostgresStore) Put(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	_, err = p.DB.ExecContext(ctx, `
        INSERT INTO intake_sessions (id, state, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET state = $2, updated_at = $3
    `, s.ID, raw, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx,
		`DELETE FROM intake_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (p *PostgresStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := p.DB.ExecContext(ctx,
		`DELETE FROM intake_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
