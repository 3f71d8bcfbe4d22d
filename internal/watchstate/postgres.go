package watchstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores the progress map as one jsonb document row,
// upserted whole on every save.
type PostgresBackend struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresBackend(ctx context.Context, db *pgxpool.Pool) (*PostgresBackend, error) {
	_, err := db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS watch_state (
  id         text PRIMARY KEY,
  states     jsonb NOT NULL,
  updated_at timestamptz NOT NULL
)`)
	if err != nil {
		return nil, err
	}
	return &PostgresBackend{db: db, timeout: 5 * time.Second}, nil
}

func (b *PostgresBackend) Load() (map[string]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	var data []byte
	err := b.db.QueryRow(ctx, `SELECT states FROM watch_state WHERE id = 'default'`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]Record{}, nil
		}
		return nil, err
	}
	var states map[string]Record
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *PostgresBackend) Save(states map[string]Record) error {
	data, err := json.Marshal(states)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	_, err = b.db.Exec(ctx, `
INSERT INTO watch_state (id, states, updated_at) VALUES ('default', $1, $2)
ON CONFLICT (id) DO UPDATE SET states = EXCLUDED.states, updated_at = EXCLUDED.updated_at`,
		data, time.Now().UTC())
	return err
}
