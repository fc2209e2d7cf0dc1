package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createVerdictsTable = `
CREATE TABLE IF NOT EXISTS verdicts (
	id          UUID PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL,
	input       TEXT NOT NULL,
	label       TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	probability DOUBLE PRECISION NOT NULL,
	trusted     BOOLEAN NOT NULL,
	source      TEXT NOT NULL
)`

// PostgresSink stores audit events in a verdicts table. Enabled when a DSN
// is configured; connection problems at startup disable it rather than
// failing the service.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres audit sink: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres audit sink: %w", err)
	}

	if _, err := pool.Exec(ctx, createVerdictsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure verdicts table: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Write inserts one event.
func (s *PostgresSink) Write(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO verdicts (id, created_at, input, label, confidence, probability, trusted, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.Time, ev.Input, ev.Label, ev.Confidence, ev.Probability, ev.Trusted, ev.Source)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
