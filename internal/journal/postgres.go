package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"llmexec/internal/platform/pg"
)

// PostgresStore keeps the journal in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres applies the journal migrations and connects a pool.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if _, err := pg.ApplyMigrationsFromFS(dsn, migrations, "migrations/postgres"); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	pool, err := pg.NewPool(ctx, dsn, pg.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStore wraps an existing pool; the schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO requests (id, provider, model, prompt_hash, status, attempts, duration_ms, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Provider, e.Model, e.PromptHash, string(e.Status),
		e.Attempts, e.Duration.Milliseconds(), e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider, model, prompt_hash, status, attempts, duration_ms, error, created_at
		 FROM requests ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e      Entry
			status string
			durMS  int64
		)
		err := row.Scan(&e.ID, &e.Provider, &e.Model, &e.PromptHash, &status, &e.Attempts, &durMS, &e.Error, &e.CreatedAt)
		e.Status = Status(status)
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM requests WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
