package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"llmexec/internal/platform/sqlite"
)

// SQLiteStore keeps the journal in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	tx *sqlite.TxRunner
}

// OpenSQLite opens dsn and applies the journal migrations. ":memory:" opens
// a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	var (
		db  *sql.DB
		err error
	)
	if dsn == ":memory:" {
		db, err = sqlite.OpenInMemory(ctx)
	} else {
		db, err = sqlite.Open(ctx, dsn, sqlite.DefaultOptions())
	}
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	if _, err := sqlite.Migrate(db, migrations, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &SQLiteStore{db: db, tx: sqlite.NewTxRunner(db)}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, q sqlite.Querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO requests (id, provider, model, prompt_hash, status, attempts, duration_ms, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID.String(), e.Provider, e.Model, e.PromptHash, string(e.Status),
			e.Attempts, e.Duration.Milliseconds(), e.Error, e.CreatedAt.UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("journal: record %s: %w", e.ID, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, model, prompt_hash, status, attempts, duration_ms, error, created_at
		 FROM requests ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			id, status string
			durMS, at  int64
		)
		if err := rows.Scan(&id, &e.Provider, &e.Model, &e.PromptHash, &status, &e.Attempts, &durMS, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("journal: bad id %q: %w", id, err)
		}
		e.Status = Status(status)
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
