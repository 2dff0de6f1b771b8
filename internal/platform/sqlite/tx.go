package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"llmexec/pkg/retry"
)

// Querier общий набор методов *sql.DB и *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// TxRunner выполняет функции в транзакции и повторяет их, если база занята.
type TxRunner struct {
	DB *sql.DB
	// MaxAttempts - число попыток при SQLITE_BUSY
	MaxAttempts int
	// Delay - пауза перед первой повторной попыткой, далее удваивается
	Delay time.Duration
	// MaxDelay - верхняя граница паузы
	MaxDelay time.Duration
}

// NewTxRunner создает TxRunner с настройками по умолчанию.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{DB: db, MaxAttempts: 5, Delay: 10 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
}

// WithinTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
// Если база заблокирована, транзакция повторяется целиком.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	delay := r.Delay
	var err error
	for attempt := 1; attempt <= max(r.MaxAttempts, 1); attempt++ {
		err = r.once(ctx, fn)
		if err == nil || !IsBusy(err) || attempt == r.MaxAttempts {
			return err
		}
		if serr := retry.Sleep(ctx, delay, nil); serr != nil {
			return serr
		}
		delay = min(delay*2, r.MaxDelay)
	}
	return err
}

func (r *TxRunner) once(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// IsBusy сообщает, что ошибка вызвана блокировкой базы (SQLITE_BUSY/SQLITE_LOCKED).
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "SQLITE_BUSY") ||
		strings.Contains(s, "database table is locked")
}
