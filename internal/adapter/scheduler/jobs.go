package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Pruner удаляет записи старше отметки. journal.Store удовлетворяет интерфейсу.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// PruneJob удаляет записи журнала старше retention.
func PruneJob(p Pruner, retention time.Duration, now func() time.Time, logger *slog.Logger) JobFunc {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		cutoff := now().Add(-retention)
		n, err := p.Prune(ctx, cutoff)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("journal pruned", slog.Int64("deleted", n), slog.Time("before", cutoff))
		}
		return nil
	}
}
