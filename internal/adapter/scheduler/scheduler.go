// Package scheduler запускает фоновые задачи по cron-расписанию
// (robfig/cron) с логированием через slog.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc представляет функцию задачи планировщика.
type JobFunc func(ctx context.Context) error

// JobID представляет идентификатор cron-задачи.
type JobID = cron.EntryID

// JobOptions содержит опции для настройки задач.
type JobOptions struct {
	// Name - имя задачи для логирования.
	Name string
	// Timeout - максимальное время выполнения задачи (необязательно).
	Timeout time.Duration
}

// Parser принимает расписания из 5 или 6 полей (секунды необязательны) и дескрипторы вида @daily.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronLogger адаптер для интеграции cron logger с slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}

// Scheduler управляет периодическими задачами. Повторный запуск задачи,
// пока предыдущий ещё выполняется, пропускается.
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
}

// New создает планировщик. Задачи получают контекст, производный от parent.
func New(parent context.Context, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	cl := cronLogger{logger: logger.With("component", "cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob добавляет задачу по cron-расписанию.
// Примеры расписаний:
//   - "0 */30 * * * *" - каждые 30 минут
//   - "@daily" - раз в сутки
//   - "@every 5m" - каждые 5 минут
func (s *Scheduler) AddJob(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "unnamed"
	}
	id, err := s.cron.AddFunc(schedule, func() { s.run(job, opts) })
	if err != nil {
		return 0, fmt.Errorf("add job %q with schedule %q: %w", opts.Name, schedule, err)
	}
	s.logger.Info("cron job added", "schedule", schedule, "name", opts.Name, "id", id)
	return id, nil
}

// RunNow выполняет задачу немедленно в текущей горутине.
func (s *Scheduler) RunNow(job JobFunc, opts JobOptions) {
	s.run(job, opts)
}

// Start запускает планировщик.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.cron.Start()
	})
}

// Stop останавливает планировщик и ждёт завершения выполняющихся задач,
// но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		done := s.cron.Stop()
		select {
		case <-done.Done():
			s.logger.Info("scheduler stopped")
		case <-ctx.Done():
			s.logger.Warn("scheduler stop deadline exceeded")
			err = ctx.Err()
		}
	})
	return err
}

// run выполняет задачу с учетом её опций.
func (s *Scheduler) run(job JobFunc, opts JobOptions) {
	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("job failed", "name", opts.Name, "error", err, "duration", duration)
		return
	}
	s.logger.Debug("job completed", "name", opts.Name, "duration", duration)
}
