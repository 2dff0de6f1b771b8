// Package service runs prompts through the executor for the outer surfaces
// (CLI, HTTP API, Telegram) and journals every request.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"llmexec/internal/executor"
	"llmexec/internal/journal"
	"llmexec/internal/llm"
	"llmexec/internal/shared"
)

const journalTimeout = 5 * time.Second

// Options configures a Service.
type Options struct {
	Executor executor.Options
	Provider string
	Model    string
	Logger   *slog.Logger
	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Result is a completed request.
type Result struct {
	ID       uuid.UUID
	Text     string
	Attempts int
	Duration time.Duration
}

// Service is safe for concurrent use.
type Service struct {
	client   llm.Client
	journal  journal.Store
	opts     executor.Options
	provider string
	model    string
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Service. A nil store disables journaling.
func New(client llm.Client, store journal.Store, o Options) *Service {
	if store == nil {
		store = journal.Nop{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Executor.Logger == nil {
		o.Executor.Logger = o.Logger
	}
	return &Service{
		client:   client,
		journal:  store,
		opts:     o.Executor,
		provider: o.Provider,
		model:    o.Model,
		log:      o.Logger,
		now:      o.Now,
	}
}

// Attempts returns the total number of attempts a request may take.
func (s *Service) Attempts() int { return max(s.opts.RetryTimes, 0) + 1 }

// Complete validates in, executes it and records the outcome. An invalid
// input is rejected before any attempt and marked shared.KindInvalidRequest.
// Executor errors are returned unchanged; the Result still carries the ID,
// attempt count and duration.
func (s *Service) Complete(ctx context.Context, in llm.Input) (Result, error) {
	start := s.now()
	entry := journal.NewEntry(start)
	res := Result{ID: entry.ID}

	if err := in.Validate(); err != nil {
		return res, shared.MarkKind(err, shared.KindInvalidRequest)
	}

	var calls atomic.Int32
	counted := llm.ClientFunc(func(ctx context.Context, in llm.Input) (*llm.Response, error) {
		calls.Add(1)
		return s.client.Invoke(ctx, in)
	})
	log := s.log.With(slog.String("request_id", entry.ID.String()))
	opts := s.opts
	opts.Logger = opts.Logger.With(slog.String("request_id", entry.ID.String()))

	text, err := executor.New(counted, opts).Request(ctx, in)

	res.Text = text
	res.Attempts = int(calls.Load())
	res.Duration = s.now().Sub(start)

	entry.Provider = s.provider
	entry.Model = s.model
	entry.PromptHash = journal.Digest(in)
	entry.Attempts = res.Attempts
	entry.Duration = res.Duration
	switch {
	case err == nil:
		entry.Status = journal.StatusOK
		log.Info("request completed", slog.Int("attempts", res.Attempts), slog.Duration("dur", res.Duration))
	case shared.IsCanceled(err) || ctx.Err() != nil:
		entry.Status = journal.StatusCanceled
		entry.Error = err.Error()
		log.Warn("request canceled", slog.Int("attempts", res.Attempts), slog.Duration("dur", res.Duration))
	default:
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		log.Error("request failed",
			slog.Int("attempts", res.Attempts),
			slog.Duration("dur", res.Duration),
			slog.String("kind", shared.KindOf(err).String()),
			slog.Any("error", err),
		)
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if jerr := s.journal.Record(jctx, entry); jerr != nil {
		log.Error("journal record failed", slog.Any("error", jerr))
	}
	return res, err
}

// Recent returns the latest journal entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journal.Recent(ctx, limit)
}

// Ping reports whether the journal is reachable.
func (s *Service) Ping(ctx context.Context) error { return s.journal.Ping(ctx) }
