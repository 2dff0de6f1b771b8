// Package executor runs a single model request with retries.
//
// An attempt has two phases. Errors from invoking the client are classified:
// fatal ones end the request at once, retryable ones consume the attempt.
// Errors from normalizing a successful response are always retried.
//
//	ex := executor.New(client, executor.Options{
//	    RetryTimes:    3,
//	    RetryInterval: 2 * time.Second,
//	})
//	text, err := ex.Request(ctx, llm.Text("Translate to French: good morning"))
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"llmexec/internal/llm"
	"llmexec/pkg/retry"
)

// Phase names the step of an attempt that failed.
type Phase string

const (
	PhaseInvoke    Phase = "invoke"
	PhaseNormalize Phase = "normalize"
)

// Notice describes a failed attempt that is about to be retried.
type Notice struct {
	// Attempt is 1-based.
	Attempt int
	// Attempts is the total number of attempts allowed.
	Attempts int
	Phase    Phase
	Err      error
}

// Options configures an Executor.
type Options struct {
	// Timeout is advisory; it is reported to the client transport, not enforced here.
	Timeout time.Duration
	// RetryTimes is the number of attempts after the first one.
	RetryTimes int
	// RetryInterval is the pause between attempts. Non-positive disables it.
	RetryInterval time.Duration
	// Classifier decides whether an invocation error is retryable (default retry.DefaultClassifier).
	Classifier retry.Classifier
	// Logger receives progress notices (default slog.Default()).
	Logger *slog.Logger
	// OnRetry is called for every retried attempt, after logging.
	OnRetry func(Notice)
	// After creates the delay timer (default time.After).
	After func(time.Duration) <-chan time.Time
}

// Executor is immutable and safe for concurrent use if the client is.
type Executor struct {
	client        llm.Client
	timeout       time.Duration
	retryTimes    int
	retryInterval time.Duration
	classify      retry.Classifier
	log           *slog.Logger
	onRetry       func(Notice)
	after         func(time.Duration) <-chan time.Time
}

// New creates an Executor around client.
func New(client llm.Client, opts Options) *Executor {
	e := &Executor{
		client:        client,
		timeout:       opts.Timeout,
		retryTimes:    opts.RetryTimes,
		retryInterval: opts.RetryInterval,
		classify:      opts.Classifier,
		log:           opts.Logger,
		onRetry:       opts.OnRetry,
		after:         opts.After,
	}
	if e.retryTimes < 0 {
		e.retryTimes = 0
	}
	if e.retryInterval < 0 {
		e.retryInterval = 0
	}
	if e.classify == nil {
		e.classify = retry.DefaultClassifier
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.after == nil {
		e.after = time.After
	}
	return e
}

// Timeout returns the advisory timeout the executor was built with.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// Attempts returns the total number of attempts a request may take.
func (e *Executor) Attempts() int { return e.retryTimes + 1 }

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeRetry
	outcomeFatal
	outcomeCanceled
)

// outcome is the tagged result of one attempt.
type outcome struct {
	kind   outcomeKind
	result string
	phase  Phase
	err    error
	// pending is the failure observed while ctx was already canceled.
	pending error
}

// Request invokes the client until a response normalizes to text, a fatal
// error occurs, attempts run out or ctx is canceled.
//
// Errors are returned as produced by the client or by llm.Normalize. When
// attempts run out the last recorded error is returned. When ctx is canceled
// the cancellation error is returned even if a retryable error is pending;
// the pending error is logged first.
func (e *Executor) Request(ctx context.Context, in llm.Input) (string, error) {
	var lastErr error
	attempts := e.Attempts()

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", e.canceled(err, lastErr)
		}

		out := e.attempt(ctx, in)
		switch out.kind {
		case outcomeOK:
			return out.result, nil
		case outcomeFatal:
			return "", out.err
		case outcomeCanceled:
			if out.pending != nil {
				lastErr = out.pending
			}
			return "", e.canceled(out.err, lastErr)
		}

		lastErr = out.err
		e.notify(Notice{Attempt: i + 1, Attempts: attempts, Phase: out.phase, Err: out.err})

		if i < e.retryTimes {
			if err := retry.Sleep(ctx, e.retryInterval, e.after); err != nil {
				return "", e.canceled(err, lastErr)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", e.canceled(err, lastErr)
	}
	return "", lastErr
}

func (e *Executor) attempt(ctx context.Context, in llm.Input) outcome {
	resp, err := e.client.Invoke(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			return outcome{kind: outcomeCanceled, phase: PhaseInvoke, err: err}
		}
		if cerr := ctx.Err(); cerr != nil {
			return outcome{kind: outcomeCanceled, phase: PhaseInvoke, err: cerr, pending: err}
		}
		if e.classify(err) == retry.Fatal {
			return outcome{kind: outcomeFatal, phase: PhaseInvoke, err: err}
		}
		return outcome{kind: outcomeRetry, phase: PhaseInvoke, err: err}
	}

	text, err := llm.Normalize(resp)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return outcome{kind: outcomeCanceled, phase: PhaseNormalize, err: cerr, pending: err}
		}
		return outcome{kind: outcomeRetry, phase: PhaseNormalize, err: err}
	}
	return outcome{kind: outcomeOK, result: text}
}

func (e *Executor) notify(n Notice) {
	e.log.Warn("request failed, retrying",
		slog.Int("attempt", n.Attempt),
		slog.Int("attempts", n.Attempts),
		slog.String("phase", string(n.Phase)),
		slog.Any("error", n.Err),
	)
	if e.onRetry != nil {
		e.onRetry(n)
	}
}

// canceled logs the pending error, if any, and returns the cancellation error.
func (e *Executor) canceled(cause, pending error) error {
	if pending != nil {
		e.log.Error("request canceled with pending error", slog.Any("error", pending))
	}
	return cause
}
