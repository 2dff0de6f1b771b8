package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"time"

	"llmexec/internal/shared"
)

// Class is the outcome of classifying a failed attempt.
type Class int

const (
	// Fatal errors abort the retry loop immediately
	Fatal Class = iota
	// Retryable errors consume an attempt and are tried again after the delay
	Retryable
)

// String returns the string representation of the Class.
func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

// Classifier maps an invocation error to a Class. It must be a pure function.
type Classifier func(err error) Class

// Any combines classifiers: the error is retryable if any of them says so.
func Any(classifiers ...Classifier) Classifier {
	return func(err error) Class {
		for _, c := range classifiers {
			if c != nil && c(err) == Retryable {
				return Retryable
			}
		}
		return Fatal
	}
}

// DefaultClassifier treats connection-level failures and transient provider
// conditions as retryable and everything else as fatal.
//
// Retryable:
//   - context.DeadlineExceeded and any error with Timeout() == true
//   - io.EOF, io.ErrUnexpectedEOF, net.ErrClosed
//   - ECONNRESET, ECONNREFUSED, ECONNABORTED, ENETDOWN, ENETUNREACH, EPIPE,
//     EHOSTUNREACH, ETIMEDOUT anywhere in the chain
//   - temporary DNS failures
//   - errors marked shared.KindTimeout, KindRateLimited, KindUnavailable or
//     KindMalformedResponse
//   - errors whose Temporary() reports true
//
// context.Canceled is never retryable.
func DefaultClassifier(err error) Class {
	if IsTransient(err) {
		return Retryable
	}
	return Fatal
}

// IsTransient reports whether err is a connection-level failure or a transient provider condition.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch shared.KindOf(err) {
	case shared.KindTimeout, shared.KindRateLimited, shared.KindUnavailable, shared.KindMalformedResponse:
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var syscallErr *os.SyscallError
		if errors.As(opErr.Err, &syscallErr) && isTransientErrno(syscallErr.Err) {
			return true
		}
		if isTransientErrno(opErr.Err) {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && isTransientErrno(errno) {
		return true
	}

	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}

	type temporary interface {
		Temporary() bool
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	return false
}

func isTransientErrno(err error) bool {
	switch err {
	case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
		syscall.ENETDOWN, syscall.ENETUNREACH, syscall.EPIPE,
		syscall.EHOSTUNREACH, syscall.ETIMEDOUT:
		return true
	}
	return false
}

// Sleep blocks for d or until ctx is done, whichever comes first, and returns
// ctx.Err() in the latter case. A non-positive d returns at once without
// creating a timer. after defaults to time.After.
func Sleep(ctx context.Context, d time.Duration, after func(time.Duration) <-chan time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if after == nil {
		after = time.After
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}

// Seconds converts a float number of seconds into a Duration. Negative and
// NaN values become zero.
func Seconds(s float64) time.Duration {
	if !(s > 0) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
