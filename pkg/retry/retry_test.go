package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"llmexec/internal/shared"
)

// customError implements temporary interface for testing
type customError struct {
	message   string
	temporary bool
}

func (e customError) Error() string   { return e.message }
func (e customError) Temporary() bool { return e.temporary }

// timeoutError implements only Timeout.
type timeoutError struct{ timeout bool }

func (e timeoutError) Error() string { return "i/o timeout" }
func (e timeoutError) Timeout() bool { return e.timeout }

// netTimeout is a net.Error that times out without being temporary.
type netTimeout struct{}

func (netTimeout) Error() string   { return "read tcp: i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return false }

var _ net.Error = netTimeout{}

func TestClassString(t *testing.T) {
	if Retryable.String() != "retryable" {
		t.Errorf("Retryable.String() = %q", Retryable.String())
	}
	if Fatal.String() != "fatal" {
		t.Errorf("Fatal.String() = %q", Fatal.String())
	}
}

func TestDefaultClassifier(t *testing.T) {
	connReset := &url.Error{
		Op:  "Post",
		URL: "https://api.example.com/v1/chat/completions",
		Err: &net.OpError{Op: "read", Net: "tcp", Err: &os.SyscallError{Syscall: "read", Err: syscall.ECONNRESET}},
	}
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}

	tests := []struct {
		name     string
		err      error
		expected Class
	}{
		{"nil error", nil, Fatal},
		{"context canceled", context.Canceled, Fatal},
		{"wrapped canceled", fmt.Errorf("invoke: %w", context.Canceled), Fatal},
		{"context deadline exceeded", context.DeadlineExceeded, Retryable},
		{"eof", io.EOF, Retryable},
		{"unexpected eof", fmt.Errorf("decode: %w", io.ErrUnexpectedEOF), Retryable},
		{"net closed", net.ErrClosed, Retryable},
		{"connection reset via url error", connReset, Retryable},
		{"connection refused", refused, Retryable},
		{"bare errno", syscall.EHOSTUNREACH, Retryable},
		{"temporary dns", &net.DNSError{Err: "server misbehaving", Name: "api.example.com", IsTemporary: true}, Retryable},
		{"permanent dns", &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, Fatal},
		{"rate limited", shared.MarkKind(errors.New("status 429"), shared.KindRateLimited), Retryable},
		{"unavailable", shared.MarkKind(errors.New("status 503"), shared.KindUnavailable), Retryable},
		{"malformed body", shared.MarkKind(errors.New("invalid character '<'"), shared.KindMalformedResponse), Retryable},
		{"unauthorized", shared.MarkKind(errors.New("status 401"), shared.KindUnauthorized), Fatal},
		{"invalid request", shared.MarkKind(errors.New("status 400"), shared.KindInvalidRequest), Fatal},
		{"temporary error", customError{"temp", true}, Retryable},
		{"non-temporary error", customError{"not temp", false}, Fatal},
		{"regular error", errors.New("regular"), Fatal},
		{"timeout only", timeoutError{timeout: true}, Retryable},
		{"net error timing out but not temporary", netTimeout{}, Retryable},
		{"no timeout", timeoutError{timeout: false}, Fatal},
		{"wrapped timeout", fmt.Errorf("read body: %w", timeoutError{timeout: true}), Retryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultClassifier(tt.err)
			if result != tt.expected {
				t.Errorf("DefaultClassifier(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestAny(t *testing.T) {
	errFlaky := errors.New("flaky upstream")
	classify := Any(DefaultClassifier, nil, func(err error) Class {
		if errors.Is(err, errFlaky) {
			return Retryable
		}
		return Fatal
	})

	if classify(errFlaky) != Retryable {
		t.Error("expected custom classifier to mark errFlaky retryable")
	}
	if classify(io.EOF) != Retryable {
		t.Error("expected default classifier to still apply")
	}
	if classify(errors.New("other")) != Fatal {
		t.Error("expected unrelated error to be fatal")
	}
	if Any()(io.EOF) != Fatal {
		t.Error("expected empty combination to be fatal")
	}
}

func TestSleepZeroDurationSkipsTimer(t *testing.T) {
	called := false
	after := func(d time.Duration) <-chan time.Time {
		called = true
		return time.After(d)
	}

	for _, d := range []time.Duration{0, -time.Second} {
		if err := Sleep(context.Background(), d, after); err != nil {
			t.Errorf("Sleep(%v) returned %v", d, err)
		}
	}
	if called {
		t.Error("expected no timer for non-positive durations")
	}
}

func TestSleepUsesInjectedTimer(t *testing.T) {
	var got time.Duration
	after := func(d time.Duration) <-chan time.Time {
		got = d
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	if err := Sleep(context.Background(), 3*time.Second, after); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3*time.Second {
		t.Errorf("expected timer for 3s, got %v", got)
	}
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never := func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	done := make(chan error, 1)
	go func() { done <- Sleep(ctx, time.Hour, never) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return after cancellation")
	}
}

func TestSleepAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, 0, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		in       float64
		expected time.Duration
	}{
		{0, 0},
		{-1, 0},
		{0.5, 500 * time.Millisecond},
		{2, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := Seconds(tt.in); got != tt.expected {
			t.Errorf("Seconds(%v) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
