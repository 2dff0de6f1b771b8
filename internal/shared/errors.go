// Package shared contains common error types and utilities.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for provider failures.
var (
	// ErrTimeout indicates that a provider call timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates that the provider throttled the request
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates that the provider could not be reached or failed on its side
	ErrUnavailable = errors.New("provider unavailable")

	// ErrUnauthorized indicates that the provider rejected the credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRequest indicates that the provider rejected the request
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMalformedResponse indicates that the provider answered with an unusable payload
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInternal indicates a local failure
	ErrInternal = errors.New("internal error")
)

// Kind represents a category of error.
type Kind int

const (
	// KindUnknown represents an unclassified error
	KindUnknown Kind = iota
	// KindTimeout represents timeouts and exceeded deadlines
	KindTimeout
	// KindRateLimited represents provider throttling
	KindRateLimited
	// KindUnavailable represents connection failures and provider-side errors
	KindUnavailable
	// KindUnauthorized represents rejected credentials
	KindUnauthorized
	// KindInvalidRequest represents requests refused by the provider
	KindInvalidRequest
	// KindMalformedResponse represents unusable response payloads
	KindMalformedResponse
	// KindInternal represents local failures
	KindInternal
	// KindCanceled represents context cancellation
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "Timeout"
	case KindRateLimited:
		return "RateLimited"
	case KindUnavailable:
		return "Unavailable"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindInternal:
		return "Internal"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

var kindToSentinel = map[Kind]error{
	KindTimeout:           ErrTimeout,
	KindRateLimited:       ErrRateLimited,
	KindUnavailable:       ErrUnavailable,
	KindUnauthorized:      ErrUnauthorized,
	KindInvalidRequest:    ErrInvalidRequest,
	KindMalformedResponse: ErrMalformedResponse,
	KindInternal:          ErrInternal,
}

// kindPriorities is the order KindOf checks kinds in.
var kindPriorities = []struct {
	kind Kind
	err  error
}{
	{KindCanceled, nil},
	{KindTimeout, ErrTimeout},
	{KindRateLimited, ErrRateLimited},
	{KindUnavailable, ErrUnavailable},
	{KindUnauthorized, ErrUnauthorized},
	{KindInvalidRequest, ErrInvalidRequest},
	{KindMalformedResponse, ErrMalformedResponse},
	{KindInternal, ErrInternal},
}

// KindOf returns the Kind of err, walking the whole error chain.
// Cancellation wins over every other kind, then timeouts, then the rest in
// the order of the priority table. Returns KindUnknown for nil and for
// unrecognized errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, p := range kindPriorities {
		switch p.kind {
		case KindCanceled:
			if IsCanceled(err) {
				return KindCanceled
			}
		case KindTimeout:
			if IsTimeout(err) {
				return KindTimeout
			}
		default:
			if errors.Is(err, p.err) {
				return p.kind
			}
		}
	}
	return KindUnknown
}

// HasKind reports whether KindOf(err) == kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error for kind, or nil for KindUnknown and KindCanceled.
func SentinelOf(kind Kind) error {
	return kindToSentinel[kind]
}

// MarkKind wraps err with the sentinel for kind so that KindOf reports kind
// and errors.Is(marked, err) stays true. A nil err yields the bare sentinel.
// KindUnknown and KindCanceled leave err unchanged, as does marking an error
// that already has the kind.
func MarkKind(err error, kind Kind) error {
	if err == nil {
		return SentinelOf(kind)
	}
	if kind == KindUnknown || kind == KindCanceled {
		return err
	}
	sentinel := SentinelOf(kind)
	if sentinel == nil {
		return err
	}
	if KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap adds context to err. Returns nil for a nil err and err itself for an empty context.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCanceled reports whether err is or wraps context.Canceled.
func IsCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err indicates a timeout: context.DeadlineExceeded,
// ErrTimeout or a net.Error whose Timeout() is true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRateLimited reports whether err indicates provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnavailable reports whether err indicates an unreachable or failing provider.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsUnauthorized reports whether err indicates rejected credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidRequest reports whether err indicates a rejected request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsMalformedResponse reports whether err indicates an unusable response payload.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// Cause returns the deepest error in the chain. For errors.Join the last
// leaf in breadth-first order is returned.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	all := UnwrapAll(err)
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		var nested bool
		if u, ok := c.(interface{ Unwrap() []error }); ok {
			nested = len(u.Unwrap()) > 0
		} else {
			nested = errors.Unwrap(c) != nil
		}
		if !nested {
			return c
		}
	}
	return err
}

// UnwrapAll flattens the error graph of err, outermost first.
func UnwrapAll(err error) []error {
	if err == nil {
		return nil
	}
	var result []error
	seen := make(map[error]bool)
	queue := []error{err}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		if u, ok := current.(interface{ Unwrap() []error }); ok {
			queue = append(queue, u.Unwrap()...)
		} else if nested := errors.Unwrap(current); nested != nil {
			queue = append(queue, nested)
		}
	}
	return result
}
