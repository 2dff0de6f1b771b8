// Package retry provides the failure classification and waiting primitives
// used by the request executor.
//
// Key Features:
//   - Two-way classification of errors (Retryable, Fatal)
//   - Rich network error detection (timeouts, resets, refused connections, DNS)
//   - Provider error kinds (rate limiting, unavailability) from internal/shared
//   - Context-aware waiting with an injectable timer for tests
//
// Classifying an error:
//
//	if retry.DefaultClassifier(err) == retry.Fatal {
//	    return err
//	}
//
// Custom classification composes with the default:
//
//	classify := retry.Any(retry.DefaultClassifier, func(err error) retry.Class {
//	    if errors.Is(err, errFlakyUpstream) {
//	        return retry.Retryable
//	    }
//	    return retry.Fatal
//	})
//
// Waiting between attempts:
//
//	if err := retry.Sleep(ctx, interval, nil); err != nil {
//	    return err // ctx was canceled while waiting
//	}
package retry
