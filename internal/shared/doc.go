// Package shared contains the error taxonomy used by model provider adapters
// and the retry classifier.
//
// # Error Kinds
//
// Provider adapters mark the errors they return with a Kind so that callers
// can react without knowing which backend produced them:
//
//   - ErrTimeout: the provider or the transport timed out
//   - ErrRateLimited: the provider asked the caller to slow down (HTTP 429)
//   - ErrUnavailable: the provider could not be reached or answered 5xx
//   - ErrUnauthorized: the credentials were rejected
//   - ErrInvalidRequest: the provider refused the request as malformed
//   - ErrMalformedResponse: the provider answered with an unusable payload
//   - ErrInternal: anything else that went wrong inside this process
//
// # Classification
//
//	switch shared.KindOf(err) {
//	case shared.KindRateLimited, shared.KindUnavailable:
//	    // try again later
//	case shared.KindUnauthorized:
//	    // fix credentials
//	}
//
// # Kind Priority Table
//
// When several kinds are present (errors.Join), KindOf returns the first match:
//
//	Priority | Kind                  | Description
//	---------|-----------------------|-------------------------------
//	1        | KindCanceled          | Context cancellation (highest)
//	2        | KindTimeout           | Timeouts and deadlines
//	3        | KindRateLimited       | Provider throttling
//	4        | KindUnavailable       | Connection failures, 5xx
//	5        | KindUnauthorized      | Rejected credentials
//	6        | KindInvalidRequest    | Rejected request
//	7        | KindMalformedResponse | Unusable response payload
//	8        | KindInternal          | Local failures (lowest)
//
// # Marking
//
// MarkKind wraps an error with the sentinel of a kind while keeping the
// original reachable through errors.Is and errors.As:
//
//	if resp.StatusCode == http.StatusTooManyRequests {
//	    return shared.MarkKind(statusErr, shared.KindRateLimited)
//	}
//
// # Error Message Style
//
// Messages are lowercase, without trailing punctuation, and composable:
// "openai: status 401" rather than "OpenAI returned status 401.".
package shared
