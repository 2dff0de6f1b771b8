package llm

import (
	"errors"
	"fmt"
	"strings"

	"llmexec/internal/shared"
)

// Normalization failures.
var (
	ErrNilResponse        = errors.New("nil response")
	ErrNoContent          = errors.New("response has no content")
	ErrNoTextContent      = errors.New("response has no text content")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// NormalizationError reports a successful call whose response could not be
// turned into text.
type NormalizationError struct {
	Err error
	// Type is the dynamic type of the offending content, if any.
	Type string
}

func (e *NormalizationError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("normalize response: %v (%s)", e.Err, e.Type)
	}
	return "normalize response: " + e.Err.Error()
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Is makes every NormalizationError match shared.ErrMalformedResponse.
func (e *NormalizationError) Is(target error) bool {
	return target == shared.ErrMalformedResponse
}

// Normalize converts the response payload into the plain string result.
//
//	string        returned as is (an empty string is a valid result)
//	[]byte        converted
//	fmt.Stringer  String()
//	[]ContentPart text of the "text" (or untyped) parts, concatenated
//
// Any other payload, a nil response or nil content yields *NormalizationError.
// A Stringer that panics is reported as *NormalizationError as well.
func Normalize(resp *Response) (result string, err error) {
	if resp == nil {
		return "", &NormalizationError{Err: ErrNilResponse}
	}
	switch c := resp.Content.(type) {
	case nil:
		return "", &NormalizationError{Err: ErrNoContent}
	case string:
		return c, nil
	case []byte:
		return string(c), nil
	case []ContentPart:
		return joinParts(c)
	case fmt.Stringer:
		defer func() {
			if r := recover(); r != nil {
				result = ""
				err = &NormalizationError{Err: fmt.Errorf("String panicked: %v", r), Type: fmt.Sprintf("%T", c)}
			}
		}()
		return c.String(), nil
	default:
		return "", &NormalizationError{Err: ErrUnsupportedContent, Type: fmt.Sprintf("%T", c)}
	}
}

func joinParts(parts []ContentPart) (string, error) {
	if len(parts) == 0 {
		return "", &NormalizationError{Err: ErrNoContent}
	}
	var b strings.Builder
	var found bool
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" {
			continue
		}
		found = true
		b.WriteString(p.Text)
	}
	if !found {
		return "", &NormalizationError{Err: ErrNoTextContent}
	}
	return b.String(), nil
}
