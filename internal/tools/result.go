// Package tools defines the contract between the request dispatcher and the
// individual operation implementations: the uniform result every operation
// produces and the error kinds the dispatcher maps onto HTTP semantics.
package tools

import (
	"fmt"

	"multitool/internal/storage"
)

// Result is the outcome of one successful operation. It is consumed exactly
// once by the dispatcher to build the HTTP response.
type Result struct {
	Message   string
	Artifacts []storage.Artifact
	Metadata  map[string]any
}

// OutputURL returns the primary artifact URL, or "" when the operation
// produced no file (extract-text, for example).
func (r *Result) OutputURL() string {
	if r == nil || len(r.Artifacts) == 0 {
		return ""
	}
	return r.Artifacts[0].URL
}

// ProcessingError reports a library-level failure on otherwise well-formed
// input, such as a corrupt PDF. The dispatcher turns it into a business
// failure (HTTP 200, success:false) with the sanitized Message; the wrapped
// cause is logged, never echoed.
type ProcessingError struct {
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Failf builds a ProcessingError wrapping err with a user-facing message.
func Failf(err error, format string, args ...any) *ProcessingError {
	return &ProcessingError{Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidParamError reports a user-correctable parameter problem that could
// only be detected against the actual input, such as a crop rectangle
// extending past the source bounds. The dispatcher maps it to HTTP 400.
type InvalidParamError struct {
	Reason string
}

func (e *InvalidParamError) Error() string { return e.Reason }

// Invalidf builds an InvalidParamError.
func Invalidf(format string, args ...any) *InvalidParamError {
	return &InvalidParamError{Reason: fmt.Sprintf(format, args...)}
}
