// internal/schema/errors.go
package schema

import (
	"fmt"
	"strings"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every issue found in a payload. Parse functions
// either return a fully normalized value or a *ValidationError carrying one
// or more issues, never a partial result.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records an issue under field, optionally prefixed by a parent path.
func (e *ValidationError) add(field, message string) {
	e.Issues = append(e.Issues, Issue{Field: field, Message: message})
}

// merge appends another error's issues under a path prefix, used when a
// parent validator composes a child validator.
func (e *ValidationError) merge(prefix string, other *ValidationError) {
	for _, issue := range other.Issues {
		field := issue.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		e.Issues = append(e.Issues, Issue{Field: field, Message: issue.Message})
	}
}

// orNil returns the error when it holds issues, nil otherwise.
func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
