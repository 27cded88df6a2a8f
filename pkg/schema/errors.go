package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// ValidationError describes a single defect of a persisted document.
type ValidationError struct {
	ID     int    // Record ID, -1 for document-level defects
	Field  string // Offending field
	Reason string // Human-readable reason
}

func (e *ValidationError) Error() string {
	if e.ID < 0 {
		return fmt.Sprintf("document: %s", e.Reason)
	}
	return fmt.Sprintf("record %d: field %q: %s", e.ID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}

// AggregateError collects every defect found in one validation pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}

type collector struct {
	errs []error
}

func (c *collector) add(id int, field, format string, args ...any) {
	c.errs = append(c.errs, &ValidationError{ID: id, Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: c.errs}
}
