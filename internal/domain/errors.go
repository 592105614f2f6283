package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMalformedVerdict marks judge output that does not match the
	// rubric's verdict shape.
	ErrMalformedVerdict = errors.New("malformed verdict")

	// ErrScoreOutOfRange marks a dimension score outside [0, MaxScore].
	ErrScoreOutOfRange = errors.New("score out of range")

	ErrEmptyValue = errors.New("empty value")
)

// VerdictError rejects one judge response. Field names the verdict key at
// fault and is empty when the output could not be parsed at all.
type VerdictError struct {
	Field  string
	Err    error
	Detail string
}

// NewVerdictError returns a VerdictError.
func NewVerdictError(field string, err error, detail string) *VerdictError {
	return &VerdictError{Field: field, Err: err, Detail: detail}
}

func (e *VerdictError) Error() string {
	var b strings.Builder
	b.WriteString("judge verdict")
	if e.Field != "" {
		b.WriteString(" field " + e.Field)
	}
	b.WriteString(": " + e.Err.Error())
	if e.Detail != "" {
		b.WriteString(" (" + e.Detail + ")")
	}
	return b.String()
}

func (e *VerdictError) Unwrap() error { return e.Err }

// ValidationError collects every problem found in one entity. It matches
// ErrInvalidConfiguration.
type ValidationError struct {
	Entity string
	Errors []string
}

// NewValidationError returns an empty ValidationError for entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: []string{}}
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Entity + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError records one problem.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any problem was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }
