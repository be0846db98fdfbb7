// Package errs defines the engine's error taxonomy.
//
// Each typed error matches its sentinel through errors.Is, so callers can
// branch on the category without type assertions:
//
//	if errors.Is(err, errs.ErrNotFound) { ... cold start ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is to check the category of a returned error.
var (
	ErrConfiguration = errors.New("dash: configuration error")
	ErrNotFound      = errors.New("dash: not found")
	ErrValidation    = errors.New("dash: validation failed")

	// ErrConflict reports a write that lost a race: the record was created
	// or changed by someone else since it was read.
	ErrConflict = errors.New("dash: conflicting update")

	// ErrNoQuestionAvailable is not returned by the engine. Selection signals
	// an exhausted search with an outcome that has no question; this value
	// exists for callers that need to carry that outcome as an error (e.g.
	// CLI exit handling).
	ErrNoQuestionAvailable = errors.New("dash: no question available")
)

// ConfigurationError reports an inconsistent catalog or engine configuration.
// It is fatal at startup.
type ConfigurationError struct {
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if len(e.Problems) > 0 {
		msg += ":\n  " + strings.Join(e.Problems, "\n  ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NotFoundError reports an unknown student or skill.
type NotFoundError struct {
	Kind string // "student", "skill", "question"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed input rejected before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound is shorthand for &NotFoundError{Kind: kind, ID: id}.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Invalid is shorthand for a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
