package workflow

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a compare-and-set update loses to a
// concurrent writer. It is the only error in this package a caller is
// expected to retry, after re-reading current state.
var ErrConflict = errors.New("consultation changed concurrently; re-read and retry")

// ValidationError reports malformed input, detected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UnauthorizedTransitionError reports a role, state, or ownership guard
// failure. The transition is refused and no state changes.
type UnauthorizedTransitionError struct {
	Verb   string
	Reason string
}

func (e UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Verb, e.Reason)
}

func validation(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

func unauthorized(verb, reason string) error {
	return UnauthorizedTransitionError{Verb: verb, Reason: reason}
}
