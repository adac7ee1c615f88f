package plan

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Phase names the stage of loading that rejected a plan.
type Phase string

const (
	PhaseRead    Phase = "read"
	PhaseParse   Phase = "parse"
	PhaseSchema  Phase = "schema"
	PhaseCompile Phase = "compile"
)

// ValidationError reports why a plan was rejected before execution.
type ValidationError struct {
	Phase   Phase
	Path    string // e.g. "operations.2.run"; empty for whole-document errors
	Message string
	Pos     token.Pos
	Err     error
}

func (e *ValidationError) Error() string {
	loc := e.Path
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if loc != "" {
		return fmt.Sprintf("invalid plan (%s): %s: %s", e.Phase, loc, e.Message)
	}
	return fmt.Sprintf("invalid plan (%s): %s", e.Phase, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PhaseOf returns the phase of a wrapped ValidationError, or "".
func PhaseOf(err error) Phase {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Phase
	}
	return ""
}
