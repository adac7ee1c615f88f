package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeInvalidArgument indicates a missing positional token or a typed
	// token (number, enum) that does not parse.
	ErrCodeInvalidArgument CompileErrorCode = "INVALID_ARGUMENT"

	// ErrCodeUnsupportedOperation indicates a verb pair with no rule.
	ErrCodeUnsupportedOperation CompileErrorCode = "UNSUPPORTED_OPERATION"
)

// CompileError reports why a token list could not be compiled.
// Compile errors mean the plan is malformed; they are never retried.
type CompileError struct {
	Code    CompileErrorCode
	Field   string
	Message string
	Tokens  []string
}

func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidArgument returns true if err wraps an INVALID_ARGUMENT CompileError.
func IsInvalidArgument(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsUnsupportedOperation returns true if err wraps an UNSUPPORTED_OPERATION
// CompileError.
func IsUnsupportedOperation(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnsupportedOperation
	}
	return false
}

func invalidArgument(tokens []string, field, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidArgument,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Tokens:  tokens,
	}
}

func unsupported(tokens []string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedOperation,
		Message: fmt.Sprintf("no rule for %q (supported: %s)", strings.Join(tokens, " "), strings.Join(Supported(), ", ")),
		Tokens:  tokens,
	}
}
