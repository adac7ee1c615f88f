package executor

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes executor failures.
type RuntimeErrorCode string

const (
	// ErrCodeUnresolvedCapture indicates a {{name}} placeholder had no capture.
	ErrCodeUnresolvedCapture RuntimeErrorCode = "UNRESOLVED_CAPTURE"

	// ErrCodeCaptureExtractionFailed indicates a capture was requested but
	// the result carried no node id.
	ErrCodeCaptureExtractionFailed RuntimeErrorCode = "CAPTURE_EXTRACTION_FAILED"

	// ErrCodeRemoteOperationFailed indicates the plugin answered ok=false.
	ErrCodeRemoteOperationFailed RuntimeErrorCode = "REMOTE_OPERATION_FAILED"

	// ErrCodeCompileFailed wraps a compiler error for one operation.
	ErrCodeCompileFailed RuntimeErrorCode = "COMPILE_FAILED"

	// ErrCodeRelayFailed wraps a relay error (timeout, cancellation).
	ErrCodeRelayFailed RuntimeErrorCode = "RELAY_FAILED"

	// ErrCodePreflightFailed indicates the status probe answered ok=false.
	ErrCodePreflightFailed RuntimeErrorCode = "PREFLIGHT_FAILED"

	// ErrCodeFileMismatch indicates the connected document is not the one
	// the operator expected.
	ErrCodeFileMismatch RuntimeErrorCode = "FILE_MISMATCH"
)

// RuntimeError reports a failed operation.
//
// Index is 1-based; 0 means the failure happened before the first
// operation (preflight). Err holds the underlying compiler or relay error,
// so compiler.IsInvalidArgument and relay.IsTimeout see through it.
type RuntimeError struct {
	Code      RuntimeErrorCode
	Message   string
	Index     int
	Operation string
	Capture   string
	Err       error
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Index > 0 {
		return fmt.Sprintf("%s: operation #%d (%s): %s", e.Code, e.Index, e.Operation, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the wrapped compiler or relay error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsUnresolvedCapture returns true if err wraps an UNRESOLVED_CAPTURE error.
func IsUnresolvedCapture(err error) bool {
	return hasCode(err, ErrCodeUnresolvedCapture)
}

// IsCaptureExtractionFailed returns true if err wraps a
// CAPTURE_EXTRACTION_FAILED error.
func IsCaptureExtractionFailed(err error) bool {
	return hasCode(err, ErrCodeCaptureExtractionFailed)
}

// IsRemoteOperationFailed returns true if err wraps a
// REMOTE_OPERATION_FAILED error.
func IsRemoteOperationFailed(err error) bool {
	return hasCode(err, ErrCodeRemoteOperationFailed)
}

// IsPreflightFailed returns true for PREFLIGHT_FAILED and FILE_MISMATCH.
func IsPreflightFailed(err error) bool {
	return hasCode(err, ErrCodePreflightFailed) || hasCode(err, ErrCodeFileMismatch)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// at stamps the operation position onto a RuntimeError.
func at(err error, index int, name string) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		re.Index = index
		re.Operation = name
		return re
	}
	return err
}
