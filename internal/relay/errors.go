package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/figbridge/internal/ir"
)

// PluginManifest is the entry point an operator imports into the design tool
// to start the remote peer. Timeout and connection errors name it.
const PluginManifest = "assets/figma-bridge-plugin/manifest.json"

// RelayErrorCode categorizes relay errors.
type RelayErrorCode string

const (
	// ErrCodeTimeout indicates no result arrived before the deadline.
	ErrCodeTimeout RelayErrorCode = "RELAY_TIMEOUT"

	// ErrCodeMissingID indicates a posted result carried no command id.
	ErrCodeMissingID RelayErrorCode = "MISSING_ID"

	// ErrCodePeerNotConnected indicates the peer never polled within the wait.
	ErrCodePeerNotConnected RelayErrorCode = "PEER_NOT_CONNECTED"

	// ErrCodeDuplicateID indicates the id generator produced an id that is
	// already in flight.
	ErrCodeDuplicateID RelayErrorCode = "DUPLICATE_ID"
)

// RelayError is returned by relay operations.
type RelayError struct {
	Code      RelayErrorCode
	Message   string
	CommandID string
	Kind      ir.Kind
}

func (e *RelayError) Error() string {
	if e.CommandID != "" {
		return fmt.Sprintf("%s: %s (command=%s, kind=%s)", e.Code, e.Message, e.CommandID, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTimeout returns true if err wraps a RELAY_TIMEOUT error.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsMissingID returns true if err wraps a MISSING_ID error.
func IsMissingID(err error) bool {
	return hasCode(err, ErrCodeMissingID)
}

// IsPeerNotConnected returns true if err wraps a PEER_NOT_CONNECTED error.
func IsPeerNotConnected(err error) bool {
	return hasCode(err, ErrCodePeerNotConnected)
}

func hasCode(err error, code RelayErrorCode) bool {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewTimeoutError creates a RelayError for a command whose result never came.
func NewTimeoutError(id string, kind ir.Kind, timeout time.Duration) *RelayError {
	return &RelayError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("no result within %s; ensure the bridge plugin is running: %s", timeout, PluginManifest),
		CommandID: id,
		Kind:      kind,
	}
}

// NewPeerNotConnectedError creates a RelayError for a peer that never polled.
func NewPeerNotConnectedError(wait time.Duration) *RelayError {
	return &RelayError{
		Code:    ErrCodePeerNotConnected,
		Message: fmt.Sprintf("bridge plugin did not poll within %s; import and run the plugin first: %s", wait, PluginManifest),
	}
}
