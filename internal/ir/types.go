package ir

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a command the remote plugin knows how to execute.
type Kind string

const (
	KindStatus         Kind = "status"
	KindCreatePage     Kind = "create-page"
	KindSetCurrentPage Kind = "set-current-page"
	KindCreateFrame    Kind = "create-frame"
	KindCreateText     Kind = "create-text"
	KindSetText        Kind = "set-text"
	KindSetFill        Kind = "set-fill"
	KindSetOpacity     Kind = "set-opacity"
	KindSetLayout      Kind = "set-layout"
)

// Args is the typed argument record carried by a Command.
// Each Kind has exactly one Args implementation.
type Args interface {
	Kind() Kind
}

// Operation is one step of a Plan.
//
// Run[0] and Run[1] form the verb pair that selects the compiler rule; the
// remaining tokens are positional arguments or "--flag value" pairs.
type Operation struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty" jsonschema:"description=Label used in logs and errors"`
	Run         []string `json:"run" yaml:"run" jsonschema:"description=Verb pair then positional arguments and --flag value pairs"`
	Capture     string   `json:"capture,omitempty" yaml:"capture,omitempty" jsonschema:"description=Store the node id from the result under this name"`
	IgnoreError bool     `json:"ignore_error,omitempty" yaml:"ignore_error,omitempty" jsonschema:"description=Continue when the plugin reports a failure"`
}

// Label returns the operation name, or "op-N" for unnamed operations.
// index is 1-based.
func (op Operation) Label(index int) string {
	if op.Name != "" {
		return op.Name
	}
	return fmt.Sprintf("op-%d", index)
}

// Plan is an ordered list of operations plus opaque metadata.
type Plan struct {
	Meta       map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	Operations []Operation    `json:"operations" yaml:"operations"`
}

// MetaString returns a trimmed string metadata value, or "" when the key is
// absent or not a string.
func (p Plan) MetaString(key string) string {
	if p.Meta == nil {
		return ""
	}
	s, ok := p.Meta[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Command is a unit of work handed to the remote peer.
type Command struct {
	ID   string `json:"id"`
	Kind Kind   `json:"command"`
	Args Args   `json:"args"`
}

// Envelope is a Command as the remote peer decodes it from the wire.
type Envelope struct {
	ID   string         `json:"id"`
	Kind Kind           `json:"command"`
	Args map[string]any `json:"args"`
}

// Result is the remote peer's answer to exactly one Command.
type Result struct {
	ID     string         `json:"id"`
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// CommandRecord is one dispatched command and its outcome, as kept in the
// run journal. Index is the 1-based operation index; 0 marks the preflight
// status probe.
type CommandRecord struct {
	Index        int
	Operation    string
	CommandID    string
	Kind         Kind
	Args         Args
	OK           bool
	Result       map[string]any
	Error        string
	DispatchedAt time.Time
	CompletedAt  time.Time
}
