package harness

import "encoding/json"

// TraceEvent is one journaled command exchange.
type TraceEvent struct {
	Seq       int             `json:"seq"`
	Index     int             `json:"index"`
	Operation string          `json:"operation"`
	CommandID string          `json:"id"`
	Command   string          `json:"command"`
	Args      json.RawMessage `json:"args"`
	OK        bool            `json:"ok"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the run matched expect and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every dispatched command in order, preflight included.
	Trace []TraceEvent `json:"trace"`

	// Captures is the final capture table.
	Captures map[string]string `json:"captures"`

	Executed int   `json:"executed"`
	Skipped  []int `json:"skipped"`

	// ErrorCode is the executor error code, empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// Err is the run error itself, if any.
	Err error `json:"-"`

	// Errors lists expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Captures: map[string]string{},
		Skipped:  []int{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
