package executor

import (
	"bytes"
	"encoding/json"
)

// CaptureStore maps capture names to node ids, remembering insertion order
// so the emitted capture map reads in plan order.
//
// Not safe for concurrent use; the executor owns it for the whole run.
type CaptureStore struct {
	names  []string
	values map[string]string
}

// NewCaptureStore creates an empty store.
func NewCaptureStore() *CaptureStore {
	return &CaptureStore{values: make(map[string]string)}
}

// Get returns the value stored under name.
func (c *CaptureStore) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set stores value under name. Overwriting keeps the name's original
// position.
func (c *CaptureStore) Set(name, value string) {
	if _, exists := c.values[name]; !exists {
		c.names = append(c.names, name)
	}
	c.values[name] = value
}

// Names returns capture names in first-set order.
func (c *CaptureStore) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of captures.
func (c *CaptureStore) Len() int {
	return len(c.names)
}

// Map returns a copy of the captures.
func (c *CaptureStore) Map() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the store as an object with keys in insertion order.
func (c *CaptureStore) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, c.values[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
