// Package ir defines the data model shared by the figbridge compiler, relay
// and executor.
//
// This package contains type definitions and serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A Plan is read-only once loaded; operation order is execution order
//   - Command IDs are opaque and unique for the lifetime of a relay
//   - Wire field names match what the design-tool plugin reads ("command",
//     "args", "ok", "result", "error")
package ir
