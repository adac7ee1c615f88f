// Package journal keeps a SQLite record of bridge runs.
//
// Each apply is one row in runs; every command it dispatched, including the
// preflight status probe, is one row in commands with its arguments and
// result stored as canonical JSON. The journal is write-mostly: the executor
// appends through a Run handle and the history command reads it back.
//
// # Database Configuration
//
//   - WAL mode so the history command can read while a run writes
//   - synchronous=NORMAL
//   - 5-second busy timeout
//   - foreign keys enforced; deleting a run deletes its commands
//   - a single connection, since SQLite allows one writer at a time
//
// # Ordering
//
// Commands are ordered by seq, a per-run counter assigned on insert, never by
// timestamp.
package journal
