// Package executor runs a plan against the remote plugin one operation at a
// time.
//
// For each operation the executor substitutes {{name}} placeholders from the
// capture store, compiles the tokens into a typed command, dispatches it
// through the relay and, when the operation names a capture, extracts a node
// id from the result. Operations never overlap: the next command is not
// compiled until the previous result has been consumed.
//
// Failures abort the run unless the operation sets ignore_error, in which
// case a remote failure or a relay timeout is logged and skipped. Nothing is
// retried.
package executor
