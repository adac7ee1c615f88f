// Package harness runs scripted bridge scenarios end to end.
//
// A scenario is a YAML file holding a plan, the plugin's scripted answers,
// and the expected outcome. Run wires a relay, a simulated plugin and an
// executor together in-process, journals every command to an in-memory
// database, and turns the journal back into a trace that assertions and
// golden files compare against.
//
// Scenario format:
//
//	name: capture_chain
//	description: Captured node ids flow into later operations
//	status:                 # optional; runs the preflight probe first
//	  fileName: Demo
//	plan:
//	  operations:
//	    - name: page
//	      run: ["create", "page", "Home"]
//	      capture: page
//	responses:              # answered in order, one per dispatched command
//	  - ok: true
//	    result: {id: "1:2"}
//	expect:
//	  captures: {page: "1:2"}
//	assertions:
//	  - type: trace_count
//	    command: create-page
//	    count: 1
//
// Commands beyond the scripted responses are answered ok=false.
//
// Everything is deterministic: command ids come from a sequential generator
// ("cmd-1", "cmd-2", ...) and the trace carries no timestamps, so golden
// files are stable across runs.
package harness
