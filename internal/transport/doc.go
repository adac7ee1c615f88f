// Package transport exposes a relay to the remote plugin over HTTP.
//
// The plugin runs inside a sandbox that can only make outbound requests, so
// the protocol is plain polling:
//
//	GET  /next    -> 200 with one command, or 204 when the queue is empty
//	POST /result  -> 200 {"ok":true}; 400 on malformed JSON or missing id
//	GET  /health  -> 200 {"connected":bool,"pending":n}
//	OPTIONS *     -> 204
//
// Every other method or path answers 404. All responses carry permissive
// CORS headers because the plugin's origin is opaque.
package transport
