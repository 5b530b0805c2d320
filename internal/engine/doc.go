// Package engine dispatches inbound transport updates to the upload and
// retrieval flows.
//
// The run loop fans updates out to one ordered worker per principal, so a
// single principal's commands, files, and callbacks are handled in send order
// while unrelated principals proceed concurrently. Every update runs under a
// correlation-id context and errors are contained per update; the loop never
// dies on a single failure. Authorization is applied per entry point through
// the gate, failing closed, and a retrieval attempt that bounces off the gate
// is remembered so it can be replayed once the principal joins.
package engine
