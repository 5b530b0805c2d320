// Package services defines the error taxonomy and context annotations shared
// by courier's components.
//
// Errors are classified with sentinel markers (invalid state, not found,
// forbidden, relay, persistence, gate) wrapped via Wrap so callers can branch
// with errors.Is while logs keep full component/operation detail. Context
// helpers carry principal ids, share tokens, group ids, and correlation ids
// from the dispatch loop into every log line.
package services
