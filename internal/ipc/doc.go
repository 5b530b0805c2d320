// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI is its only client; the request and response types form the
// compatibility surface between the two binaries.
package ipc
