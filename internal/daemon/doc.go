// Package daemon coordinates the long-running relay service: it enforces
// single-instance execution with a file lock, runs the dispatcher's update
// loop, and exposes a status and management surface for the control socket.
package daemon
