// Package testsupport provides shared helpers for tests: temp-dir backed
// configs, registry stores with cleanup, a scripted membership gate, and an
// in-memory transport fake that records every outbound call.
package testsupport
