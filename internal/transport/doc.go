// Package transport declares the messaging collaborator contract: inbound
// update and item types, rendered-panel models, and the Transport interface
// courier's pipeline drives. The concrete transport binding lives outside this
// repository; tests use the scripted implementation in internal/testsupport.
package transport
