package testsupport

import (
	"context"
	"testing"

	"courier/internal/config"
	"courier/internal/registry"
	"courier/internal/transport"
)

// MustOpenRegistry opens a registry.Store for tests and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewShare creates a share record for tests using the provided store.
func NewShare(t testing.TB, store *registry.Store, owner transport.PrincipalID, refs []transport.ItemRef) *registry.Share {
	t.Helper()

	share, err := store.Create(context.Background(), owner, refs, "", "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return share
}
