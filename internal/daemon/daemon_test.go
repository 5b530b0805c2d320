package daemon_test

import (
	"context"
	"testing"

	"courier/internal/daemon"
	"courier/internal/engine"
	"courier/internal/logging"
	"courier/internal/testsupport"
	"courier/internal/transport"
)

func newDaemon(t *testing.T) (*daemon.Daemon, *testsupport.FakeTransport) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	fake := testsupport.NewFakeTransport()
	gate := testsupport.NewScriptedGate()
	eng := engine.New(cfg, fake, gate, store, nil, logging.NewNop())

	d, err := daemon.New(cfg, store, eng, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, fake
}

func TestStartStopLifecycle(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	if d.Running() {
		t.Fatal("daemon must not report running before start")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon must report running after start")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second start must fail while running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon must not report running after stop")
	}
	// Stop is idempotent.
	d.Stop()
}

func TestStatusSnapshot(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("status must report running")
	}
	if status.PID == 0 || status.LockFilePath == "" || status.RegistryPath == "" {
		t.Fatalf("incomplete status: %+v", status)
	}
	if !status.Healthy {
		t.Fatalf("fresh registry must be healthy: %s", status.HealthDetail)
	}
}

func TestDeleteShareViaControlSurface(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	fake := testsupport.NewFakeTransport()
	eng := engine.New(cfg, fake, testsupport.NewScriptedGate(), store, nil, logging.NewNop())
	d, err := daemon.New(cfg, store, eng, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	share := testsupport.NewShare(t, store, 42, []transport.ItemRef{1, 2, 3})

	items, err := d.DeleteShare(ctx, share.Token)
	if err != nil {
		t.Fatalf("DeleteShare failed: %v", err)
	}
	if items != 3 {
		t.Fatalf("expected 3 items reported, got %d", items)
	}
	if _, err := store.GetByToken(ctx, share.Token); err == nil {
		t.Fatal("share must be gone from the registry")
	}
	if got := fake.Discarded(); len(got) != 3 {
		t.Fatalf("expected vault items discarded, got %v", got)
	}

	if _, err := d.DeleteShare(ctx, share.Token); err == nil {
		t.Fatal("second delete must report not found")
	}
}

func TestListShares(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	eng := engine.New(cfg, testsupport.NewFakeTransport(), testsupport.NewScriptedGate(), store, nil, logging.NewNop())
	d, err := daemon.New(cfg, store, eng, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	testsupport.NewShare(t, store, 1, []transport.ItemRef{1})
	testsupport.NewShare(t, store, 2, []transport.ItemRef{2})

	all, err := d.ListShares(ctx, 0, 0, 10)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 shares across owners, got %v, %v", all, err)
	}
	mine, err := d.ListShares(ctx, 1, 0, 10)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 share for owner 1, got %v, %v", mine, err)
	}
}
