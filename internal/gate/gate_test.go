package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier/internal/gate"
	"courier/internal/logging"
	"courier/internal/transport"
)

func TestAllowedFailsClosed(t *testing.T) {
	failing := gate.Func(func(context.Context, transport.PrincipalID) (bool, error) {
		return true, errors.New("collaborator timeout")
	})

	if gate.Allowed(context.Background(), failing, 1, logging.NewNop()) {
		t.Fatal("gate failure must deny")
	}
}

func TestAllowedNilGateDenies(t *testing.T) {
	if gate.Allowed(context.Background(), nil, 1, logging.NewNop()) {
		t.Fatal("nil gate must deny")
	}
}

func TestCachedSkipsRepeatLookups(t *testing.T) {
	calls := 0
	inner := gate.Func(func(context.Context, transport.PrincipalID) (bool, error) {
		calls++
		return true, nil
	})
	cached := gate.NewCached(inner, 8, time.Minute)

	for i := 0; i < 5; i++ {
		ok, err := cached.Authorized(context.Background(), 42)
		if err != nil || !ok {
			t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one inner lookup, got %d", calls)
	}
}

func TestCachedNeverCachesDenials(t *testing.T) {
	calls := 0
	inner := gate.Func(func(context.Context, transport.PrincipalID) (bool, error) {
		calls++
		return calls > 1, nil
	})
	cached := gate.NewCached(inner, 8, time.Minute)

	if ok, _ := cached.Authorized(context.Background(), 7); ok {
		t.Fatal("first check should deny")
	}
	if ok, _ := cached.Authorized(context.Background(), 7); !ok {
		t.Fatal("second check should pass once the principal joined")
	}
	if calls != 2 {
		t.Fatalf("expected denial to bypass cache, got %d calls", calls)
	}
}

func TestCachedForget(t *testing.T) {
	calls := 0
	inner := gate.Func(func(context.Context, transport.PrincipalID) (bool, error) {
		calls++
		return true, nil
	})
	cached := gate.NewCached(inner, 8, time.Minute)

	cached.Authorized(context.Background(), 9)
	cached.Forget(9)
	cached.Authorized(context.Background(), 9)

	if calls != 2 {
		t.Fatalf("expected forget to force a fresh lookup, got %d calls", calls)
	}
}
