package groupbatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"courier/internal/groupbatch"
	"courier/internal/logging"
	"courier/internal/transport"
)

type drainRecorder struct {
	mu      sync.Mutex
	batches [][]transport.ItemHandle
	groups  []string
	done    chan struct{}
}

func newDrainRecorder() *drainRecorder {
	return &drainRecorder{done: make(chan struct{}, 16)}
}

func (r *drainRecorder) drain(_ context.Context, _ transport.PrincipalID, _ transport.ChannelID, groupID string, handles []transport.ItemHandle) {
	r.mu.Lock()
	r.batches = append(r.batches, append([]transport.ItemHandle{}, handles...))
	r.groups = append(r.groups, groupID)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *drainRecorder) wait(t *testing.T, n int) [][]transport.ItemHandle {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-deadline:
			t.Fatalf("timed out waiting for drain %d of %d", i+1, n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]transport.ItemHandle, len(r.batches))
	copy(out, r.batches)
	return out
}

func item(principal transport.PrincipalID, handle transport.ItemHandle, group string) transport.InboundItem {
	return transport.InboundItem{Principal: principal, Origin: 500, Handle: handle, GroupID: group}
}

func TestBurstWithinDelayDrainsOnce(t *testing.T) {
	rec := newDrainRecorder()
	agg := groupbatch.New(context.Background(), 50*time.Millisecond, rec.drain, logging.NewNop())
	defer agg.Stop()

	firsts := 0
	for i := 0; i < 5; i++ {
		if agg.Submit(item(1, transport.ItemHandle(100+i), "album-1")) {
			firsts++
		}
		time.Sleep(5 * time.Millisecond)
	}
	if firsts != 1 {
		t.Fatalf("expected one first-of-group ack, got %d", firsts)
	}

	batches := rec.wait(t, 1)
	if len(batches) != 1 {
		t.Fatalf("expected exactly one drain, got %d", len(batches))
	}
	if len(batches[0]) != 5 {
		t.Fatalf("expected all 5 items in one batch, got %d", len(batches[0]))
	}
	for i, h := range batches[0] {
		if h != transport.ItemHandle(100+i) {
			t.Fatalf("arrival order not preserved: %v", batches[0])
		}
	}
}

func TestGapBeyondDelaySplitsDrains(t *testing.T) {
	rec := newDrainRecorder()
	agg := groupbatch.New(context.Background(), 30*time.Millisecond, rec.drain, logging.NewNop())
	defer agg.Stop()

	agg.Submit(item(1, 100, "album-2"))
	agg.Submit(item(1, 101, "album-2"))
	time.Sleep(80 * time.Millisecond)
	agg.Submit(item(1, 102, "album-2"))

	batches := rec.wait(t, 2)
	if len(batches) != 2 {
		t.Fatalf("expected two drains, got %d", len(batches))
	}
	var flat []transport.ItemHandle
	for _, b := range batches {
		flat = append(flat, b...)
	}
	want := []transport.ItemHandle{100, 101, 102}
	for i, h := range want {
		if flat[i] != h {
			t.Fatalf("concatenation must equal arrival order, got %v", flat)
		}
	}
}

func TestSingletonDrainsImmediately(t *testing.T) {
	rec := newDrainRecorder()
	agg := groupbatch.New(context.Background(), time.Hour, rec.drain, logging.NewNop())
	defer agg.Stop()

	if !agg.Submit(item(1, 200, "")) {
		t.Fatal("singleton submit should report first")
	}

	batches := rec.wait(t, 1)
	if len(batches[0]) != 1 || batches[0][0] != 200 {
		t.Fatalf("unexpected singleton batch: %v", batches)
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	rec := newDrainRecorder()
	agg := groupbatch.New(context.Background(), 40*time.Millisecond, rec.drain, logging.NewNop())
	defer agg.Stop()

	agg.Submit(item(1, 100, "album-a"))
	agg.Submit(item(2, 200, "album-b"))

	batches := rec.wait(t, 2)
	if len(batches) != 2 {
		t.Fatalf("expected a drain per group, got %d", len(batches))
	}
}

func TestCancelPrincipalDiscardsBufferedGroups(t *testing.T) {
	rec := newDrainRecorder()
	agg := groupbatch.New(context.Background(), time.Hour, rec.drain, logging.NewNop())
	defer agg.Stop()

	agg.Submit(item(1, 100, "album-c"))
	agg.Submit(item(1, 101, "album-c"))
	agg.Submit(item(2, 300, "album-d"))

	if dropped := agg.CancelPrincipal(1); dropped != 2 {
		t.Fatalf("expected 2 dropped items, got %d", dropped)
	}
	if agg.Pending() != 1 {
		t.Fatalf("other principals' groups must survive, pending=%d", agg.Pending())
	}
}
