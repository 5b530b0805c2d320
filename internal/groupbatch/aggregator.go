package groupbatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"courier/internal/logging"
	"courier/internal/services"
	"courier/internal/transport"
)

// DrainFunc receives one completed batch: the buffered handles of a group in
// arrival order, or a single ungrouped item. Implementations relay the batch
// and append the resulting refs to the owning session.
type DrainFunc func(ctx context.Context, principal transport.PrincipalID, origin transport.ChannelID, groupID string, handles []transport.ItemHandle)

type groupState int

const (
	stateBuffering groupState = iota
	stateDraining
)

// pendingGroup owns its timer handle; replacing the timer cancels the old one
// under the aggregator lock, so a buffer can never drain twice.
type pendingGroup struct {
	principal transport.PrincipalID
	origin    transport.ChannelID
	handles   []transport.ItemHandle
	state     groupState
	timer     *time.Timer
	seq       uint64
}

// Aggregator coalesces bursts of near-simultaneous uploads that share a group
// correlation id into a single drain. A fresh item for a group resets the
// group's one-shot timer; the drain fires only after a full quiet period.
// Ungrouped items drain immediately.
type Aggregator struct {
	ctx    context.Context
	delay  time.Duration
	drain  DrainFunc
	logger *slog.Logger

	mu     sync.Mutex
	groups map[string]*pendingGroup

	// drainLocks serializes drains per principal so session append order
	// matches drain-completion order.
	lockMu     sync.Mutex
	drainLocks map[transport.PrincipalID]*sync.Mutex
}

// New constructs an aggregator. ctx bounds the lifetime of scheduled drains;
// delay is the debounce quiet period for grouped items.
func New(ctx context.Context, delay time.Duration, drain DrainFunc, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{
		ctx:        ctx,
		delay:      delay,
		drain:      drain,
		logger:     logging.NewComponentLogger(logger, "aggregator"),
		groups:     make(map[string]*pendingGroup),
		drainLocks: make(map[transport.PrincipalID]*sync.Mutex),
	}
}

// Submit buffers one inbound item. The returned flag reports whether the item
// opened a new group (or is a singleton); callers acknowledge the sender once
// per group, not per item. Singleton drains run on the caller's goroutine so
// consecutive ungrouped items from one principal keep their send order.
func (a *Aggregator) Submit(item transport.InboundItem) bool {
	if item.GroupID == "" {
		a.runDrain(item.Principal, item.Origin, "", []transport.ItemHandle{item.Handle})
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok := a.groups[item.GroupID]
	first := !ok
	if !ok {
		g = &pendingGroup{principal: item.Principal, origin: item.Origin}
		a.groups[item.GroupID] = g
	}
	g.handles = append(g.handles, item.Handle)

	// Cancel-and-reschedule: the old timer is stopped before the new one is
	// armed, and a sequence number guards against a stale callback that
	// already fired but lost the race for the lock.
	if g.timer != nil {
		g.timer.Stop()
	}
	g.seq++
	seq := g.seq
	groupID := item.GroupID
	g.timer = time.AfterFunc(a.delay, func() {
		a.fire(groupID, seq)
	})
	return first
}

func (a *Aggregator) fire(groupID string, seq uint64) {
	a.mu.Lock()
	g, ok := a.groups[groupID]
	if !ok || g.seq != seq || g.state != stateBuffering {
		a.mu.Unlock()
		return
	}
	g.state = stateDraining
	delete(a.groups, groupID)
	handles := g.handles
	principal, origin := g.principal, g.origin
	a.mu.Unlock()

	a.runDrain(principal, origin, groupID, handles)
}

func (a *Aggregator) runDrain(principal transport.PrincipalID, origin transport.ChannelID, groupID string, handles []transport.ItemHandle) {
	if a.drain == nil || len(handles) == 0 {
		return
	}
	select {
	case <-a.ctx.Done():
		a.logger.Warn("drain skipped, aggregator stopped",
			logging.Int64(logging.FieldPrincipal, int64(principal)),
			logging.String(logging.FieldGroup, groupID),
			logging.Int("items", len(handles)))
		return
	default:
	}

	lock := a.principalLock(principal)
	lock.Lock()
	defer lock.Unlock()

	ctx := services.WithPrincipal(a.ctx, int64(principal))
	ctx = services.WithGroup(ctx, groupID)
	a.drain(ctx, principal, origin, groupID, handles)
}

// CancelPrincipal discards every still-buffered group owned by the principal
// and returns the number of items dropped. A drain whose timer already fired
// is not recalled; those items may be lost when cancel races the timer, which
// is accepted behavior.
func (a *Aggregator) CancelPrincipal(principal transport.PrincipalID) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	dropped := 0
	for id, g := range a.groups {
		if g.principal != principal || g.state != stateBuffering {
			continue
		}
		if g.timer != nil {
			g.timer.Stop()
		}
		dropped += len(g.handles)
		delete(a.groups, id)
	}
	if dropped > 0 {
		a.logger.Debug("pending groups discarded on cancel",
			logging.Int64(logging.FieldPrincipal, int64(principal)),
			logging.Int("items", dropped))
	}
	return dropped
}

// Stop cancels every outstanding timer. Buffered items are dropped.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, g := range a.groups {
		if g.timer != nil {
			g.timer.Stop()
		}
		delete(a.groups, id)
	}
}

// Pending reports the number of groups still buffering.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Aggregator) principalLock(principal transport.PrincipalID) *sync.Mutex {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	lock, ok := a.drainLocks[principal]
	if !ok {
		lock = &sync.Mutex{}
		a.drainLocks[principal] = lock
	}
	return lock
}
