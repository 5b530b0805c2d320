package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"courier/internal/config"
	"courier/internal/delivery"
	"courier/internal/gate"
	"courier/internal/groupbatch"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/registry"
	"courier/internal/relay"
	"courier/internal/services"
	"courier/internal/session"
	"courier/internal/transport"
)

// queueDepth bounds how many updates may be waiting per principal before the
// loop starts dropping theirs.
const queueDepth = 64

// Engine wires the transport, gate, session store, aggregator, relay,
// registry, and delivery engine into one update dispatcher.
type Engine struct {
	cfg       *config.Config
	transport transport.Transport
	gate      gate.Gate
	registry  *registry.Store
	relay     *relay.Pipeline
	sessions  *session.Store
	delivery  *delivery.Engine
	notifier  notifications.Service
	logger    *slog.Logger

	mu         sync.Mutex
	aggregator *groupbatch.Aggregator
}

// New assembles the dispatcher and its collaborators.
func New(cfg *config.Config, tr transport.Transport, g gate.Gate, store *registry.Store, notifier notifications.Service, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Engine{
		cfg:       cfg,
		transport: tr,
		gate:      g,
		registry:  store,
		relay:     relay.NewPipeline(tr, logger),
		sessions:  session.NewStore(),
		delivery:  delivery.New(tr, store, g, cfg, logger),
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "engine"),
	}
}

// Run consumes updates from the source until the context is canceled or the
// source closes. Updates are fanned out to one ordered worker per principal:
// one principal's updates are handled strictly in send order, unrelated
// principals in parallel.
func (e *Engine) Run(ctx context.Context, source transport.UpdateSource) error {
	debounce := time.Duration(e.cfg.Uploads.GroupDebounceSeconds) * time.Second
	e.mu.Lock()
	e.aggregator = groupbatch.New(ctx, debounce, e.collectBatch, e.logger)
	e.mu.Unlock()
	defer e.batcher().Stop()

	group, gctx := errgroup.WithContext(ctx)
	queues := make(map[transport.PrincipalID]chan transport.Update)
	updates := source.Updates(ctx)

	drainQueues := func() {
		for _, q := range queues {
			close(q)
		}
	}

loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			q, exists := queues[update.Principal]
			if !exists {
				q = make(chan transport.Update, queueDepth)
				queues[update.Principal] = q
				worker := q
				group.Go(func() error {
					for u := range worker {
						e.Handle(gctx, u)
					}
					return nil
				})
			}
			select {
			case q <- update:
			default:
				e.logger.Warn("principal queue full, update dropped",
					logging.Int64(logging.FieldPrincipal, int64(update.Principal)))
			}
		}
	}

	drainQueues()
	return group.Wait()
}

// Handle processes one update to completion. Exposed for the run loop's
// workers; a panic in a handler is contained and logged.
func (e *Engine) Handle(ctx context.Context, update transport.Update) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithPrincipal(ctx, int64(update.Principal))

	defer func() {
		if r := recover(); r != nil {
			logging.WithContext(ctx, e.logger).Error("handler panicked",
				logging.Any("panic", r))
		}
	}()

	switch update.Kind {
	case transport.UpdateCommand:
		e.handleCommand(ctx, update)
	case transport.UpdateItem:
		e.handleItem(ctx, update)
	case transport.UpdateText:
		e.handleText(ctx, update)
	case transport.UpdateCallback:
		e.handleCallback(ctx, update)
	default:
		logging.WithContext(ctx, e.logger).Debug("update kind ignored",
			logging.Int("kind", int(update.Kind)))
	}
}

// batcher returns the aggregator, creating a background-scoped one when
// Handle is exercised without Run (tests).
func (e *Engine) batcher() *groupbatch.Aggregator {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.aggregator == nil {
		debounce := time.Duration(e.cfg.Uploads.GroupDebounceSeconds) * time.Second
		e.aggregator = groupbatch.New(context.Background(), debounce, e.collectBatch, e.logger)
	}
	return e.aggregator
}

// handler is an update entry point gated behind authorization.
type handler func(ctx context.Context, update transport.Update)

// requireGate wraps an entry point with the fail-closed membership check.
// Denied principals get the join prompt. Retrieval entry points additionally
// record the attempted token themselves so it can be replayed after joining.
func (e *Engine) requireGate(next handler) handler {
	return func(ctx context.Context, update transport.Update) {
		if !gate.Allowed(ctx, e.gate, update.Principal, e.logger) {
			e.sendJoinPrompt(ctx, update.Origin)
			return
		}
		next(ctx, update)
	}
}

// collectBatch is the aggregator drain: relay the batch into the vault and
// append the refs to the owning session. A relay failure drops the batch,
// tells the sender once, and leaves the session collecting.
func (e *Engine) collectBatch(ctx context.Context, principal transport.PrincipalID, origin transport.ChannelID, groupID string, handles []transport.ItemHandle) {
	log := logging.WithContext(ctx, e.logger)

	refs, err := e.relay.Relay(ctx, origin, handles)
	if err != nil {
		log.Error("batch lost to relay failure",
			logging.Int("items", len(handles)),
			logging.Error(err))
		e.send(ctx, origin, "Some of your files may not have been saved. Please send them again.", nil)
		if notifyErr := e.notifier.NotifyRelayFailure(ctx, err, len(handles)); notifyErr != nil {
			log.Warn("relay failure notification failed", logging.Error(notifyErr))
		}
		return
	}

	if err := e.sessions.Accept(principal, refs...); err != nil {
		// The session ended while this batch was in flight (cancel racing the
		// timer). Orphaned vault copies are discarded best-effort.
		log.Warn("relayed batch has no session, discarding",
			logging.Int("items", len(refs)),
			logging.Error(err))
		if discardErr := e.transport.Discard(ctx, refs); discardErr != nil {
			log.Warn("orphan discard failed", logging.Error(discardErr))
		}
		return
	}
	log.Debug("batch accepted into session", logging.Int("items", len(refs)))
}

// send delivers a plain status message, logging instead of failing the update
// when the transport rejects it.
func (e *Engine) send(ctx context.Context, dest transport.ChannelID, text string, panel *transport.Panel) {
	if _, err := e.transport.Send(ctx, dest, text, panel); err != nil {
		logging.WithContext(ctx, e.logger).Warn("status message failed",
			logging.Error(err))
	}
}

func (e *Engine) sendJoinPrompt(ctx context.Context, dest transport.ChannelID) {
	row := transport.ControlRow{}
	if link := e.cfg.Gate.InviteLink; link != "" {
		row = append(row, transport.Control{Label: "Join the group", URL: link})
	}
	row = append(row, transport.Control{Label: "Try again", Action: actionRetry})
	panel := &transport.Panel{Rows: []transport.ControlRow{row}}
	e.send(ctx, dest, "You need to join the group before using this service.", panel)
}
