// Package delivery renders share pages to viewers: it copies the page's vault
// items into the viewer's conversation, attaches a navigation panel, and
// retracts the previous page when the viewer moves on.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/gate"
	"courier/internal/logging"
	"courier/internal/pager"
	"courier/internal/registry"
	"courier/internal/services"
	"courier/internal/transport"
)

// NavPrefix is the callback action prefix for share page navigation.
const NavPrefix = "spage"

type viewKey struct {
	viewer transport.PrincipalID
	token  string
}

// view tracks what one viewer currently has rendered for one share.
type view struct {
	page    int
	dest    transport.ChannelID
	itemIDs []transport.MessageID
	panelID transport.MessageID
}

// Engine serves share pages. Every page request re-checks the gate and
// re-reads the registry, so revoked access or a deleted share takes effect on
// the next navigation.
type Engine struct {
	transport transport.Transport
	registry  *registry.Store
	gate      gate.Gate
	pageSize  int
	settle    time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	views map[viewKey]*view
}

// New constructs a delivery engine from the retrieval configuration.
func New(tr transport.Transport, store *registry.Store, g gate.Gate, cfg *config.Config, logger *slog.Logger) *Engine {
	pageSize := cfg.Retrieval.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Engine{
		transport: tr,
		registry:  store,
		gate:      g,
		pageSize:  pageSize,
		settle:    time.Duration(cfg.Retrieval.SettleSeconds) * time.Second,
		logger:    logging.NewComponentLogger(logger, "delivery"),
	}
}

// Show renders the requested page of a share into dest. The previous page's
// messages for this viewer are retracted first; a retraction that finds them
// already gone is treated as success. The requested page is clamped into
// range.
func (e *Engine) Show(ctx context.Context, viewer transport.PrincipalID, dest transport.ChannelID, token string, page int) error {
	if !gate.Allowed(ctx, e.gate, viewer, e.logger) {
		return services.Wrap(services.ErrForbidden, "delivery", "show", "viewer is not authorized", nil)
	}

	share, err := e.registry.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	window := pager.Paginate(share.Count(), e.pageSize, page)
	refs := share.Refs[window.Offset : window.Offset+window.Len]

	e.retractCurrent(ctx, viewer, token)

	itemIDs, err := e.transport.Deliver(ctx, dest, refs)
	if err != nil {
		return services.Wrap(services.ErrRelay, "delivery", "show", "deliver page items", err)
	}

	// Let the transport finish rendering the items before the panel lands
	// beneath them.
	if err := e.wait(ctx); err != nil {
		return err
	}

	panel := &transport.Panel{Rows: pager.Controls(window.Page, window.TotalPages, NavPrefix, token)}
	panelID, err := e.transport.Send(ctx, dest, pageText(share, window), panel)
	if err != nil {
		return services.Wrap(services.ErrRelay, "delivery", "show", "send navigation panel", err)
	}

	e.mu.Lock()
	if e.views == nil {
		e.views = make(map[viewKey]*view)
	}
	e.views[viewKey{viewer, token}] = &view{
		page:    window.Page,
		dest:    dest,
		itemIDs: itemIDs,
		panelID: panelID,
	}
	e.mu.Unlock()

	logging.WithContext(ctx, e.logger).Debug("page rendered",
		logging.String(logging.FieldToken, token),
		logging.Int("page", window.Page),
		logging.Int("items", len(itemIDs)))
	return nil
}

// Navigate moves a viewer's existing view to the requested page. Asking for
// the page already on screen is a successful no-op. A viewer with no tracked
// view gets a fresh Show.
func (e *Engine) Navigate(ctx context.Context, viewer transport.PrincipalID, dest transport.ChannelID, token string, page int) error {
	e.mu.Lock()
	current, ok := e.views[viewKey{viewer, token}]
	e.mu.Unlock()

	if ok && current.page == page {
		return nil
	}
	return e.Show(ctx, viewer, dest, token, page)
}

// Forget drops every tracked view of the given share. Rendered messages stay
// on screen; subsequent navigation re-reads the registry and reports the
// share gone.
func (e *Engine) Forget(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.views {
		if key.token == token {
			delete(e.views, key)
		}
	}
}

// retractCurrent removes the viewer's previously rendered page best-effort.
// Failures are logged and never block the new page.
func (e *Engine) retractCurrent(ctx context.Context, viewer transport.PrincipalID, token string) {
	e.mu.Lock()
	current, ok := e.views[viewKey{viewer, token}]
	if ok {
		delete(e.views, viewKey{viewer, token})
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	ids := append([]transport.MessageID{}, current.itemIDs...)
	ids = append(ids, current.panelID)
	if err := e.transport.Retract(ctx, current.dest, ids); err != nil && !errors.Is(err, transport.ErrAlreadyGone) {
		logging.WithContext(ctx, e.logger).Warn("retract previous page failed",
			logging.String(logging.FieldToken, token),
			logging.Int("page", current.page),
			logging.Error(err))
	}
}

func (e *Engine) wait(ctx context.Context) error {
	if e.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(e.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pageText(share *registry.Share, window pager.Window) string {
	label := share.Caption
	if label == "" {
		label = "Shared files"
	}
	if window.TotalPages > 1 {
		return fmt.Sprintf("%s · %d items · page %d of %d", label, share.Count(), window.Page, window.TotalPages)
	}
	return fmt.Sprintf("%s · %d items", label, share.Count())
}
