package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"courier/internal/delivery"
	"courier/internal/gate"
	"courier/internal/logging"
	"courier/internal/pager"
	"courier/internal/registry"
	"courier/internal/services"
	"courier/internal/session"
	"courier/internal/transport"
)

// Callback action verbs. Navigation verbs carry "verb:page[:token]" payloads
// rendered by the pager; management verbs carry "verb:token".
const (
	actionRetry  = "retry"
	actionList   = "page"
	actionDelete = "delete"
	actionInfo   = "info"
)

// shareLinkPattern recognizes pasted share deep links in free text.
var shareLinkPattern = regexp.MustCompile(`start=([A-Za-z0-9_-]+)`)

const helpText = `Send /begin to start an upload session, then send your files.
/finish turns them into a share link, /cancel discards what is still pending.
/myshares lists your shares. Open a share link to receive its files.`

func (e *Engine) handleCommand(ctx context.Context, update transport.Update) {
	switch update.Command {
	case "start":
		e.handleStart(ctx, update)
	case "help":
		e.send(ctx, update.Origin, helpText, nil)
	case "begin":
		e.requireGate(e.handleBegin)(ctx, update)
	case "finish":
		e.requireGate(e.handleFinish)(ctx, update)
	case "cancel":
		e.requireGate(e.handleCancel)(ctx, update)
	case "myshares":
		e.requireGate(func(ctx context.Context, u transport.Update) {
			e.renderShares(ctx, u.Principal, u.Origin, 1, 0)
		})(ctx, update)
	default:
		e.send(ctx, update.Origin, "Unknown command. Try /help.", nil)
	}
}

// handleStart greets the principal, resolves a deep-link token when present,
// and replays a retrieval that previously bounced off the gate.
func (e *Engine) handleStart(ctx context.Context, update transport.Update) {
	token := strings.TrimSpace(update.CommandArg)
	if token != "" {
		e.handleRetrieve(ctx, update.Principal, update.Origin, token)
		return
	}

	e.send(ctx, update.Origin, "Welcome! "+helpText, nil)
	if pending, ok := e.takeReplayableToken(ctx, update.Principal); ok {
		e.handleRetrieve(ctx, update.Principal, update.Origin, pending)
	}
}

// takeReplayableToken returns a remembered retrieval token only once the
// principal passes the gate; a still-denied principal keeps the token for a
// later attempt.
func (e *Engine) takeReplayableToken(ctx context.Context, principal transport.PrincipalID) (string, bool) {
	// Peek cheaply first: most starts have nothing pending.
	token, ok := e.sessions.TakePendingToken(principal)
	if !ok {
		return "", false
	}
	if !gate.Allowed(ctx, e.gate, principal, e.logger) {
		e.sessions.SetPendingToken(principal, token)
		return "", false
	}
	return token, true
}

func (e *Engine) handleBegin(ctx context.Context, update transport.Update) {
	e.sessions.Begin(update.Principal)
	e.send(ctx, update.Origin, "Upload session started. Send me your files, then /finish to get a share link or /cancel to discard.", nil)
}

func (e *Engine) handleItem(ctx context.Context, update transport.Update) {
	if update.Item == nil {
		return
	}
	e.requireGate(func(ctx context.Context, u transport.Update) {
		if e.sessions.Mode(u.Principal) != session.ModeCollecting {
			e.send(ctx, u.Origin, "Please start an upload with /begin before sending files.", nil)
			return
		}
		if e.batcher().Submit(*u.Item) {
			e.send(ctx, u.Origin, "Got it. Keep sending, or use /finish when you are done.", nil)
		}
	})(ctx, update)
}

// handleText recognizes pasted share links; anything else gets a hint.
func (e *Engine) handleText(ctx context.Context, update transport.Update) {
	if m := shareLinkPattern.FindStringSubmatch(update.Text); m != nil {
		e.handleRetrieve(ctx, update.Principal, update.Origin, m[1])
		return
	}
	e.send(ctx, update.Origin, "Paste a share link to receive files, or see /help.", nil)
}

// handleRetrieve is the retrieval entry point for deep links, pasted links,
// and replayed pending tokens.
func (e *Engine) handleRetrieve(ctx context.Context, principal transport.PrincipalID, origin transport.ChannelID, token string) {
	ctx = services.WithToken(ctx, token)
	err := e.delivery.Show(ctx, principal, origin, token, 1)
	switch {
	case err == nil:
	case services.Denied(err):
		e.sessions.SetPendingToken(principal, token)
		e.sendJoinPrompt(ctx, origin)
	case errors.Is(err, services.ErrNotFound):
		e.send(ctx, origin, "That share link is invalid or the share was removed.", nil)
	default:
		logging.WithContext(ctx, e.logger).Error("retrieval failed", logging.Error(err))
		e.send(ctx, origin, "Something went wrong fetching that share. Please try again.", nil)
	}
}

// handleFinish drains the session into a new share record. A persistence
// failure restores the drained refs so finish can simply be retried.
func (e *Engine) handleFinish(ctx context.Context, update transport.Update) {
	principal := update.Principal
	refs, count := e.sessions.Drain(principal)
	if count == 0 {
		e.send(ctx, update.Origin, "Nothing to share yet. Send some files first, or /begin to start over.", nil)
		return
	}

	kind := "file"
	if count > 1 {
		kind = "collection"
	}
	share, err := e.registry.Create(ctx, principal, refs, "", kind)
	if err != nil {
		logging.WithContext(ctx, e.logger).Error("share creation failed",
			logging.Int("items", count),
			logging.Error(err))
		e.sessions.Restore(principal, refs)
		e.send(ctx, update.Origin, "Couldn't save your share just now. Your files are still here; try /finish again.", nil)
		if notifyErr := e.notifier.NotifyError(ctx, err, "share creation"); notifyErr != nil {
			logging.WithContext(ctx, e.logger).Warn("error notification failed", logging.Error(notifyErr))
		}
		return
	}

	ctx = services.WithToken(ctx, share.Token)
	link := e.shareLink(share.Token)
	panel := &transport.Panel{Rows: []transport.ControlRow{{
		{Label: "Open share", URL: link},
	}}}
	e.send(ctx, update.Origin, fmt.Sprintf("Your share is ready (%d items):\n%s", count, link), panel)

	// Audit line in the vault channel next to the stored items.
	e.send(ctx, transport.ChannelID(e.cfg.Transport.VaultChannel),
		fmt.Sprintf("share %s · owner %d · %d items", share.Token, principal, count), nil)

	if err := e.notifier.NotifyShareCreated(ctx, share.Token, count); err != nil {
		logging.WithContext(ctx, e.logger).Warn("share notification failed", logging.Error(err))
	}
	logging.WithContext(ctx, e.logger).Info("share created",
		logging.String(logging.FieldToken, share.Token),
		logging.Int("items", count))
}

// handleCancel discards still-buffered groups, then behaves like finish for
// whatever was already relayed into the session.
func (e *Engine) handleCancel(ctx context.Context, update transport.Update) {
	dropped := e.batcher().CancelPrincipal(update.Principal)
	if dropped > 0 {
		logging.WithContext(ctx, e.logger).Debug("pending items discarded on cancel",
			logging.Int("items", dropped))
	}

	if e.sessions.Count(update.Principal) == 0 {
		e.sessions.Abandon(update.Principal)
		e.send(ctx, update.Origin, "Upload canceled.", nil)
		return
	}
	e.handleFinish(ctx, update)
}

func (e *Engine) handleCallback(ctx context.Context, update transport.Update) {
	verb, rest, _ := strings.Cut(update.Callback, ":")
	switch verb {
	case pager.NoopAction:
		return
	case actionRetry:
		e.requireGate(func(ctx context.Context, u transport.Update) {
			if token, ok := e.sessions.TakePendingToken(u.Principal); ok {
				e.handleRetrieve(ctx, u.Principal, u.Origin, token)
				return
			}
			e.send(ctx, u.Origin, "You're in. "+helpText, nil)
		})(ctx, update)
	case delivery.NavPrefix:
		pageStr, token, _ := strings.Cut(rest, ":")
		page, err := strconv.Atoi(pageStr)
		if err != nil || token == "" {
			return
		}
		e.handleNavigate(ctx, update.Principal, update.Origin, token, page)
	case actionList:
		page, err := strconv.Atoi(rest)
		if err != nil {
			return
		}
		e.requireGate(func(ctx context.Context, u transport.Update) {
			e.renderShares(ctx, u.Principal, u.Origin, page, u.CallbackMessage)
		})(ctx, update)
	case actionDelete:
		e.requireGate(func(ctx context.Context, u transport.Update) {
			e.handleDelete(ctx, u, rest)
		})(ctx, update)
	case actionInfo:
		e.requireGate(func(ctx context.Context, u transport.Update) {
			e.handleInfo(ctx, u, rest)
		})(ctx, update)
	default:
		logging.WithContext(ctx, e.logger).Debug("callback verb ignored",
			logging.String("verb", verb))
	}
}

func (e *Engine) handleNavigate(ctx context.Context, principal transport.PrincipalID, origin transport.ChannelID, token string, page int) {
	ctx = services.WithToken(ctx, token)
	err := e.delivery.Navigate(ctx, principal, origin, token, page)
	switch {
	case err == nil:
	case services.Denied(err):
		e.sessions.SetPendingToken(principal, token)
		e.sendJoinPrompt(ctx, origin)
	case errors.Is(err, services.ErrNotFound):
		e.send(ctx, origin, "That share link is invalid or the share was removed.", nil)
	default:
		logging.WithContext(ctx, e.logger).Error("navigation failed", logging.Error(err))
	}
}

// renderShares shows one page of the principal's shares with manage controls.
// A non-zero editMsg refreshes the existing listing message in place.
func (e *Engine) renderShares(ctx context.Context, principal transport.PrincipalID, dest transport.ChannelID, page int, editMsg transport.MessageID) {
	total, err := e.registry.CountByOwner(ctx, principal)
	if err != nil {
		logging.WithContext(ctx, e.logger).Error("share count failed", logging.Error(err))
		e.send(ctx, dest, "Couldn't load your shares right now. Please try again.", nil)
		return
	}
	if total == 0 {
		text := "You have no shares yet. Use /begin to create one."
		if editMsg != 0 {
			e.edit(ctx, dest, editMsg, text, nil)
		} else {
			e.send(ctx, dest, text, nil)
		}
		return
	}

	window := pager.Paginate(total, e.cfg.Retrieval.PageSize, page)
	shares, err := e.registry.ListByOwner(ctx, principal, window.Offset, window.Len)
	if err != nil {
		logging.WithContext(ctx, e.logger).Error("share listing failed", logging.Error(err))
		e.send(ctx, dest, "Couldn't load your shares right now. Please try again.", nil)
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Your shares (%d)", total)
	if window.TotalPages > 1 {
		fmt.Fprintf(&text, " · page %d of %d", window.Page, window.TotalPages)
	}
	var rows []transport.ControlRow
	for i, share := range shares {
		fmt.Fprintf(&text, "\n%d. %s · %d items · %s",
			window.Offset+i+1, share.Token, share.Count(), share.CreatedAt.Format("2006-01-02"))
		rows = append(rows, transport.ControlRow{
			{Label: share.Token, Action: actionInfo + ":" + share.Token},
			{Label: "Delete", Action: actionDelete + ":" + share.Token},
		})
	}
	rows = append(rows, pager.Controls(window.Page, window.TotalPages, actionList, "")...)
	panel := &transport.Panel{Rows: rows}

	if editMsg != 0 {
		e.edit(ctx, dest, editMsg, text.String(), panel)
		return
	}
	e.send(ctx, dest, text.String(), panel)
}

// handleDelete removes a share the principal owns, then best-effort discards
// the vault copies. The registry delete is authoritative either way.
func (e *Engine) handleDelete(ctx context.Context, update transport.Update, token string) {
	ctx = services.WithToken(ctx, token)
	share, err := e.registry.Delete(ctx, token, update.Principal)
	switch {
	case errors.Is(err, services.ErrForbidden):
		e.send(ctx, update.Origin, "Only the owner can delete a share.", nil)
		return
	case errors.Is(err, services.ErrNotFound):
		// Already gone; just refresh the listing.
	case err != nil:
		logging.WithContext(ctx, e.logger).Error("share delete failed", logging.Error(err))
		e.send(ctx, update.Origin, "Couldn't delete that share right now. Please try again.", nil)
		return
	default:
		e.delivery.Forget(token)
		if discardErr := e.transport.Discard(ctx, share.Refs); discardErr != nil && !errors.Is(discardErr, transport.ErrAlreadyGone) {
			logging.WithContext(ctx, e.logger).Warn("vault discard failed",
				logging.Int("items", share.Count()),
				logging.Error(discardErr))
		}
		if notifyErr := e.notifier.NotifyShareDeleted(ctx, token, share.Count()); notifyErr != nil {
			logging.WithContext(ctx, e.logger).Warn("delete notification failed", logging.Error(notifyErr))
		}
		logging.WithContext(ctx, e.logger).Info("share deleted",
			logging.String(logging.FieldToken, token),
			logging.Int("items", share.Count()))
	}

	if update.CallbackMessage != 0 {
		e.renderShares(ctx, update.Principal, update.Origin, 1, update.CallbackMessage)
	}
}

func (e *Engine) handleInfo(ctx context.Context, update transport.Update, token string) {
	share, err := e.registry.GetByToken(ctx, token)
	if err != nil {
		e.send(ctx, update.Origin, "That share no longer exists.", nil)
		return
	}
	link := e.shareLink(share.Token)
	text := fmt.Sprintf("%s\n%d items · created %s\n%s",
		share.Token, share.Count(), share.CreatedAt.Format("2006-01-02 15:04"), link)
	panel := &transport.Panel{Rows: []transport.ControlRow{{
		{Label: "Open share", URL: link},
	}}}
	e.send(ctx, update.Origin, text, panel)
}

func (e *Engine) shareLink(token string) string {
	base := strings.TrimRight(e.cfg.Transport.BotLink, "/")
	return base + "?start=" + token
}

func (e *Engine) edit(ctx context.Context, dest transport.ChannelID, id transport.MessageID, text string, panel *transport.Panel) {
	if err := e.transport.Edit(ctx, dest, id, text, panel); err != nil {
		logging.WithContext(ctx, e.logger).Warn("message edit failed", logging.Error(err))
	}
}

// Shares exposes the registry for the control-plane server.
func (e *Engine) Shares() *registry.Store {
	return e.registry
}

// ForgetShare cleans up after a share deleted outside the chat surface: view
// state is dropped and the vault copies are discarded best-effort.
func (e *Engine) ForgetShare(ctx context.Context, share *registry.Share) {
	e.delivery.Forget(share.Token)
	if err := e.transport.Discard(ctx, share.Refs); err != nil && !errors.Is(err, transport.ErrAlreadyGone) {
		logging.WithContext(ctx, e.logger).Warn("vault discard failed",
			logging.String(logging.FieldToken, share.Token),
			logging.Error(err))
	}
}
