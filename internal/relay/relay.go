// Package relay moves accepted items from their origin into the vault,
// producing stable refs the share registry can persist.
package relay

import (
	"context"
	"log/slog"

	"courier/internal/logging"
	"courier/internal/services"
	"courier/internal/transport"
)

// Pipeline copies item batches into the vault channel. Output order always
// matches input order; page rendering depends on it.
type Pipeline struct {
	transport transport.Transport
	logger    *slog.Logger
}

// NewPipeline constructs a relay pipeline over the given transport.
func NewPipeline(tr transport.Transport, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		transport: tr,
		logger:    logging.NewComponentLogger(logger, "relay"),
	}
}

// Relay copies handles from the origin channel into the vault and returns
// durable refs in input order. Failures are wrapped as ErrRelay; the caller
// drops the batch from the session and notifies the sender once.
func (p *Pipeline) Relay(ctx context.Context, origin transport.ChannelID, handles []transport.ItemHandle) ([]transport.ItemRef, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	refs, err := p.transport.Relay(ctx, origin, handles)
	if err != nil {
		return nil, services.Wrap(services.ErrRelay, "relay", "copy", "vault copy failed", err)
	}
	if len(refs) != len(handles) {
		logging.WithContext(ctx, p.logger).Error("transport returned mismatched refs",
			logging.Int("handles", len(handles)),
			logging.Int("refs", len(refs)))
		return nil, services.Wrap(services.ErrRelay, "relay", "copy", "transport returned mismatched ref count", nil)
	}

	logging.WithContext(ctx, p.logger).Debug("batch relayed", logging.Int("items", len(refs)))
	return refs, nil
}
