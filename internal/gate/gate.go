package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"courier/internal/logging"
	"courier/internal/services"
	"courier/internal/transport"
)

// Gate answers whether a principal is authorized to use the relay. The check
// may perform network I/O and may fail.
type Gate interface {
	Authorized(ctx context.Context, principal transport.PrincipalID) (bool, error)
}

// Func adapts a function to the Gate interface.
type Func func(ctx context.Context, principal transport.PrincipalID) (bool, error)

func (f Func) Authorized(ctx context.Context, principal transport.PrincipalID) (bool, error) {
	return f(ctx, principal)
}

// Allowed applies the fail-closed policy: a gate failure reads as "not
// authorized" and is logged, never surfaced as an open door.
func Allowed(ctx context.Context, g Gate, principal transport.PrincipalID, logger *slog.Logger) bool {
	if g == nil {
		return false
	}
	ok, err := g.Authorized(ctx, principal)
	if err != nil {
		wrapped := services.Wrap(services.ErrGate, "gate", "authorized", "membership check failed", err)
		logging.WithContext(ctx, logger).Warn("gate check failed, denying",
			logging.Int64(logging.FieldPrincipal, int64(principal)),
			logging.Error(wrapped))
		return false
	}
	return ok
}

// Cached wraps a gate with a TTL cache over positive decisions so bursty page
// navigation does not hammer the collaborator. Denials are never cached: a
// principal who just joined must pass on their next attempt.
type Cached struct {
	inner Gate
	cache *expirable.LRU[transport.PrincipalID, struct{}]
}

// NewCached builds a caching gate. Size bounds the number of remembered
// principals; ttl bounds how long a positive decision is trusted.
func NewCached(inner Gate, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		inner: inner,
		cache: expirable.NewLRU[transport.PrincipalID, struct{}](size, nil, ttl),
	}
}

func (c *Cached) Authorized(ctx context.Context, principal transport.PrincipalID) (bool, error) {
	if _, ok := c.cache.Get(principal); ok {
		return true, nil
	}
	ok, err := c.inner.Authorized(ctx, principal)
	if err != nil {
		return false, err
	}
	if ok {
		c.cache.Add(principal, struct{}{})
	}
	return ok, nil
}

// Forget drops a cached decision, used when access is revoked out of band.
func (c *Cached) Forget(principal transport.PrincipalID) {
	c.cache.Remove(principal)
}
