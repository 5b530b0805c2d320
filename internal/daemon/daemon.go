package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"courier/internal/config"
	"courier/internal/engine"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/registry"
	"courier/internal/transport"
)

// Daemon runs the dispatcher loop and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *registry.Store
	engine   *engine.Engine
	source   transport.UpdateSource
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	RegistryPath string
	Shares       registry.Stats
	Healthy      bool
	HealthDetail string
}

// New constructs a daemon with initialized dependencies. A nil source leaves
// the dispatcher idle behind the unbound transport; the control socket and
// registry stay fully operational.
func New(cfg *config.Config, store *registry.Store, eng *engine.Engine, source transport.UpdateSource, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}
	if source == nil {
		source = transport.Unbound{}
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "courierd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   eng,
		source:   source,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "courier.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the dispatcher loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another courier daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.group, _ = errgroup.WithContext(d.ctx)
	runCtx := d.ctx
	d.group.Go(func() error {
		return d.engine.Run(runCtx, d.source)
	})

	d.running.Store(true)
	d.logger.Info("courier daemon started", logging.String("lock", d.lockPath))
	if err := d.notifier.NotifyDaemonStarted(d.ctx); err != nil {
		d.logger.Warn("startup notification failed", logging.Error(err))
	}
	return nil
}

// Stop stops the dispatcher loop and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.group != nil {
		if err := d.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("dispatcher loop exited with error", logging.Error(err))
		}
		d.group = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("courier daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the dispatcher loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status snapshots runtime and registry health.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		RegistryPath: d.store.Path(),
		Healthy:      true,
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Shares = stats
	} else {
		status.Healthy = false
		status.HealthDetail = err.Error()
	}
	if err := d.store.CheckHealth(ctx); err != nil {
		status.Healthy = false
		status.HealthDetail = err.Error()
	}
	return status
}

// ListShares returns shares for the control socket, all owners when owner is
// zero.
func (d *Daemon) ListShares(ctx context.Context, owner transport.PrincipalID, offset, limit int) ([]*registry.Share, error) {
	if limit <= 0 {
		limit = 50
	}
	if owner != 0 {
		return d.store.ListByOwner(ctx, owner, offset, limit)
	}
	return d.store.List(ctx, offset, limit)
}

// DeleteShare removes a share on the operator's authority and best-effort
// discards its vault items through the engine's transport.
func (d *Daemon) DeleteShare(ctx context.Context, token string) (int, error) {
	share, err := d.store.Remove(ctx, token)
	if err != nil {
		return 0, err
	}
	d.engine.ForgetShare(ctx, share)
	d.logger.Info("share removed via control socket",
		logging.String(logging.FieldToken, token),
		logging.Int("items", share.Count()))
	return share.Count(), nil
}

// TestNotification sends a test push through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), nil
	}
	return true, "test notification sent", nil
}
