package testsupport

import (
	"path/filepath"
	"testing"

	"courier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Transport.VaultChannel = -100200300
	cfg.Transport.BotLink = "https://t.me/courier_test_bot"
	cfg.Gate.RequiredGroup = -100900900
	// Tests drive timing explicitly; keep built-in waits out of the way.
	cfg.Uploads.GroupDebounceSeconds = 0
	cfg.Retrieval.SettleSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithPageSize overrides the retrieval page size on the test config.
func WithPageSize(size int) ConfigOption {
	return func(c *config.Config) {
		c.Retrieval.PageSize = size
	}
}

// WithInviteLink sets the gate invite link on the test config.
func WithInviteLink(link string) ConfigOption {
	return func(c *config.Config) {
		c.Gate.InviteLink = link
	}
}
