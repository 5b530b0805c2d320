package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTransport()
	c.normalizeGate()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTransport() {
	c.Transport.BotLink = strings.TrimSpace(c.Transport.BotLink)
	if c.Transport.RequestTimeout <= 0 {
		c.Transport.RequestTimeout = defaultTransportTimeout
	}
}

func (c *Config) normalizeGate() {
	c.Gate.InviteLink = strings.TrimSpace(c.Gate.InviteLink)
	if c.Gate.CacheSize <= 0 {
		c.Gate.CacheSize = defaultGateCacheSize
	}
	if c.Gate.CacheTTLSeconds < 0 {
		c.Gate.CacheTTLSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
