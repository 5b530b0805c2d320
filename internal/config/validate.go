package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateUploads(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransport() error {
	if c.Transport.VaultChannel == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/courier/config.toml"
		}
		return fmt.Errorf("transport.vault_channel is required. Edit %s (create with 'courier config init')", defaultPath)
	}
	if c.Transport.RequestTimeout <= 0 {
		return errors.New("transport.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateGate() error {
	if c.Gate.RequiredGroup == 0 {
		return errors.New("gate.required_group must be set")
	}
	return nil
}

func (c *Config) validateUploads() error {
	if c.Uploads.GroupDebounceSeconds <= 0 {
		return errors.New("uploads.group_debounce_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.PageSize <= 0 {
		return errors.New("retrieval.page_size must be positive")
	}
	if c.Retrieval.SettleSeconds < 0 {
		return errors.New("retrieval.settle_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.MaxConnections <= 0 {
		return errors.New("storage.max_connections must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
