// Package config loads, validates, and normalizes courier's TOML
// configuration.
//
// Configuration resolves from an explicit path, ~/.config/courier/config.toml,
// or ./courier.toml, in that order, with repository defaults filling any gaps.
// Path fields are tilde-expanded and made absolute before use so downstream
// packages never touch the filesystem layout logic.
package config
