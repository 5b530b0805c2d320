package main

import (
	"context"
	"time"

	"log/slog"

	"courier/internal/config"
	"courier/internal/gate"
	"courier/internal/transport"
)

// Bindings for the messaging transport and the membership gate live outside
// this repository. A linked-in binding assigns these factories from its own
// init; without one the daemon runs unbound: the control socket and registry
// stay usable while every messaging call fails loudly and the gate denies.
var (
	transportFactory func(*config.Config, *slog.Logger) (transport.Transport, transport.UpdateSource)
	gateFactory      func(*config.Config, *slog.Logger) gate.Gate
)

func buildTransport(cfg *config.Config, logger *slog.Logger) (transport.Transport, transport.UpdateSource) {
	if transportFactory != nil {
		return transportFactory(cfg, logger)
	}
	logger.Warn("no transport binding linked in, running unbound")
	return transport.Unbound{}, transport.Unbound{}
}

func buildGate(cfg *config.Config, logger *slog.Logger) gate.Gate {
	var inner gate.Gate
	if gateFactory != nil {
		inner = gateFactory(cfg, logger)
	} else {
		logger.Warn("no membership gate linked in, denying all principals")
		inner = gate.Func(func(context.Context, transport.PrincipalID) (bool, error) {
			return false, nil
		})
	}
	ttl := time.Duration(cfg.Gate.CacheTTLSeconds) * time.Second
	return gate.NewCached(inner, cfg.Gate.CacheSize, ttl)
}
