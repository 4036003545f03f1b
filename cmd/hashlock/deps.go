// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/hashlock/hashlock/internal/config"
	"github.com/hashlock/hashlock/internal/observability"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenBackend opens the repositories for a configuration.
	// Default: openBackend
	OpenBackend func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr, version string, registrars []observability.Registrar, opts ...observability.Option) ObservabilityServer

	// Listen opens the gateway listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)

	// OnReady is called with the gateway address once it accepts requests.
	OnReady func(addr string)
}

// ObservabilityServer wraps the methods serve uses from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.OpenBackend == nil {
		out.OpenBackend = openBackend
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr, version string, registrars []observability.Registrar, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, version, registrars, opts...)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	if out.OnReady == nil {
		out.OnReady = func(string) {}
	}
	return &out
}
