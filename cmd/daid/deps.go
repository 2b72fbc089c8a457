// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moushegh/daid/internal/observability"
	"github.com/moushegh/daid/internal/scheduler"
	"github.com/moushegh/daid/internal/world"
)

// RunDeps contains injectable dependencies for the run command.
// All fields with nil values will use their default implementations.
type RunDeps struct {
	// PersisterFactory creates the world persister rooted at the data dir.
	// Default: world.NewFilePersister
	PersisterFactory func(dir string) (world.Persister, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ActorFactory builds the cast for the session.
	// Default: console actors reading turns from stdin
	ActorFactory func(names []string, in io.Reader, out io.Writer) []scheduler.Actor
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registry() prometheus.Registerer
}
