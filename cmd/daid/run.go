// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/moushegh/daid/internal/combat"
	"github.com/moushegh/daid/internal/config"
	"github.com/moushegh/daid/internal/logging"
	"github.com/moushegh/daid/internal/observability"
	"github.com/moushegh/daid/internal/scheduler"
	"github.com/moushegh/daid/internal/tool"
	"github.com/moushegh/daid/internal/world"
)

// runConfig holds flags the config file cannot express.
type runConfig struct {
	worldID string
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	defaults := config.Default()
	rc := &runConfig{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one game session to completion",
		Long: `Run one game session: bootstrap or resume a world, rotate the cast,
execute tool calls through the gateway, and stop on a terminal result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDeps(cmd.Context(), rc, cmd, nil)
		},
	}

	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("data-dir", defaults.Data.Dir, "world data directory")
	cmd.Flags().StringVar(&rc.worldID, "world", "", "world id (default: session.world_id from config, else a new ULID)")

	return cmd
}

// runWithDeps starts a session with injectable dependencies. If deps is
// nil, default implementations are used.
func runWithDeps(ctx context.Context, rc *runConfig, cmd *cobra.Command, deps *RunDeps) error {
	if deps == nil {
		deps = &RunDeps{}
	}
	if deps.PersisterFactory == nil {
		deps.PersisterFactory = func(dir string) (world.Persister, error) {
			return world.NewFilePersister(dir)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, rc observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, rc)
		}
	}
	if deps.ActorFactory == nil {
		deps.ActorFactory = newConsoleCast
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("daid", version, cfg.Log.Format)

	worldID := cfg.Session.WorldID
	if rc.worldID != "" {
		worldID = rc.worldID
	}
	if worldID == "" {
		worldID = strings.ToLower(ulid.Make().String())
	}

	slog.Info("starting session",
		"world_id", worldID,
		"data_dir", cfg.Data.Dir,
		"narrator", cfg.Session.Narrator,
	)

	var ready atomic.Bool
	var obs ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obs = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		obsErrCh, err := obs.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go func() {
			for serveErr := range obsErrCh {
				slog.Error("observability server failed", "error", serveErr)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
	}

	persister, err := deps.PersisterFactory(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	storeOpts := []world.StoreOption{}
	if obs != nil {
		storeOpts = append(storeOpts, world.WithMetrics(world.NewMetrics(obs.Registry())))
	}
	store, err := world.NewStore(persister, storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to load worlds: %w", err)
	}

	reconciled, err := store.Reconcile(ctx, "startup")
	if err != nil {
		return fmt.Errorf("failed to reconcile stale worlds: %w", err)
	}
	if reconciled > 0 {
		slog.Warn("reconciled stale worlds from a previous run", "count", reconciled)
	}

	gateway, err := buildGateway(cfg, worldID, store, obs)
	if err != nil {
		return err
	}
	defer func() { _ = gateway.Close() }()

	hook := scheduler.NewHook(store,
		scheduler.WithSceneRoundFactor(cfg.Session.SceneRoundFactor),
		scheduler.WithNudgeWindow(cfg.Session.NudgeWindow),
	)

	schedCfg := scheduler.Config{
		Narrator: cfg.Session.Narrator,
		Actors:   cfg.Session.Actors,
	}
	actors := deps.ActorFactory(cfg.Session.Actors, cmd.InOrStdin(), cmd.OutOrStdout())
	sess, err := scheduler.NewSession(schedCfg, worldID, store, gateway, hook, actors,
		scheduler.WithMaxSteps(cfg.Session.MaxSteps))
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ready.Store(true)
	result, runErr := sess.Run(runCtx)
	ready.Store(false)

	if obs != nil {
		obs.Metrics().SessionsTotal.WithLabelValues(string(result)).Inc()
		obs.Metrics().TranscriptMessages.Observe(float64(len(sess.Transcript())))
	}

	if runErr != nil {
		slog.Error("session aborted", "world_id", worldID, "result", result, "error", runErr)
		return runErr
	}

	cmd.Printf("session complete: %s (world %s)\n", result, worldID)
	return nil
}

// buildGateway wires the built-in endpoints, any configured MCP servers,
// and the caller ACL into one gateway.
func buildGateway(cfg config.Config, worldID string, store *world.Store, obs ObservabilityServer) (*tool.Gateway, error) {
	reg := tool.NewRegistry()

	state := tool.NewLocalTransport(tool.EndpointState)
	tool.RegisterStateTools(reg, state, store)
	engine := tool.NewLocalTransport(tool.EndpointCombat)
	tool.RegisterCombatTools(reg, engine, combat.NewRoller(rand.NewSource(time.Now().UnixNano())))
	script := tool.NewScriptTransport(tool.EndpointScript)
	tool.RegisterScriptTools(reg, script)

	transports := []tool.Transport{state, engine, script}
	for _, ep := range cfg.Endpoints.MCP {
		var tr tool.Transport
		if len(ep.Command) > 0 {
			command := ep.Command
			tr = tool.NewMCPCommandTransport(ep.Name, version, func() *exec.Cmd {
				return exec.Command(command[0], command[1:]...)
			})
		} else {
			tr = tool.NewMCPHTTPTransport(ep.Name, version, ep.URL)
		}
		transports = append(transports, tr)
		for _, name := range ep.Tools {
			reg.Register(&tool.Descriptor{
				Name:        name,
				Description: "remote tool on " + ep.Name,
				Endpoint:    ep.Name,
			})
		}
	}

	opts := []tool.GatewayOption{}
	if obs != nil {
		opts = append(opts, tool.WithGatewayMetrics(tool.NewMetrics(obs.Registry())))
	}

	gateway := tool.NewGateway(reg, tool.Sanitizer{DefaultGameID: worldID}, transports, opts...)
	for caller, patterns := range cfg.ACL {
		if err := gateway.Allow(caller, patterns...); err != nil {
			_ = gateway.Close()
			return nil, err
		}
	}
	return gateway, nil
}
