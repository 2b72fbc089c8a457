// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package config loads and validates coordinator configuration. Values are
// layered: built-in defaults, then the YAML config file, then command-line
// flags.
package config

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/moushegh/daid/internal/scheduler"
	"github.com/moushegh/daid/internal/xdg"
)

// SchemaVersion is the config schema this build writes and understands.
const SchemaVersion = "1.0.0"

// schemaConstraint is the range of schema versions this build accepts.
const schemaConstraint = "^1"

// Log controls log output.
type Log struct {
	Format string `koanf:"format"`
}

// Data locates on-disk state.
type Data struct {
	Dir string `koanf:"dir"`
}

// Metrics configures the observability server.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Session configures the turn scheduler for one game.
type Session struct {
	WorldID          string   `koanf:"world_id"`
	Narrator         string   `koanf:"narrator"`
	Actors           []string `koanf:"actors"`
	MaxSteps         int      `koanf:"max_steps"`
	SceneRoundFactor int      `koanf:"scene_round_factor"`
	NudgeWindow      int      `koanf:"nudge_window"`
}

// MCPEndpoint names one external tool server. Exactly one of Command and
// URL must be set: Command spawns a stdio server, URL dials a streamable
// HTTP one. Tools lists the remote tool names routed to this endpoint.
type MCPEndpoint struct {
	Name    string   `koanf:"name"`
	Command []string `koanf:"command"`
	URL     string   `koanf:"url"`
	Tools   []string `koanf:"tools"`
}

// Endpoints lists external transports to attach to the gateway.
type Endpoints struct {
	MCP []MCPEndpoint `koanf:"mcp"`
}

// Config is the full coordinator configuration.
type Config struct {
	SchemaVersion string    `koanf:"schema_version"`
	Log           Log       `koanf:"log"`
	Data          Data      `koanf:"data"`
	Metrics       Metrics   `koanf:"metrics"`
	Session       Session   `koanf:"session"`
	Endpoints     Endpoints `koanf:"endpoints"`
	// ACL maps a caller name to the tool glob patterns it may invoke.
	// Empty means every caller may invoke every tool.
	ACL map[string][]string `koanf:"acl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SchemaVersion: SchemaVersion,
		Log:           Log{Format: "json"},
		Data:          Data{Dir: xdg.WorldsDir()},
		Metrics:       Metrics{Addr: "127.0.0.1:9100"},
		Session: Session{
			WorldID:          "",
			Narrator:         "DungeonMaster",
			Actors:           []string{"DungeonMaster", "Thorin", "Elara", "Shadow", "Aldric"},
			MaxSteps:         scheduler.DefaultMaxSteps,
			SceneRoundFactor: scheduler.DefaultSceneRoundFactor,
			NudgeWindow:      scheduler.DefaultNudgeWindow,
		},
	}
}

// Load layers the YAML file at path (skipped when empty) and the given
// flag set (skipped when nil) over the defaults, then validates. Flag
// names map to config keys with dashes as delimiters: --log-format sets
// log.format.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("config_load").With("path", path).Wrapf(err, "loading config file")
		}
	}
	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k,
			func(key string, value string) (string, any) {
				return strings.ReplaceAll(key, "-", "."), value
			})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("config_load").Wrapf(err, "loading flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("config_load").Wrapf(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values and the schema version gate.
func (c Config) Validate() error {
	if err := c.checkSchemaVersion(); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("config_invalid").With("log_format", c.Log.Format).
			Errorf("log format must be json or text")
	}
	if c.Session.Narrator == "" {
		return oops.Code("config_invalid").Errorf("session narrator is required")
	}
	narratorListed := false
	for _, a := range c.Session.Actors {
		if a == c.Session.Narrator {
			narratorListed = true
			break
		}
	}
	if !narratorListed {
		return oops.Code("config_invalid").With("narrator", c.Session.Narrator).
			Errorf("narrator must appear in the actor rotation")
	}
	if c.Session.MaxSteps <= 0 {
		return oops.Code("config_invalid").Errorf("session max_steps must be positive")
	}
	for caller, patterns := range c.ACL {
		for _, p := range patterns {
			if _, err := glob.Compile(p); err != nil {
				return oops.Code("config_invalid").With("caller", caller).With("pattern", p).
					Wrapf(err, "invalid ACL pattern")
			}
		}
	}
	for _, ep := range c.Endpoints.MCP {
		if ep.Name == "" {
			return oops.Code("config_invalid").Errorf("mcp endpoint name is required")
		}
		if (len(ep.Command) == 0) == (ep.URL == "") {
			return oops.Code("config_invalid").With("endpoint", ep.Name).
				Errorf("mcp endpoint needs exactly one of command and url")
		}
	}
	return nil
}

// checkSchemaVersion gates files written by incompatible builds.
func (c Config) checkSchemaVersion() error {
	if c.SchemaVersion == "" {
		return oops.Code("config_invalid").Errorf("schema_version is required")
	}
	v, err := semver.NewVersion(c.SchemaVersion)
	if err != nil {
		return oops.Code("config_invalid").With("schema_version", c.SchemaVersion).
			Wrapf(err, "parsing schema_version")
	}
	constraint, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return oops.Wrapf(err, "parsing schema constraint")
	}
	if !constraint.Check(v) {
		return oops.Code("config_incompatible").
			With("schema_version", c.SchemaVersion).
			With("supported", schemaConstraint).
			Errorf("config schema version not supported by this build")
	}
	return nil
}
