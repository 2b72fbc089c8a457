// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/moushegh/daid/internal/combat"
	"github.com/moushegh/daid/internal/tool"
	"github.com/moushegh/daid/internal/world"
)

// newSchemaCmd creates the schema subcommand.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [tool...]",
		Short: "Print the JSON schema of built-in tools",
		Long: `Print the argument JSON schema of the named built-in tools, or of
every built-in tool when none are named.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args)
		},
	}
}

// builtinRegistry assembles a registry holding every built-in tool,
// backed by a throwaway in-memory store.
func builtinRegistry() (*tool.Registry, error) {
	store, err := world.NewStore(world.NewMemoryPersister())
	if err != nil {
		return nil, err
	}

	reg := tool.NewRegistry()
	state := tool.NewLocalTransport(tool.EndpointState)
	tool.RegisterStateTools(reg, state, store)
	engine := tool.NewLocalTransport(tool.EndpointCombat)
	tool.RegisterCombatTools(reg, engine, combat.NewRoller(rand.NewSource(1)))
	script := tool.NewScriptTransport(tool.EndpointScript)
	tool.RegisterScriptTools(reg, script)
	return reg, nil
}

// runSchema executes the schema command.
func runSchema(cmd *cobra.Command, args []string) error {
	reg, err := builtinRegistry()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = reg.Names()
	}

	for _, name := range names {
		d, ok := reg.Get(name)
		if !ok {
			return fmt.Errorf("unknown tool %q", name)
		}
		schema, err := d.SchemaJSON()
		if err != nil {
			return fmt.Errorf("schema for %q: %w", name, err)
		}
		cmd.Printf("// %s (%s)\n%s\n", d.Name, d.Endpoint, schema)
	}
	return nil
}
