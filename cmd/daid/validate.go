// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moushegh/daid/internal/config"
)

// newValidateCmd creates the validate subcommand.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the built-in tool schemas",
		Long: `Validate the config file (or the defaults when none is given) and
check that every built-in tool descriptor compiles to a usable JSON schema.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

// runValidate executes the validate command.
func runValidate(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if configFile == "" {
		cmd.Println("config: built-in defaults ok")
	} else {
		cmd.Printf("config: %s ok (schema %s)\n", configFile, cfg.SchemaVersion)
	}

	reg, err := builtinRegistry()
	if err != nil {
		return err
	}

	for _, name := range reg.Names() {
		d, ok := reg.Get(name)
		if !ok {
			return fmt.Errorf("tool %q vanished from the registry", name)
		}
		if _, err := d.SchemaJSON(); err != nil {
			return fmt.Errorf("tool %q has an invalid schema: %w", name, err)
		}
	}
	cmd.Printf("tools: %d schemas ok\n", len(reg.Names()))
	return nil
}
