// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the daid CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daid",
		Short: "daid - a multi-actor D&D session coordinator",
		Long: `daid coordinates multi-actor D&D game sessions: a versioned world
store, a turn scheduler with stall detection, a tool gateway, and a
deterministic combat resolver.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSchemaCmd())

	return cmd
}
