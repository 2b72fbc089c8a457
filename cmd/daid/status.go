// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moushegh/daid/internal/config"
	"github.com/moushegh/daid/internal/world"
)

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
	dataDir    string
}

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	defaults := config.Default()
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of persisted worlds",
		Long:  `Show the status, result, and progress of every world in the data directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().StringVar(&cfg.dataDir, "data-dir", defaults.Data.Dir, "world data directory")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	persister, err := world.NewFilePersister(cfg.dataDir)
	if err != nil {
		return err
	}
	store, err := world.NewStore(persister)
	if err != nil {
		return err
	}

	ids := store.IDs()
	summaries := make([]world.Summary, 0, len(ids))
	for _, id := range ids {
		summary, err := store.Summary(cmd.Context(), id)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}

	if cfg.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		cmd.Println("no worlds found in", cfg.dataDir)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "WORLD\tSTATUS\tRESULT\tSCENE\tROUND\tNEXT\tVERSION\tEVENTS\tPARTY\tENEMIES")
	for _, s := range summaries {
		result := string(s.Result)
		if result == "" {
			result = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%d\t%d\t%d/%d\t%d/%d\n",
			s.ID, s.Status, result, s.SceneID, s.Round, s.NextActor,
			s.Version, s.EventCount,
			s.PartyAlive, s.PartyTotal, s.EnemiesAlive, s.EnemiesTotal)
	}
	return w.Flush()
}
