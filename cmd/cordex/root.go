// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package main

import (
	"github.com/spf13/cobra"
)

// configFile is the global --config flag shared by every subcommand.
var configFile string

// NewRootCmd builds the cordex CLI's root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cordex",
		Short: "Cordex extracts syntactic collocations from dependency-parsed corpora",
		Long: `Cordex matches syntactic structure patterns against a dependency-parsed
corpus, aggregates the matches into collocations, and writes a tabular
report of their frequency and association statistics.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML configuration file")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewValidateStructuresCmd())

	return cmd
}
