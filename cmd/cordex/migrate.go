// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/clarinsi/cordex/internal/config"
	"github.com/clarinsi/cordex/internal/store"
)

// NewMigrateCmd creates the migrate subcommand, which brings the store's
// schema up to date and exits.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Apply every pending migration against the PostgreSQL database named in the configuration.`,
		RunE:  runMigrate,
	}
	cmd.Flags().String("store-dsn", "", "PostgreSQL connection string (overrides the config file)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadMigrateConfig(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	cmd.Println("Connecting to store...")
	migrator, err := store.NewMigrator(cfg.StoreDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer migrator.Close()

	cmd.Println("Applying migrations...")
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	version, _, err := migrator.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Wrapf(err, "reading resulting schema version")
	}
	cmd.Printf("Migrations applied, schema is now at version %d\n", version)
	return nil
}

// loadMigrateConfig loads just enough of the configuration for migrate:
// a store DSN, without the corpus/structures validation a full run needs.
func loadMigrateConfig(path string, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadStoreOnly(path, flags)
	if err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	return cfg, nil
}
