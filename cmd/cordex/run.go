// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/clarinsi/cordex/internal/config"
	"github.com/clarinsi/cordex/internal/logging"
	"github.com/clarinsi/cordex/internal/lookup"
	"github.com/clarinsi/cordex/internal/observability"
	"github.com/clarinsi/cordex/internal/pipeline"
	"github.com/clarinsi/cordex/internal/represent"
	"github.com/clarinsi/cordex/internal/store"
	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
	"github.com/clarinsi/cordex/internal/writer"
	"github.com/clarinsi/cordex/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// shutdownTimeout bounds how long the observability server gets to drain
// in-flight scrape requests once a run finishes or is interrupted.
const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run subcommand: a full ingest-and-extract pass
// against the corpus and structures named in the configuration.
func NewRunCmd() *cobra.Command {
	var cfg config.Config
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract collocations from a dependency-parsed corpus",
		Long: `Run ingests every corpus file, matches it against the structure
library, and writes a tabular report of the matched collocations and
their association statistics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd)
		},
	}

	cmd.Flags().StringSliceVar(&cfg.Corpus, "corpus", nil, "dependency-parsed corpus file(s) to ingest")
	cmd.Flags().StringVar(&cfg.Structures, "structures", "", "path to the structure definitions file")
	cmd.Flags().StringVar(&cfg.StoreDSN, "store-dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&cfg.Flavour, "flavour", "", "tag flavour: \"compact\" or \"featural\"")
	cmd.Flags().StringVar(&cfg.JOSMSDLang, "jos-msd-lang", "", "JOS morphosyntactic tag language (compact flavour only)")
	cmd.Flags().StringVar(&cfg.JOSDepparseLang, "jos-depparse-lang", "", "JOS dependency-label language (compact flavour only)")
	cmd.Flags().Int64Var(&cfg.MinFreq, "min-freq", 0, "minimum collocation frequency to report")
	cmd.Flags().Float64Var(&cfg.LowercaseCollapseThreshold, "lowercase-collapse-threshold", 0, "fraction of lowercase forms required to collapse a candidate")
	cmd.Flags().BoolVar(&cfg.FixedRestrictionOrder, "fixed-restriction-order", false, "reject matches whose component indices do not follow sentence order")
	cmd.Flags().StringVar(&cfg.BackendMode, "backend-mode", "", "lookup backend: \"none\", \"file\", or \"http\"")
	cmd.Flags().StringVar(&cfg.BackendFile, "backend-file", "", "path to a file-mode lookup backend table")
	cmd.Flags().StringVar(&cfg.BackendURL, "backend-url", "", "base URL of an http-mode lookup backend")
	cmd.Flags().BoolVar(&cfg.Statistics, "statistics", true, "compute association statistics alongside frequency")
	cmd.Flags().StringVar(&cfg.Out, "out", "", "output file path, or output directory when --split-output is set")
	cmd.Flags().BoolVar(&cfg.SplitOutput, "split-output", false, "write one output file per structure instead of one combined file")
	cmd.Flags().StringVar(&cfg.SentenceMap, "sentence-map", "", "optional path for the collocation/sentence/token-id mapping file")
	cmd.Flags().StringVar(&cfg.FieldSep, "field-separator", "", "output field separator")
	cmd.Flags().StringVar(&cfg.DecimalSep, "decimal-separator", "", "output decimal separator")
	cmd.Flags().StringVar(&cfg.ObservabilityAddr, "observability-addr", "", "address for the /metrics and /healthz endpoints")

	return cmd
}

func runPipeline(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.Setup("cordex", version, "json", nil)

	flavour, err := cfg.TokenFlavour()
	if err != nil {
		return err
	}
	// Compact (JOS) tag sets are hardcoded morphosyntactic tables never
	// present in the retrieved corpus; rather than fabricate one, compact
	// runs are rejected until a real JOS table is sourced.
	if flavour == token.Compact {
		return oops.Code("FLAVOUR_UNSUPPORTED").
			Errorf("compact (JOS) flavour requires a morphosyntactic tag table that is not yet available; use flavour: featural")
	}

	library, err := structure.LoadFile(cfg.Structures, nil)
	if err != nil {
		return oops.Code("STRUCTURE_LOAD_FAILED").With("path", cfg.Structures).Wrap(err)
	}

	obsServer := observability.NewServer(cfg.ObservabilityAddr, func() bool { return true })
	go func() {
		if err := obsServer.Start(); err != nil {
			errutil.LogError(logger, "observability server stopped", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = obsServer.Stop(ctx)
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	pool, err := pgxpool.New(ctx, cfg.StoreDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()
	db := store.NewStore(pool)

	backend, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	driver := pipeline.New(pipeline.Config{
		Store:                      db,
		Library:                    library,
		Flavour:                    flavour,
		Lang:                       cfg.JOSMSDLang,
		FixedRestrictionOrder:      cfg.FixedRestrictionOrder,
		Backend:                    backend,
		MinFreq:                    cfg.MinFreq,
		StatisticsEnabled:          cfg.Statistics,
		LowercaseCollapseThreshold: cfg.LowercaseCollapseThreshold,
		Metrics:                    obsServer.Metrics(),
		Logger:                     logger,
	})

	cmd.Println("Ingesting corpus...")
	if err := driver.IngestFiles(ctx, cfg.Corpus); err != nil {
		return err
	}

	out, err := buildOutputConfig(cfg)
	if err != nil {
		return err
	}

	cmd.Println("Computing statistics and writing output...")
	if err := driver.Finalize(ctx, out); err != nil {
		return err
	}
	if out.Mapper != nil {
		if err := out.Mapper.Close(); err != nil {
			return oops.Code("PIPELINE_WRITE_FAILED").Wrapf(err, "closing sentence map")
		}
	}

	cmd.Println("Done.")
	return nil
}

func buildBackend(cfg *config.Config) (represent.Backend, error) {
	switch cfg.BackendMode {
	case "none", "":
		return nil, nil
	case "file":
		return lookup.LoadFileBackend(cfg.BackendFile)
	case "http":
		schema, err := lookup.BuildResponseSchema()
		if err != nil {
			return nil, oops.Code("LOOKUP_SCHEMA_FAILED").Wrap(err)
		}
		return lookup.NewHTTPBackend(cfg.BackendURL, nil, schema), nil
	default:
		return nil, oops.Code("CONFIG_INCONSISTENT").With("backend_mode", cfg.BackendMode).
			Errorf("unknown backend_mode %q", cfg.BackendMode)
	}
}

func buildOutputConfig(cfg *config.Config) (pipeline.OutputConfig, error) {
	var sink writer.Sink
	var err error
	if cfg.SplitOutput {
		sink = writer.NewSplitSink(cfg.Out, ".tsv", cfg.FieldSep)
	} else {
		sink, err = writer.NewSingleFileSink(cfg.Out, cfg.FieldSep)
		if err != nil {
			return pipeline.OutputConfig{}, oops.Code("PIPELINE_WRITE_FAILED").Wrap(err)
		}
	}

	var mapper *writer.SentenceMapper
	if cfg.SentenceMap != "" {
		mapper, err = writer.NewSentenceMapper(cfg.SentenceMap)
		if err != nil {
			return pipeline.OutputConfig{}, oops.Code("PIPELINE_WRITE_FAILED").Wrap(err)
		}
	}

	return pipeline.OutputConfig{Sink: sink, Mapper: mapper, DecimalSeparator: cfg.DecimalSep}, nil
}
