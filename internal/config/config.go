// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package config loads and validates cordex's run configuration: a YAML
// file layered under CLI flag overrides, via koanf.
//
// The teacher repo declares the full koanf stack
// (knadh/koanf/v2 + providers/file + providers/posflag +
// parsers/yaml) in its go.mod but never wires it into its own cmd/; this
// package is where cordex actually does, following the same
// file-then-flags layering the teacher's dependency choice implies.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/clarinsi/cordex/internal/token"
)

// Config is cordex's full run configuration, assembled from defaults, an
// optional YAML file, and CLI flag overrides, in that layering order.
type Config struct {
	Corpus     []string `koanf:"corpus"`
	Structures string   `koanf:"structures"`

	StoreDSN string `koanf:"store_dsn"`

	Flavour         string `koanf:"flavour"` // "compact" or "featural"
	JOSMSDLang      string `koanf:"jos_msd_lang"`
	JOSDepparseLang string `koanf:"jos_depparse_lang"`

	MinFreq                    int64   `koanf:"min_freq"`
	LowercaseCollapseThreshold float64 `koanf:"lowercase_collapse_threshold"`
	FixedRestrictionOrder      bool    `koanf:"fixed_restriction_order"`

	BackendMode string `koanf:"backend_mode"` // "none", "file", "http"
	BackendFile string `koanf:"backend_file"`
	BackendURL  string `koanf:"backend_url"`

	Statistics   bool   `koanf:"statistics"`
	Out          string `koanf:"out"`
	SplitOutput  bool   `koanf:"split_output"`
	SentenceMap  string `koanf:"sentence_map"`
	FieldSep     string `koanf:"field_separator"`
	DecimalSep   string `koanf:"decimal_separator"`
	SortBy       string `koanf:"sort_by"`
	SortReversed bool   `koanf:"sort_reversed"`

	ObservabilityAddr string `koanf:"observability_addr"`
}

// defaultConfig is the baseline every layer (YAML file, then CLI flags)
// overrides on top of. mapstructure-based Unmarshal only touches struct
// fields present in the loaded layers, so starting from these values and
// unmarshaling on top is equivalent to a defaults layer without needing a
// separate confmap provider.
func defaultConfig() Config {
	return Config{
		Flavour:                    "featural",
		MinFreq:                    5,
		LowercaseCollapseThreshold: 0.10,
		BackendMode:                "none",
		Statistics:                 true,
		FieldSep:                   "\t",
		DecimalSep:                 ".",
		SortBy:                     "Frequency",
		SortReversed:               true,
		ObservabilityAddr:          ":9090",
	}
}

// load layers defaults under an optional YAML file under optional flag
// overrides, without validating the result.
func load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		// Flag names are dashed (store-dsn) while koanf keys use
		// underscores (store_dsn); flags the user did not set are skipped
		// so their zero values never mask the file or the defaults.
		fromFlag := func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, fromFlag), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "loading flag overrides")
		}
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "unmarshaling configuration")
	}
	return cfg, nil
}

// Load builds a Config from defaults, an optional YAML file at path (skipped
// if path is empty), and flags (skipped if nil), then validates it.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStoreOnly builds a Config the same way Load does, but only
// validates the store DSN: the migrate subcommand needs nothing else
// out of the configuration and shouldn't be blocked by an otherwise
// incomplete run configuration.
func LoadStoreOnly(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(path, flags)
	if err != nil {
		return nil, err
	}
	if cfg.StoreDSN == "" {
		return nil, oops.Code("CONFIG_INCONSISTENT").Errorf("store_dsn is required")
	}
	return &cfg, nil
}

// TokenFlavour parses the configured tag flavour into a token.Flavour.
func (c *Config) TokenFlavour() (token.Flavour, error) {
	switch c.Flavour {
	case "compact":
		return token.Compact, nil
	case "featural":
		return token.Featural, nil
	default:
		return 0, oops.Code("CONFIG_INCONSISTENT").With("flavour", c.Flavour).
			Errorf("flavour must be \"compact\" or \"featural\", got %q", c.Flavour)
	}
}

// Validate checks cross-field consistency that koanf's unmarshal can't
// express on its own, per Open Question 3: a flavour/language mismatch is
// always a fatal CONFIG_INCONSISTENT error at startup, never silent.
func (c *Config) Validate() error {
	if _, err := c.TokenFlavour(); err != nil {
		return err
	}
	if c.Structures == "" {
		return oops.Code("CONFIG_INCONSISTENT").Errorf("structures file path is required")
	}
	if len(c.Corpus) == 0 {
		return oops.Code("CONFIG_INCONSISTENT").Errorf("at least one corpus path is required")
	}
	if c.Flavour == "compact" && (c.JOSMSDLang == "" || c.JOSDepparseLang == "") {
		return oops.Code("CONFIG_INCONSISTENT").
			Errorf("compact flavour requires jos_msd_lang and jos_depparse_lang")
	}
	if c.Flavour == "featural" && (c.JOSMSDLang != "" || c.JOSDepparseLang != "") {
		return oops.Code("CONFIG_INCONSISTENT").
			Errorf("featural flavour does not use jos_msd_lang/jos_depparse_lang, but they are set")
	}
	switch c.BackendMode {
	case "none":
	case "file":
		if c.BackendFile == "" {
			return oops.Code("CONFIG_INCONSISTENT").Errorf("backend_mode \"file\" requires backend_file")
		}
	case "http":
		if c.BackendURL == "" {
			return oops.Code("CONFIG_INCONSISTENT").Errorf("backend_mode \"http\" requires backend_url")
		}
	default:
		return oops.Code("CONFIG_INCONSISTENT").With("backend_mode", c.BackendMode).
			Errorf("backend_mode must be one of none, file, http")
	}
	if c.LowercaseCollapseThreshold <= 0 || c.LowercaseCollapseThreshold > 1 {
		return oops.Code("CONFIG_INCONSISTENT").
			With("lowercase_collapse_threshold", c.LowercaseCollapseThreshold).
			Errorf("lowercase_collapse_threshold must be in (0, 1]")
	}
	return nil
}
