// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clarinsi/cordex/internal/token"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cordex.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeYAML(t, "corpus: [\"corpus.xml\"]\nstructures: structures.yaml\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinFreq != 5 {
		t.Errorf("MinFreq = %d, want default 5", cfg.MinFreq)
	}
	if cfg.LowercaseCollapseThreshold != 0.10 {
		t.Errorf("LowercaseCollapseThreshold = %v, want default 0.10", cfg.LowercaseCollapseThreshold)
	}
	if cfg.Flavour != "featural" {
		t.Errorf("Flavour = %q, want default featural", cfg.Flavour)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeYAML(t, "corpus: [\"corpus.conllu\"]\nstructures: structures.yaml\nmin_freq: 10\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinFreq != 10 {
		t.Errorf("MinFreq = %d, want 10 from file", cfg.MinFreq)
	}
}

func TestLoadStoreOnlyIgnoresMissingCorpusAndStructures(t *testing.T) {
	path := writeYAML(t, "store_dsn: postgres://localhost/cordex\n")
	cfg, err := LoadStoreOnly(path, nil)
	if err != nil {
		t.Fatalf("LoadStoreOnly: %v", err)
	}
	if cfg.StoreDSN != "postgres://localhost/cordex" {
		t.Errorf("StoreDSN = %q, want postgres://localhost/cordex", cfg.StoreDSN)
	}
}

func TestLoadStoreOnlyRequiresDSN(t *testing.T) {
	path := writeYAML(t, "corpus: [\"corpus.xml\"]\n")
	if _, err := LoadStoreOnly(path, nil); err == nil {
		t.Fatal("expected an error when store_dsn is unset")
	}
}

func TestValidateRejectsMissingStructures(t *testing.T) {
	cfg := defaultConfig()
	cfg.Corpus = []string{"a.xml"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing structures path")
	}
}

func TestValidateRejectsCompactWithoutJOSLangs(t *testing.T) {
	cfg := defaultConfig()
	cfg.Flavour = "compact"
	cfg.Corpus = []string{"a.xml"}
	cfg.Structures = "s.yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected CONFIG_INCONSISTENT for compact flavour without jos langs")
	}
}

func TestValidateAcceptsCompactWithJOSLangs(t *testing.T) {
	cfg := defaultConfig()
	cfg.Flavour = "compact"
	cfg.JOSMSDLang = "sl"
	cfg.JOSDepparseLang = "sl"
	cfg.Corpus = []string{"a.xml"}
	cfg.Structures = "s.yaml"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBackendFileModeWithoutPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Corpus = []string{"a.xml"}
	cfg.Structures = "s.yaml"
	cfg.BackendMode = "file"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for backend_mode=file without backend_file")
	}
}

func TestTokenFlavourMapsToTokenPackage(t *testing.T) {
	cfg := defaultConfig()
	cfg.Flavour = "compact"
	f, err := cfg.TokenFlavour()
	if err != nil || f != token.Compact {
		t.Errorf("TokenFlavour() = %v, %v, want token.Compact", f, err)
	}
}
