// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validStructureYAML = `
system_type: featural
grammar_version: 1
syntactic_structure:
  - id: adj_noun
    type: collocation
    components:
      - cid: "1"
        type: core
      - cid: "2"
        type: core
    dependencies:
      - from: "1"
        to: "2"
        label: amod
    definitions:
      - cid: "1"
      - cid: "2"
`

func TestValidateStructuresCmd_ReportsCompiledStructures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "structures.yaml")
	if err := os.WriteFile(path, []byte(validStructureYAML), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cmd := NewValidateStructuresCmd()
	cmd.SetArgs([]string{"--structures", path})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "1 structure(s) compiled") {
		t.Errorf("output = %q, want it to report 1 compiled structure", out)
	}
	if !strings.Contains(out, "adj_noun") {
		t.Errorf("output = %q, want it to name structure adj_noun", out)
	}
}

func TestValidateStructuresCmd_RequiresPath(t *testing.T) {
	cmd := NewValidateStructuresCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when --structures is not set")
	}
}
