// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

import (
	"strings"
	"testing"

	"github.com/clarinsi/cordex/internal/tagmodel"
	"github.com/clarinsi/cordex/internal/token"
	"github.com/clarinsi/cordex/pkg/errutil"
)

const featuralYAML = `
system_type: udpos
grammar_version: 1
syntactic_structure:
  - id: adj-noun
    type: collocation
    components:
      - cid: c1
        type: core2w
      - cid: c2
        type: core2w
    dependencies:
      - from: c1
        to: c2
        label: amod
        order: to-from
    definitions:
      - cid: c1
        restriction:
          - type: morphology
            features: ["POS=NOUN"]
      - cid: c2
        restriction:
          - type: morphology
            features: ["POS=ADJ"]
        representation:
          - selection: word-form-agreement
            agreement: ["Gender", "Number", "Case"]
            other: c1
`

func TestLoadFeaturalStructure(t *testing.T) {
	lib, err := Load(strings.NewReader(featuralYAML), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lib.SystemType != token.Featural {
		t.Errorf("SystemType = %v, want Featural", lib.SystemType)
	}
	s, ok := lib.ByID("adj-noun")
	if !ok {
		t.Fatal("structure adj-noun not found")
	}
	if s.CoreA == nil || s.CoreB == nil {
		t.Fatal("expected a resolved core-of-two-words pair")
	}
	if s.Root.Idx != RootIdx {
		t.Errorf("Root.Idx = %q, want %q", s.Root.Idx, RootIdx)
	}
	if len(s.Root.Children) != 1 || s.Root.Children[0].Child.Idx != "c1" {
		t.Fatalf("unexpected root children: %+v", s.Root.Children)
	}
	c1 := s.Root.Children[0].Child
	if len(c1.Children) != 1 || c1.Children[0].Label != "amod" {
		t.Fatalf("unexpected c1 children: %+v", c1.Children)
	}
}

func TestLoadMissingSystemType(t *testing.T) {
	_, err := Load(strings.NewReader("grammar_version: 1\nsyntactic_structure: []\n"), nil)
	errutil.AssertErrorCode(t, err, "STRUCTURE_LOAD_FAILED")
}

func TestLoadUnknownComponentReference(t *testing.T) {
	bad := `
system_type: udpos
grammar_version: 1
syntactic_structure:
  - id: s1
    components:
      - cid: c1
    dependencies:
      - from: c1
        to: missing
        label: obj
`
	_, err := Load(strings.NewReader(bad), nil)
	errutil.AssertErrorCode(t, err, "STRUCTURE_LOAD_FAILED")
}

func TestLoadCycleRejected(t *testing.T) {
	bad := `
system_type: udpos
grammar_version: 1
syntactic_structure:
  - id: s1
    components:
      - cid: c1
      - cid: c2
    dependencies:
      - from: c1
        to: c2
        label: a
      - from: c2
        to: c1
        label: b
`
	_, err := Load(strings.NewReader(bad), nil)
	errutil.AssertErrorCode(t, err, "STRUCTURE_LOAD_FAILED")
}

func TestLoadCompactFlavourPPBOrdering(t *testing.T) {
	yml := `
system_type: xpos
grammar_version: 1
syntactic_structure:
  - id: s1
    components:
      - cid: head
        type: core2w
      - cid: dep
        type: core2w
    dependencies:
      - from: head
        to: dep
        label: amod
    definitions:
      - cid: head
        restriction:
          - type: morphology
            features: ["POS=verb"]
      - cid: dep
        restriction:
          - type: morphology
            features: ["POS=adjective"]
`
	lib, err := Load(strings.NewReader(yml), compactTagSetForTest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := lib.ByID("s1")
	if s.CoreA.Idx != "dep" {
		t.Errorf("CoreA = %q, want dep (adjective ppb=0 beats verb ppb=2)", s.CoreA.Idx)
	}
}

// compactTagSetForTest returns a TagSet sufficient for compiling compact
// morphology restrictions: the ppb ranking used by core-of-two-words
// selection only inspects the restriction's own POS/type constraints, so
// the decode table itself can stay empty here.
func compactTagSetForTest() *tagmodel.TagSet {
	return &tagmodel.TagSet{}
}
