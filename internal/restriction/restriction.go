// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package restriction implements the per-token predicates a structure
// component tests a candidate token against: morphology (compact and
// featural), lexis membership, spacing, and the always-true match-all used
// by the synthetic root.
//
// Grounded on cordex/restrictions/{restriction,restriction_group}.py.
package restriction

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/tagmodel"
	"github.com/clarinsi/cordex/internal/token"
)

// Kind identifies which predicate a Restriction applies.
type Kind int

const (
	Morphology Kind = iota
	MorphologyFeatural
	Lexis
	Space
	MatchAll
)

// Restriction is satisfied or not by a single token.
type Restriction interface {
	Kind() Kind
	Match(t *token.Token) bool
}

// FeatureConstraint is one feature-name -> (allowed-set, negate) entry of a
// morphology restriction.
type FeatureConstraint struct {
	Feature string
	Allowed map[string]bool
	Negate  bool
}

// MorphologyRestriction matches a compact ("xpos") tag after decoding it to
// a property map via the tag-model layer.
//
// Grounded on MorphologyRegex in restriction.py.
type MorphologyRestriction struct {
	tagSet      *tagmodel.TagSet
	constraints []FeatureConstraint // POS entry is mandatory and present here
	// ppb is the content-word priority derived from this restriction,
	// used by the structure loader's core-of-two-words selection.
	ppb int
}

// NewMorphologyRestriction builds a compact-tag morphology restriction. The
// POS constraint is mandatory; its absence is a structure-load error.
func NewMorphologyRestriction(tagSet *tagmodel.TagSet, constraints []FeatureConstraint) (*MorphologyRestriction, error) {
	hasPOS := false
	for _, c := range constraints {
		if c.Feature == "POS" || c.Feature == "pos" {
			hasPOS = true
			break
		}
	}
	if !hasPOS {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Errorf("morphology restriction missing mandatory POS entry")
	}
	return &MorphologyRestriction{tagSet: tagSet, constraints: constraints, ppb: PPB(constraints)}, nil
}

func (r *MorphologyRestriction) Kind() Kind { return Morphology }

// PPB returns the content-word priority (0 most content-bearing, 4 least)
// for a compact-tag morphology restriction, per §4.1.
//
// Grounded on determine_ppb in restriction.py: adjective/noun/adverb=0,
// main verb=1, generic verb=2, auxiliary verb=3, anything else=4.
func PPB(constraints []FeatureConstraint) int {
	var pos *FeatureConstraint
	var typ *FeatureConstraint
	for i := range constraints {
		switch constraints[i].Feature {
		case "POS", "pos":
			pos = &constraints[i]
		case "type":
			typ = &constraints[i]
		}
	}
	if pos == nil || len(pos.Allowed) != 1 {
		return 0
	}
	var category string
	for v := range pos.Allowed {
		category = v
	}
	switch category {
	case "adjective", "noun", "adverb":
		return 0
	case "verb":
		if typ == nil {
			return 2
		}
		switch {
		case typ.Allowed["auxiliary"]:
			return 3
		case typ.Allowed["main"]:
			return 1
		default:
			return 2
		}
	default:
		return 4
	}
}

// PPB returns the restriction's precomputed content-word priority.
func (r *MorphologyRestriction) PPB() int { return r.ppb }

func (r *MorphologyRestriction) Match(t *token.Token) bool {
	compact, ok := t.Tag.(token.Compact)
	if !ok || compact == "" {
		return false
	}
	props, err := r.tagSet.ToProperties(string(compact))
	if err != nil {
		// Tag-decode error: treated as a restriction mismatch, not fatal (§7).
		return false
	}
	return matchConstraints(r.constraints, func(feature string) (string, bool) {
		if feature == "POS" {
			feature = "pos"
		}
		v, ok := props[feature]
		return v, ok
	})
}

// MorphologyFeaturalRestriction matches a featural ("udpos") tag directly,
// with no decoding step.
//
// Grounded on MorphologyUDRegex in restriction.py.
type MorphologyFeaturalRestriction struct {
	constraints []FeatureConstraint
}

// NewMorphologyFeaturalRestriction builds a featural-tag morphology
// restriction; POS is mandatory.
func NewMorphologyFeaturalRestriction(constraints []FeatureConstraint) (*MorphologyFeaturalRestriction, error) {
	hasPOS := false
	for _, c := range constraints {
		if c.Feature == "POS" {
			hasPOS = true
			break
		}
	}
	if !hasPOS {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Errorf("morphology restriction missing mandatory POS entry")
	}
	return &MorphologyFeaturalRestriction{constraints: constraints}, nil
}

func (r *MorphologyFeaturalRestriction) Kind() Kind { return MorphologyFeatural }

func (r *MorphologyFeaturalRestriction) Match(t *token.Token) bool {
	feat, ok := t.Tag.(token.Featural)
	if !ok || feat == nil {
		return false
	}
	return matchConstraints(r.constraints, func(feature string) (string, bool) {
		v, ok := feat[feature]
		return v, ok
	})
}

// matchConstraints applies the shared morphology matching rule used by both
// flavours: for each constraint, if negate=false the property must be
// present and in the allowed set; if negate=true the property must be
// either absent or not in the allowed set.
func matchConstraints(constraints []FeatureConstraint, lookup func(feature string) (string, bool)) bool {
	for _, c := range constraints {
		value, present := lookup(c.Feature)
		if !c.Negate {
			if !present || !c.Allowed[value] {
				return false
			}
		} else {
			if present && c.Allowed[value] {
				return false
			}
		}
	}
	return true
}

// LexisRestriction matches a token's lemma against a fixed membership list.
// Entries containing glob metacharacters are compiled as globs; plain
// entries remain exact string matches, preserving documented exact-lemma
// membership semantics for the common case.
//
// Grounded on LexisRegex in restriction.py.
type LexisRestriction struct {
	exact map[string]bool
	globs []glob.Glob
}

// NewLexisRestriction compiles a pipe-separated lemma list.
func NewLexisRestriction(entries []string) (*LexisRestriction, error) {
	r := &LexisRestriction{exact: make(map[string]bool, len(entries))}
	for _, e := range entries {
		if containsGlobMeta(e) {
			g, err := glob.Compile(e)
			if err != nil {
				return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("pattern", e).Wrap(err)
			}
			r.globs = append(r.globs, g)
			continue
		}
		r.exact[e] = true
	}
	return r, nil
}

func containsGlobMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '{', '}':
			return true
		}
	}
	return false
}

func (r *LexisRestriction) Kind() Kind { return Lexis }

func (r *LexisRestriction) Match(t *token.Token) bool {
	if r.exact[t.Lemma] {
		return true
	}
	for _, g := range r.globs {
		if g.Match(t.Lemma) {
			return true
		}
	}
	return false
}

// SpacePattern names one of the four spacing patterns a SpaceRestriction
// tests for.
type SpacePattern string

const (
	SpaceNeither SpacePattern = "neither"
	SpaceLeft    SpacePattern = "left"
	SpaceRight   SpacePattern = "right"
	SpaceBoth    SpacePattern = "both"
)

// SpaceRestriction matches glue/previous_glue booleans against a union of
// spacing patterns.
//
// Grounded on SpaceRegex in restriction.py.
type SpaceRestriction struct {
	patterns map[SpacePattern]bool
}

// NewSpaceRestriction compiles a pipe-separated list of spacing patterns.
func NewSpaceRestriction(patterns []string) (*SpaceRestriction, error) {
	set := make(map[SpacePattern]bool, len(patterns))
	for _, p := range patterns {
		sp := SpacePattern(p)
		switch sp {
		case SpaceNeither, SpaceLeft, SpaceRight, SpaceBoth:
			set[sp] = true
		default:
			return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("value", p).
				Errorf("space restriction value must be one of both|left|right|neither")
		}
	}
	return &SpaceRestriction{patterns: set}, nil
}

func (r *SpaceRestriction) Kind() Kind { return Space }

func (r *SpaceRestriction) Match(t *token.Token) bool {
	if r.patterns[SpaceNeither] && !t.PreviousGlue && !t.Glue {
		return true
	}
	if r.patterns[SpaceLeft] && t.PreviousGlue && !t.Glue {
		return true
	}
	if r.patterns[SpaceRight] && !t.PreviousGlue && t.Glue {
		return true
	}
	if r.patterns[SpaceBoth] && t.PreviousGlue && t.Glue {
		return true
	}
	return false
}

// MatchAllRestriction always succeeds; used for the synthetic root.
type MatchAllRestriction struct{}

func (MatchAllRestriction) Kind() Kind          { return MatchAll }
func (MatchAllRestriction) Match(*token.Token) bool { return true }

// Combinator joins the members of a RestrictionGroup.
type Combinator int

const (
	And Combinator = iota
	Or
)

// Group is a list of restrictions plus a combinator, as in §3's
// RestrictionGroup.
type Group struct {
	Members    []Restriction
	Combinator Combinator
}

// Match applies the group's combinator over its members. An empty group
// with no members vacuously matches (mirrors a component with no
// restriction tag at all using a single MatchAllRestriction member).
func (g *Group) Match(t *token.Token) bool {
	if len(g.Members) == 0 {
		return true
	}
	switch g.Combinator {
	case Or:
		for _, m := range g.Members {
			if m.Match(t) {
				return true
			}
		}
		return false
	default: // And
		for _, m := range g.Members {
			if !m.Match(t) {
				return false
			}
		}
		return true
	}
}
