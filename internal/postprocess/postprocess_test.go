// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package postprocess

import (
	"testing"

	"github.com/clarinsi/cordex/internal/matcher"
)

func TestFixVoicingSZBeforeUnvoiced(t *testing.T) {
	// §8 scenario: preposition lemma "z" before a word starting with
	// unvoiced "t" surfaces as "s".
	p := New("sl", false)
	assignment := matcher.Assignment{
		"0": {Lemma: "pred", IntID: 0},
		"1": {Lemma: "z", Text: "z", IntID: 1},
		"2": {Lemma: "tabo", IntID: 2},
	}
	overrides := p.FixVoicing(assignment)
	if overrides["1"] != "s" {
		t.Errorf("overrides[1] = %q, want \"s\"", overrides["1"])
	}
}

func TestFixVoicingSZBeforeVoiced(t *testing.T) {
	p := New("sl", false)
	assignment := matcher.Assignment{
		"0": {Lemma: "pred", IntID: 0},
		"1": {Lemma: "s", Text: "s", IntID: 1},
		"2": {Lemma: "domom", IntID: 2},
	}
	overrides := p.FixVoicing(assignment)
	if overrides["1"] != "z" {
		t.Errorf("overrides[1] = %q, want \"z\"", overrides["1"])
	}
}

func TestFixVoicingDisabledForOtherLanguages(t *testing.T) {
	p := New("en", false)
	assignment := matcher.Assignment{
		"0": {Lemma: "pred", IntID: 0},
		"1": {Lemma: "z", Text: "z", IntID: 1},
		"2": {Lemma: "tabo", IntID: 2},
	}
	if overrides := p.FixVoicing(assignment); overrides != nil {
		t.Errorf("expected no overrides when lang != sl, got %v", overrides)
	}
}

func TestFixVoicingSkipsEndpoints(t *testing.T) {
	p := New("sl", false)
	assignment := matcher.Assignment{
		"0": {Lemma: "z", Text: "z", IntID: 0},
		"1": {Lemma: "tabo", IntID: 1},
	}
	overrides := p.FixVoicing(assignment)
	if len(overrides) != 0 {
		t.Errorf("expected no overrides for a 2-component assignment, got %v", overrides)
	}
}

func TestIsFixedRestrictionOrderAcceptsIncreasing(t *testing.T) {
	p := New("sl", true)
	assignment := matcher.Assignment{
		"0": {IntID: 5},
		"1": {IntID: 7},
	}
	if !p.IsFixedRestrictionOrder(assignment) {
		t.Error("expected order check to pass for increasing component indices")
	}
}

func TestIsFixedRestrictionOrderRejectsDecreasing(t *testing.T) {
	p := New("sl", true)
	assignment := matcher.Assignment{
		"0": {IntID: 7},
		"1": {IntID: 5},
	}
	if p.IsFixedRestrictionOrder(assignment) {
		t.Error("expected order check to fail for decreasing component indices")
	}
}

func TestIsFixedRestrictionOrderDisabledAlwaysPasses(t *testing.T) {
	p := New("sl", false)
	assignment := matcher.Assignment{
		"0": {IntID: 7},
		"1": {IntID: 5},
	}
	if !p.IsFixedRestrictionOrder(assignment) {
		t.Error("expected order check to be vacuously true when disabled")
	}
}
