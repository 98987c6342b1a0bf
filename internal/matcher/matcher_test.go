// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package matcher

import (
	"testing"

	"github.com/clarinsi/cordex/internal/restriction"
	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
)

func mustRestriction(t *testing.T, constraints []restriction.FeatureConstraint) *restriction.Group {
	t.Helper()
	r, err := restriction.NewMorphologyFeaturalRestriction(constraints)
	if err != nil {
		t.Fatalf("unexpected error building restriction: %v", err)
	}
	return &restriction.Group{Members: []restriction.Restriction{r}, Combinator: restriction.And}
}

// buildAdjNounStructure mirrors the rdeča hiša ("red house") NP example:
// a noun head with a required amod adjective child.
func buildAdjNounStructure(t *testing.T) *structure.Structure {
	noun := &structure.Component{
		Idx:          "noun",
		Status:       structure.Required,
		Type:         structure.CoreOfTwoWords,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"NOUN": true}}}),
	}
	adj := &structure.Component{
		Idx:          "adj",
		Status:       structure.Required,
		Type:         structure.CoreOfTwoWords,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"ADJ": true}}}),
	}
	noun.Children = []structure.Edge{{Child: adj, Label: "amod", Order: structure.ToFrom}}
	return &structure.Structure{ID: "adj-noun", Root: noun, CoreA: adj, CoreB: noun}
}

func TestMatchFindsRequiredChild(t *testing.T) {
	s := buildAdjNounStructure(t)

	adjTok := &token.Token{IntID: 1, Lemma: "rdeč", Tag: token.Featural{"POS": "ADJ"}}
	nounTok := &token.Token{IntID: 2, Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"},
		Links: map[string][]*token.Token{"amod": {adjTok}}}

	assignments, ok := Match(s.Root, nounTok)
	if !ok {
		t.Fatal("expected a match")
	}
	if len(assignments) != 1 {
		t.Fatalf("expected exactly one assignment, got %d", len(assignments))
	}
	if assignments[0]["noun"] != nounTok || assignments[0]["adj"] != adjTok {
		t.Errorf("unexpected assignment: %+v", assignments[0])
	}
}

func TestMatchFailsWhenOrderViolated(t *testing.T) {
	s := buildAdjNounStructure(t)

	// amod order is to-from (child.IntID < parent.IntID); place the
	// adjective after the noun to violate it.
	adjTok := &token.Token{IntID: 5, Lemma: "rdeč", Tag: token.Featural{"POS": "ADJ"}}
	nounTok := &token.Token{IntID: 2, Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"},
		Links: map[string][]*token.Token{"amod": {adjTok}}}

	_, ok := Match(s.Root, nounTok)
	if ok {
		t.Fatal("expected no match when order constraint is violated")
	}
}

func TestMatchFailsWhenRequiredChildAbsent(t *testing.T) {
	s := buildAdjNounStructure(t)
	nounTok := &token.Token{IntID: 2, Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"}}

	_, ok := Match(s.Root, nounTok)
	if ok {
		t.Fatal("expected no match: required amod child is absent")
	}
}

func TestMatchRejectsForbiddenChild(t *testing.T) {
	noun := &structure.Component{
		Idx:          "noun",
		Status:       structure.Required,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"NOUN": true}}}),
	}
	det := &structure.Component{
		Idx:          "det",
		Status:       structure.Forbidden,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"DET": true}}}),
	}
	noun.Children = []structure.Edge{{Child: det, Label: "det", Order: structure.Any}}

	detTok := &token.Token{IntID: 1, Tag: token.Featural{"POS": "DET"}}
	nounTok := &token.Token{IntID: 2, Tag: token.Featural{"POS": "NOUN"},
		Links: map[string][]*token.Token{"det": {detTok}}}

	_, ok := Match(noun, nounTok)
	if ok {
		t.Fatal("expected no match: forbidden det child is present")
	}

	nounWithoutDet := &token.Token{IntID: 3, Tag: token.Featural{"POS": "NOUN"}}
	assignments, ok := Match(noun, nounWithoutDet)
	if !ok || len(assignments) != 1 {
		t.Fatal("expected a match when the forbidden child is absent")
	}
}

func TestMatchRejectsDuplicateTokenAcrossComponents(t *testing.T) {
	// Two children pointing at the same deprel label where the only
	// candidate token would have to fill both component slots.
	root := &structure.Component{Idx: "root", Status: structure.Required, Restrictions: &restriction.Group{}}
	a := &structure.Component{Idx: "a", Status: structure.Required, Restrictions: &restriction.Group{}}
	b := &structure.Component{Idx: "b", Status: structure.Required, Restrictions: &restriction.Group{}}
	root.Children = []structure.Edge{
		{Child: a, Label: "dep", Order: structure.Any},
		{Child: b, Label: "dep", Order: structure.Any},
	}

	shared := &token.Token{IntID: 1}
	rootTok := &token.Token{IntID: 0, Links: map[string][]*token.Token{"dep": {shared}}}

	_, ok := Match(root, rootTok)
	if ok {
		t.Fatal("expected no match: the only candidate cannot fill two distinct components")
	}
}

// wrapAsRoot mirrors what the structure loader builds for every compiled
// structure: a synthetic '#' component whose direct children are the
// pattern's top-level components, per §4.1 step 2.
func wrapAsRoot(label string, children ...*structure.Component) *structure.Component {
	root := &structure.Component{Idx: structure.RootIdx, Status: structure.Required, Type: structure.Other,
		Restrictions: &restriction.Group{}}
	for _, c := range children {
		root.Children = append(root.Children, structure.Edge{Child: c, Label: label})
	}
	return root
}

func TestMatchSentenceTriesEveryToken(t *testing.T) {
	noun := &structure.Component{
		Idx:          "noun",
		Status:       structure.Required,
		Type:         structure.CoreOfTwoWords,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"NOUN": true}}}),
	}
	adj := &structure.Component{
		Idx:          "adj",
		Status:       structure.Required,
		Type:         structure.CoreOfTwoWords,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"ADJ": true}}}),
	}
	noun.Children = []structure.Edge{{Child: adj, Label: "amod", Order: structure.ToFrom}}
	s := &structure.Structure{ID: "adj-noun", Root: wrapAsRoot("noun", noun), CoreA: adj, CoreB: noun}

	adjTok := &token.Token{IntID: 1, Lemma: "rdeč", Tag: token.Featural{"POS": "ADJ"}}
	nounTok := &token.Token{IntID: 2, Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"},
		Links: map[string][]*token.Token{"amod": {adjTok}}}
	other := &token.Token{IntID: 3, Tag: token.Featural{"POS": "VERB"}}

	sentence := &token.Sentence{ID: "s1", Tokens: []*token.Token{adjTok, nounTok, other}}
	matches := MatchSentence(s, sentence)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one sentence-wide match, got %d", len(matches))
	}
}

// TestMatchSentenceAnchorsModraChildAtSentenceRoot guards against the
// over-generation bug where a component meant to anchor at the sentence's
// real dependency root instead matched at every token: a second VERB token
// that is not the sentence's syntactic root must not produce a match.
func TestMatchSentenceAnchorsModraChildAtSentenceRoot(t *testing.T) {
	verb := &structure.Component{
		Idx:          "verb",
		Status:       structure.Required,
		Restrictions: mustRestriction(t, []restriction.FeatureConstraint{{Feature: "POS", Allowed: map[string]bool{"VERB": true}}}),
	}
	s := &structure.Structure{ID: "root-verb", Root: wrapAsRoot(structure.RootLabel, verb)}

	realRoot := &token.Token{IntID: 1, Tag: token.Featural{"POS": "VERB"}}
	embeddedVerb := &token.Token{IntID: 2, Tag: token.Featural{"POS": "VERB"}}
	sentence := &token.Sentence{
		ID:     "s1",
		Root:   token.NewRoot("s1", []*token.Token{realRoot}),
		Tokens: []*token.Token{realRoot, embeddedVerb},
	}

	matches := MatchSentence(s, sentence)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match anchored at the sentence root, got %d", len(matches))
	}
	if matches[0]["verb"] != realRoot {
		t.Errorf("expected the match to bind the sentence's real root token, got %+v", matches[0])
	}
}
