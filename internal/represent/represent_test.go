// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package represent

import (
	"testing"

	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
)

func TestLemmaRecipe(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepLemma}, token.Featural, nil)
	r.AddWord(&token.Token{Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"}})
	got := r.Render()
	if got.Text != "hiša" {
		t.Errorf("Text = %q, want hiša", got.Text)
	}
	if got.Tag != "POS=NOUN" {
		t.Errorf("Tag = %q, want POS=NOUN", got.Tag)
	}
}

func TestLexisRecipe(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepLexis, Lexis: "na"}, token.Featural, nil)
	got := r.Render()
	if got.Text != "na" || got.Tag != "POS=PART" {
		t.Errorf("got %+v", got)
	}
}

func TestWordFormAllSortsAndDedups(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepWordFormAll}, token.Featural, nil)
	r.AddWord(&token.Token{Text: "Lepa", Tag: token.Featural{"POS": "ADJ"}})
	r.AddWord(&token.Token{Text: "lepa", Tag: token.Featural{"POS": "ADJ"}})
	r.AddWord(&token.Token{Text: "lepo", Tag: token.Featural{"POS": "ADJ"}})
	got := r.Render()
	if got.Text != "lepa/lepo" {
		t.Errorf("Text = %q, want lepa/lepo", got.Text)
	}
}

func TestWordFormAnyPicksMostFrequent(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepWordFormAny}, token.Featural, nil)
	r.AddWord(&token.Token{Text: "hiši", Lemma: "hiša", Tag: token.Featural{"POS": "NOUN", "Case": "Dat"}})
	r.AddWord(&token.Token{Text: "hiša", Lemma: "hiša", Tag: token.Featural{"POS": "NOUN", "Case": "Nom"}})
	r.AddWord(&token.Token{Text: "hiša", Lemma: "hiša", Tag: token.Featural{"POS": "NOUN", "Case": "Nom"}})
	got := r.Render()
	if got.Text != "hiša" {
		t.Errorf("Text = %q, want hiša (2 occurrences beat 1)", got.Text)
	}
}

func TestAgreementCommitsMatchingPeer(t *testing.T) {
	noun := &structure.Component{Idx: "noun", Representations: []structure.Representation{{Variant: structure.RepWordFormAny}}}
	adj := &structure.Component{Idx: "adj", Representations: []structure.Representation{{
		Variant:   structure.RepWordFormAgreement,
		Agreement: &structure.AgreementSpec{Features: []string{"Gender", "Number", "Case"}, OtherComponent: "noun"},
	}}}
	noun.Children = []structure.Edge{{Child: adj, Label: "amod"}}

	s := &structure.Structure{ID: "adj-noun", Root: noun}
	e := NewEngine(token.Featural, nil)
	recipes, err := e.BuildRecipes(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nounTok := &token.Token{Text: "hiša", Lemma: "hiša", Tag: token.Featural{"POS": "NOUN", "Gender": "Fem", "Number": "Sing", "Case": "Nom"}}
	adjTokGood := &token.Token{Text: "rdeča", Lemma: "rdeč", Tag: token.Featural{"POS": "ADJ", "Gender": "Fem", "Number": "Sing", "Case": "Nom"}}
	adjTokBad := &token.Token{Text: "rdeč", Lemma: "rdeč", Tag: token.Featural{"POS": "ADJ", "Gender": "Masc", "Number": "Sing", "Case": "Nom"}}

	Feed(recipes, map[string]*token.Token{"noun": nounTok, "adj": adjTokBad})
	Feed(recipes, map[string]*token.Token{"noun": nounTok, "adj": adjTokGood})

	forms := RenderAll(recipes)
	if forms["noun"].Text != "hiša" {
		t.Errorf("noun form = %+v, want hiša", forms["noun"])
	}
	if forms["adj"].Text != "rdeča" {
		t.Errorf("adj form = %+v, want rdeča (agreeing with hiša)", forms["adj"])
	}
}

func TestAgreementHeadCountMismatchIsError(t *testing.T) {
	noun := &structure.Component{Idx: "noun"} // no representation at all
	adj := &structure.Component{Idx: "adj", Representations: []structure.Representation{{
		Variant:   structure.RepWordFormAgreement,
		Agreement: &structure.AgreementSpec{Features: []string{"Gender"}, OtherComponent: "noun"},
	}}}
	noun.Children = []structure.Edge{{Child: adj, Label: "amod"}}
	s := &structure.Structure{ID: "s", Root: noun}

	e := NewEngine(token.Featural, nil)
	_, err := e.BuildRecipes(s)
	if err == nil {
		t.Fatal("expected error: agreement head has zero representations")
	}
}

func TestPlanLookupsSkipsRecipesWithoutBackend(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepLemma}, token.Featural, nil)
	r.AddWord(&token.Token{Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"}})
	recipes := map[string][]*Recipe{"noun": {r}}
	if got := PlanLookups(recipes); len(got) != 0 {
		t.Errorf("expected no pending lookups without a backend, got %v", got)
	}
}

type stubBackend struct{}

func (stubBackend) InflectForm(string, string, map[string]string) (Form, bool) { return Form{}, false }

func TestPlanLookupsPlansLemmaRecipe(t *testing.T) {
	r := NewRecipe(structure.Representation{Variant: structure.RepLemma}, token.Featural, stubBackend{})
	r.AddWord(&token.Token{Lemma: "hiša", Tag: token.Featural{"POS": "NOUN"}})
	recipes := map[string][]*Recipe{"noun": {r}}

	got := PlanLookups(recipes)
	if len(got) != 1 || got[0].Lemma != "hiša" || got[0].Category != "NOUN" {
		t.Errorf("unexpected plan: %+v", got)
	}
}
