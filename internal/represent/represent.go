// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package represent synthesizes one canonical surface per structure
// component from the set of tokens observed across all matches of a
// collocation, implementing the five representation recipe variants and
// the cross-component agreement protocol of §4.4.
//
// Grounded on original_source/cordex/representations/{representation,
// representation_assigner}.py, recast from a class-per-variant hierarchy
// into a tagged Recipe struct (per SPEC_FULL.md's Design Notes decision:
// no virtual dispatch across annotation flavours, branch once on flavour).
package represent

import (
	"sort"
	"strings"

	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
)

// Form is a rendered (text, tag) pair. Tag is the compact MSD string for
// compact corpora, or the pipe-joined `Feature=Value` string for featural
// ones (mirroring the original's convert_dict_to_string).
type Form struct {
	Text string
	Tag  string
}

// Backend is the subset of the lookup backend the representation engine
// needs: resolving an inflected form of a lemma given a target tag/MSD
// selector. Implemented by package lookup.
type Backend interface {
	InflectForm(lemma string, category string, selector map[string]string) (Form, bool)
}

// Recipe renders one component's representation from the tokens observed
// across every match of a collocation.
type Recipe struct {
	variant     structure.RepresentationVariant
	flavour     token.Flavour
	lexis       string
	msdSelector map[string]string

	words []*token.Token

	// agreement is populated on the *head* recipe when a dependent recipe
	// registers against it at wire-up.
	agreement []*Recipe
	// agreementOf names the head component idx, set on a dependent recipe.
	agreementOf string
	features    []string // agreement feature names, set on a dependent recipe

	backend Backend

	rendered   bool
	result     Form
	candidate  Form // tentative pick while trying agreement peers
}

// NewRecipe builds a Recipe from a compiled structure.Representation.
func NewRecipe(rep structure.Representation, flavour token.Flavour, backend Backend) *Recipe {
	r := &Recipe{variant: rep.Variant, flavour: flavour, lexis: rep.Lexis, msdSelector: rep.MSDSelector, backend: backend}
	if rep.Agreement != nil {
		r.agreementOf = rep.Agreement.OtherComponent
		r.features = rep.Agreement.Features
	}
	return r
}

// AgreementHead reports the component idx this recipe is a dependent
// agreement recipe for, and whether it is one at all.
func (r *Recipe) AgreementHead() (string, bool) {
	if r.variant != structure.RepWordFormAgreement {
		return "", false
	}
	return r.agreementOf, true
}

// RegisterAgreementPeer attaches a dependent agreement recipe to this
// (head) recipe, per §4.4's wire-up pass.
func (r *Recipe) RegisterAgreementPeer(dependent *Recipe) {
	r.agreement = append(r.agreement, dependent)
}

// AddWord records one observed token instance of this component.
func (r *Recipe) AddWord(t *token.Token) {
	r.words = append(r.words, t)
}

// Render computes the recipe's final (text, tag), memoized after first call.
func (r *Recipe) Render() Form {
	if r.rendered {
		return r.result
	}
	r.rendered = true
	switch r.variant {
	case structure.RepLemma:
		r.result = r.renderLemma()
	case structure.RepLexis:
		r.result = Form{Text: r.lexis, Tag: lexisTag(r.flavour)}
	case structure.RepWordFormAll:
		r.result = r.renderAll()
	case structure.RepWordFormAny, structure.RepWordFormMSD, structure.RepWordFormAgreement:
		r.result = r.renderAny()
	}
	return r.result
}

func lexisTag(f token.Flavour) string {
	if f == token.Featural {
		return "POS=PART"
	}
	return "Q"
}

func (r *Recipe) renderLemma() Form {
	if len(r.words) == 0 {
		return Form{}
	}
	head := r.words[0]
	tag := tagString(head.Tag, r.flavour)
	if r.backend != nil {
		if canonical, ok := r.backend.InflectForm(head.Lemma, head.Tag.Category(), nil); ok {
			tag = canonical.Tag
		}
	}
	return Form{Text: head.Lemma, Tag: tag}
}

func (r *Recipe) renderAll() Form {
	if len(r.words) == 0 {
		return Form{}
	}
	formSet := map[string]bool{}
	tagSet := map[string]bool{}
	for _, w := range r.words {
		formSet[strings.ToLower(w.Text)] = true
		tagSet[tagString(w.Tag, r.flavour)] = true
	}
	return Form{Text: joinSortedSet(formSet), Tag: joinSortedSet(tagSet)}
}

func joinSortedSet(set map[string]bool) string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, "/")
}

// wordKey identifies a distinct (tag, lemma) surface candidate.
type wordKey struct {
	tag   string
	lemma string
}

// renderAny implements word-form-any / word-form-msd / word-form-agreement:
// rank observed (tag, lemma) candidates by frequency (ties broken
// deterministically by lemma), filter by msdSelector when present, and for
// each candidate in order ask every registered agreement peer to confirm a
// matching form of its own lemma. The first fully-agreeing candidate wins.
func (r *Recipe) renderAny() Form {
	counts := map[wordKey]int{}
	texts := map[wordKey]string{}
	order := []wordKey{}

	for _, w := range r.words {
		tag := tagString(w.Tag, r.flavour)
		if r.variant == structure.RepWordFormMSD && !matchesSelector(w.Tag, r.flavour, r.msdSelector) {
			continue
		}
		k := wordKey{tag: tag, lemma: w.Lemma}
		if counts[k] == 0 {
			order = append(order, k)
			texts[k] = w.Text
		}
		counts[k]++
	}

	if len(order) == 0 {
		if r.variant == structure.RepWordFormMSD && r.backend != nil {
			if f, ok := r.backend.InflectForm(commonLemma(r.words), "", r.msdSelector); ok {
				if r.commitAgreements(f.Tag) {
					return f
				}
			}
		}
		return r.commonTagFallback()
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return order[i].lemma < order[j].lemma
	})

	for _, k := range order {
		if r.commitAgreements(k.tag) {
			return Form{Text: texts[k], Tag: k.tag}
		}
	}
	return r.commonTagFallback()
}

// commonTagFallback is reached once no observed candidate satisfies every
// agreement peer. The head's own rendition stays null, but for the msd and
// agreement variants a common-tag reduction still gives registered peers one
// last form to agree against, per the WordDummy(common_xpos/udpos) backoff
// in original_source/cordex/representations/representation.py. word-form-any
// carries no such backoff (representation_assigner.py only wires it onto
// WordFormMsdCR and its WordFormAgreementCR subclass).
func (r *Recipe) commonTagFallback() Form {
	if r.variant != structure.RepWordFormAny && len(r.agreement) > 0 {
		if common := commonTag(r.words, r.flavour); common != "" {
			r.commitAgreements(common)
		}
	}
	return Form{}
}

// commonTag computes a representative tag for words when no single observed
// candidate satisfies every agreement peer: for featural tags, the
// intersection of feature entries every word agrees on; for compact tags,
// the per-position intersection against the shortest observed tag, with '-'
// where any word disagrees. Mirrors _common_udpos/_common_xpos in
// original_source/cordex/representations/representation.py.
func commonTag(words []*token.Token, flavour token.Flavour) string {
	if len(words) == 0 {
		return ""
	}
	if flavour == token.Featural {
		var common token.Featural
		for _, w := range words {
			feat, ok := w.Tag.(token.Featural)
			if !ok {
				continue
			}
			if common == nil {
				common = make(token.Featural, len(feat))
				for k, v := range feat {
					common[k] = v
				}
				continue
			}
			for k, v := range common {
				if fv, present := feat[k]; !present || fv != v {
					delete(common, k)
				}
			}
		}
		if len(common) == 0 {
			return ""
		}
		return token.EncodeTag(common, flavour)
	}

	tags := make([]string, 0, len(words))
	for _, w := range words {
		tags = append(tags, tagString(w.Tag, flavour))
	}
	shortest := tags[0]
	for _, t := range tags[1:] {
		if len(t) < len(shortest) {
			shortest = t
		}
	}
	out := make([]byte, len(shortest))
	for i := range shortest {
		agree := true
		for _, t := range tags {
			if i >= len(t) || t[i] != shortest[i] {
				agree = false
				break
			}
		}
		if agree {
			out[i] = shortest[i]
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

// commitAgreements asks every registered dependent recipe to find a form of
// its own lemma agreeing with headTag on its declared features; it commits
// every peer's pick only if all peers succeed.
func (r *Recipe) commitAgreements(headTag string) bool {
	for _, peer := range r.agreement {
		if !peer.tryAgree(headTag, r.flavour) {
			return false
		}
	}
	for _, peer := range r.agreement {
		peer.rendered = true
		peer.result = peer.candidate
	}
	return true
}

// tryAgree looks for an observed (or backend-supplied) form of this
// recipe's own lemma whose values for r.features match headTag's values,
// per the agreement law in §8.
func (r *Recipe) tryAgree(headTag string, flavour token.Flavour) bool {
	headProps := parseTagString(headTag, flavour)
	for _, w := range r.words {
		props := parseTagString(tagString(w.Tag, flavour), flavour)
		if agree(props, headProps, r.features) {
			r.candidate = Form{Text: w.Text, Tag: tagString(w.Tag, flavour)}
			return true
		}
	}
	if r.backend != nil {
		selector := map[string]string{}
		for _, f := range r.features {
			if v, ok := headProps[f]; ok {
				selector[f] = v
			}
		}
		lemma := commonLemma(r.words)
		if f, ok := r.backend.InflectForm(lemma, "", selector); ok {
			r.candidate = f
			return true
		}
	}
	return false
}

func agree(a, b map[string]string, features []string) bool {
	for _, f := range features {
		av, aok := a[f]
		bv, bok := b[f]
		if !aok || !bok || av != bv {
			return false
		}
	}
	return true
}

func commonLemma(words []*token.Token) string {
	if len(words) == 0 {
		return ""
	}
	return words[0].Lemma
}

func matchesSelector(tag token.Tag, flavour token.Flavour, selector map[string]string) bool {
	if len(selector) == 0 {
		return true
	}
	props := parseTagString(tagString(tag, flavour), flavour)
	for k, v := range selector {
		if props[k] != v {
			return false
		}
	}
	return true
}

// tagString renders a token's tag for comparison/output purposes, via
// token.EncodeTag (the Go analogue of the original's convert_dict_to_string).
func tagString(tag token.Tag, flavour token.Flavour) string {
	return token.EncodeTag(tag, flavour)
}

// parseTagString reverses tagString for the featural flavour; for the
// compact flavour it requires an mdss, handled by tagmodel at the caller,
// so here it returns an empty map (compact agreement decoding happens via
// tagmodel.ToProperties at a higher layer where the TagSet is available).
func parseTagString(s string, flavour token.Flavour) map[string]string {
	if flavour != token.Featural {
		return map[string]string{}
	}
	feat, _ := token.DecodeTag(s, flavour).(token.Featural)
	return feat
}

// Engine renders every component's representation for one collocation,
// given the accumulated token instances from every match.
type Engine struct {
	flavour token.Flavour
	backend Backend
}

// NewEngine builds a representation engine for one corpus's tag flavour.
func NewEngine(flavour token.Flavour, backend Backend) *Engine {
	return &Engine{flavour: flavour, backend: backend}
}

// BuildRecipes instantiates and wires (agreement-linked) recipes for every
// component of s, per the wire-up pass described in §4.4.
func (e *Engine) BuildRecipes(s *structure.Structure) (map[string][]*Recipe, error) {
	out := map[string][]*Recipe{}
	var walk func(c *structure.Component)
	walk = func(c *structure.Component) {
		for _, rep := range c.Representations {
			out[c.Idx] = append(out[c.Idx], NewRecipe(rep, e.flavour, e.backend))
		}
		for _, edge := range c.Children {
			walk(edge.Child)
		}
	}
	walk(s.Root)

	for cid, recipes := range out {
		for _, rec := range recipes {
			headCID, isDependent := rec.AgreementHead()
			if !isDependent {
				continue
			}
			heads, ok := out[headCID]
			if !ok || len(heads) != 1 {
				return nil, agreementHeadCountError(cid, headCID, len(heads))
			}
			heads[0].RegisterAgreementPeer(rec)
		}
	}
	return out, nil
}

// Feed adds one match's tokens into the recipes for every component they
// fill.
func Feed(recipes map[string][]*Recipe, assignment map[string]*token.Token) {
	for cid, tok := range assignment {
		for _, rec := range recipes[cid] {
			rec.AddWord(tok)
		}
	}
}

// PendingLookup is one backend consultation a recipe may need at Render
// time, surfaced so a caller can batch every recipe's lookups into one
// backend.Warm call before rendering, per the "batch-and-cache across the
// whole representation pass" design note. It carries the same shape as
// package lookup's LookupRequest without this package importing lookup.
type PendingLookup struct {
	Lemma         string
	Category      string
	LemmaFeatures map[string]string
	FormFeatures  map[string]string
}

// PlanLookups reports every backend consultation RenderAll might perform
// for recipes, given their currently fed words. It is conservative: a
// lookup it plans may go unused if an observed form already satisfies the
// recipe, since a cache miss just means InflectForm returns false and the
// recipe falls back to its observed candidates.
func PlanLookups(recipes map[string][]*Recipe) []PendingLookup {
	var out []PendingLookup
	for _, list := range recipes {
		for _, rec := range list {
			if rec.backend == nil || len(rec.words) == 0 {
				continue
			}
			head := rec.words[0]
			switch rec.variant {
			case structure.RepLemma:
				out = append(out, PendingLookup{Lemma: head.Lemma, Category: head.Tag.Category()})
			case structure.RepWordFormMSD:
				out = append(out, PendingLookup{Lemma: commonLemma(rec.words), FormFeatures: rec.msdSelector})
			case structure.RepWordFormAgreement:
				selector := map[string]string{}
				for _, w := range rec.words {
					props := parseTagString(tagString(w.Tag, rec.flavour), rec.flavour)
					for _, f := range rec.features {
						if v, ok := props[f]; ok {
							selector[f] = v
						}
					}
				}
				out = append(out, PendingLookup{Lemma: commonLemma(rec.words), FormFeatures: selector})
			}
		}
	}
	return out
}

// RenderAll renders every non-dependent recipe (dependent agreement
// recipes render as a side effect of their head's commitAgreements call),
// returning the joined (text, tag) per component.
func RenderAll(recipes map[string][]*Recipe) map[string]Form {
	// Heads first: a dependent agreement recipe's result is produced as a
	// side effect of its head's renderAny/commitAgreements call, so heads
	// must run before any dependent is read, regardless of map order.
	for _, list := range recipes {
		for _, rec := range list {
			if _, isDependent := rec.AgreementHead(); !isDependent {
				rec.Render()
			}
		}
	}

	out := make(map[string]Form, len(recipes))
	for cid, list := range recipes {
		var texts, tags []string
		anyRendered := false
		for _, rec := range list {
			f := rec.Render() // no-op if already rendered by the pass above or by commitAgreements
			if f.Text != "" {
				anyRendered = true
			}
			texts = append(texts, f.Text)
			tags = append(tags, f.Tag)
		}
		if !anyRendered {
			continue
		}
		out[cid] = Form{Text: strings.Join(texts, " "), Tag: strings.Join(tags, " ")}
	}
	return out
}
