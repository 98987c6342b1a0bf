// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package tagmodel converts between the compact ("xpos", one character per
// feature) tag string and a canonical property map, and translates compact
// tags between the two supported language variants (English-coded JOS and
// Slovene-coded JOS). It also distinguishes lexeme-level from form-level
// features.
//
// Grounded on cordex/utils/converter.py's OptimizedConverter: a
// category-indexed table of (feature name, per-position code->value)
// precomputed once at load, matching Design Notes' "dynamic feature maps"
// hot-path advice.
package tagmodel

import (
	"github.com/samber/oops"
)

// FeatureValue names one decoded (feature, value) pair for a tag position.
type FeatureValue struct {
	Feature string
	Value   string
}

// positionAlphabet maps a one-character code to its decoded feature/value
// for a single tag position.
type positionAlphabet map[byte]FeatureValue

// Category describes one compact-tag category: its name and the ordered
// per-position alphabets used to decode the remaining characters of the tag.
type Category struct {
	Name         string
	Positions    []positionAlphabet
	LexemeLevel  map[string]bool // feature name -> true if lexeme-level (invariant across forms)
}

// TagSet is the tag-set metadata for one language variant: a category table
// plus the feature-name<->code bijection needed by the expression parser
// (restriction values are written using feature/code names, not raw
// position indices).
type TagSet struct {
	Categories map[byte]*Category

	// codeToName and nameToCode support features whose values must be
	// looked up or re-encoded by name rather than by position, e.g. when
	// a restriction spells out "gender=feminine" instead of a raw code.
	codeToName map[string]string // "feature:code" -> value-name
	nameToCode map[string]string // "feature:value-name" -> code
}

// NewTagSet builds the bijections from a populated Categories map. Call
// after filling Categories (normally done by a loader reading the bundled
// tag-set specification).
func NewTagSet(categories map[byte]*Category) *TagSet {
	ts := &TagSet{
		Categories: categories,
		codeToName: make(map[string]string),
		nameToCode: make(map[string]string),
	}
	for _, cat := range categories {
		for _, pos := range cat.Positions {
			for code, fv := range pos {
				key := fv.Feature + ":" + string(code)
				ts.codeToName[key] = fv.Value
				ts.nameToCode[fv.Feature+":"+fv.Value] = string(code)
			}
		}
	}
	return ts
}

// Properties is the decoded form of a compact tag: POS plus per-feature
// values.
type Properties map[string]string

// ToProperties decodes a compact tag string into a property map. The first
// character selects the category; each subsequent character is decoded
// against that category's positional alphabet, '-' meaning unset. An
// unrecognised category or an out-of-alphabet character is a tag-decode
// error (§7: "treated as restriction mismatch; not fatal").
func (ts *TagSet) ToProperties(msd string) (Properties, error) {
	if len(msd) == 0 {
		return nil, oops.Code("TAG_DECODE_ERROR").Errorf("empty tag")
	}
	cat, ok := ts.Categories[msd[0]]
	if !ok {
		return nil, oops.Code("TAG_DECODE_ERROR").With("category", string(msd[0])).Errorf("unknown tag category")
	}

	props := Properties{"pos": cat.Name}
	for i := 1; i < len(msd); i++ {
		if msd[i] == '-' {
			continue
		}
		posIdx := i - 1
		if posIdx >= len(cat.Positions) {
			return nil, oops.Code("TAG_DECODE_ERROR").With("tag", msd).Errorf("tag longer than category's feature positions")
		}
		fv, ok := cat.Positions[posIdx][msd[i]]
		if !ok {
			return nil, oops.Code("TAG_DECODE_ERROR").With("tag", msd).With("position", posIdx).Errorf("code not in alphabet")
		}
		props[fv.Feature] = fv.Value
	}
	return props, nil
}

// IsLexemeLevel reports whether feature is lexeme-level (fixed for all
// forms of a lemma) for the given category, as opposed to form-level
// (varies per form, e.g. case).
func (ts *TagSet) IsLexemeLevel(categoryCode byte, feature string) bool {
	cat, ok := ts.Categories[categoryCode]
	if !ok {
		return false
	}
	return cat.LexemeLevel[feature]
}

// Variant identifies a compact-tag language variant (the two flavours named
// in spec.md §2's "single-direction translation between two language
// variants of the compact tag").
type Variant string

const (
	VariantEnglish  Variant = "en"
	VariantSlovene  Variant = "sl"
)

// Translator performs single-direction translation of a compact tag from
// one variant to another, via a precomputed lookup table (grounded on
// translate_jos_depparse in converter.py, which only translates en->sl).
type Translator struct {
	from, to Variant
	table    map[string]string
}

// NewTranslator builds a translator from a precomputed tag->tag table.
func NewTranslator(from, to Variant, table map[string]string) *Translator {
	return &Translator{from: from, to: to, table: table}
}

// Translate converts tag from t.from to t.to. An unrecognised tag is an
// error: the original raises ValueError suggesting the caller may have the
// wrong jos_depparse_lang configured.
func (t *Translator) Translate(tag string) (string, error) {
	out, ok := t.table[tag]
	if !ok {
		return "", oops.Code("TAG_TRANSLATION_UNKNOWN").
			With("tag", tag).With("from", string(t.from)).With("to", string(t.to)).
			Errorf("tag %q is not recognized in the %s->%s translation table; check jos_depparse_lang", tag, t.from, t.to)
	}
	return out, nil
}
