// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package postprocess applies optional, language-specific fixes to a
// matched assignment after matching but before a match is recorded:
// Slovenian s/z and k/h voicing assimilation, and a check that component
// indices follow sentence order.
//
// Grounded on original_source/cordex/postprocessors/postprocessor.py's
// Postprocessor class.
package postprocess

import (
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/clarinsi/cordex/internal/matcher"
)

// Processor runs the optional per-match postprocessing steps of §4.6.
type Processor struct {
	lang                  string
	fixedRestrictionOrder bool
}

// New builds a Processor. lang enables the voicing-assimilation fixes
// when set to "sl"; fixedRestrictionOrder enables the component-order
// check.
func New(lang string, fixedRestrictionOrder bool) *Processor {
	return &Processor{lang: lang, fixedRestrictionOrder: fixedRestrictionOrder}
}

var szUnvoicedFollowers = map[rune]bool{
	'c': true, 'č': true, 'f': true, 'h': true, 'k': true,
	'p': true, 's': true, 'š': true, 't': true,
}

// fixSZ picks between the prepositions "s" and "z" depending on the
// voicing of nextLemma's first letter.
func fixSZ(nextLemma string) string {
	if first, _ := utf8.DecodeRuneInString(nextLemma); szUnvoicedFollowers[first] {
		return "s"
	}
	return "z"
}

var khVoicedFollowers = map[byte]bool{'g': true, 'k': true}

// fixKH picks between the prepositions "k" and "h" depending on the
// voicing of nextLemma's first letter.
func fixKH(nextLemma string) string {
	if nextLemma != "" && khVoicedFollowers[nextLemma[0]] {
		return "h"
	}
	return "k"
}

// FixVoicing returns surface-text overrides, keyed by component index,
// for every interior one-letter preposition component whose lemma is
// s/z or k/h, chosen by the following component's lemma. It never
// mutates the matched tokens themselves: a token may be shared by
// several matches of the same sentence, so the caller applies the
// overrides to the surface text it records for the match instead.
// Returns nil when the lang toggle is off
// or the assignment is too small to have an "interior".
func (p *Processor) FixVoicing(assignment matcher.Assignment) map[string]string {
	if p.lang != "sl" {
		return nil
	}
	idxs := orderedComponentIdxs(assignment)
	if len(idxs) <= 2 {
		return nil
	}

	overrides := map[string]string{}
	for i := 1; i < len(idxs)-1; i++ {
		lemma := assignment[idxs[i]].Lemma
		next := assignment[idxs[i+1]].Lemma
		switch lemma {
		case "s", "z":
			overrides[idxs[i]] = fixSZ(next)
		case "k", "h":
			overrides[idxs[i]] = fixKH(next)
		}
	}
	return overrides
}

// IsFixedRestrictionOrder reports whether assignment's component indices
// are non-decreasing along sentence position, per the
// fixed_restriction_order check; it is vacuously true when that check is
// disabled.
func (p *Processor) IsFixedRestrictionOrder(assignment matcher.Assignment) bool {
	if !p.fixedRestrictionOrder {
		return true
	}

	type bound struct {
		idx   int
		intID int
	}
	var bounds []bound
	for k, tok := range assignment {
		if k == "#" {
			continue
		}
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		bounds = append(bounds, bound{idx: n, intID: tok.IntID})
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].intID < bounds[j].intID })

	prev := -1
	for _, b := range bounds {
		if prev > b.idx {
			return false
		}
		prev = b.idx
	}
	return true
}

// orderedComponentIdxs returns assignment's component indices (excluding
// the synthetic root key "#") sorted by their own numeric value,
// matching the component-definition order the voicing fix walks.
func orderedComponentIdxs(assignment matcher.Assignment) []string {
	idxs := make([]string, 0, len(assignment))
	for k := range assignment {
		if k == "#" {
			continue
		}
		idxs = append(idxs, k)
	}
	sort.Slice(idxs, func(i, j int) bool {
		ni, ierr := strconv.Atoi(idxs[i])
		nj, jerr := strconv.Atoi(idxs[j])
		if ierr != nil || jerr != nil {
			return idxs[i] < idxs[j]
		}
		return ni < nj
	})
	return idxs
}
