// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package matcher implements the depth-first structure pattern matcher: for
// a given component graph and a candidate starting token, it yields every
// injective assignment of component ids to tokens consistent with the
// structure's restrictions, orders and forbidden/required children.
//
// Grounded on Component.match/_match_next in
// original_source/cordex/structures/component.py.
package matcher

import (
	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
)

// Assignment maps a component idx to the token bound to it.
type Assignment map[string]*token.Token

// Match attempts to bind component c, and recursively its children, starting
// at word. It returns every successful assignment plus true, or (nil, false)
// if c's own restriction fails, or a required child never matched, or a
// forbidden child matched somewhere.
func Match(c *structure.Component, word *token.Token) ([]Assignment, bool) {
	if !c.Restrictions.Match(word) {
		return nil, false
	}
	self := Assignment{c.Idx: word}

	childResults, ok := matchChildren(c, word)
	if !ok {
		return nil, false
	}

	results := []Assignment{self}
	for _, edgeAssignments := range childResults {
		if len(edgeAssignments) == 0 {
			continue
		}
		var composed []Assignment
		for _, base := range results {
			for _, candidate := range edgeAssignments {
				if injective(base, candidate) {
					composed = append(composed, merge(base, candidate))
				}
			}
		}
		if len(composed) == 0 {
			return nil, false
		}
		results = composed
	}
	return results, true
}

// matchChildren matches every child edge of c against word's linked tokens,
// gathering the assignments contributed by each edge. It reports ok=false if
// any required child finds no match, or any forbidden child finds one.
func matchChildren(c *structure.Component, word *token.Token) ([][]Assignment, bool) {
	out := make([][]Assignment, 0, len(c.Children))
	for _, e := range c.Children {
		candidates := word.Children(e.Label)

		var edgeAssignments []Assignment
		good := e.Child.Status != structure.Required
		for _, candidate := range candidates {
			if !e.Order.Match(word, candidate) {
				continue
			}
			sub, matched := Match(e.Child, candidate)
			if !matched {
				continue
			}
			if e.Child.Status == structure.Forbidden {
				good = false
				break
			}
			edgeAssignments = append(edgeAssignments, sub...)
			good = true
		}
		if !good {
			return nil, false
		}
		out = append(out, edgeAssignments)
	}
	return out, true
}

// injective reports whether merging a and b would keep the assignment
// injective: no token bound to two different component ids.
func injective(a, b Assignment) bool {
	bound := make(map[*token.Token]bool, len(a))
	for _, t := range a {
		bound[t] = true
	}
	for _, t := range b {
		if bound[t] {
			return false
		}
	}
	return true
}

func merge(a, b Assignment) Assignment {
	out := make(Assignment, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// MatchSentence drives a structure's compiled graph against one sentence.
// The structure's root is always the loader's synthetic '#' component
// (structure.RootIdx); each of its direct children is tried the way its
// edge says to: a component reached via the RootLabel ("modra") edge is
// anchored at the sentence's own dependency root(s) only (sentence.Root's
// "modra" link, built by token.NewRoot), while an ordinary top-level
// component — one that simply declared no incoming dependency — is tried
// against every real token, as if it were matched anywhere in the
// sentence.
//
// Grounded on the per-sentence driving loop implied by §4.2's "per token,
// per structure" algorithm statement, generalized for the synthetic-root
// anchoring of §4.1 step 2 and the glossary's "Synthetic root (modra)".
func MatchSentence(s *structure.Structure, sentence *token.Sentence) []Assignment {
	var all []Assignment
	for _, e := range s.Root.Children {
		if e.Label == structure.RootLabel {
			for _, candidate := range sentence.Root.Children(e.Label) {
				assignments, ok := Match(e.Child, candidate)
				if !ok {
					continue
				}
				all = append(all, assignments...)
			}
			continue
		}
		for _, tok := range sentence.Tokens {
			assignments, ok := Match(e.Child, tok)
			if !ok {
				continue
			}
			all = append(all, assignments...)
		}
	}
	return all
}
