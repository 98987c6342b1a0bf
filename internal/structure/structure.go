// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/token"
)

// EngineVersion is the version of this engine, checked against a document's
// requires_version constraint.
var EngineVersion = semver.MustParse("1.0.0")

// RootIdx is the synthetic root component's id, built by the loader per
// §4.1 step 2 so every structure's top-level components hang off one node
// regardless of how many of them have no incoming dependency edge.
const RootIdx = "#"

// RootLabel is the edge label an explicit `from: "#"` dependency declares
// to anchor a component at the sentence's real dependency root, via the
// synthetic root token's "modra" link (token.NewRoot).
const RootLabel = "modra"

// implicitRootLabel marks a synthetic-root edge the loader added on its own,
// for a component that simply declared no incoming dependency. It is never
// equal to RootLabel: only a pattern that explicitly wrote `from: "#"` with
// `label: modra` anchors at the sentence's real dependency root. A component
// reached through this label is tried against every token of the sentence,
// per the glossary's "otherwise the root component is the first real
// component" fallback.
const implicitRootLabel = "$unanchored$"

// ppbContentDeprels are the deprels accepted as the content-bearing member
// of a featural core-of-two-words pair. The original codes_tagset.py table
// was not part of the retrieved sources; this set follows Universal
// Dependencies' core nominal/clausal relations.
var ppbContentDeprels = map[string]bool{
	"nsubj": true, "nsubj:pass": true, "obj": true, "iobj": true,
	"amod": true, "advmod": true, "nmod": true, "obl": true,
	"csubj": true, "xcomp": true, "ccomp": true,
}

// Structure is one compiled syntactic structure pattern: a component graph
// rooted at Root, with the core-of-two-words pair resolved up front so the
// matcher and statistics passes don't have to recompute it per match.
//
// Grounded on SyntacticStructure in cordex/structures/syntactic_structure.py.
type Structure struct {
	ID     string
	Root   *Component
	Index  map[string]*Component

	// CoreA, CoreB are the two components selected for the collocation's
	// core key, in stable (A, B) order. Nil when the structure has no
	// core-of-two-words pair (statistics are computed keyless, frequency
	// only).
	CoreA *Component
	CoreB *Component
}

// Library is a compiled set of structures sharing one annotation system and
// grammar version, as produced by the loader from a Document.
type Library struct {
	SystemType     token.Flavour
	GrammarVersion int
	Structures     []*Structure
}

// ByID looks up a compiled structure by its declared id.
func (l *Library) ByID(id string) (*Structure, bool) {
	for _, s := range l.Structures {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// ComponentOrder lists every component id of the structure, sorted
// numerically when ids parse as integers (the common case) and
// lexicographically otherwise. The writer's per-component output
// columns and the sentence-mapper's token-id lists both iterate
// components in this order.
func (s *Structure) ComponentOrder() []string {
	ids := make([]string, 0, len(s.Index))
	for id := range s.Index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, ierr := strconv.Atoi(ids[i])
		nj, jerr := strconv.Atoi(ids[j])
		if ierr == nil && jerr == nil {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// CoreComponents returns every component whose Type is not Other, the
// "corew" set formatter.py's LogDice_all denominator sums over.
func (s *Structure) CoreComponents() []*Component {
	var out []*Component
	for _, id := range s.ComponentOrder() {
		c := s.Index[id]
		if c.Type != Other {
			out = append(out, c)
		}
	}
	return out
}

// checkVersion enforces a document's requires_version constraint against
// EngineVersion, per the structure-file mandatory-field rule in §4.1/§6.
func checkVersion(requires string) error {
	if requires == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(requires)
	if err != nil {
		return oops.Code("STRUCTURE_LOAD_FAILED").With("requires_version", requires).
			Wrapf(err, "invalid requires_version constraint")
	}
	if !constraint.Check(EngineVersion) {
		return oops.Code("STRUCTURE_LOAD_FAILED").
			With("requires_version", requires).
			With("engine_version", EngineVersion.String()).
			Errorf("structure file requires %s, engine is %s", requires, EngineVersion)
	}
	return nil
}

// selectCore resolves the core-of-two-words pair for one structure, using
// content-bearing deprels for featural tag sets and ppb ranking for compact
// ones. It returns (nil, nil, nil) when the structure declares no
// CoreOfTwoWords components at all.
//
// Grounded on determine_core2w_ud / determine_core2w in
// cordex/structures/syntactic_structure.py.
func selectCore(flavour token.Flavour, root *Component) (*Component, *Component, error) {
	var candidates []*Component
	var edgesInto map[string]string // child idx -> incoming label

	edgesInto = map[string]string{}
	var walk func(c *Component)
	walk = func(c *Component) {
		if c.Type == CoreOfTwoWords {
			candidates = append(candidates, c)
		}
		for _, e := range c.Children {
			edgesInto[e.Child.Idx] = e.Label
			walk(e.Child)
		}
	}
	walk(root)

	if len(candidates) == 0 {
		return nil, nil, nil
	}
	if len(candidates) == 1 {
		return nil, nil, oops.Code("STRUCTURE_LOAD_FAILED").
			With("component", candidates[0].Idx).
			Errorf("core-of-two-words requires exactly two components, found 1")
	}
	if len(candidates) > 2 {
		if flavour == token.Featural {
			var content []*Component
			for _, c := range candidates {
				if ppbContentDeprels[edgesInto[c.Idx]] {
					content = append(content, c)
				}
			}
			if len(content) != 1 {
				return nil, nil, oops.Code("STRUCTURE_LOAD_FAILED").
					Errorf("core-of-two-words is ambiguous: %d content-bearing candidates among %d", len(content), len(candidates))
			}
			var other *Component
			for _, c := range candidates {
				if c != content[0] {
					other = c
					break
				}
			}
			return content[0], other, nil
		}
		return nil, nil, oops.Code("STRUCTURE_LOAD_FAILED").
			Errorf("core-of-two-words has %d candidates, expected 2", len(candidates))
	}

	a, b := candidates[0], candidates[1]
	if flavour != token.Compact {
		return a, b, nil
	}

	// Compact flavour: rank by ppb, lower wins. A tie is a load-time error
	// so corpus builders catch ambiguous structures before any stats run.
	ppbA, okA := componentPPB(a)
	ppbB, okB := componentPPB(b)
	if !okA || !okB {
		return a, b, nil
	}
	switch {
	case ppbA < ppbB:
		return a, b, nil
	case ppbB < ppbA:
		return b, a, nil
	default:
		return nil, nil, oops.Code("STRUCTURE_LOAD_FAILED").
			With("component_a", a.Idx).With("component_b", b.Idx).
			Errorf("core-of-two-words ppb tie between %s and %s", a.Idx, b.Idx)
	}
}

// componentPPB extracts a morphology restriction's precomputed ppb score,
// if the component's restriction group carries exactly one compact
// morphology restriction at its top level.
func componentPPB(c *Component) (int, bool) {
	if c.Restrictions == nil {
		return 0, false
	}
	for _, m := range c.Restrictions.Members {
		if mr, ok := m.(ppbScorer); ok {
			return mr.PPB(), true
		}
	}
	return 0, false
}

// ppbScorer is satisfied by *restriction.MorphologyRestriction without an
// import cycle: structure depends on restriction, not vice versa, and this
// keeps the PPB() accessor usage local to an unexported interface.
type ppbScorer interface {
	PPB() int
}

// sortByRequiredness is used by the loader to give required components
// priority during matching (descending selectivity starts at the most
// constrained edges), per §4.2.
func sortByRequiredness(children []Edge) {
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Child.Status < children[j].Child.Status
	})
}

func componentNotFound(idx string) error {
	return oops.Code("STRUCTURE_LOAD_FAILED").With("cid", idx).
		Errorf("component %q referenced but not defined", idx)
}

func cycleDetected(path []string) error {
	return oops.Code("STRUCTURE_LOAD_FAILED").With("path", fmt.Sprint(path)).
		Errorf("structure graph has a cycle: %v", path)
}
