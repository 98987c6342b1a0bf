// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

import (
	"io"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/clarinsi/cordex/internal/restriction"
	"github.com/clarinsi/cordex/internal/structure/exprparser"
	"github.com/clarinsi/cordex/internal/tagmodel"
	"github.com/clarinsi/cordex/internal/token"
)

// LoadFile reads and compiles a structure file from disk.
func LoadFile(path string, tagSet *tagmodel.TagSet) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("path", path).Wrapf(err, "opening structure file")
	}
	defer f.Close()
	return Load(f, tagSet)
}

// Load decodes and compiles a structure document from r.
//
// Grounded on SyntacticStructure.from_xml in
// cordex/structures/syntactic_structure.py, reinterpreted for the
// gopkg.in/yaml.v3 structure-file format chosen in SPEC_FULL.md.
func Load(r io.Reader, tagSet *tagmodel.TagSet) (*Library, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Wrapf(err, "decoding structure file")
	}

	if doc.SystemType == "" {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Errorf("structure file missing mandatory system_type")
	}
	if doc.GrammarVersion == 0 {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Errorf("structure file missing mandatory grammar_version")
	}
	if err := checkVersion(doc.RequiresVersion); err != nil {
		return nil, err
	}

	var flavour token.Flavour
	switch doc.SystemType {
	case "xpos", "jos", "compact":
		flavour = token.Compact
	case "udpos", "ud", "featural":
		flavour = token.Featural
	default:
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("system_type", doc.SystemType).
			Errorf("unknown system_type %q", doc.SystemType)
	}

	lib := &Library{SystemType: flavour, GrammarVersion: doc.GrammarVersion}
	for _, sd := range doc.Structures {
		if sd.Type == "formal" && sd.Formal.Descendants {
			continue // formal structures with formal_descendants are excluded from compilation, per §4.1/§6.
		}
		s, err := compileStructure(sd, flavour, tagSet)
		if err != nil {
			return nil, oops.With("structure_id", sd.ID).Wrap(err)
		}
		lib.Structures = append(lib.Structures, s)
	}
	return lib, nil
}

func compileStructure(sd StructureDef, flavour token.Flavour, tagSet *tagmodel.TagSet) (*Structure, error) {
	if sd.ID == "" {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").Errorf("structure missing mandatory id")
	}

	defs := make(map[string]DefinitionDef, len(sd.Definitions))
	for _, d := range sd.Definitions {
		defs[d.CID] = d
	}

	components := make(map[string]*Component, len(sd.Components))
	for _, cd := range sd.Components {
		if cd.CID == "" {
			return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("structure_id", sd.ID).
				Errorf("component missing mandatory cid")
		}
		status, err := ParseStatus(cd.Status)
		if err != nil {
			return nil, err
		}
		typ := Other
		switch cd.Type {
		case "core":
			typ = Core
		case "core2w", "core-of-two-words":
			typ = CoreOfTwoWords
		}
		group, reps, err := compileDefinition(defs[cd.CID], flavour, tagSet)
		if err != nil {
			return nil, oops.With("cid", cd.CID).Wrap(err)
		}
		components[cd.CID] = &Component{
			Idx:             cd.CID,
			Status:          status,
			Type:            typ,
			Restrictions:    group,
			Representations: reps,
		}
	}

	// Build the synthetic root component (idx '#') per §4.1 step 2. It is
	// resolvable as an explicit dependency endpoint too, so a structure
	// file's own `from: "#"`/`label: modra` edge anchors a component at the
	// sentence's real dependency root via token.NewRoot's "modra" link.
	root := &Component{
		Idx:          RootIdx,
		Status:       Required,
		Type:         Other,
		Restrictions: &restriction.Group{Members: []restriction.Restriction{restriction.MatchAllRestriction{}}},
	}
	lookup := make(map[string]*Component, len(components)+1)
	for id, c := range components {
		lookup[id] = c
	}
	lookup[RootIdx] = root

	hasIncoming := make(map[string]bool, len(components))
	for _, dd := range sd.Dependencies {
		from, ok := lookup[dd.From]
		if !ok {
			return nil, componentNotFound(dd.From)
		}
		to, ok := lookup[dd.To]
		if !ok {
			return nil, componentNotFound(dd.To)
		}
		order, err := ParseOrder(dd.Order)
		if err != nil {
			return nil, err
		}
		from.Children = append(from.Children, Edge{Child: to, Label: dd.Label, Order: order})
		hasIncoming[dd.To] = true
	}

	// Every component left without an incoming edge becomes a direct child
	// of the synthetic root (§4.1 step 2's "build its direct children");
	// this also catches a multi-root pattern's later components, which
	// previously were left reachable nowhere. These are plain unanchored
	// attachments, not modra edges: only a pattern that explicitly wrote
	// `from: "#"`/`label: modra` in its dependency list (handled above,
	// which already marks hasIncoming) anchors at the sentence's real
	// dependency root.
	for _, cd := range sd.Components {
		if !hasIncoming[cd.CID] {
			root.Children = append(root.Children, Edge{Child: components[cd.CID], Label: implicitRootLabel})
		}
	}

	if err := checkAcyclic(root, nil, map[string]bool{}); err != nil {
		return nil, err
	}

	reachable := map[string]bool{}
	var markReachable func(c *Component)
	markReachable = func(c *Component) {
		if reachable[c.Idx] {
			return
		}
		reachable[c.Idx] = true
		for _, e := range c.Children {
			markReachable(e.Child)
		}
	}
	markReachable(root)
	for _, cd := range sd.Components {
		if !reachable[cd.CID] {
			return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("structure_id", sd.ID).With("cid", cd.CID).
				Errorf("component %q is unreachable from the structure root (a dependency cycle with no entry point)", cd.CID)
		}
	}

	var sortAll func(c *Component)
	sortAll = func(c *Component) {
		sortByRequiredness(c.Children)
		for _, e := range c.Children {
			sortAll(e.Child)
		}
	}
	sortAll(root)

	coreA, coreB, err := selectCore(flavour, root)
	if err != nil {
		return nil, err
	}

	return &Structure{ID: sd.ID, Root: root, Index: components, CoreA: coreA, CoreB: coreB}, nil
}

func checkAcyclic(c *Component, path []string, onPath map[string]bool) error {
	if onPath[c.Idx] {
		return cycleDetected(append(append([]string{}, path...), c.Idx))
	}
	onPath[c.Idx] = true
	defer delete(onPath, c.Idx)
	path = append(path, c.Idx)
	for _, e := range c.Children {
		if err := checkAcyclic(e.Child, path, onPath); err != nil {
			return err
		}
	}
	return nil
}

func compileDefinition(d DefinitionDef, flavour token.Flavour, tagSet *tagmodel.TagSet) (*restriction.Group, []Representation, error) {
	group := &restriction.Group{Combinator: restriction.And}
	if len(d.Restriction) == 0 && len(d.RestrictionOr) == 0 {
		group.Members = append(group.Members, restriction.MatchAllRestriction{})
	}
	for _, rd := range d.Restriction {
		r, err := compileRestriction(rd, flavour, tagSet)
		if err != nil {
			return nil, nil, err
		}
		group.Members = append(group.Members, r)
	}
	if len(d.RestrictionOr) > 0 {
		orGroup := &restriction.Group{Combinator: restriction.Or}
		for _, rd := range d.RestrictionOr {
			r, err := compileRestriction(rd, flavour, tagSet)
			if err != nil {
				return nil, nil, err
			}
			orGroup.Members = append(orGroup.Members, r)
		}
		group.Members = append(group.Members, orGroup)
	}

	reps := make([]Representation, 0, len(d.Representation))
	for _, rd := range d.Representation {
		rep, err := compileRepresentation(rd)
		if err != nil {
			return nil, nil, err
		}
		reps = append(reps, rep)
	}
	return group, reps, nil
}

func compileRestriction(rd RestrictionDef, flavour token.Flavour, tagSet *tagmodel.TagSet) (restriction.Restriction, error) {
	switch rd.Type {
	case "morphology":
		exprs, err := exprparser.ParseAll(rd.Features)
		if err != nil {
			return nil, err
		}
		constraints := exprsToConstraints(exprs)
		if flavour == token.Featural {
			return restriction.NewMorphologyFeaturalRestriction(constraints)
		}
		return restriction.NewMorphologyRestriction(tagSet, constraints)
	case "lexis":
		var entries []string
		for _, f := range rd.Features {
			entries = append(entries, f)
		}
		return restriction.NewLexisRestriction(entries)
	case "space":
		return restriction.NewSpaceRestriction(rd.Features)
	default:
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("type", rd.Type).
			Errorf("unknown restriction type %q", rd.Type)
	}
}

func exprsToConstraints(exprs []*exprparser.Expr) []restriction.FeatureConstraint {
	out := make([]restriction.FeatureConstraint, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, restriction.FeatureConstraint{
			Feature: e.Feature,
			Allowed: e.ValueSet(),
			Negate:  e.Negate,
		})
	}
	return out
}

func compileRepresentation(rd RepresentationDef) (Representation, error) {
	switch {
	case rd.Rendition == "lemma":
		return Representation{Variant: RepLemma}, nil
	case rd.Rendition == "lexis":
		return Representation{Variant: RepLexis, Lexis: rd.Lexis}, nil
	case rd.Rendition == "word-form-all":
		return Representation{Variant: RepWordFormAll}, nil
	case rd.Rendition == "word-form-any":
		return Representation{Variant: RepWordFormAny}, nil
	case rd.Rendition == "word-form-msd":
		return Representation{Variant: RepWordFormMSD, MSDSelector: rd.MSD}, nil
	case rd.Selection == "word-form-agreement":
		if len(rd.Agreement) == 0 || rd.Other == "" {
			return Representation{}, oops.Code("STRUCTURE_LOAD_FAILED").
				Errorf("word-form-agreement representation requires agreement features and an other component")
		}
		return Representation{
			Variant: RepWordFormAgreement,
			Agreement: &AgreementSpec{
				Features:       rd.Agreement,
				OtherComponent: rd.Other,
			},
		}, nil
	default:
		return Representation{}, oops.Code("STRUCTURE_LOAD_FAILED").
			With("rendition", rd.Rendition).With("selection", rd.Selection).
			Errorf("unknown representation recipe")
	}
}
