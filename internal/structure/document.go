// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package structure

// Document is the root of a structure file: a library of syntactic
// structures for one annotation system.
//
// Grounded on the structure-file contract in spec.md §4.1/§6, rendered as
// YAML per SPEC_FULL.md's domain-stack choice (gopkg.in/yaml.v3) instead of
// the upstream XML dialect.
type Document struct {
	SystemType      string             `yaml:"system_type"`
	GrammarVersion  int                `yaml:"grammar_version"`
	RequiresVersion string             `yaml:"requires_version,omitempty"`
	Structures      []StructureDef     `yaml:"syntactic_structure"`
}

// StructureDef is one `syntactic_structure` entry.
type StructureDef struct {
	ID           string             `yaml:"id"`
	Type         string             `yaml:"type"` // collocation | formal | ...
	Formal       FormalFlags        `yaml:"formal,omitempty"`
	Components   []ComponentDef     `yaml:"components"`
	Dependencies []DependencyDef    `yaml:"dependencies"`
	Definitions  []DefinitionDef    `yaml:"definitions"`
}

// FormalFlags carries the `formal_descendants` flag from §4.1/§6: formal
// structures with formal_descendants are excluded from compilation.
type FormalFlags struct {
	Descendants bool `yaml:"formal_descendants,omitempty"`
}

// ComponentDef is a component descriptor: `cid`, label, type, status.
type ComponentDef struct {
	CID    string `yaml:"cid"`
	Label  string `yaml:"label,omitempty"`
	Type   string `yaml:"type"` // core | other
	Status string `yaml:"status,omitempty"`
}

// DependencyDef is a `dependency` edge.
type DependencyDef struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Label string `yaml:"label"`
	Order string `yaml:"order,omitempty"`
}

// DefinitionDef is a per-component `definition` block: restrictions plus
// representation recipes.
type DefinitionDef struct {
	CID             string               `yaml:"cid"`
	Restriction     []RestrictionDef     `yaml:"restriction,omitempty"`
	RestrictionOr   []RestrictionDef     `yaml:"restriction_or,omitempty"`
	Representation  []RepresentationDef  `yaml:"representation,omitempty"`
}

// RestrictionDef is one `restriction` tag: a type plus feature-value
// expressions, compiled via exprparser.
type RestrictionDef struct {
	Type     string   `yaml:"type"` // morphology | lexis | space
	Features []string `yaml:"features"` // e.g. "POS=adjective", "filter=negative;gender=feminine"
}

// RepresentationDef is one `representation` block: an ordered list of
// `feature` entries naming the rendition/selection variant and its data.
type RepresentationDef struct {
	Rendition   string            `yaml:"rendition,omitempty"`   // lemma | lexis | word-form-all | word-form-any | word-form-msd
	Selection   string            `yaml:"selection,omitempty"`   // word-form-agreement uses "selection" instead of "rendition"
	Lexis       string            `yaml:"lexis,omitempty"`
	MSD         map[string]string `yaml:"msd,omitempty"`
	Agreement   []string          `yaml:"agreement,omitempty"`
	Other       string            `yaml:"other,omitempty"`
}
