// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package exprparser compiles the small feature-value expression language
// used inside structure-file restriction and representation-selector
// entries, such as `POS=noun`, `!Case=Nom|Acc`, or `msd=Number:Sing`.
//
// Grounded on the DSL lexer/parser pattern in
// internal/access/policy/dsl/{ast,parser}.go, adapted from the ABAC
// condition grammar to this narrower feature=value|value grammar.
package exprparser

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// exprLexer tokenizes `[!]feature=value(|value)*` expressions.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Bang", Pattern: `!`},
	{Name: "Eq", Pattern: `=`},
	{Name: "Pipe", Pattern: `\|`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_:.-]*`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr is one compiled feature-value constraint.
//
// Grammar: ["!"] feature "=" value ("|" value)*
type Expr struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Negate  bool           `parser:"@Bang?" json:"negate,omitempty"`
	Feature string         `parser:"@Ident Eq" json:"feature"`
	Values  []string       `parser:"@Ident (Pipe @Ident)*" json:"values"`
}

var parser = participle.MustBuild[Expr](participle.Lexer(exprLexer))

// Parse compiles one restriction-feature or msd-selector expression string.
func Parse(s string) (*Expr, error) {
	e, err := parser.ParseString("", s)
	if err != nil {
		return nil, oops.Code("STRUCTURE_LOAD_FAILED").With("expression", s).
			Wrapf(err, "parsing feature expression")
	}
	return e, nil
}

// ParseAll compiles a list of expression strings, stopping at the first
// error.
func ParseAll(entries []string) ([]*Expr, error) {
	out := make([]*Expr, 0, len(entries))
	for _, e := range entries {
		parsed, err := Parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

// ValueSet returns the expression's values as a membership set, for direct
// use as a restriction.FeatureConstraint's Allowed field.
func (e *Expr) ValueSet() map[string]bool {
	set := make(map[string]bool, len(e.Values))
	for _, v := range e.Values {
		set[v] = true
	}
	return set
}

func (e *Expr) String() string {
	neg := ""
	if e.Negate {
		neg = "!"
	}
	return fmt.Sprintf("%s%s=%v", neg, e.Feature, e.Values)
}
