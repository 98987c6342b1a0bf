// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package writer formats collocation rows into the tabular output of §6
// and an optional collocation/sentence/token-id mapping file.
//
// Grounded on original_source/cordex/writers/{writer,formatter,
// collocation_sentence_mapper}.py: the repeat/once header split, the
// fixed-vs-variable joint representative form, and the mapping file's
// three-column shape all translate directly; the Python class hierarchy
// of pluggable Formatter subclasses collapses into one FormatRow
// function gated by a statsEnabled flag, since Go has no use for virtual
// dispatch over two mutually-exclusive render modes.
package writer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/clarinsi/cordex/internal/stats"
	"github.com/clarinsi/cordex/internal/store"
)

// ComponentRender is one component's chosen representative form for a
// collocation row.
type ComponentRender struct {
	Lemma    string
	Text     string
	Tag      string
	Scenario string // "ok", "lemma_fallback", or "" when the component did not match
}

// CollocationRow is everything FormatRow needs to emit one output row.
type CollocationRow struct {
	StructureID        string
	CollocationID      string
	Components         map[string]ComponentRender
	Frequency          int64
	Dispersions        map[string]int64 // component id -> distinct-collocation count, stats mode only
	Stats              *stats.Result
	JointFixedOrder    []string // component ids in structure-definition order
	JointVariableOrder []string // component ids in the most common reading-order sequence
}

const repeatHeaderNoStats = 4
const repeatHeaderStats = 5

// Header builds the column list for numComponents components, repeating
// the per-component block and appending the once-per-row columns, per §6.
func Header(numComponents int, statsEnabled bool) []string {
	repeat := []string{"Lemma", "Representative_form", "RF_tag", "RF_scenario"}
	if statsEnabled {
		repeat = append(repeat, "Distribution")
	}

	cols := []string{"Structure_ID"}
	for i := 1; i <= numComponents; i++ {
		for _, h := range repeat {
			cols = append(cols, "C"+strconv.Itoa(i)+"_"+h)
		}
	}
	cols = append(cols, "Collocation_ID")

	right := []string{"Joint_representative_form_fixed", "Joint_representative_form_variable", "Frequency"}
	if statsEnabled {
		right = append(right, "Delta_p12", "Delta_p21", "LogDice_core", "LogDice_all", "Distinct_forms")
	}
	return append(cols, right...)
}

// FormatRow turns row into a string slice matching Header's column
// layout. componentOrder lists every structure component id (excluding
// the synthetic root) in definition order; a component absent from
// row.Components (no match for that structure instance) is emitted as
// blank cells, keeping every row the same width.
func FormatRow(row CollocationRow, componentOrder []string, statsEnabled bool, decimalSeparator string) []string {
	blanksPerComponent := repeatHeaderNoStats
	if statsEnabled {
		blanksPerComponent = repeatHeaderStats
	}

	cells := []string{row.StructureID}
	for _, cid := range componentOrder {
		comp, ok := row.Components[cid]
		if !ok {
			cells = append(cells, make([]string, blanksPerComponent)...)
			continue
		}
		cells = append(cells, comp.Lemma, comp.Text, comp.Tag, comp.Scenario)
		if statsEnabled {
			dist := int64(1)
			if row.Dispersions != nil {
				if d, ok := row.Dispersions[cid]; ok {
					dist = d
				}
			}
			cells = append(cells, strconv.FormatInt(dist, 10))
		}
	}

	cells = append(cells, row.CollocationID)
	cells = append(cells,
		joinForms(row.Components, row.JointFixedOrder),
		joinForms(row.Components, row.JointVariableOrder),
		strconv.FormatInt(row.Frequency, 10),
	)

	if statsEnabled && row.Stats != nil {
		cells = append(cells,
			formatFloat(row.Stats.DeltaP12, decimalSeparator),
			formatFloat(row.Stats.DeltaP21, decimalSeparator),
			formatFloat(row.Stats.LogDiceCore, decimalSeparator),
			formatFloat(row.Stats.LogDiceAll, decimalSeparator),
			strconv.FormatInt(row.Stats.DistinctForms, 10),
		)
	}
	return cells
}

func joinForms(components map[string]ComponentRender, order []string) string {
	parts := make([]string, 0, len(order))
	for _, cid := range order {
		if c, ok := components[cid]; ok && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

func formatFloat(f float64, decimalSeparator string) string {
	s := strconv.FormatFloat(f, 'f', 5, 64)
	if decimalSeparator != "." {
		s = strings.ReplaceAll(s, ".", decimalSeparator)
	}
	return s
}

// VariableWordOrder picks the most frequently observed component-id
// sequence (tokens ordered by their IntID) across occurrences, the
// "word order that has seen the most occurrences" of
// Writer.find_variable_word_order. Ties are broken in favour of the
// first sequence encountered, for determinism.
func VariableWordOrder(occurrences []store.Occurrence) []string {
	type counted struct {
		order []string
		count int
	}
	var seenOrder []string
	counts := map[string]*counted{}

	for _, occ := range occurrences {
		sorted := make([]store.MatchRecord, len(occ.Matches))
		copy(sorted, occ.Matches)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].TokenIntID < sorted[j].TokenIntID })

		ids := make([]string, len(sorted))
		for i, m := range sorted {
			ids[i] = m.ComponentID
		}
		key := strings.Join(ids, "\x00")

		if c, ok := counts[key]; ok {
			c.count++
		} else {
			counts[key] = &counted{order: ids, count: 1}
			seenOrder = append(seenOrder, key)
		}
	}

	var best *counted
	for _, key := range seenOrder {
		c := counts[key]
		if best == nil || c.count > best.count {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.order
}
