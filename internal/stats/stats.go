// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package stats computes collocation frequency statistics (LogDice,
// Delta-P, distinct surface forms) and maintains the per-lemma,
// per-POS-class frequency tables they read from.
//
// Grounded on original_source/cordex/statistics/word_stats.py: the
// generate_renders step, the lemma+POS-class frequency rollup it builds
// from UniqWords, and its step-idempotency guard translate directly to
// internal/store's StepsDone/UniqWords/WordCountByPOS tables.
package stats

import (
	"context"
	"math"
	"strings"

	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/store"
	"github.com/clarinsi/cordex/internal/token"
)

// Stats computes corpus-wide and per-collocation statistics against a
// Store's frequency tables.
type Stats struct {
	store   *store.Store
	flavour token.Flavour
}

// New builds a Stats bound to s, decoding POS classes according to
// flavour (compact: first tag character; featural: the POS feature).
func New(s *store.Store, flavour token.Flavour) *Stats {
	return &Stats{store: s, flavour: flavour}
}

// PosClass exposes posClass for callers outside this package (the
// pipeline driver) that need to derive a WordCountByPOS key from a raw
// tag string, e.g. to look up a core component's f_i.
func (s *Stats) PosClass(tag string) string {
	return s.posClass(tag)
}

// posClass extracts the POS-like class a raw tag string belongs to, for
// WordCountByPOS's lemma+POS-class grouping: the compact flavour groups by
// the tag's leading category letter (JOS xpos), the featural flavour by
// its POS feature (UD upos), mirroring word_stats.py's is_ud branch.
func (s *Stats) posClass(tag string) string {
	if s.flavour == token.Compact {
		if tag == "" {
			return ""
		}
		return tag[:1]
	}
	for _, part := range strings.Split(tag, "|") {
		if k, v, ok := strings.Cut(part, "="); ok && k == "POS" {
			return v
		}
	}
	return ""
}

// GenerateWordCounts rolls UniqWords up into WordCountByPOS per lemma and
// POS class, recording completion in StepsDone so a resumed run skips it.
// Grounded on WordStats.generate_renders.
func (s *Stats) GenerateWordCounts(ctx context.Context, words []UniqWordObservation) error {
	const step = "generate_renders"
	done, err := s.store.HasStep(ctx, step)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	totals := map[[2]string]int64{}
	for _, w := range words {
		cls := s.posClass(w.Tag)
		key := [2]string{w.Lemma, cls}
		totals[key] += w.Frequency
	}
	for key, freq := range totals {
		if err := s.store.IncrementWordCountByPOS(ctx, key[0], key[1], freq); err != nil {
			return oops.Code("STATS_GENERATE_FAILED").With("lemma", key[0]).Wrap(err)
		}
	}
	return s.store.RecordStep(ctx, step)
}

// RunDispersions records the dispersion count of every (component, lemma)
// pair participating in structureID's collocations, recording completion
// in StepsDone so a resumed run skips already-dispersed structures.
func (s *Stats) RunDispersions(ctx context.Context, structureID string) error {
	step := "dispersions:" + structureID
	done, err := s.store.HasStep(ctx, step)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	counts, err := s.store.DispersionSource(ctx, structureID)
	if err != nil {
		return oops.Code("STATS_DISPERSION_FAILED").With("structure_id", structureID).Wrap(err)
	}
	for _, c := range counts {
		if err := s.store.IncrementDispersion(ctx, structureID, c.ComponentID, c.Lemma, c.Count); err != nil {
			return oops.Code("STATS_DISPERSION_FAILED").With("structure_id", structureID).Wrap(err)
		}
	}
	return s.store.RecordStep(ctx, step)
}

// UniqWordObservation is one row of the UniqWords table, as read back for
// the word-count rollup.
type UniqWordObservation struct {
	Lemma     string
	Tag       string
	Frequency int64
}

// CoreCounts holds the per-core-component frequency (f_i) the LogDice and
// Delta-P formulas need, in core order (exactly two entries: fx, fy).
type CoreCounts struct {
	FX int64
	FY int64
}

// AllCoreCounts holds every core component's f_i (including components
// beyond the two-word core), used by LogDiceAll's denominator.
type AllCoreCounts []int64

// Result is the computed statistics row for one collocation, matching §6's
// Delta_p12/Delta_p21/LogDice_core/LogDice_all/Distinct_forms columns.
type Result struct {
	DeltaP12      float64
	DeltaP21      float64
	LogDiceCore   float64
	LogDiceAll    float64
	DistinctForms int64
}

// Compute derives Result for a collocation with the given match count
// (freq), total corpus token count (N), core-of-two-words counts, the
// full core frequency list (for LogDiceAll), and the collocation's
// distinct-forms count (from store.DistinctForms).
//
// Formulas per §4.5:
//
//	Delta-P(1->2) = freq/fx - (fy-freq)/(N-fx)
//	Delta-P(2->1) = freq/fy - (fx-freq)/(N-fy)
//	LogDice_core  = 14 + log2(2*freq / (fx+fy))
//	LogDice_all   = 14 + log2(|core|*freq / sum(f_i, f_i>0))
func Compute(freq, n int64, core CoreCounts, allCore AllCoreCounts, distinctForms int64) Result {
	f, fx, fy, total := float64(freq), float64(core.FX), float64(core.FY), float64(n)

	var deltaP12, deltaP21 float64
	if fx > 0 && total > fx {
		deltaP12 = f/fx - (fy-f)/(total-fx)
	}
	if fy > 0 && total > fy {
		deltaP21 = f/fy - (fx-f)/(total-fy)
	}

	var logDiceCore float64
	if fx+fy > 0 {
		logDiceCore = 14 + math.Log2(2*f/(fx+fy))
	}

	var nonzero int
	var sum float64
	for _, fi := range allCore {
		if fi > 0 {
			nonzero++
			sum += float64(fi)
		}
	}
	var logDiceAll float64
	if sum > 0 {
		logDiceAll = 14 + math.Log2(float64(nonzero)*f/sum)
	}

	return Result{
		DeltaP12:      deltaP12,
		DeltaP21:      deltaP21,
		LogDiceCore:   logDiceCore,
		LogDiceAll:    logDiceAll,
		DistinctForms: distinctForms,
	}
}
