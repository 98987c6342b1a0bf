// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package pipeline drives a full extraction run: the per-file matching
// loop with incremental commit, the post-ingestion dispersion and
// representation passes, and the final tabular write.
//
// Grounded on original_source/cordex/pipeline/core.py's Pipeline class:
// the sorted file loop with per-file commit, the
// generate_renders/determine_collocation_dispersions/set_representations
// sequence that runs once after every file is ingested, and the final
// Writer.write_out call.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clarinsi/cordex/internal/corpus"
	"github.com/clarinsi/cordex/internal/lookup"
	"github.com/clarinsi/cordex/internal/matcher"
	"github.com/clarinsi/cordex/internal/observability"
	"github.com/clarinsi/cordex/internal/postprocess"
	"github.com/clarinsi/cordex/internal/represent"
	"github.com/clarinsi/cordex/internal/stats"
	"github.com/clarinsi/cordex/internal/store"
	"github.com/clarinsi/cordex/internal/structure"
	"github.com/clarinsi/cordex/internal/token"
	"github.com/clarinsi/cordex/internal/writer"
	"github.com/clarinsi/cordex/pkg/errutil"
)

var tracer = otel.Tracer("cordex/pipeline")

// warmer is satisfied by a lookup backend that batches its calls across
// a whole representation pass (currently *lookup.HTTPBackend); a
// file-mode backend has nothing to warm and is consulted directly.
type warmer interface {
	Warm(ctx context.Context, requests []lookup.LookupRequest) error
}

// Config collects a Driver's construction parameters.
type Config struct {
	Store   *store.Store
	Library *structure.Library
	Flavour token.Flavour

	// Lang enables postprocess's voicing-assimilation fixes when set to
	// "sl"; any other value (including "") disables them.
	Lang                  string
	FixedRestrictionOrder bool

	// Backend is optional; nil disables lookup-backend consultation
	// entirely (lemma/word-form recipes fall back to observed forms
	// only).
	Backend represent.Backend

	MinFreq           int64
	StatisticsEnabled bool

	// LowercaseCollapseThreshold enables §4.5's compact-flavour lowercase
	// collapse when positive (and the corpus is compact-flavour); 0 or
	// negative disables the pass entirely.
	LowercaseCollapseThreshold float64

	// DeprelTranslate rewrites a raw deprel label while reading a
	// corpus file (jos_depparse_lang's translation pass); nil means
	// "use as read".
	DeprelTranslate func(string) string

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Driver runs the file-ingestion loop and the post-ingestion
// representation/statistics/write pass against one Store and Library.
type Driver struct {
	store                      *store.Store
	library                    *structure.Library
	flavour                    token.Flavour
	postprocessor              *postprocess.Processor
	backend                    represent.Backend
	minFreq                    int64
	statisticsEnabled          bool
	lowercaseCollapseThreshold float64
	corpusConfig               corpus.Config
	metrics                    *observability.Metrics
	logger                     *slog.Logger
}

// New builds a Driver from cfg.
func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		store:                      cfg.Store,
		library:                    cfg.Library,
		flavour:                    cfg.Flavour,
		postprocessor:              postprocess.New(cfg.Lang, cfg.FixedRestrictionOrder),
		backend:                    cfg.Backend,
		minFreq:                    cfg.MinFreq,
		statisticsEnabled:          cfg.StatisticsEnabled,
		lowercaseCollapseThreshold: cfg.LowercaseCollapseThreshold,
		corpusConfig:               corpus.Config{Flavour: cfg.Flavour, TranslateDeprel: cfg.DeprelTranslate},
		metrics:                    cfg.Metrics,
		logger:                     logger,
	}
}

// IngestFiles loads, matches, and commits every path in sorted order,
// skipping any file already recorded in Files, per §5's "files already
// committed are not reprocessed" resume property.
func (d *Driver) IngestFiles(ctx context.Context, paths []string) error {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	for _, path := range sorted {
		if err := d.ingestFile(ctx, path); err != nil {
			return oops.Code("PIPELINE_INGEST_FAILED").With("path", path).Wrap(err)
		}
	}
	return nil
}

func (d *Driver) ingestFile(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "pipeline.ingest_file", trace.WithAttributes(attribute.String("cordex.file", path)))
	defer span.End()

	committed, err := d.store.HasFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if committed {
		return nil
	}

	sentences, err := corpus.LoadFile(ctx, path, d.corpusConfig)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var tokenCount int64
	for _, sentence := range sentences {
		if err := d.matchSentence(ctx, sentence); err != nil {
			errutil.LogError(d.logger, "sentence match failed, dropping sentence", err)
			if d.metrics != nil {
				d.metrics.SentencesDropped.WithLabelValues(path, "match_error").Inc()
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.SentencesProcessed.WithLabelValues(path).Inc()
		}

		tokenCount += int64(sentence.Len())
		for _, tok := range sentence.Tokens {
			tag := token.EncodeTag(tok.Tag, d.flavour)
			if err := d.store.IncrementUniqWord(ctx, tok.Lemma, tag, tok.Text, 1); err != nil {
				return err
			}
		}
	}

	if tokenCount > 0 {
		if err := d.store.IncrementNumWords(ctx, tokenCount); err != nil {
			return err
		}
	}
	if err := d.store.RecordFile(ctx, path); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.FilesCommitted.Inc()
	}
	return nil
}

// matchSentence runs every structure against sentence, recording every
// match that survives the fixed_restriction_order check.
func (d *Driver) matchSentence(ctx context.Context, sentence *token.Sentence) error {
	for _, s := range d.library.Structures {
		assignments := matcher.MatchSentence(s, sentence)
		for _, assignment := range assignments {
			if !d.postprocessor.IsFixedRestrictionOrder(assignment) {
				continue
			}
			if err := d.recordMatch(ctx, s.ID, assignment); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordMatch persists one matched assignment, applying the s/z, k/h
// voicing overrides to the recorded surface text without mutating the
// shared tokens themselves (a token may belong to several matches of
// the same sentence).
func (d *Driver) recordMatch(ctx context.Context, structureID string, assignment matcher.Assignment) error {
	overrides := d.postprocessor.FixVoicing(assignment)

	records := make([]store.MatchRecord, 0, len(assignment))
	pairs := make([]store.ComponentLemma, 0, len(assignment))
	for cid, tok := range assignment {
		if cid == "#" {
			continue
		}
		text := tok.Text
		if overrides != nil {
			if o, ok := overrides[cid]; ok {
				text = o
			}
		}
		records = append(records, store.MatchRecord{
			ComponentID: cid,
			Lemma:       tok.Lemma,
			Text:        text,
			Tag:         token.EncodeTag(tok.Tag, d.flavour),
			WordID:      tok.WordID,
			SentenceID:  tok.SentenceID,
			TokenIntID:  tok.IntID,
		})
		pairs = append(pairs, store.ComponentLemma{ComponentIndex: componentIndex(cid), ComponentID: cid, Lemma: tok.Lemma})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TokenIntID < records[j].TokenIntID })

	if _, err := d.store.RecordMatch(ctx, structureID, records, pairs); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.MatchesFound.WithLabelValues(structureID).Inc()
	}
	return nil
}

// componentIndex parses a component id into the integer KeyText sorts
// by, falling back to 0 for a non-numeric id (every id observed in
// practice is a small integer string, per the structure file's cid
// convention).
func componentIndex(cid string) int {
	n, err := strconv.Atoi(cid)
	if err != nil {
		return 0
	}
	return n
}

// matchRecordToToken rebuilds a synthetic token from a persisted match
// row, the shape the representation engine needs to re-feed a
// collocation's recipes from store state alone.
func matchRecordToToken(m store.MatchRecord, flavour token.Flavour) *token.Token {
	return &token.Token{
		Lemma:      m.Lemma,
		Text:       m.Text,
		SentenceID: m.SentenceID,
		WordID:     m.WordID,
		IntID:      m.TokenIntID,
		Tag:        token.DecodeTag(m.Tag, flavour),
	}
}

// collocationRecipes pairs one collocation's wired recipe set with the
// identifiers needed to persist its rendered forms once every backend
// lookup the whole pass needs has been planned and warmed.
type collocationRecipes struct {
	collocationID string
	recipes       map[string][]*represent.Recipe
}

// RenderRepresentations builds and renders every above-min-freq
// collocation's representative forms across every structure, batching
// every recipe's backend lookups into a single Warm call before any
// recipe renders, per the "batch-and-cache across the whole
// representation pass" design note. Idempotent via the "representation"
// step marker, so a resumed run with the backend already warmed and
// persisted skips straight to WriteOutput.
//
// Grounded on word_stats.generate_renders / match_store.set_representations
// in original_source/cordex/pipeline/core.py.
func (d *Driver) RenderRepresentations(ctx context.Context) error {
	const step = "representation"
	done, err := d.store.HasStep(ctx, step)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.render_representations")
	defer span.End()

	engine := represent.NewEngine(d.flavour, d.backend)
	var all []collocationRecipes

	for _, s := range d.library.Structures {
		collos, err := d.store.CollocationsAboveMinFreq(ctx, s.ID, d.minFreq)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return oops.Code("PIPELINE_REPRESENT_FAILED").With("structure_id", s.ID).Wrap(err)
		}
		for _, c := range collos {
			recipes, err := engine.BuildRecipes(s)
			if err != nil {
				return oops.Code("PIPELINE_REPRESENT_FAILED").With("structure_id", s.ID).Wrap(err)
			}
			occurrences, err := d.store.Occurrences(ctx, c.CollocationID)
			if err != nil {
				return oops.Code("PIPELINE_REPRESENT_FAILED").With("collocation_id", c.CollocationID).Wrap(err)
			}
			for _, occ := range occurrences {
				assignment := make(map[string]*token.Token, len(occ.Matches))
				for _, m := range occ.Matches {
					assignment[m.ComponentID] = matchRecordToToken(m, d.flavour)
				}
				represent.Feed(recipes, assignment)
			}
			all = append(all, collocationRecipes{collocationID: c.CollocationID, recipes: recipes})
		}
	}

	if w, ok := d.backend.(warmer); ok {
		planner := lookup.NewBatchPlanner()
		for _, cr := range all {
			for _, pl := range represent.PlanLookups(cr.recipes) {
				planner.Plan(pl.Lemma, pl.Category, pl.LemmaFeatures, pl.FormFeatures)
			}
		}
		if requests := planner.Requests(); len(requests) > 0 {
			if err := w.Warm(ctx, requests); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return oops.Code("PIPELINE_REPRESENT_FAILED").Wrap(err)
			}
		}
	}

	for _, cr := range all {
		forms := represent.RenderAll(cr.recipes)
		for cid, form := range forms {
			if form.Text == "" {
				continue
			}
			rec := store.RepresentationRecord{ComponentID: cid, Text: form.Text, Tag: form.Tag}
			if err := d.store.UpsertRepresentation(ctx, cr.collocationID, rec); err != nil {
				return oops.Code("PIPELINE_REPRESENT_FAILED").With("collocation_id", cr.collocationID).Wrap(err)
			}
		}
	}

	return d.store.RecordStep(ctx, step)
}

// GenerateWordCounts rolls the corpus's UniqWords frequencies up into the
// lemma+POS-class totals the statistics layer reads f_i from.
func (d *Driver) GenerateWordCounts(ctx context.Context) error {
	words, err := d.store.AllUniqWords(ctx)
	if err != nil {
		return oops.Code("PIPELINE_WORDCOUNT_FAILED").Wrap(err)
	}
	observations := make([]stats.UniqWordObservation, len(words))
	for i, w := range words {
		observations[i] = stats.UniqWordObservation{Lemma: w.Lemma, Tag: w.Tag, Frequency: w.Frequency}
	}
	return stats.New(d.store, d.flavour).GenerateWordCounts(ctx, observations)
}

// RunDispersions records every structure's (component, lemma) dispersion
// counts, skipping structures already dispersed by a prior run.
func (d *Driver) RunDispersions(ctx context.Context) error {
	s := stats.New(d.store, d.flavour)
	for _, lib := range d.library.Structures {
		if err := s.RunDispersions(ctx, lib.ID); err != nil {
			return oops.Code("PIPELINE_DISPERSION_FAILED").With("structure_id", lib.ID).Wrap(err)
		}
	}
	return nil
}

// CollapseLowercase rewrites capitalized (lemma, tag, text) surfaces whose
// lowercased sibling is frequent enough to treat them as the same word, per
// §4.5's compact-flavour lowercase collapse. It is a no-op for featural
// corpora and when no threshold was configured.
func (d *Driver) CollapseLowercase(ctx context.Context) error {
	if d.flavour != token.Compact || d.lowercaseCollapseThreshold <= 0 {
		return nil
	}
	const step = "lowercase_collapse"
	done, err := d.store.HasStep(ctx, step)
	if err != nil {
		return oops.Code("PIPELINE_LOWERCASE_COLLAPSE_FAILED").Wrap(err)
	}
	if done {
		return nil
	}

	candidates, err := d.store.LowercaseCollapseCandidates(ctx, d.lowercaseCollapseThreshold)
	if err != nil {
		return oops.Code("PIPELINE_LOWERCASE_COLLAPSE_FAILED").Wrap(err)
	}
	for _, c := range candidates {
		if err := d.store.ApplyLowercaseCollapse(ctx, c); err != nil {
			return oops.Code("PIPELINE_LOWERCASE_COLLAPSE_FAILED").With("lemma", c.Lemma).With("tag", c.Tag).Wrap(err)
		}
	}
	return d.store.RecordStep(ctx, step)
}

// OutputConfig collects WriteOutput's destination: the tabular sink and
// an optional sentence mapper.
type OutputConfig struct {
	Sink             writer.Sink
	Mapper           *writer.SentenceMapper
	DecimalSeparator string
}

// WriteOutput emits every structure's above-min-freq collocations as
// tabular rows, plus (when Mapper is set) the collocation/sentence/
// token-id mapping rows for every underlying occurrence.
//
// Grounded on Writer.write_out in
// original_source/cordex/writers/writer.py.
func (d *Driver) WriteOutput(ctx context.Context, out OutputConfig) error {
	n, err := d.store.NumWords(ctx)
	if err != nil {
		return oops.Code("PIPELINE_WRITE_FAILED").Wrap(err)
	}

	for _, s := range d.library.Structures {
		if err := d.writeStructure(ctx, s, n, out); err != nil {
			return oops.Code("PIPELINE_WRITE_FAILED").With("structure_id", s.ID).Wrap(err)
		}
	}
	return nil
}

func (d *Driver) writeStructure(ctx context.Context, s *structure.Structure, n int64, out OutputConfig) error {
	order := s.ComponentOrder()
	header := writer.Header(len(order), d.statisticsEnabled)
	if err := out.Sink.Open(s.ID, header); err != nil {
		return err
	}

	collos, err := d.store.CollocationsAboveMinFreq(ctx, s.ID, d.minFreq)
	if err != nil {
		return err
	}

	var dispersions map[string]int64
	if d.statisticsEnabled {
		dispersions, err = d.loadDispersions(ctx, s.ID)
		if err != nil {
			return err
		}
	}

	statEngine := stats.New(d.store, d.flavour)

	for _, c := range collos {
		occurrences, err := d.store.Occurrences(ctx, c.CollocationID)
		if err != nil {
			return err
		}
		reps, err := d.store.Representations(ctx, c.CollocationID)
		if err != nil {
			return err
		}

		row := writer.CollocationRow{
			StructureID:        s.ID,
			CollocationID:      c.CollocationID,
			Components:         buildComponentRenders(order, occurrences, reps),
			Frequency:          c.Frequency,
			JointFixedOrder:    order,
			JointVariableOrder: writer.VariableWordOrder(occurrences),
		}

		if d.statisticsEnabled {
			row.Dispersions = componentDispersions(order, row.Components, dispersions)
			if s.CoreA != nil && s.CoreB != nil {
				result, err := d.computeStats(ctx, statEngine, s, c, occurrences, n)
				if err != nil {
					return err
				}
				row.Stats = &result
			}
		}

		if err := out.Sink.WriteRow(writer.FormatRow(row, order, d.statisticsEnabled, out.DecimalSeparator)); err != nil {
			return err
		}
		if out.Mapper != nil {
			for _, occ := range occurrences {
				if err := out.Mapper.AddOccurrence(c.CollocationID, occ); err != nil {
					return err
				}
			}
		}
	}

	return out.Sink.Close()
}

// buildComponentRenders picks, per component in order, the representative
// render to emit: the persisted Representation when one was produced, a
// lemma-only fallback when the component matched but nothing rendered,
// or a blank cell when the component never matched this collocation. The
// lemma and tag for both cases come from the first occurrence in which
// that specific component was bound, tracked independently per
// component so an optional component missing from occurrence #1 but
// present later still gets a render.
func buildComponentRenders(order []string, occurrences []store.Occurrence, reps map[string]store.RepresentationRecord) map[string]writer.ComponentRender {
	first := map[string]store.MatchRecord{}
	for _, occ := range occurrences {
		for _, m := range occ.Matches {
			if _, ok := first[m.ComponentID]; !ok {
				first[m.ComponentID] = m
			}
		}
	}

	out := make(map[string]writer.ComponentRender, len(order))
	for _, cid := range order {
		m, matched := first[cid]
		if !matched {
			continue
		}
		if rep, ok := reps[cid]; ok {
			out[cid] = writer.ComponentRender{Lemma: m.Lemma, Text: rep.Text, Tag: rep.Tag, Scenario: "ok"}
			continue
		}
		out[cid] = writer.ComponentRender{Lemma: m.Lemma, Text: m.Lemma, Tag: "", Scenario: "lemma_fallback"}
	}
	return out
}

// loadDispersions fetches the whole structure's (component, lemma)
// dispersion counts once, reused across every collocation it is asked
// for during the write pass.
func (d *Driver) loadDispersions(ctx context.Context, structureID string) (map[string]int64, error) {
	counts, err := d.store.DispersionSource(ctx, structureID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for _, c := range counts {
		out[dispersionKey(c.ComponentID, c.Lemma)] = c.Count
	}
	return out, nil
}

func dispersionKey(componentID, lemma string) string {
	return componentID + "\x00" + lemma
}

// componentDispersions looks up the dispersion count for every rendered
// component of a row, keyed by the lemma actually observed there.
func componentDispersions(order []string, rendered map[string]writer.ComponentRender, all map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(rendered))
	for _, cid := range order {
		c, ok := rendered[cid]
		if !ok {
			continue
		}
		if count, ok := all[dispersionKey(cid, c.Lemma)]; ok {
			out[cid] = count
		}
	}
	return out
}

// computeStats derives a collocation's Delta-P/LogDice/Distinct_forms
// row from the corpus-wide f_i tables, using the lemma actually observed
// at each core component across occurrences.
func (d *Driver) computeStats(ctx context.Context, s *stats.Stats, structure *structure.Structure, c store.StructureCollocation, occurrences []store.Occurrence, n int64) (stats.Result, error) {
	fx, err := d.coreFrequency(ctx, s, structure.CoreA.Idx, occurrences)
	if err != nil {
		return stats.Result{}, err
	}
	fy, err := d.coreFrequency(ctx, s, structure.CoreB.Idx, occurrences)
	if err != nil {
		return stats.Result{}, err
	}

	var allCore stats.AllCoreCounts
	for _, comp := range structure.CoreComponents() {
		f, err := d.coreFrequency(ctx, s, comp.Idx, occurrences)
		if err != nil {
			return stats.Result{}, err
		}
		allCore = append(allCore, f)
	}

	distinct, err := d.store.DistinctForms(ctx, c.CollocationID)
	if err != nil {
		return stats.Result{}, err
	}

	return stats.Compute(c.Frequency, n, stats.CoreCounts{FX: fx, FY: fy}, allCore, distinct), nil
}

// coreFrequency resolves one core component's corpus-wide f_i: the
// frequency of the lemma observed at that component, within its
// POS class, read from WordCountByPOS.
func (d *Driver) coreFrequency(ctx context.Context, s *stats.Stats, componentID string, occurrences []store.Occurrence) (int64, error) {
	for _, occ := range occurrences {
		for _, m := range occ.Matches {
			if m.ComponentID != componentID {
				continue
			}
			return d.store.WordCountByPOS(ctx, m.Lemma, s.PosClass(m.Tag))
		}
	}
	return 0, nil
}

// Finalize runs the full post-ingestion sequence — lowercase collapse,
// word-count rollup, dispersions, representations, then the tabular
// write — mirroring
// Pipeline.__call__'s tail in
// original_source/cordex/pipeline/core.py.
func (d *Driver) Finalize(ctx context.Context, out OutputConfig) error {
	ctx, span := tracer.Start(ctx, "pipeline.finalize")
	defer span.End()

	if err := d.CollapseLowercase(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := d.GenerateWordCounts(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := d.RunDispersions(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := d.RenderRepresentations(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := d.WriteOutput(ctx, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
