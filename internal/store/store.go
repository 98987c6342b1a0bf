// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package store persists matches, collocations, representations, and the
// frequency tables the statistics layer consumes, through a PostgreSQL
// connection pool.
package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Store wraps a pgx connection pool with the collocation-store schema's
// CRUD operations.
//
// Grounded on internal/access/policy/store/postgres.go's
// PostgresStore: ULID-generated row ids minted in Go (oklog/ulid/v2),
// single-transaction inserts, oops-coded errors.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool in a Store. Run a Migrator's Up beforehand to
// guarantee the schema exists.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// HasFile reports whether filename has already been committed, per the
// "files already in Files are not reprocessed" resume property.
func (s *Store) HasFile(ctx context.Context, filename string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM Files WHERE filename = $1)`, filename).Scan(&exists)
	if err != nil {
		return false, oops.Code("STORE_QUERY_FAILED").With("filename", filename).Wrap(err)
	}
	return exists, nil
}

// RecordFile marks filename as committed.
func (s *Store) RecordFile(ctx context.Context, filename string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO Files (filename) VALUES ($1) ON CONFLICT DO NOTHING`, filename)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("filename", filename).Wrap(err)
	}
	return nil
}

// HasStep reports whether a long-running phase (dispersions,
// generate_renders, representation) already recorded completion.
func (s *Store) HasStep(ctx context.Context, step string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM StepsDone WHERE step = $1)`, step).Scan(&exists)
	if err != nil {
		return false, oops.Code("STORE_QUERY_FAILED").With("step", step).Wrap(err)
	}
	return exists, nil
}

// RecordStep marks step as completed.
func (s *Store) RecordStep(ctx context.Context, step string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO StepsDone (step) VALUES ($1) ON CONFLICT DO NOTHING`, step)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("step", step).Wrap(err)
	}
	return nil
}

// MatchRecord is one token bound to one component of a matched structure.
type MatchRecord struct {
	ComponentID string
	Lemma       string
	Text        string
	Tag         string
	WordID      string
	SentenceID  string
	TokenIntID  int
}

// ComponentLemma is one (component index, lemma) pair of a match, used to
// build a collocation's stable key text.
type ComponentLemma struct {
	ComponentIndex int
	ComponentID    string
	Lemma          string
}

// KeyText builds the deterministic key text for a collocation from its
// matched (component-idx, lemma) pairs, per the "Key stability" property:
// two matches sharing the same sorted tuple under the same structure map
// to the same collocation id and vice versa.
func KeyText(pairs []ComponentLemma) string {
	sorted := make([]ComponentLemma, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ComponentIndex < sorted[j].ComponentIndex })

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.Itoa(p.ComponentIndex) + ":" + p.Lemma
	}
	return strings.Join(parts, "|")
}

// RecordMatch persists a matched structure: one row per component in
// matches, a collocation row upserted by (key_text, structure_id), and the
// CollocationMatches links that tie them together in component order. It
// returns the collocation id so callers can accumulate dispersions and
// representations against it.
func (s *Store) RecordMatch(ctx context.Context, structureID string, records []MatchRecord, pairs []ComponentLemma) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", oops.Code("STORE_MATCH_FAILED").With("structure_id", structureID).Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	collocationID, err := upsertCollocationTx(ctx, tx, structureID, KeyText(pairs))
	if err != nil {
		return "", err
	}

	occurrenceID := ulid.Make().String()
	for i, rec := range records {
		matchID := ulid.Make().String()
		_, err = tx.Exec(ctx, `
			INSERT INTO Matches (match_id, component_id, lemma, text, tag, word_id, sentence_id, token_int_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, matchID, rec.ComponentID, rec.Lemma, rec.Text, rec.Tag, rec.WordID, rec.SentenceID, rec.TokenIntID)
		if err != nil {
			return "", oops.Code("STORE_MATCH_FAILED").With("structure_id", structureID).Wrapf(err, "inserting match")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO CollocationMatches (collocation_id, match_id, occurrence_id, position)
			VALUES ($1, $2, $3, $4)
		`, collocationID, matchID, occurrenceID, i)
		if err != nil {
			return "", oops.Code("STORE_MATCH_FAILED").With("structure_id", structureID).Wrapf(err, "linking match")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", oops.Code("STORE_MATCH_FAILED").With("structure_id", structureID).Wrapf(err, "commit")
	}
	return collocationID, nil
}

// upsertCollocationTx returns the collocation id for (keyText, structureID),
// minting a fresh ULID only if the pair has not been seen before. The
// unique index on (key_text, structure_id) is what makes this safe under
// concurrent writers.
func upsertCollocationTx(ctx context.Context, tx pgx.Tx, structureID, keyText string) (string, error) {
	id := ulid.Make().String()
	var collocationID string
	err := tx.QueryRow(ctx, `
		INSERT INTO Collocations (collocation_id, structure_id, key_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_text, structure_id) DO UPDATE SET key_text = EXCLUDED.key_text
		RETURNING collocation_id
	`, id, structureID, keyText).Scan(&collocationID)
	if err != nil {
		return "", oops.Code("STORE_MATCH_FAILED").With("structure_id", structureID).Wrapf(err, "upserting collocation")
	}
	return collocationID, nil
}

// CollocationFrequency returns the number of distinct occurrences (matched
// structure instances) linked to collocationID, the count the min_freq
// filter is applied against.
func (s *Store) CollocationFrequency(ctx context.Context, collocationID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT occurrence_id) FROM CollocationMatches WHERE collocation_id = $1
	`, collocationID).Scan(&n)
	if err != nil {
		return 0, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrap(err)
	}
	return n, nil
}

// DistinctForms returns the count of distinct joined surface strings
// across a collocation's matches, grouped by position, for the
// Distinct_forms statistic.
func (s *Store) DistinctForms(ctx context.Context, collocationID string) (int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cm.occurrence_id, m.text
		FROM CollocationMatches cm
		JOIN Matches m ON m.match_id = cm.match_id
		WHERE cm.collocation_id = $1
		ORDER BY cm.occurrence_id, cm.position
	`, collocationID)
	if err != nil {
		return 0, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrap(err)
	}
	defer rows.Close()

	byOccurrence := map[string][]string{}
	for rows.Next() {
		var occurrenceID, text string
		if err := rows.Scan(&occurrenceID, &text); err != nil {
			return 0, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "scanning form row")
		}
		byOccurrence[occurrenceID] = append(byOccurrence[occurrenceID], text)
	}
	if err := rows.Err(); err != nil {
		return 0, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "iterating form rows")
	}

	seen := map[string]struct{}{}
	for _, texts := range byOccurrence {
		seen[strings.Join(texts, " ")] = struct{}{}
	}
	return int64(len(seen)), nil
}

// RepresentationRecord is one component's chosen representative form for
// a collocation.
type RepresentationRecord struct {
	ComponentID string
	Text        string
	Tag         string
}

// UpsertRepresentation records the chosen (text, tag) for a component of
// a collocation, overwriting a prior render from an earlier pipeline run.
func (s *Store) UpsertRepresentation(ctx context.Context, collocationID string, rec RepresentationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO Representations (collocation_id, component_id, text, tag)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collocation_id, component_id) DO UPDATE SET text = EXCLUDED.text, tag = EXCLUDED.tag
	`, collocationID, rec.ComponentID, rec.Text, rec.Tag)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("collocation_id", collocationID).With("component_id", rec.ComponentID).Wrap(err)
	}
	return nil
}

// IncrementDispersion adds delta to the count of distinct collocations
// recorded for (structureID, componentID, lemma).
func (s *Store) IncrementDispersion(ctx context.Context, structureID, componentID, lemma string, delta int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO Dispersions (structure_id, component_id, lemma, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (structure_id, component_id, lemma) DO UPDATE SET count = Dispersions.count + EXCLUDED.count
	`, structureID, componentID, lemma, delta)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("structure_id", structureID).With("lemma", lemma).Wrap(err)
	}
	return nil
}

// IncrementUniqWord adds delta to the frequency recorded for
// (lemma, tag, text), the table the lookup backend's ranking and the
// lowercase-collapse pass read from.
func (s *Store) IncrementUniqWord(ctx context.Context, lemma, tag, text string, delta int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO UniqWords (lemma, tag, text, frequency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lemma, tag, text) DO UPDATE SET frequency = UniqWords.frequency + EXCLUDED.frequency
	`, lemma, tag, text, delta)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", lemma).With("tag", tag).Wrap(err)
	}
	return nil
}

// UniqWord is one row of the UniqWords table, as read back for the
// lemma+POS-class word-count rollup.
type UniqWord struct {
	Lemma     string
	Tag       string
	Text      string
	Frequency int64
}

// AllUniqWords returns every (lemma, tag, text) frequency row recorded by
// IncrementUniqWord, feeding stats.GenerateWordCounts's rollup.
func (s *Store) AllUniqWords(ctx context.Context) ([]UniqWord, error) {
	rows, err := s.pool.Query(ctx, `SELECT lemma, tag, text, frequency FROM UniqWords`)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	var out []UniqWord
	for rows.Next() {
		var w UniqWord
		if err := rows.Scan(&w.Lemma, &w.Tag, &w.Text, &w.Frequency); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").Wrap(err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").Wrap(err)
	}
	return out, nil
}

// IncrementWordCountByPOS adds delta to the frequency recorded for
// (lemma, pos), the f_i term the LogDice/Delta-P formulas consume.
func (s *Store) IncrementWordCountByPOS(ctx context.Context, lemma, pos string, delta int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO WordCountByPOS (lemma, pos, frequency)
		VALUES ($1, $2, $3)
		ON CONFLICT (lemma, pos) DO UPDATE SET frequency = WordCountByPOS.frequency + EXCLUDED.frequency
	`, lemma, pos, delta)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", lemma).With("pos", pos).Wrap(err)
	}
	return nil
}

// WordCountByPOS returns the f_i count recorded for (lemma, pos), or 0 if
// unseen.
func (s *Store) WordCountByPOS(ctx context.Context, lemma, pos string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT frequency FROM WordCountByPOS WHERE lemma = $1 AND pos = $2`, lemma, pos).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, oops.Code("STORE_QUERY_FAILED").With("lemma", lemma).With("pos", pos).Wrap(err)
	}
	return n, nil
}

// IncrementNumWords adds delta to the corpus-wide token count N.
func (s *Store) IncrementNumWords(ctx context.Context, delta int64) error {
	res, err := s.pool.Exec(ctx, `UPDATE NumWords SET n = n + $1`, delta)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").Wrap(err)
	}
	if res.RowsAffected() == 0 {
		if _, err := s.pool.Exec(ctx, `INSERT INTO NumWords (n) VALUES ($1)`, delta); err != nil {
			return oops.Code("STORE_WRITE_FAILED").Wrap(err)
		}
	}
	return nil
}

// NumWords returns the corpus-wide token count N.
func (s *Store) NumWords(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT n FROM NumWords LIMIT 1`).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, oops.Code("STORE_QUERY_FAILED").Wrap(err)
	}
	return n, nil
}

// LowercaseCandidate is a (lemma, tag) pair whose capitalized and
// lowercased surface frequencies qualify for the lowercase-collapse pass.
type LowercaseCandidate struct {
	Lemma           string
	Tag             string
	Capitalized     string
	Lowercase       string
	CapitalizedFreq int64
	LowercaseFreq   int64
}

// LowercaseCollapseCandidates finds every (lemma, tag, Text) pair with a
// capitalized surface that has a lowercased sibling whose frequency falls
// within [threshold, 1.0] of the capitalized one's, per §4.5's compact-
// flavour lowercase collapse.
func (s *Store) LowercaseCollapseCandidates(ctx context.Context, threshold float64) ([]LowercaseCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cap.lemma, cap.tag, cap.text, cap.frequency, low.text, low.frequency
		FROM UniqWords cap
		JOIN UniqWords low
			ON low.lemma = cap.lemma AND low.tag = cap.tag AND low.text = LOWER(cap.text)
		WHERE cap.text <> LOWER(cap.text)
			AND low.frequency BETWEEN $1 * cap.frequency AND cap.frequency
	`, threshold)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").Wrapf(err, "finding lowercase-collapse candidates")
	}
	defer rows.Close()

	var out []LowercaseCandidate
	for rows.Next() {
		var c LowercaseCandidate
		if err := rows.Scan(&c.Lemma, &c.Tag, &c.Capitalized, &c.CapitalizedFreq, &c.Lowercase, &c.LowercaseFreq); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").Wrapf(err, "scanning lowercase-collapse row")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").Wrapf(err, "iterating lowercase-collapse rows")
	}
	return out, nil
}

// ApplyLowercaseCollapse rewrites every Representations and Matches row
// whose text equals c.Capitalized (for c's lemma/tag) to c.Lowercase, and
// folds the capitalized UniqWords frequency into the lowercase row.
func (s *Store) ApplyLowercaseCollapse(ctx context.Context, c LowercaseCandidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `
		UPDATE Matches SET text = $1 WHERE text = $2 AND lemma = $3 AND tag = $4
	`, c.Lowercase, c.Capitalized, c.Lemma, c.Tag); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrapf(err, "collapsing matches")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE Representations SET text = $1 WHERE text = $2 AND tag = $3
	`, c.Lowercase, c.Capitalized, c.Tag); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrapf(err, "collapsing representations")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE UniqWords SET frequency = frequency + $1 WHERE lemma = $2 AND tag = $3 AND text = $4
	`, c.CapitalizedFreq, c.Lemma, c.Tag, c.Lowercase); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrapf(err, "folding frequency")
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM UniqWords WHERE lemma = $1 AND tag = $2 AND text = $3
	`, c.Lemma, c.Tag, c.Capitalized); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrapf(err, "removing capitalized entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("STORE_WRITE_FAILED").With("lemma", c.Lemma).Wrapf(err, "commit")
	}
	return nil
}

// StructureCollocation is one collocation row whose frequency clears
// min_freq, the shape the dispersion pass and writer iterate over.
type StructureCollocation struct {
	CollocationID string
	KeyText       string
	Frequency     int64
}

// CollocationsAboveMinFreq lists every collocation of structureID whose
// distinct occurrence count is at least minFreq, per the frequency-filter
// property: no collocation below min_freq appears in dispersions or
// writer rows.
func (s *Store) CollocationsAboveMinFreq(ctx context.Context, structureID string, minFreq int64) ([]StructureCollocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.collocation_id, c.key_text, COUNT(DISTINCT cm.occurrence_id) AS freq
		FROM Collocations c
		JOIN CollocationMatches cm ON cm.collocation_id = c.collocation_id
		WHERE c.structure_id = $1
		GROUP BY c.collocation_id, c.key_text
		HAVING COUNT(DISTINCT cm.occurrence_id) >= $2
	`, structureID, minFreq)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrap(err)
	}
	defer rows.Close()

	var out []StructureCollocation
	for rows.Next() {
		var sc StructureCollocation
		if err := rows.Scan(&sc.CollocationID, &sc.KeyText, &sc.Frequency); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrapf(err, "scanning collocation row")
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrapf(err, "iterating collocation rows")
	}
	return out, nil
}

// MatchesOf returns every match linked to collocationID in recorded
// position order, the shape the writer and postprocessor consume.
func (s *Store) MatchesOf(ctx context.Context, collocationID string) ([]MatchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.component_id, m.lemma, m.text, m.tag, m.word_id, m.sentence_id, m.token_int_id
		FROM CollocationMatches cm
		JOIN Matches m ON m.match_id = cm.match_id
		WHERE cm.collocation_id = $1
		ORDER BY cm.occurrence_id, cm.position
	`, collocationID)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrap(err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ComponentID, &m.Lemma, &m.Text, &m.Tag, &m.WordID, &m.SentenceID, &m.TokenIntID); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "scanning match row")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "iterating match rows")
	}
	return out, nil
}

// Occurrence is one matched structure instance's per-component matches,
// the shape the writer groups rows by when emitting the
// Collocation_id/Sentence_id/Token_ids mapping file and computing the
// variable word order.
type Occurrence struct {
	SentenceID string
	Matches    []MatchRecord // one per component, in component-definition order
}

// Occurrences groups collocationID's matches by the structure instance
// that produced them.
func (s *Store) Occurrences(ctx context.Context, collocationID string) ([]Occurrence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cm.occurrence_id, m.component_id, m.lemma, m.text, m.tag, m.word_id, m.sentence_id, m.token_int_id
		FROM CollocationMatches cm
		JOIN Matches m ON m.match_id = cm.match_id
		WHERE cm.collocation_id = $1
		ORDER BY cm.occurrence_id, cm.position
	`, collocationID)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrap(err)
	}
	defer rows.Close()

	var order []string
	byOccurrence := map[string]*Occurrence{}
	for rows.Next() {
		var occurrenceID string
		var m MatchRecord
		if err := rows.Scan(&occurrenceID, &m.ComponentID, &m.Lemma, &m.Text, &m.Tag, &m.WordID, &m.SentenceID, &m.TokenIntID); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "scanning occurrence row")
		}
		occ, ok := byOccurrence[occurrenceID]
		if !ok {
			occ = &Occurrence{SentenceID: m.SentenceID}
			byOccurrence[occurrenceID] = occ
			order = append(order, occurrenceID)
		}
		occ.Matches = append(occ.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "iterating occurrence rows")
	}

	out := make([]Occurrence, 0, len(order))
	for _, id := range order {
		out = append(out, *byOccurrence[id])
	}
	return out, nil
}

// DispersionSource lists every distinct (component_id, lemma) pair
// participating in structureID's collocations, alongside the number of
// distinct collocations each pair participates in — the dispersion
// count of §4.5.
func (s *Store) DispersionSource(ctx context.Context, structureID string) ([]DispersionCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.component_id, m.lemma, COUNT(DISTINCT cm.collocation_id)
		FROM Matches m
		JOIN CollocationMatches cm ON cm.match_id = m.match_id
		JOIN Collocations c ON c.collocation_id = cm.collocation_id
		WHERE c.structure_id = $1
		GROUP BY m.component_id, m.lemma
	`, structureID)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrap(err)
	}
	defer rows.Close()

	var out []DispersionCount
	for rows.Next() {
		var d DispersionCount
		if err := rows.Scan(&d.ComponentID, &d.Lemma, &d.Count); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrapf(err, "scanning dispersion row")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("structure_id", structureID).Wrapf(err, "iterating dispersion rows")
	}
	return out, nil
}

// DispersionCount is one (component, lemma) pair's distinct-collocation
// count within a structure.
type DispersionCount struct {
	ComponentID string
	Lemma       string
	Count       int64
}

// Representations returns every component's stored representation for
// collocationID, keyed by component id.
func (s *Store) Representations(ctx context.Context, collocationID string) (map[string]RepresentationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT component_id, text, tag FROM Representations WHERE collocation_id = $1
	`, collocationID)
	if err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrap(err)
	}
	defer rows.Close()

	out := map[string]RepresentationRecord{}
	for rows.Next() {
		var r RepresentationRecord
		if err := rows.Scan(&r.ComponentID, &r.Text, &r.Tag); err != nil {
			return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "scanning representation row")
		}
		out[r.ComponentID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STORE_QUERY_FAILED").With("collocation_id", collocationID).Wrapf(err, "iterating representation rows")
	}
	return out, nil
}
