// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts a PostgreSQL container, applies the
// collocation-store migrations, and returns a ready Store.
func setupPostgresContainer(t *testing.T) (*Store, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cordex_test"),
		postgres.WithUsername("cordex"),
		postgres.WithPassword("cordex"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	migrator, err := NewMigrator(connStr)
	if err != nil {
		t.Fatalf("failed to build migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := migrator.Close(); err != nil {
		t.Fatalf("failed to close migrator: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return NewStore(pool), cleanup
}

func TestStore_RecordMatchDeduplicatesByKeyText(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	pairs := []ComponentLemma{
		{ComponentIndex: 0, ComponentID: "adj", Lemma: "lep"},
		{ComponentIndex: 1, ComponentID: "noun", Lemma: "hiša"},
	}

	first := []MatchRecord{
		{ComponentID: "adj", Lemma: "lep", Text: "lepa", Tag: "ADJ", WordID: "w1", SentenceID: "s1"},
		{ComponentID: "noun", Lemma: "hiša", Text: "hiša", Tag: "NOUN", WordID: "w2", SentenceID: "s1"},
	}
	second := []MatchRecord{
		{ComponentID: "adj", Lemma: "lep", Text: "lepo", Tag: "ADJ", WordID: "w3", SentenceID: "s2"},
		{ComponentID: "noun", Lemma: "hiša", Text: "hišo", Tag: "NOUN", WordID: "w4", SentenceID: "s2"},
	}

	id1, err := store.RecordMatch(ctx, "adj-noun", first, pairs)
	if err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	id2, err := store.RecordMatch(ctx, "adj-noun", second, pairs)
	if err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same collocation id for the same key text, got %q and %q", id1, id2)
	}

	freq, err := store.CollocationFrequency(ctx, id1)
	if err != nil {
		t.Fatalf("CollocationFrequency: %v", err)
	}
	if freq != 2 {
		t.Errorf("Frequency = %d, want 2 (one per occurrence)", freq)
	}

	distinct, err := store.DistinctForms(ctx, id1)
	if err != nil {
		t.Fatalf("DistinctForms: %v", err)
	}
	if distinct != 2 {
		t.Errorf("DistinctForms = %d, want 2", distinct)
	}
}

func TestStore_FileAndStepIdempotency(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	seen, err := store.HasFile(ctx, "corpus-a.conllu")
	if err != nil {
		t.Fatalf("HasFile: %v", err)
	}
	if seen {
		t.Fatal("expected corpus-a.conllu to be unseen")
	}

	if err := store.RecordFile(ctx, "corpus-a.conllu"); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	if err := store.RecordFile(ctx, "corpus-a.conllu"); err != nil {
		t.Fatalf("RecordFile (repeat): %v", err)
	}

	seen, err = store.HasFile(ctx, "corpus-a.conllu")
	if err != nil {
		t.Fatalf("HasFile: %v", err)
	}
	if !seen {
		t.Fatal("expected corpus-a.conllu to be recorded")
	}

	done, err := store.HasStep(ctx, "dispersions")
	if err != nil {
		t.Fatalf("HasStep: %v", err)
	}
	if done {
		t.Fatal("expected dispersions step to be unmarked")
	}
	if err := store.RecordStep(ctx, "dispersions"); err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	done, err = store.HasStep(ctx, "dispersions")
	if err != nil {
		t.Fatalf("HasStep: %v", err)
	}
	if !done {
		t.Fatal("expected dispersions step to be marked done")
	}
}

func TestStore_MinFreqFilterExcludesLowCountCollocations(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	pairsRare := []ComponentLemma{{ComponentIndex: 0, ComponentID: "adj", Lemma: "star"}, {ComponentIndex: 1, ComponentID: "noun", Lemma: "avto"}}
	pairsCommon := []ComponentLemma{{ComponentIndex: 0, ComponentID: "adj", Lemma: "lep"}, {ComponentIndex: 1, ComponentID: "noun", Lemma: "hiša"}}

	if _, err := store.RecordMatch(ctx, "adj-noun", []MatchRecord{
		{ComponentID: "adj", Lemma: "star", Text: "star", Tag: "ADJ", WordID: "w1", SentenceID: "s1"},
		{ComponentID: "noun", Lemma: "avto", Text: "avto", Tag: "NOUN", WordID: "w2", SentenceID: "s1"},
	}, pairsRare); err != nil {
		t.Fatalf("RecordMatch rare: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.RecordMatch(ctx, "adj-noun", []MatchRecord{
			{ComponentID: "adj", Lemma: "lep", Text: "lepa", Tag: "ADJ", WordID: "w", SentenceID: "s"},
			{ComponentID: "noun", Lemma: "hiša", Text: "hiša", Tag: "NOUN", WordID: "w", SentenceID: "s"},
		}, pairsCommon); err != nil {
			t.Fatalf("RecordMatch common: %v", err)
		}
	}

	above, err := store.CollocationsAboveMinFreq(ctx, "adj-noun", 3)
	if err != nil {
		t.Fatalf("CollocationsAboveMinFreq: %v", err)
	}
	if len(above) != 1 {
		t.Fatalf("expected 1 collocation above min_freq=3, got %d", len(above))
	}
	if above[0].KeyText != KeyText(pairsCommon) {
		t.Errorf("unexpected collocation surfaced: %q", above[0].KeyText)
	}
}

func TestStore_LowercaseCollapse(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	// Lowercase is a minor but non-negligible variant (>= 10%) of the
	// capitalized form's frequency, so the capitalized rows collapse to it.
	if err := store.IncrementUniqWord(ctx, "hiša", "NOUN", "Hiša", 40); err != nil {
		t.Fatalf("IncrementUniqWord: %v", err)
	}
	if err := store.IncrementUniqWord(ctx, "hiša", "NOUN", "hiša", 5); err != nil {
		t.Fatalf("IncrementUniqWord: %v", err)
	}

	candidates, err := store.LowercaseCollapseCandidates(ctx, 0.10)
	if err != nil {
		t.Fatalf("LowercaseCollapseCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	if err := store.ApplyLowercaseCollapse(ctx, candidates[0]); err != nil {
		t.Fatalf("ApplyLowercaseCollapse: %v", err)
	}

	remaining, err := store.LowercaseCollapseCandidates(ctx, 0.10)
	if err != nil {
		t.Fatalf("LowercaseCollapseCandidates (after): %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no remaining candidates after collapse, got %d", len(remaining))
	}
}

func TestStore_AllUniqWordsReturnsEveryRecordedForm(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.IncrementUniqWord(ctx, "hiša", "NOUN", "hiša", 3); err != nil {
		t.Fatalf("IncrementUniqWord: %v", err)
	}
	if err := store.IncrementUniqWord(ctx, "hiša", "NOUN", "hiše", 2); err != nil {
		t.Fatalf("IncrementUniqWord: %v", err)
	}
	if err := store.IncrementUniqWord(ctx, "hiša", "NOUN", "hiša", 4); err != nil {
		t.Fatalf("IncrementUniqWord (repeat key accumulates): %v", err)
	}

	words, err := store.AllUniqWords(ctx)
	if err != nil {
		t.Fatalf("AllUniqWords: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 distinct (lemma, tag, text) rows, got %d: %+v", len(words), words)
	}

	byText := map[string]int64{}
	for _, w := range words {
		if w.Lemma != "hiša" || w.Tag != "NOUN" {
			t.Errorf("unexpected row: %+v", w)
		}
		byText[w.Text] = w.Frequency
	}
	if byText["hiša"] != 7 {
		t.Errorf("frequency for text %q = %d, want 7 (3+4 accumulated)", "hiša", byText["hiša"])
	}
	if byText["hiše"] != 2 {
		t.Errorf("frequency for text %q = %d, want 2", "hiše", byText["hiše"])
	}
}
