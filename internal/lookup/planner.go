// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package lookup

// BatchPlanner collects every (lemma, category, features) lookup a
// representation pass will need before any backend call is made, so
// HTTPBackend.Warm can issue one search-batch/retrieve-batch round for the
// whole pass instead of one round trip per collocation.
//
// Grounded on the "batch-and-cache across the whole representation pass"
// design note; the planner itself has no Python analogue (the original
// issued one HTTP call per lemma), so this is a pure Go addition.
type BatchPlanner struct {
	seen     map[string]bool
	requests []LookupRequest
}

// NewBatchPlanner returns an empty planner.
func NewBatchPlanner() *BatchPlanner {
	return &BatchPlanner{seen: map[string]bool{}}
}

// Plan registers one pending lookup, deduplicating identical
// (lemma, category, features) requests across components and
// collocations.
func (p *BatchPlanner) Plan(lemma, category string, lemmaFeatures, formFeatures map[string]string) {
	req := LookupRequest{Lemma: lemma, Category: category, LemmaFeatures: lemmaFeatures, FormFeatures: formFeatures}
	key := cacheKey(lemma, category, formFeatures)
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.requests = append(p.requests, req)
}

// Requests returns every distinct lookup planned so far.
func (p *BatchPlanner) Requests() []LookupRequest {
	return p.requests
}
