// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/clarinsi/cordex/internal/store"
	"github.com/samber/oops"
)

// SentenceMapper writes the Collocation_id / Sentence_id / Token_ids
// mapping file: one row per matched occurrence, naming the sentence it
// came from and the `sentenceID.wordID` of every component in token
// reading order, grounded on collocation_sentence_mapper.py's
// tab-separated three-column output.
type SentenceMapper struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewSentenceMapper opens path and writes the header row.
func NewSentenceMapper(path string) (*SentenceMapper, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, oops.Wrapf(err, "create mapping file %s", path)
	}
	m := &SentenceMapper{w: bufio.NewWriter(f), closer: f}
	if _, err := m.w.WriteString("Collocation_id\tSentence_id\tToken_ids\n"); err != nil {
		return nil, oops.Wrapf(err, "write mapping header")
	}
	return m, nil
}

// AddOccurrence writes one row per occurrence of collocationID, using the
// occurrence's own matches (already ordered by position) sorted into
// token reading order by TokenIntID.
func (m *SentenceMapper) AddOccurrence(collocationID string, occ store.Occurrence) error {
	if len(occ.Matches) == 0 {
		return nil
	}
	sorted := make([]store.MatchRecord, len(occ.Matches))
	copy(sorted, occ.Matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TokenIntID < sorted[j].TokenIntID })

	ids := make([]string, len(sorted))
	for i, rec := range sorted {
		ids[i] = fmt.Sprintf("%s.%s", rec.SentenceID, rec.WordID)
	}

	line := fmt.Sprintf("%s\t%s\t%s\n", collocationID, sorted[0].SentenceID, strings.Join(ids, "|"))
	if _, err := m.w.WriteString(line); err != nil {
		return oops.Wrapf(err, "write mapping row")
	}
	return nil
}

// Close flushes and closes the underlying file.
func (m *SentenceMapper) Close() error {
	if err := m.w.Flush(); err != nil {
		return oops.Wrapf(err, "flush mapping file")
	}
	return m.closer.Close()
}
