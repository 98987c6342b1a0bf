// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clarinsi/cordex/internal/store"
)

func TestSentenceMapperOrdersTokensByReadingPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.tsv")
	mapper, err := NewSentenceMapper(path)
	if err != nil {
		t.Fatalf("NewSentenceMapper: %v", err)
	}

	occ := store.Occurrence{
		SentenceID: "s1",
		Matches: []store.MatchRecord{
			{ComponentID: "2", SentenceID: "s1", WordID: "s1.2", TokenIntID: 2},
			{ComponentID: "1", SentenceID: "s1", WordID: "s1.1", TokenIntID: 1},
		},
	}
	if err := mapper.AddOccurrence("01COLL", occ); err != nil {
		t.Fatalf("AddOccurrence: %v", err)
	}
	if err := mapper.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
	if lines[0] != "Collocation_id\tSentence_id\tToken_ids" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "01COLL\ts1\ts1.1|s1.2" {
		t.Errorf("expected reading-order token ids, got %q", lines[1])
	}
}
