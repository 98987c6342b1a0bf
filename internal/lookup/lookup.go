// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package lookup implements the two inflectional-lookup backend modes: a
// local file of pre-exported lemma->forms data, and a batched HTTP API,
// both satisfying represent.Backend.
//
// Grounded on original_source/cordex/representations/{lookup,
// lookup_lexicon}.py.
package lookup

import (
	"compress/gzip"
	"encoding/gob"
	"os"

	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/represent"
)

// FormEntry is one inflected form of a lemma, sorted by descending
// frequency within its lemma's entry.
type FormEntry struct {
	Features  map[string]string
	Surface   string
	Tag       string
	Frequency int
}

// FileBackend serves lookups from a gzip+gob-encoded lemma->forms mapping
// loaded entirely into memory, matching the file-mode contract in §6 ("a
// compressed pickled mapping lemma -> list of (...), sorted by descending
// frequency"), reinterpreted onto Go's gob encoding per SPEC_FULL.md.
type FileBackend struct {
	forms map[string][]FormEntry
}

// LoadFileBackend reads a gzip+gob-encoded lookup file from disk.
func LoadFileBackend(path string) (*FileBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.Code("LOOKUP_FILE_ERROR").With("path", path).Wrapf(err, "opening lookup file")
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, oops.Code("LOOKUP_FILE_ERROR").With("path", path).Wrapf(err, "opening gzip stream")
	}
	defer gz.Close()

	var forms map[string][]FormEntry
	if err := gob.NewDecoder(gz).Decode(&forms); err != nil {
		return nil, oops.Code("LOOKUP_FILE_ERROR").With("path", path).Wrapf(err, "decoding lookup file")
	}
	return &FileBackend{forms: forms}, nil
}

// InflectForm finds the highest-frequency form of lemma whose features
// satisfy selector, implementing represent.Backend.
func (b *FileBackend) InflectForm(lemma string, _ string, selector map[string]string) (represent.Form, bool) {
	for _, entry := range b.forms[lemma] {
		if matchesAll(entry.Features, selector) {
			return represent.Form{Text: entry.Surface, Tag: entry.Tag}, true
		}
	}
	return represent.Form{}, false
}

func matchesAll(features, selector map[string]string) bool {
	for k, v := range selector {
		if features[k] != v {
			return false
		}
	}
	return true
}
