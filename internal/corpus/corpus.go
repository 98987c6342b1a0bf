// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package corpus reads TEI-XML and CoNLL-U corpus files into
// token.Sentence streams, for both the compact (JOS) and featural (UD)
// tag flavours.
//
// Grounded on original_source/cordex/readers/loader.py: ana/afun prefix
// stripping and legacy from/dep link attributes for TEI, the
// conllu.parse_incr sentence loop and misc/SpaceAfter glue handling for
// CoNLL-U, and the fake-root-word convention both readers share.
package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/token"
)

// Config selects the tag flavour and an optional deprel translation used
// while reading, mirroring jos_depparse_lang's translate_jos_depparse
// call in the original loader.
type Config struct {
	Flavour token.Flavour

	// TranslateDeprel rewrites a raw deprel label before it is stored on
	// a token's Links map (e.g. compact-flavour JOS corpora using
	// English vs Slovene relation names). Nil means "use as read".
	TranslateDeprel func(string) string
}

func (c Config) translate(deprel string) string {
	if c.TranslateDeprel == nil {
		return deprel
	}
	return c.TranslateDeprel(deprel)
}

// LoadFile reads path, dispatching on its extension, and returns the
// sentences it contains. An unrecognized extension is a fatal
// input-schema error per §7.
func LoadFile(ctx context.Context, path string, cfg Config) ([]*token.Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.Code("CORPUS_FILE_UNREADABLE").With("path", path).Wrap(err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		return readTEI(ctx, f, cfg)
	case ".conllu", ".conllup":
		return readCoNLLU(ctx, f, cfg)
	default:
		return nil, oops.Code("CORPUS_FORMAT_UNKNOWN").With("path", path).With("extension", ext).
			Errorf("file %s is in an unsupported format (expected .xml, .conllu, or .conllup)", path)
	}
}

// pendingLink is a not-yet-resolved dependency arc read from either
// reader, resolved against the sentence's word-id map once the whole
// sentence has been read.
type pendingLink struct {
	from, to, label string
}

// assembleSentence wires pendingLinks onto their source tokens and
// splits out the sentence's syntactic roots (tokens whose head is
// rootID) into a synthetic root token, per token.NewRoot's convention.
// Per §7, a link naming an unknown id is reported through warn and
// dropped rather than aborting the sentence.
func assembleSentence(sentenceID, rootID string, order []string, byID map[string]*token.Token, links []pendingLink, warn func(string)) *token.Sentence {
	var roots []*token.Token
	for _, l := range links {
		dest, ok := byID[l.to]
		if !ok {
			warn("unknown link destination id: " + l.to)
			continue
		}
		if l.from == rootID {
			roots = append(roots, dest)
			continue
		}
		src, ok := byID[l.from]
		if !ok {
			warn("unknown link source id: " + l.from)
			continue
		}
		src.Links[l.label] = append(src.Links[l.label], dest)
	}

	tokens := make([]*token.Token, 0, len(order))
	for _, id := range order {
		tokens = append(tokens, byID[id])
	}

	return &token.Sentence{
		ID:     sentenceID,
		Root:   token.NewRoot(sentenceID, roots),
		Tokens: tokens,
	}
}
