// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package corpus

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/clarinsi/cordex/internal/token"
)

// readCoNLLU parses a standard CoNLL-U (or .conllup) stream into
// sentences. Multiword-token rows (an id like "3-4"), empty-node rows (an
// id like "3.1"), rows whose id is not an integer and rows with fewer
// than ten columns are each skipped on their own, without dropping the
// rest of the sentence. A sentence missing sent_id is kept with an empty
// ID; nothing reports the omission.
func readCoNLLU(_ context.Context, r io.Reader, cfg Config) ([]*token.Sentence, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var sentences []*token.Sentence
	var rows []conlluRow
	sentID := ""

	flush := func() {
		if len(rows) == 0 {
			return
		}
		if s := buildCoNLLUSentence(sentID, rows, cfg); s != nil {
			sentences = append(sentences, s)
		}
		rows = nil
		sentID = ""
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "# sent_id"):
			if _, v, ok := strings.Cut(line, "="); ok {
				sentID = strings.TrimSpace(v)
			}
		case strings.HasPrefix(line, "#"):
			// other comment/metadata lines carry no structural information here.
		default:
			row, ok := parseCoNLLURow(line)
			if ok {
				rows = append(rows, row)
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}

type conlluRow struct {
	id, form, lemma, upos, xpos, feats, head, deprel, misc string
}

// parseCoNLLURow splits one tab-separated data row into its ten fields,
// returning ok=false for multiword-token rows (an id of the form "3-4").
func parseCoNLLURow(line string) (conlluRow, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 10 {
		return conlluRow{}, false
	}
	if strings.Contains(fields[0], "-") || strings.Contains(fields[0], ".") {
		return conlluRow{}, false
	}
	return conlluRow{
		id:     fields[0],
		form:   fields[1],
		lemma:  fields[2],
		upos:   fields[3],
		xpos:   fields[4],
		feats:  fields[5],
		head:   fields[6],
		deprel: fields[7],
		misc:   fields[9],
	}, true
}

func buildCoNLLUSentence(sentID string, rows []conlluRow, cfg Config) *token.Sentence {
	const rootID = "0"
	order := make([]string, 0, len(rows))
	byID := map[string]*token.Token{}
	var links []pendingLink

	for _, row := range rows {
		intID, err := strconv.Atoi(row.id)
		if err != nil {
			continue
		}
		tok := &token.Token{
			Lemma:      row.lemma,
			Text:       row.form,
			SentenceID: sentID,
			WordID:     row.id,
			IntID:      intID,
			Glue:       hasSpaceAfterNo(row.misc),
			Tag:        buildTag(cfg.Flavour, row.upos, row.xpos, row.feats),
			Links:      map[string][]*token.Token{},
		}
		byID[row.id] = tok
		order = append(order, row.id)
		links = append(links, pendingLink{from: row.head, to: row.id, label: cfg.translate(row.deprel)})
	}

	if len(order) == 0 {
		return nil
	}
	applyPreviousGlue(order, byID)
	return assembleSentence(sentID, rootID, order, byID, links, func(string) {})
}

// hasSpaceAfterNo reports whether the misc column carries
// SpaceAfter=No, which sets glue to the following token.
func hasSpaceAfterNo(misc string) bool {
	if misc == "" || misc == "_" {
		return false
	}
	for _, part := range strings.Split(misc, "|") {
		if part == "SpaceAfter=No" {
			return true
		}
	}
	return false
}

// buildTag decodes a row's tag according to flavour: the featural
// flavour uses feats+upos (feats "_" meaning no features), the compact
// flavour uses xpos as-is.
func buildTag(flavour token.Flavour, upos, xpos, feats string) token.Tag {
	if flavour == token.Compact {
		return token.Compact(xpos)
	}
	featural := token.Featural{}
	if feats != "" && feats != "_" {
		for _, part := range strings.Split(feats, "|") {
			if k, v, ok := strings.Cut(part, "="); ok {
				featural[k] = v
			}
		}
	}
	if upos != "" {
		featural["POS"] = upos
	}
	return featural
}

// applyPreviousGlue sets each token's PreviousGlue from its predecessor's
// Glue, in reading order.
func applyPreviousGlue(order []string, byID map[string]*token.Token) {
	var prevGlue bool
	for _, id := range order {
		tok := byID[id]
		tok.PreviousGlue = prevGlue
		prevGlue = tok.Glue
	}
}
