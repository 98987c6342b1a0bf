// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package corpus

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/samber/oops"

	"github.com/clarinsi/cordex/internal/token"
)

// readTEI streams a TEI-XML document (sentences within paragraphs,
// holding w/pc/link elements) into sentences. Namespace prefixes are
// irrelevant here: encoding/xml already separates an element's local
// name from its namespace, so w/pc/s/link are matched on Name.Local
// directly rather than by the source-text namespace-stripping regex the
// original loader used.
func readTEI(_ context.Context, r io.Reader, cfg Config) ([]*token.Sentence, error) {
	dec := xml.NewDecoder(r)

	var sentences []*token.Sentence
	var cur *teiSentenceBuilder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, oops.Code("CORPUS_PARSE_FAILED").Wrap(err)
		}

		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "s":
				cur = newTEISentenceBuilder(attr(se, "id"), cfg)
			case "w":
				if cur == nil {
					continue
				}
				text, err := readCharData(dec)
				if err != nil {
					return nil, oops.Code("CORPUS_PARSE_FAILED").Wrap(err)
				}
				cur.addWord(se, text)
			case "pc":
				if cur == nil {
					continue
				}
				text, err := readCharData(dec)
				if err != nil {
					return nil, oops.Code("CORPUS_PARSE_FAILED").Wrap(err)
				}
				cur.addPunct(se, text)
			case "link":
				if cur == nil {
					continue
				}
				cur.addLink(se)
			}
		case xml.EndElement:
			if se.Name.Local == "s" && cur != nil {
				if s := cur.build(); s != nil {
					sentences = append(sentences, s)
				}
				cur = nil
			}
		}
	}
	return sentences, nil
}

// readCharData consumes character data up to the enclosing element's end
// tag, the text content of a w/pc element.
func readCharData(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type teiSentenceBuilder struct {
	sentenceID string
	cfg        Config
	order      []string
	byID       map[string]*token.Token
	links      []pendingLink
	nextInt    int
	prevGlue   bool
}

func newTEISentenceBuilder(sentenceID string, cfg Config) *teiSentenceBuilder {
	return &teiSentenceBuilder{
		sentenceID: sentenceID,
		cfg:        cfg,
		byID:       map[string]*token.Token{},
	}
}

func (b *teiSentenceBuilder) addWord(se xml.StartElement, text string) {
	id := attr(se, "id")
	if id == "" {
		return
	}
	lemma := attr(se, "lemma")
	glue := attr(se, "join") == "right"
	b.appendToken(id, lemma, text, glue, tagFromWordAttrs(b.cfg.Flavour, se))
}

func (b *teiSentenceBuilder) addPunct(se xml.StartElement, text string) {
	id := attr(se, "id")
	if id == "" {
		return
	}
	glue := attr(se, "join") == "right"
	// pc elements use their own text as their lemma, per WordJOS/WordUD.pc_word.
	b.appendToken(id, text, text, glue, tagFromWordAttrs(b.cfg.Flavour, se))
}

func (b *teiSentenceBuilder) appendToken(id, lemma, text string, glue bool, tag token.Tag) {
	intID := b.nextInt
	b.nextInt++
	tok := &token.Token{
		Lemma:        lemma,
		Text:         text,
		SentenceID:   b.sentenceID,
		WordID:       id,
		IntID:        intID,
		Glue:         glue,
		PreviousGlue: b.prevGlue,
		Tag:          tag,
		Links:        map[string][]*token.Token{},
	}
	b.byID[id] = tok
	b.order = append(b.order, id)
	b.prevGlue = glue
}

// addLink parses a <link> element's dependency arc. Two shapes are
// supported: the legacy afun/from/dep attributes, and the ana/target
// shape, where ana carries a flavour-specific prefix ("ud-syn:" or
// "jos-syn:") that is stripped before the label is used; a link whose
// ana lacks the expected prefix is skipped, matching the original
// reader's "don't bother" handling of unrelated annotation layers.
func (b *teiSentenceBuilder) addLink(se xml.StartElement) {
	if dep := attr(se, "dep"); dep != "" {
		label := b.cfg.translate(attr(se, "afun"))
		b.links = append(b.links, pendingLink{from: attr(se, "from"), to: dep, label: label})
		return
	}

	ana := attr(se, "ana")
	prefix := "jos-syn:"
	if b.cfg.Flavour == token.Featural {
		prefix = "ud-syn:"
	}
	rest, ok := strings.CutPrefix(ana, prefix)
	if !ok {
		return
	}

	target := strings.Fields(attr(se, "target"))
	if len(target) != 2 {
		return
	}
	from := strings.TrimPrefix(target[0], "#")
	to := strings.TrimPrefix(target[1], "#")
	b.links = append(b.links, pendingLink{from: from, to: to, label: b.cfg.translate(rest)})
}

func (b *teiSentenceBuilder) build() *token.Sentence {
	if len(b.order) == 0 {
		return nil
	}
	return assembleSentence(b.sentenceID, b.sentenceID, b.order, b.byID, b.links, func(string) {})
}

// tagFromWordAttrs decodes a w/pc element's tag attribute per flavour:
// compact (JOS) reads "ana", stripping its 4-character prefix (e.g.
// "mte:"); featural (UD) reads "msd", a pipe-joined feature list that
// carries UPosTag/UposTag as its POS feature.
func tagFromWordAttrs(flavour token.Flavour, se xml.StartElement) token.Tag {
	if flavour == token.Compact {
		ana := attr(se, "ana")
		if len(ana) <= 4 {
			return token.Compact("")
		}
		return token.Compact(ana[4:])
	}

	msd := attr(se, "msd")
	featural := token.Featural{}
	if msd == "" {
		return featural
	}
	for _, part := range strings.Split(msd, "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if k == "UPosTag" || k == "UposTag" {
			featural["POS"] = v
			continue
		}
		featural[k] = v
	}
	return featural
}
