// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package corpus

import (
	"context"
	"strings"
	"testing"

	"github.com/clarinsi/cordex/internal/token"
)

const teiFixture = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
<text><body><p>
<s id="s1">
<w id="s1.1" lemma="rdeč" ana="mte:Agpfsn" join="right">rdeča</w>
<w id="s1.2" lemma="hiša" ana="mte:Ncfsn">hiša</w>
<pc id="s1.3" ana="mte:U">.</pc>
<link ana="jos-syn:amod" target="#s1.2 #s1.1"/>
<link ana="jos-syn:root" target="#s1 #s1.2"/>
</s>
</p></body></text>
</TEI>`

func TestReadTEIBuildsCompactSentence(t *testing.T) {
	sentences, err := readTEI(context.Background(), strings.NewReader(teiFixture), Config{Flavour: token.Compact})
	if err != nil {
		t.Fatalf("readTEI: %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}
	s := sentences[0]
	if len(s.Tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(s.Tokens))
	}

	var hisa *token.Token
	for _, tok := range s.Tokens {
		if tok.WordID == "s1.2" {
			hisa = tok
		}
	}
	if hisa == nil {
		t.Fatal("expected to find hiša by word id")
	}
	if hisa.Tag.Category() != "N" {
		t.Errorf("category = %q, want N (stripped mte: prefix)", hisa.Tag.Category())
	}
	if len(s.Root.Links["modra"]) != 1 || s.Root.Links["modra"][0].WordID != "s1.2" {
		t.Errorf("expected hiša as the sentence root")
	}
	amod := hisa.Children("amod")
	if len(amod) != 1 || amod[0].WordID != "s1.1" {
		t.Errorf("expected rdeča as hiša's amod child, got %+v", amod)
	}

	var rdeca *token.Token
	for _, tok := range s.Tokens {
		if tok.WordID == "s1.1" {
			rdeca = tok
		}
	}
	if rdeca == nil || !rdeca.Glue {
		t.Error("expected join=\"right\" to set Glue on rdeča")
	}
}

func TestReadTEISkipsUnrelatedAnnotationLayer(t *testing.T) {
	const fixture = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
<text><body><p><s id="s1">
<w id="s1.1" lemma="x" ana="mte:X">x</w>
<link ana="other-layer:foo" target="#s1 #s1.1"/>
</s></p></body></text></TEI>`
	sentences, err := readTEI(context.Background(), strings.NewReader(fixture), Config{Flavour: token.Compact})
	if err != nil {
		t.Fatalf("readTEI: %v", err)
	}
	if len(sentences[0].Root.Links["modra"]) != 0 {
		t.Error("expected a non-jos-syn ana layer to be skipped")
	}
}
