package chunking

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func sampleText() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("A célula é a unidade básica da vida, e todas as formas de vida conhecidas são compostas por células. ")
		if i%5 == 4 {
			b.WriteString("\r\n\r\n")
		}
	}
	return b.String()
}

func TestChunkDeterministic(t *testing.T) {
	text := sampleText()
	a, err := ChunkText(text, DefaultParams())
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	b, err := ChunkText(text, DefaultParams())
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("ChunkText not deterministic")
	}
	if len(a) < 2 {
		t.Fatalf("expected several chunks, got %d", len(a))
	}
}

func TestChunkOffsetsMonotonic(t *testing.T) {
	inputs := map[string]string{
		"prose":      sampleText(),
		"no-breaks":  strings.Repeat("x", 5000),
		"multibyte":  strings.Repeat("ção", 2000),
		"whitespace": strings.Repeat("word ", 1200),
	}
	p := DefaultParams()
	for name, text := range inputs {
		norm := Normalize(text)
		chunks, err := Split(norm, p)
		if err != nil {
			t.Fatalf("%s: Split: %v", name, err)
		}
		for i, c := range chunks {
			if c.End <= c.Start {
				t.Fatalf("%s: chunk %d empty span [%d,%d)", name, i, c.Start, c.End)
			}
			if c.End-c.Start > p.Max {
				t.Fatalf("%s: chunk %d longer than max: %d", name, i, c.End-c.Start)
			}
			if c.Text != norm[c.Start:c.End] {
				t.Fatalf("%s: chunk %d text does not match offsets", name, i)
			}
			if !utf8.ValidString(c.Text) {
				t.Fatalf("%s: chunk %d splits a rune", name, i)
			}
			if c.Index != i {
				t.Fatalf("%s: index: want=%d got=%d", name, i, c.Index)
			}
			if i > 0 && c.Start <= chunks[i-1].Start {
				t.Fatalf("%s: chunk %d start %d not after %d", name, i, c.Start, chunks[i-1].Start)
			}
		}
		if last := chunks[len(chunks)-1]; last.End != len(norm) {
			t.Fatalf("%s: last chunk ends at %d, text length %d", name, last.End, len(norm))
		}
	}
}

func TestChunkPrefersParagraphBreak(t *testing.T) {
	para := strings.Repeat("Sentence one. ", 50) // 700 bytes
	text := para + "\n\n" + strings.Repeat("Other text, more words. ", 40)
	chunks, err := ChunkText(text, DefaultParams())
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if got := chunks[0].Text; got != strings.TrimSpace(para) {
		t.Fatalf("first chunk should stop at the paragraph break, got %d bytes", len(got))
	}
}

func TestShortTextIsOneChunk(t *testing.T) {
	chunks, err := ChunkText("  short note\r\n", DefaultParams())
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "short note" || chunks[0].Start != 0 {
		t.Fatalf("got %+v", chunks)
	}
	if chunks, _ := ChunkText(" \n\t ", DefaultParams()); len(chunks) != 0 {
		t.Fatalf("blank text: want no chunks, got %d", len(chunks))
	}
}

func TestInvalidParams(t *testing.T) {
	bad := []Params{
		{Target: 760, Min: 600, Max: 900, Overlap: 600},
		{Target: 500, Min: 600, Max: 900, Overlap: 120},
		{Target: 950, Min: 600, Max: 900, Overlap: 120},
		{Target: 760, Min: 600, Max: 900, Overlap: -1},
	}
	for _, p := range bad {
		if _, err := Split("text", p); err == nil {
			t.Fatalf("Split(%+v): expected error", p)
		}
	}
}

func TestTextHash(t *testing.T) {
	if TextHash("abc\r\n123") != TextHash("abc\n123") {
		t.Fatalf("TextHash: CRLF and LF should hash the same")
	}
	if TextHash("a\u00a0b") != TextHash("a b") {
		t.Fatalf("TextHash: NBSP should normalize to space")
	}
	h := TextHash("abc")
	if len(h) != 64 || strings.Trim(h, "0123456789abcdef") != "" {
		t.Fatalf("TextHash: want 64 hex chars, got %q", h)
	}
	if TextHash("abc") == TextHash("abd") {
		t.Fatalf("TextHash: different text should differ")
	}
}
