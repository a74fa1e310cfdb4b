package prompts

import (
	"strings"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
)

func TestEmbeddedPackLoads(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if p.Minimums != (Minimums{Summary: 5, Topics: 3, Flashcards: 10, Questions: 10}) {
		t.Fatalf("minimums: got %+v", p.Minimums)
	}
	deep := p.DraftSystemPrompt(study.ModeDeepened)
	if !strings.Contains(deep, "COMPLEMENTO") || !strings.Contains(deep, "[CHUNK_<id>]") {
		t.Fatalf("deepened draft prompt is missing section or label rules")
	}
	if !strings.Contains(p.DraftSystemPrompt(study.ModeExam), "exactly 4 options") {
		t.Fatalf("exam draft prompt must ask for 4 options")
	}
}

func TestParseRejectsMissingMode(t *testing.T) {
	_, err := Parse([]byte(`
pack: study_prompts
minimums: {summary: 1, topics: 1, flashcards: 1, questions: 1}
draft_system: d
validate_system: v
schema: s
ocr_system: o
modes:
  faithful: f
  exam: e
`))
	if err == nil || !strings.Contains(err.Error(), "deepened") {
		t.Fatalf("want deepened mode error, got %v", err)
	}
}

func TestLabelChunk(t *testing.T) {
	if got := LabelChunk("abc", "  body \n"); got != "[CHUNK_abc]\nbody" {
		t.Fatalf("LabelChunk: got %q", got)
	}
}
