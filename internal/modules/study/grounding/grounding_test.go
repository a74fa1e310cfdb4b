package grounding

import (
	"reflect"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/content"
)

const (
	idA = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	idB = "6fa459ea-ee8a-3ca4-894e-db77e160355e"
)

func sampleBundle() content.Bundle {
	return content.Bundle{
		Summary: []content.SummaryPoint{
			{Text: "grounded", Grounding: content.Grounding{SourceChunkIDs: []string{"[CHUNK_" + idA + "]", idA, "bogus"}}},
			{Text: "hallucinated", Grounding: content.Grounding{SourceChunkIDs: []string{"not-a-chunk"}}},
			{Text: "context", Grounding: content.Grounding{IsComplement: true}},
		},
		Map: content.ContentMap{Topics: []content.Topic{
			{Title: "topic", Grounding: content.Grounding{Section: "complemento"}},
		}},
		Flashcards: []content.Flashcard{
			{Front: "f", Back: "b", Grounding: content.Grounding{SourceChunkIDs: []string{idB, idA}}},
		},
		Questions: []content.Question{
			{Prompt: "q", Options: []string{"a", "b", "c", "d"}},
		},
	}
}

func TestFaithfulFlagsEveryUngroundedItem(t *testing.T) {
	out := Normalize(sampleBundle(), []string{idA, idB}, study.ModeFaithful)

	if got := out.Summary[0].SourceChunkIDs; !reflect.DeepEqual(got, []string{idA}) {
		t.Fatalf("filtered sources: want=%v got=%v", []string{idA}, got)
	}
	if out.Summary[0].NotFoundInMaterial {
		t.Fatalf("grounded item flagged as not found")
	}
	for _, it := range out.Items() {
		g := it.Ground()
		if len(g.SourceChunkIDs) == 0 && !g.NotFoundInMaterial {
			t.Fatalf("faithful item %T without sources must be flagged", it)
		}
	}
	if out.Summary[2].Section != study.SectionComplemento {
		t.Fatalf("isComplement: want=%s got=%s", study.SectionComplemento, out.Summary[2].Section)
	}
}

func TestDeepenedComplementNeedsNoSource(t *testing.T) {
	out := Normalize(sampleBundle(), []string{idA, idB}, study.ModeDeepened)

	if out.Summary[2].NotFoundInMaterial {
		t.Fatalf("complement summary: want notFoundInMaterial=false")
	}
	if out.Map.Topics[0].Section != study.SectionComplemento || out.Map.Topics[0].NotFoundInMaterial {
		t.Fatalf("complement topic: got %+v", out.Map.Topics[0].Grounding)
	}
	if !out.Summary[1].NotFoundInMaterial {
		t.Fatalf("FIEL item without sources must still be flagged in deepened mode")
	}
	if got := out.Flashcards[0].SourceChunkIDs; !reflect.DeepEqual(got, []string{idB, idA}) {
		t.Fatalf("source order: want=%v got=%v", []string{idB, idA}, got)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := sampleBundle()
	_ = Normalize(in, []string{idA}, study.ModeExam)
	if len(in.Summary[0].SourceChunkIDs) != 3 {
		t.Fatalf("input mutated: %v", in.Summary[0].SourceChunkIDs)
	}
}

func TestRequireSource(t *testing.T) {
	cases := []struct {
		mode    study.Mode
		section study.Section
		want    bool
	}{
		{study.ModeFaithful, study.SectionFiel, true},
		{study.ModeFaithful, study.SectionComplemento, true},
		{study.ModeExam, study.SectionComplemento, true},
		{study.ModeDeepened, study.SectionFiel, true},
		{study.ModeDeepened, study.SectionComplemento, false},
	}
	for _, tc := range cases {
		if got := RequireSource(tc.mode, tc.section); got != tc.want {
			t.Fatalf("RequireSource(%s,%s): want=%v got=%v", tc.mode, tc.section, tc.want, got)
		}
	}
}

func TestCanonicalChunkID(t *testing.T) {
	for in, want := range map[string]string{
		"[CHUNK_ABC]": "abc",
		"chunk_abc":   "abc",
		" abc ":       "abc",
		"[]":          "",
	} {
		if got := CanonicalChunkID(in); got != want {
			t.Fatalf("CanonicalChunkID(%q): want=%q got=%q", in, want, got)
		}
	}
}
