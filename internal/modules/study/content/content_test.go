package content

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
)

func TestDecodeBundleDefaultsMissingFields(t *testing.T) {
	raw := []byte(`{
		"summary": [{"text": "point one", "sourceChunkIds": "abc"}, {"section": "FIEL"}, "bare point"],
		"map": {"topics": [{"title": "Cells"}]},
		"flashcards": [{"front": "Q", "back": "A", "isComplement": "true"}, {"front": "no back"}],
		"questions": [{"prompt": "Pick", "options": ["a","b"], "answerIndex": 7}]
	}`)
	b, err := DecodeBundle(raw)
	if err != nil {
		t.Fatalf("DecodeBundle: %v", err)
	}
	if len(b.Summary) != 2 {
		t.Fatalf("summary: want=2 got=%d", len(b.Summary))
	}
	if got := b.Summary[0].SourceChunkIDs; len(got) != 1 || got[0] != "abc" {
		t.Fatalf("single string source: got %v", got)
	}
	if b.Summary[1].Text != "bare point" {
		t.Fatalf("bare string summary: got %q", b.Summary[1].Text)
	}
	if len(b.Map.Topics) != 1 || b.Map.Topics[0].Subtopics == nil {
		t.Fatalf("topics: got %+v", b.Map.Topics)
	}
	if len(b.Flashcards) != 1 || !b.Flashcards[0].IsComplement {
		t.Fatalf("flashcards: got %+v", b.Flashcards)
	}
	if b.Questions[0].AnswerIndex != 0 {
		t.Fatalf("out-of-range answer index: want=0 got=%d", b.Questions[0].AnswerIndex)
	}
	if b.Len() != 5 {
		t.Fatalf("Len: want=5 got=%d", b.Len())
	}
}

func TestDecodeBundleRejectsNonObject(t *testing.T) {
	if _, err := DecodeBundle([]byte(`[1,2]`)); err == nil {
		t.Fatalf("want error for array top level")
	}
}

func TestDecodeStoredPayload(t *testing.T) {
	fc := Flashcard{Front: "f", Back: "b", Grounding: Grounding{Section: study.SectionFiel, SourceChunkIDs: []string{"x"}}}
	raw, _ := json.Marshal(fc)
	c, err := Decode(study.ArtifactFlashcard, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := c.(*Flashcard)
	if !ok {
		t.Fatalf("Decode: want *Flashcard got %T", c)
	}
	if got.Front != "f" || got.Back != "b" || got.Ground().SourceChunkIDs[0] != "x" {
		t.Fatalf("Decode: got %+v", got)
	}
	if _, err := Decode("video", raw); err == nil {
		t.Fatalf("unknown type: want error")
	}
}
