package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type fakeLLM struct {
	mu     sync.Mutex
	reqs   []llm.Request
	draft  func() (string, error)
	strict func() (string, error)
}

func (f *fakeLLM) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	h := f.draft
	if req.Profile == llm.ProfileStrict {
		h = f.strict
	}
	out, err := h()
	if err != nil {
		return nil, err
	}
	return llm.TextResponse("fake", out), nil
}

func testChunks(doc uuid.UUID) []*study.Chunk {
	return []*study.Chunk{
		{ID: study.ChunkID(doc, "h", 0), DocumentID: doc, OrderIndex: 0, Text: "Mitochondria produce ATP."},
		{ID: study.ChunkID(doc, "h", 1), DocumentID: doc, OrderIndex: 1, Text: "Ribosomes build proteins."},
	}
}

func bundleJSON(cite string) string {
	return fmt.Sprintf(`{
		"summary": [{"text": "ATP comes from mitochondria", "sourceChunkIds": ["CHUNK_%s", "made-up"]}],
		"map": {"topics": [{"title": "Organelles", "subtopics": ["Mitochondria"], "sourceChunkIds": []}]},
		"flashcards": [{"front": "What makes ATP?", "back": "Mitochondria", "sourceChunkIds": ["%s"]}],
		"questions": [{"prompt": "Which builds proteins?", "options": ["a","b","c","d"], "answerIndex": 1}]
	}`, cite, cite)
}

func newPipeline(t *testing.T, f *fakeLLM) *Pipeline {
	t.Helper()
	pack, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	return New(logger.Nop(), f, pack)
}

func TestRunValidatesAndGrounds(t *testing.T) {
	doc := uuid.New()
	chunks := testChunks(doc)
	cite := chunks[0].ID.String()
	f := &fakeLLM{
		draft:  func() (string, error) { return "```json\n" + bundleJSON(cite) + "\n```", nil },
		strict: func() (string, error) { return bundleJSON(cite), nil },
	}
	out, err := newPipeline(t, f).Run(context.Background(), Request{DocumentID: doc, Mode: study.ModeFaithful, Chunks: chunks})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Validated || out.DraftOnly {
		t.Fatalf("want validated outcome, got %+v", out)
	}
	if len(f.reqs) != 2 || f.reqs[0].Profile != llm.ProfileFast || f.reqs[1].Profile != llm.ProfileStrict {
		t.Fatalf("want fast then strict, got %d requests", len(f.reqs))
	}
	user := f.reqs[0].Messages[1].Text
	if !strings.Contains(user, "[CHUNK_"+cite+"]") {
		t.Fatalf("draft material must label chunks")
	}
	if !strings.Contains(f.reqs[1].Messages[1].Text, "DRAFT:") {
		t.Fatalf("validate call must carry the draft")
	}
	if got := out.Bundle.Summary[0].SourceChunkIDs; len(got) != 1 || got[0] != cite {
		t.Fatalf("summary sources: want=[%s] got=%v", cite, got)
	}
	if !out.Bundle.Map.Topics[0].NotFoundInMaterial || !out.Bundle.Questions[0].NotFoundInMaterial {
		t.Fatalf("uncited items must be flagged in faithful mode")
	}
}

func TestRunFallsBackToDraft(t *testing.T) {
	doc := uuid.New()
	chunks := testChunks(doc)
	cite := chunks[1].ID.String()
	for name, strict := range map[string]func() (string, error){
		"error":     func() (string, error) { return "", errors.New("timeout") },
		"malformed": func() (string, error) { return "I fixed it!", nil },
		"panic":     func() (string, error) { panic("boom") },
		"no items":  func() (string, error) { return `{"result": "ok"}`, nil },
	} {
		f := &fakeLLM{draft: func() (string, error) { return bundleJSON(cite), nil }, strict: strict}
		out, err := newPipeline(t, f).Run(context.Background(), Request{DocumentID: doc, Mode: study.ModeExam, Chunks: chunks})
		if err != nil {
			t.Fatalf("%s: Run: %v", name, err)
		}
		if !out.DraftOnly || out.Validated {
			t.Fatalf("%s: want draft fallback, got %+v", name, out)
		}
		if out.Bundle.Len() != 4 {
			t.Fatalf("%s: draft items: want=4 got=%d", name, out.Bundle.Len())
		}
	}
}

func TestRunDraftFailureIsFatal(t *testing.T) {
	doc := uuid.New()
	f := &fakeLLM{
		draft:  func() (string, error) { return "not json at all", nil },
		strict: func() (string, error) { t.Fatalf("validate must not run"); return "", nil },
	}
	if _, err := newPipeline(t, f).Run(context.Background(), Request{DocumentID: doc, Mode: study.ModeDeepened, Chunks: testChunks(doc)}); err == nil {
		t.Fatalf("want error on unparseable draft")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	p := newPipeline(t, &fakeLLM{})
	if _, err := p.Run(context.Background(), Request{Mode: "fast"}); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("mode: want ErrInvalidMode got %v", err)
	}
	if _, err := p.Run(context.Background(), Request{Mode: study.ModeExam}); !errors.Is(err, ErrNoChunks) {
		t.Fatalf("chunks: want ErrNoChunks got %v", err)
	}
}
