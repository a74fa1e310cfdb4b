package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/pdftools"
)

var pdfBytes = []byte("%PDF-1.7 fake body")

type fakePDF struct {
	text     string
	pages    int
	err      error
	trimmed  int
	trimCall int
}

func (f *fakePDF) ExtractText([]byte) (pdftools.NativeText, error) {
	if f.err != nil {
		return pdftools.NativeText{}, f.err
	}
	return pdftools.NativeText{Text: f.text, Pages: f.pages, Via: "pdf"}, nil
}

func (f *fakePDF) PageCount([]byte) (int, error) { return f.pages, nil }

func (f *fakePDF) TrimPages(data []byte, maxPages int) ([]byte, error) {
	f.trimCall++
	f.trimmed = maxPages
	return append([]byte(nil), data...), nil
}

type ocrLLM struct {
	replies map[llm.MediaResolution]string
	calls   []llm.Request
}

func (f *ocrLLM) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls = append(f.calls, req)
	out, ok := f.replies[req.MediaResolution]
	if !ok {
		return nil, errors.New("no reply configured")
	}
	return llm.TextResponse("fake", out), nil
}

func newAcquirer(t *testing.T, inv llm.Invoker, pdf pdftools.Tools, cfg Config) *Acquirer {
	t.Helper()
	pack, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	return New(logger.Nop(), inv, pdf, pack, cfg)
}

func TestRejectsBeforeExtraction(t *testing.T) {
	inv := &ocrLLM{}
	pdf := &fakePDF{}
	cfg := DefaultConfig()
	cfg.MaxUploadBytes = 1 << 20
	a := newAcquirer(t, inv, pdf, cfg)

	big := make([]byte, (1<<20)+1)
	_, err := a.Acquire(context.Background(), Input{MimeType: MimePDF, Data: big})
	if got := apierr.CodeOf(err); got != "FILE_TOO_LARGE_MAX_1_MB" {
		t.Fatalf("oversized: want FILE_TOO_LARGE_MAX_1_MB got %q", got)
	}
	_, err = a.Acquire(context.Background(), Input{MimeType: "text/plain", Data: []byte("hi")})
	if got := apierr.CodeOf(err); got != "UNSUPPORTED_MIME_TYPE_text/plain" {
		t.Fatalf("mime: want UNSUPPORTED_MIME_TYPE_text/plain got %q", got)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("no model call expected, got %d", len(inv.calls))
	}
}

func TestNativeTextAccepted(t *testing.T) {
	pdf := &fakePDF{text: strings.Repeat("a", 2500), pages: 2}
	inv := &ocrLLM{}
	res, err := newAcquirer(t, inv, pdf, DefaultConfig()).Acquire(context.Background(), Input{MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Method != study.ExtractionNative || res.Confidence != study.ConfidenceHigh {
		t.Fatalf("want native/high got %s/%s", res.Method, res.Confidence)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("native path must not call the model")
	}
}

func TestSparseNativeFallsBackToOCRWithRetry(t *testing.T) {
	pdf := &fakePDF{text: strings.Repeat("a", 400), pages: 30}
	inv := &ocrLLM{replies: map[llm.MediaResolution]string{
		llm.MediaResolutionMedium: `{"text": "blurry", "confidence": "low"}`,
		llm.MediaResolutionHigh:   "```json\n{\"text\": \"" + strings.Repeat("b", 900) + "\", \"confidence\": \"medium\"}\n```",
	}}
	res, err := newAcquirer(t, inv, pdf, DefaultConfig()).Acquire(context.Background(), Input{MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if pdf.trimCall != 1 || pdf.trimmed != 20 {
		t.Fatalf("trim: want one call to 20 pages, got calls=%d pages=%d", pdf.trimCall, pdf.trimmed)
	}
	if len(inv.calls) != 2 || inv.calls[0].MediaResolution != llm.MediaResolutionMedium || inv.calls[1].MediaResolution != llm.MediaResolutionHigh {
		t.Fatalf("want medium then high OCR calls, got %d", len(inv.calls))
	}
	if res.Method != study.ExtractionOCR || res.Confidence != study.ConfidenceMedium || len(res.Text) != 900 {
		t.Fatalf("want the longer high-res result, got %s/%s len=%d", res.Method, res.Confidence, len(res.Text))
	}
	if res.Pages != 20 {
		t.Fatalf("pages: want=20 got=%d", res.Pages)
	}
}

func TestRetryKeepsLongerFirstResult(t *testing.T) {
	inv := &ocrLLM{replies: map[llm.MediaResolution]string{
		llm.MediaResolutionMedium: `{"text": "some words here", "confidence": "low"}`,
		llm.MediaResolutionHigh:   `{"text": "less", "confidence": "high"}`,
	}}
	res, err := newAcquirer(t, inv, &fakePDF{}, DefaultConfig()).Acquire(context.Background(), Input{MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Text != "some words here" || res.Confidence != study.ConfidenceLow {
		t.Fatalf("want first result kept, got %q/%s", res.Text, res.Confidence)
	}
}

func TestMalformedOCRJSONUsesRawText(t *testing.T) {
	raw := strings.Repeat("word ", 60)
	inv := &ocrLLM{replies: map[llm.MediaResolution]string{llm.MediaResolutionMedium: raw}}
	res, err := newAcquirer(t, inv, &fakePDF{}, DefaultConfig()).Acquire(context.Background(), Input{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Text != strings.TrimSpace(raw) {
		t.Fatalf("want raw reply as text")
	}
	if res.Confidence != study.ConfidenceMedium {
		t.Fatalf("inferred confidence: want=medium got=%s", res.Confidence)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("medium confidence must not retry, got %d calls", len(inv.calls))
	}
}

func TestEmptyOCRIsAnError(t *testing.T) {
	inv := &ocrLLM{replies: map[llm.MediaResolution]string{
		llm.MediaResolutionMedium: `{"text": "", "confidence": "low"}`,
		llm.MediaResolutionHigh:   `{"text": "  ", "confidence": "low"}`,
	}}
	pdf := &fakePDF{err: errors.New("no text layer"), pages: 1}
	_, err := newAcquirer(t, inv, pdf, DefaultConfig()).Acquire(context.Background(), Input{MimeType: MimePDF, Data: pdfBytes})
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("want ErrEmptyExtraction got %v", err)
	}
}

func TestInferConfidence(t *testing.T) {
	cases := []struct {
		chars, pages int
		want         study.OCRConfidence
	}{
		{700, 1, study.ConfidenceHigh},
		{2000, 10, study.ConfidenceHigh},
		{200, 1, study.ConfidenceMedium},
		{600, 10, study.ConfidenceMedium},
		{150, 1, study.ConfidenceLow},
		{0, 0, study.ConfidenceLow},
	}
	for _, tc := range cases {
		if got := InferConfidence(tc.chars, tc.pages); got != tc.want {
			t.Fatalf("InferConfidence(%d,%d): want=%s got=%s", tc.chars, tc.pages, tc.want, got)
		}
	}
}

func TestCanonicalMime(t *testing.T) {
	if got := CanonicalMime("", pdfBytes); got != MimePDF {
		t.Fatalf("sniff: want=%s got=%s", MimePDF, got)
	}
	if got := CanonicalMime("Image/JPG; q=1", nil); got != "image/jpeg" {
		t.Fatalf("jpg alias: got %s", got)
	}
}
