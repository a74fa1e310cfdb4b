// Package ingestion turns an uploaded file into normalized text, choosing
// between the PDF text layer and an OCR model call.
package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/pdftools"
)

var ErrEmptyExtraction = errors.New("ingestion: no text could be extracted")

const MimePDF = "application/pdf"

var allowedMime = map[string]bool{
	MimePDF:      true,
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
	"image/gif":  true,
}

type Config struct {
	MaxUploadBytes        int64
	NativeMinChars        int
	NativeMinCharsPerPage int
	OCRMaxPages           int
}

func DefaultConfig() Config {
	return Config{
		MaxUploadBytes:        20 << 20,
		NativeMinChars:        300,
		NativeMinCharsPerPage: 80,
		OCRMaxPages:           20,
	}
}

func ConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		MaxUploadBytes:        envutil.Int64("UPLOAD_MAX_BYTES", d.MaxUploadBytes),
		NativeMinChars:        envutil.Int("NATIVE_MIN_CHARS", d.NativeMinChars),
		NativeMinCharsPerPage: envutil.Int("NATIVE_MIN_CHARS_PER_PAGE", d.NativeMinCharsPerPage),
		OCRMaxPages:           envutil.Int("OCR_MAX_PAGES", d.OCRMaxPages),
	}
}

type Input struct {
	FileName string
	MimeType string
	Data     []byte
	// Base64 is optional; it is computed from Data when empty.
	Base64 string
}

type Result struct {
	Text        string
	Confidence  study.OCRConfidence
	Method      study.ExtractionMethod
	Pages       int
	Warnings    []string
	Diagnostics map[string]any
}

type Acquirer struct {
	log    *logger.Logger
	llm    llm.Invoker
	pdf    pdftools.Tools
	pack   *prompts.Pack
	cfg    Config
	tracer trace.Tracer
}

func New(log *logger.Logger, inv llm.Invoker, pdf pdftools.Tools, pack *prompts.Pack, cfg Config) *Acquirer {
	if pdf == nil {
		pdf = pdftools.Default{}
	}
	def := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.OCRMaxPages <= 0 {
		cfg.OCRMaxPages = def.OCRMaxPages
	}
	return &Acquirer{
		log:    log.With("component", "TextAcquisition"),
		llm:    inv,
		pdf:    pdf,
		pack:   pack,
		cfg:    cfg,
		tracer: otel.Tracer("studyforge/ingestion"),
	}
}

func (a *Acquirer) Config() Config { return a.cfg }

// CheckUpload applies the size limit and MIME allow-list. It returns the
// canonical MIME type.
func (a *Acquirer) CheckUpload(size int64, mimeType string, head []byte) (string, error) {
	if size > a.cfg.MaxUploadBytes {
		return "", apierr.FileTooLarge(a.cfg.MaxUploadBytes)
	}
	mt := CanonicalMime(mimeType, head)
	if !allowedMime[mt] {
		return "", apierr.UnsupportedMimeType(mt)
	}
	return mt, nil
}

// CanonicalMime lowercases, drops parameters and sniffs PDFs sent without a type.
func CanonicalMime(mimeType string, head []byte) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	if (mt == "" || mt == "application/octet-stream") && pdftools.IsPDF(head) {
		mt = MimePDF
	}
	return mt
}

func (a *Acquirer) Acquire(ctx context.Context, in Input) (Result, error) {
	mt, err := a.CheckUpload(int64(len(in.Data)), in.MimeType, in.Data)
	if err != nil {
		return Result{}, err
	}
	ctx, span := a.tracer.Start(ctx, "ingestion.acquire")
	defer span.End()
	span.SetAttributes(attribute.String("file.mime", mt), attribute.Int("file.bytes", len(in.Data)))

	res := Result{Diagnostics: map[string]any{"mime": mt}}
	if mt == MimePDF {
		if ok := a.tryNative(in.Data, &res); ok {
			span.SetAttributes(attribute.String("ingestion.method", string(res.Method)))
			return res, nil
		}
	}

	if err := a.ocr(ctx, mt, in, &res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	if strings.TrimSpace(res.Text) == "" {
		span.SetStatus(codes.Error, ErrEmptyExtraction.Error())
		return res, ErrEmptyExtraction
	}
	span.SetAttributes(
		attribute.String("ingestion.method", string(res.Method)),
		attribute.String("ingestion.confidence", string(res.Confidence)),
	)
	return res, nil
}

func (a *Acquirer) tryNative(data []byte, res *Result) bool {
	nt, err := a.pdf.ExtractText(data)
	if err != nil {
		res.Warnings = append(res.Warnings, "native extraction failed: "+err.Error())
		res.Diagnostics["native_error"] = err.Error()
		return false
	}
	text := chunking.Normalize(nt.Text)
	chars := utf8.RuneCountInString(text)
	pages := nt.Pages
	if pages < 1 {
		pages = 1
	}
	perPage := chars / pages
	res.Diagnostics["native_chars"] = chars
	res.Diagnostics["native_pages"] = pages
	res.Diagnostics["native_via"] = nt.Via

	if chars < a.cfg.NativeMinChars || perPage < a.cfg.NativeMinCharsPerPage {
		a.log.Debug("native text insufficient; falling back to OCR", "chars", chars, "pages", pages)
		return false
	}
	res.Text = text
	res.Pages = pages
	res.Method = study.ExtractionNative
	res.Confidence = InferConfidence(chars, pages)
	return true
}

type ocrPayload struct {
	Text       string `json:"text"`
	Confidence string `json:"confidence"`
}

type ocrAttempt struct {
	text       string
	confidence study.OCRConfidence
}

func (a *Acquirer) ocr(ctx context.Context, mt string, in Input, res *Result) error {
	data, b64 := in.Data, in.Base64
	pages := 1
	if mt == MimePDF {
		if n, err := a.pdf.PageCount(data); err == nil && n > 0 {
			pages = n
		}
		if pages > a.cfg.OCRMaxPages {
			trimmed, err := a.pdf.TrimPages(data, a.cfg.OCRMaxPages)
			if err != nil {
				res.Warnings = append(res.Warnings, "page trim failed: "+err.Error())
			} else {
				data, b64 = trimmed, ""
				res.Diagnostics["ocr_trimmed_from"] = pages
				pages = a.cfg.OCRMaxPages
			}
		}
	}
	if b64 == "" {
		b64 = base64.StdEncoding.EncodeToString(data)
	}
	att := llm.Attachment{MimeType: mt, Base64: b64, Name: in.FileName}

	first, err := a.ocrCall(ctx, att, llm.MediaResolutionMedium, pages)
	if err != nil {
		return fmt.Errorf("ingestion: ocr: %w", err)
	}
	best := first
	res.Diagnostics["ocr_first_confidence"] = string(first.confidence)

	if first.confidence == study.ConfidenceLow {
		retry, err := a.ocrCall(ctx, att, llm.MediaResolutionHigh, pages)
		if err != nil {
			res.Warnings = append(res.Warnings, "high resolution retry failed: "+err.Error())
			a.log.Warn("ocr retry failed", "file_name", in.FileName, "error", err)
		} else if utf8.RuneCountInString(retry.text) > utf8.RuneCountInString(first.text) {
			best = retry
		}
		res.Diagnostics["ocr_retried"] = true
	}

	res.Text = best.text
	res.Confidence = best.confidence
	res.Method = study.ExtractionOCR
	res.Pages = pages
	return nil
}

func (a *Acquirer) ocrCall(ctx context.Context, att llm.Attachment, resolution llm.MediaResolution, pages int) (ocrAttempt, error) {
	resp, err := a.llm.Invoke(ctx, llm.Request{
		Profile:         llm.ProfileFast,
		Mode:            "ocr",
		ResponseFormat:  llm.ResponseFormatJSON,
		MediaResolution: resolution,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: a.pack.OCRSystem},
			{Role: llm.RoleUser, Text: a.pack.OCRUser, Attachments: []llm.Attachment{att}},
		},
	})
	if err != nil {
		return ocrAttempt{}, err
	}
	raw := resp.Content()

	var p ocrPayload
	if err := llm.DecodeJSON(raw, &p); err != nil {
		// Treat the reply as the transcription itself.
		text := chunking.Normalize(raw)
		return ocrAttempt{text: text, confidence: InferConfidence(utf8.RuneCountInString(text), pages)}, nil
	}
	text := chunking.Normalize(p.Text)
	conf := study.OCRConfidence(strings.ToLower(strings.TrimSpace(p.Confidence)))
	switch conf {
	case study.ConfidenceHigh, study.ConfidenceMedium, study.ConfidenceLow:
	default:
		conf = InferConfidence(utf8.RuneCountInString(text), pages)
	}
	return ocrAttempt{text: text, confidence: conf}, nil
}

// InferConfidence grades text by density: high at >=700 chars/page or
// >=2000 total, medium at >=200/page or >=600 total, low otherwise.
func InferConfidence(chars, pages int) study.OCRConfidence {
	if pages < 1 {
		pages = 1
	}
	perPage := chars / pages
	switch {
	case perPage >= 700 || chars >= 2000:
		return study.ConfidenceHigh
	case perPage >= 200 || chars >= 600:
		return study.ConfidenceMedium
	default:
		return study.ConfidenceLow
	}
}
