// Package generation runs the two-pass draft/validate pipeline that turns a
// document's chunks into a grounded artifact bundle.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/content"
	"github.com/yungbote/studyforge-backend/internal/modules/study/grounding"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

var (
	ErrNoChunks    = errors.New("generation: document has no chunks")
	ErrInvalidMode = errors.New("generation: invalid mode")
)

type Request struct {
	DocumentID uuid.UUID
	Mode       study.Mode
	Chunks     []*study.Chunk
}

// Outcome carries the grounded bundle. DraftOnly is set when validation
// failed and the draft was used instead.
type Outcome struct {
	Bundle    content.Bundle
	Validated bool
	DraftOnly bool
}

type Pipeline struct {
	log    *logger.Logger
	llm    llm.Invoker
	pack   *prompts.Pack
	tracer trace.Tracer
}

func New(log *logger.Logger, inv llm.Invoker, pack *prompts.Pack) *Pipeline {
	return &Pipeline{
		log:    log.With("component", "GenerationPipeline"),
		llm:    inv,
		pack:   pack,
		tracer: otel.Tracer("studyforge/generation"),
	}
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	if _, ok := study.ParseMode(string(req.Mode)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if len(req.Chunks) == 0 {
		return nil, ErrNoChunks
	}
	ctx, span := p.tracer.Start(ctx, "generation.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", req.DocumentID.String()),
		attribute.String("generation.mode", string(req.Mode)),
		attribute.Int("generation.chunks", len(req.Chunks)),
	)

	material, ids := renderMaterial(req.Chunks)

	draftRaw, draft, err := p.draft(ctx, req.Mode, material)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &Outcome{}
	validated, verr := p.validate(ctx, req.Mode, material, draftRaw)
	if verr == nil && validated.Len() == 0 && draft.Len() > 0 {
		verr = errors.New("validated bundle has no items")
	}
	if verr != nil {
		p.log.Warn("validation failed; using draft",
			"document_id", req.DocumentID,
			"mode", req.Mode,
			"error", verr,
		)
		out.Bundle = draft
		out.DraftOnly = true
	} else {
		out.Bundle = validated
		out.Validated = true
	}
	out.Bundle = grounding.Normalize(out.Bundle, ids, req.Mode)

	span.SetAttributes(
		attribute.Bool("generation.validated", out.Validated),
		attribute.Int("generation.items", out.Bundle.Len()),
	)
	return out, nil
}

func (p *Pipeline) draft(ctx context.Context, mode study.Mode, material string) (string, content.Bundle, error) {
	ctx, span := p.tracer.Start(ctx, "generation.draft")
	defer span.End()

	resp, err := p.llm.Invoke(ctx, llm.Request{
		Profile:        llm.ProfileFast,
		Mode:           string(mode),
		ResponseFormat: llm.ResponseFormatJSON,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: p.pack.DraftSystemPrompt(mode)},
			{Role: llm.RoleUser, Text: "MATERIAL:\n\n" + material},
		},
	})
	if err != nil {
		return "", content.Bundle{}, fmt.Errorf("generation: draft call: %w", err)
	}
	b, raw, err := parseBundle(resp.Content())
	if err != nil {
		return "", content.Bundle{}, fmt.Errorf("generation: draft output: %w", err)
	}
	return raw, b, nil
}

func (p *Pipeline) validate(ctx context.Context, mode study.Mode, material, draft string) (b content.Bundle, err error) {
	ctx, span := p.tracer.Start(ctx, "generation.validate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	// A panicking provider counts as a validation failure.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation: validate panic: %v", r)
		}
	}()

	resp, err := p.llm.Invoke(ctx, llm.Request{
		Profile:        llm.ProfileStrict,
		Mode:           string(mode),
		ResponseFormat: llm.ResponseFormatJSON,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: p.pack.ValidateSystemPrompt(mode)},
			{Role: llm.RoleUser, Text: "MATERIAL:\n\n" + material + "\n\nDRAFT:\n" + draft},
		},
	})
	if err != nil {
		return content.Bundle{}, fmt.Errorf("generation: validate call: %w", err)
	}
	b, _, err = parseBundle(resp.Content())
	if err != nil {
		return content.Bundle{}, fmt.Errorf("generation: validate output: %w", err)
	}
	return b, nil
}

// parseBundle returns the decoded bundle and the compact JSON it came from.
func parseBundle(s string) (content.Bundle, string, error) {
	var raw json.RawMessage
	if err := llm.DecodeJSON(s, &raw); err != nil {
		return content.Bundle{}, "", err
	}
	b, err := content.DecodeBundle(raw)
	if err != nil {
		return content.Bundle{}, "", err
	}
	return b, string(raw), nil
}

func renderMaterial(chunks []*study.Chunk) (string, []string) {
	var sb strings.Builder
	ids := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if c == nil {
			continue
		}
		id := c.ID.String()
		ids = append(ids, id)
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(prompts.LabelChunk(id, c.Text))
	}
	return sb.String(), ids
}
