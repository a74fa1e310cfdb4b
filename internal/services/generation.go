package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyforge-backend/internal/data/repos"
	repostudy "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
	"github.com/yungbote/studyforge-backend/internal/modules/study/content"
	"github.com/yungbote/studyforge-backend/internal/modules/study/generation"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ratelimit"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

const ScopeGenerate = "generate"

type GenerateResult struct {
	Cached     bool       `json:"cached"`
	Count      int        `json:"count"`
	Mode       types.Mode `json:"mode"`
	SourceHash string     `json:"sourceHash"`
	DraftOnly  bool       `json:"draftOnly,omitempty"`
}

// Generator is the pipeline boundary the service drives.
type Generator interface {
	Run(ctx context.Context, req generation.Request) (*generation.Outcome, error)
}

type GenerationService interface {
	GenerateForDocument(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode) (*GenerateResult, error)
	// GenerateAfterIngest is the background variant; it skips the per-user
	// generate rate limit because the upload was already admitted.
	GenerateAfterIngest(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode) (*GenerateResult, error)
	// EnsureChunks returns the chunk set for the document's current text,
	// rebuilding it when the stored set belongs to another hash.
	EnsureChunks(ctx context.Context, doc *types.Document) ([]*types.Chunk, string, error)
	ListArtifacts(ctx context.Context, userID, documentID uuid.UUID, f repostudy.ArtifactFilter) ([]*types.Artifact, error)
	ListChunks(ctx context.Context, userID, documentID uuid.UUID) ([]*types.Chunk, error)
}

type GenerationConfig struct {
	Chunking     chunking.Params
	GenerateRule ratelimit.Rule
}

type generationService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Repos
	pipeline Generator
	limiter  *ratelimit.Limiter
	quota    QuotaService
	reviews  ReviewService
	notify   DocumentNotifier
	cfg      GenerationConfig
	now      func() time.Time
}

func NewGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	r repos.Repos,
	pipeline Generator,
	limiter *ratelimit.Limiter,
	quota QuotaService,
	reviews ReviewService,
	notify DocumentNotifier,
	cfg GenerationConfig,
) GenerationService {
	if cfg.Chunking == (chunking.Params{}) {
		cfg.Chunking = chunking.DefaultParams()
	}
	return &generationService{
		db:       db,
		log:      baseLog.With("service", "GenerationService"),
		repos:    r,
		pipeline: pipeline,
		limiter:  limiter,
		quota:    quota,
		reviews:  reviews,
		notify:   notify,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *generationService) GenerateForDocument(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode) (*GenerateResult, error) {
	return s.generate(ctx, userID, documentID, mode, true)
}

func (s *generationService) GenerateAfterIngest(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode) (*GenerateResult, error) {
	return s.generate(ctx, userID, documentID, mode, false)
}

func (s *generationService) generate(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode, limited bool) (*GenerateResult, error) {
	if _, ok := study.ParseMode(string(mode)); !ok {
		return nil, apierr.InvalidMode(string(mode))
	}
	if limited && s.limiter != nil {
		if d := s.limiter.Allow(ScopeGenerate, userID, s.cfg.GenerateRule); !d.Allowed {
			return nil, apierr.RateLimited(d.RetryAfter)
		}
	}
	ctx, span := otel.Tracer("studyforge/services").Start(ctx, "generation.generate_for_document")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID.String()), attribute.String("generation.mode", string(mode)))

	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.repos.Document.GetForUser(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.ErrDocumentNotFound
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return nil, apierr.ErrDocumentNotReady
	}

	chunks, hash, err := s.EnsureChunks(ctx, doc)
	if err != nil {
		return nil, err
	}

	key := repostudy.CacheKey{DocumentID: doc.ID, Mode: mode, SourceHash: hash}
	cached, err := s.repos.Artifact.CountByKey(dbc, key)
	if err != nil {
		return nil, fmt.Errorf("artifact cache lookup: %w", err)
	}
	if cached > 0 {
		span.SetAttributes(attribute.Bool("generation.cached", true))
		s.syncReviews(ctx, userID, doc.ID, hash)
		s.notify.ArtifactsGenerated(ctx, userID, doc.ID, mode, int(cached), true)
		return &GenerateResult{Cached: true, Count: int(cached), Mode: mode, SourceHash: hash}, nil
	}

	if err := s.quota.Check(ctx, userID); err != nil {
		return nil, err
	}

	out, err := s.pipeline.Run(ctx, generation.Request{DocumentID: doc.ID, Mode: mode, Chunks: chunks})
	if err != nil {
		return nil, err
	}
	rows, err := artifactRows(doc, mode, hash, out.Bundle, s.now())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.ErrArtifactsEmpty
	}
	if err := s.repos.Artifact.CreateBatch(dbc, rows); err != nil {
		return nil, fmt.Errorf("persist artifacts: %w", err)
	}
	if used, err := s.quota.Consume(ctx, userID); err != nil {
		s.log.Warn("usage increment failed", "user_id", userID, "error", err)
	} else {
		s.log.Info("artifacts generated",
			"document_id", doc.ID,
			"mode", mode,
			"count", len(rows),
			"validated", out.Validated,
			"conversions_today", used,
		)
	}
	s.syncReviews(ctx, userID, doc.ID, hash)
	s.notify.ArtifactsGenerated(ctx, userID, doc.ID, mode, len(rows), false)

	return &GenerateResult{Count: len(rows), Mode: mode, SourceHash: hash, DraftOnly: out.DraftOnly}, nil
}

// syncReviews is best effort; a failed sync is repaired by the next call.
func (s *generationService) syncReviews(ctx context.Context, userID, documentID uuid.UUID, hash string) {
	if _, err := s.reviews.SyncReviewItemsForDocument(ctx, userID, documentID, hash); err != nil {
		s.log.Warn("review sync failed", "document_id", documentID, "error", err)
	}
}

func (s *generationService) EnsureChunks(ctx context.Context, doc *types.Document) ([]*types.Chunk, string, error) {
	text := chunking.Normalize(doc.ExtractedText)
	hash := chunking.TextHash(text)
	dbc := dbctx.Context{Ctx: ctx}

	existing, err := s.repos.Chunk.ListByDocument(dbc, doc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list chunks: %w", err)
	}
	if len(existing) > 0 && existing[0].SourceHash == hash {
		return existing, hash, nil
	}

	parts, err := chunking.Split(text, s.cfg.Chunking)
	if err != nil {
		return nil, "", fmt.Errorf("chunk document: %w", err)
	}
	rows := make([]*types.Chunk, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, &types.Chunk{
			ID:          study.ChunkID(doc.ID, hash, p.Index),
			DocumentID:  doc.ID,
			SourceHash:  hash,
			OrderIndex:  p.Index,
			Text:        p.Text,
			StartOffset: p.Start,
			EndOffset:   p.End,
		})
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.repos.Chunk.Replace(txc, doc.ID, rows); err != nil {
			return err
		}
		if doc.TextHash != hash {
			return s.repos.Document.UpdateFields(txc, doc.ID, map[string]interface{}{"text_hash": hash})
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("replace chunks: %w", err)
	}
	doc.TextHash = hash
	return rows, hash, nil
}

func (s *generationService) ListArtifacts(ctx context.Context, userID, documentID uuid.UUID, f repostudy.ArtifactFilter) ([]*types.Artifact, error) {
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.repos.Document.GetForUser(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.ErrDocumentNotFound
	}
	if f.SourceHash == "" {
		f.SourceHash = doc.TextHash
	}
	return s.repos.Artifact.ListByDocument(dbc, doc.ID, f)
}

func (s *generationService) ListChunks(ctx context.Context, userID, documentID uuid.UUID) ([]*types.Chunk, error) {
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.repos.Document.GetForUser(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.ErrDocumentNotFound
	}
	return s.repos.Chunk.ListByDocument(dbc, doc.ID)
}

// artifactRows flattens a bundle into rows sharing one CreatedAt; Position
// keeps bundle order within the set.
func artifactRows(doc *types.Document, mode types.Mode, hash string, b content.Bundle, at time.Time) ([]*types.Artifact, error) {
	items := b.Items()
	rows := make([]*types.Artifact, 0, len(items))
	for i, it := range items {
		body, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", it.Type(), err)
		}
		g := it.Ground()
		ids := g.SourceChunkIDs
		if ids == nil {
			ids = []string{}
		}
		src, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &types.Artifact{
			DocumentID:         doc.ID,
			UserID:             doc.UserID,
			Type:               it.Type(),
			Mode:               mode,
			SourceHash:         hash,
			Content:            datatypes.JSON(body),
			SourceChunkIDs:     datatypes.JSON(src),
			Section:            g.Section,
			NotFoundInMaterial: g.NotFoundInMaterial,
			Position:           i,
			CreatedAt:          at,
		})
	}
	return rows, nil
}
