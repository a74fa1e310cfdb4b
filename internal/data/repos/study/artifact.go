package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

// CacheKey identifies one generated artifact set.
type CacheKey struct {
	DocumentID uuid.UUID
	Mode       study.Mode
	SourceHash string
}

type ArtifactFilter struct {
	Mode       study.Mode
	Type       study.ArtifactType
	SourceHash string
}

type ArtifactRepo interface {
	CountByKey(dbc dbctx.Context, key CacheKey) (int64, error)
	CreateBatch(dbc dbctx.Context, rows []*types.Artifact) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID, f ArtifactFilter) ([]*types.Artifact, error)
	// FlashcardIDs returns every flashcard generated from sourceHash, across modes.
	FlashcardIDs(dbc dbctx.Context, documentID uuid.UUID, sourceHash string) ([]uuid.UUID, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Artifact, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) CountByKey(dbc dbctx.Context, key CacheKey) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.Artifact{}).
		Where("document_id = ? AND mode = ? AND source_hash = ?", key.DocumentID, key.Mode, key.SourceHash).
		Count(&n).Error
	return n, err
}

func (r *artifactRepo) CreateBatch(dbc dbctx.Context, rows []*types.Artifact) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(r.db).CreateInBatches(rows, 200).Error
}

func (r *artifactRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID, f ArtifactFilter) ([]*types.Artifact, error) {
	var out []*types.Artifact
	if documentID == uuid.Nil {
		return out, nil
	}
	q := dbc.Conn(r.db).Where("document_id = ?", documentID)
	if f.Mode != "" {
		q = q.Where("mode = ?", f.Mode)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.SourceHash != "" {
		q = q.Where("source_hash = ?", f.SourceHash)
	}
	if err := q.Order("created_at ASC, position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) FlashcardIDs(dbc dbctx.Context, documentID uuid.UUID, sourceHash string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if documentID == uuid.Nil || sourceHash == "" {
		return ids, nil
	}
	err := dbc.Conn(r.db).Model(&types.Artifact{}).
		Where("document_id = ? AND source_hash = ? AND type = ?", documentID, sourceHash, study.ArtifactFlashcard).
		Order("created_at ASC, position ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *artifactRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Artifact, error) {
	var out []*types.Artifact
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
