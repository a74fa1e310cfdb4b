package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type ChunkRepo interface {
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error)
	// Replace deletes every chunk of the document and inserts chunks. Run it in a transaction.
	Replace(dbc dbctx.Context, documentID uuid.UUID, chunks []*types.Chunk) error
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("document_id = ?", documentID).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) Replace(dbc dbctx.Context, documentID uuid.UUID, chunks []*types.Chunk) error {
	if documentID == uuid.Nil {
		return nil
	}
	conn := dbc.Conn(r.db)
	if err := conn.Where("document_id = ?", documentID).Delete(&types.Chunk{}).Error; err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	// Text is large; keep batches small.
	const batchSize = 100
	return conn.CreateInBatches(chunks, batchSize).Error
}
