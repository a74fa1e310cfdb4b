package study

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type DocumentListFilter struct {
	FolderID *uuid.UUID
	Limit    int
}

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Document, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, f DocumentListFilter) ([]*types.Document, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// SetStatus moves the document only if its current status is one of from.
	// It reports whether a row changed.
	SetStatus(dbc dbctx.Context, id uuid.UUID, from []study.DocumentStatus, to study.DocumentStatus, statusErr string) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) error {
	return dbc.Conn(r.db).Create(doc).Error
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Document
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetForUser returns nil when the document does not exist or belongs to someone else.
func (r *documentRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Document, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var row types.Document
	if err := dbc.Conn(r.db).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *documentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, f DocumentListFilter) ([]*types.Document, error) {
	var out []*types.Document
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.Conn(r.db).Where("user_id = ?", userID)
	if f.FolderID != nil {
		q = q.Where("folder_id = ?", *f.FolderID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.Document{}).Where("id = ?", id).Updates(updates).Error
}

func (r *documentRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, from []study.DocumentStatus, to study.DocumentStatus, statusErr string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := dbc.Conn(r.db).Model(&types.Document{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(map[string]interface{}{
		"status":       to,
		"status_error": statusErr,
		"updated_at":   time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
