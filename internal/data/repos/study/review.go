package study

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type DueFilter struct {
	DocumentID *uuid.UUID
	Now        time.Time
	Limit      int
}

type ReviewItemRepo interface {
	ListByUserDocument(dbc dbctx.Context, userID, documentID uuid.UUID) ([]*types.ReviewItem, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	// InsertIgnore inserts rows, skipping any (user_id, artifact_id) that already exists.
	InsertIgnore(dbc dbctx.Context, rows []*types.ReviewItem) (int64, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.ReviewItem, error)
	SaveSchedule(dbc dbctx.Context, item *types.ReviewItem) error
	Due(dbc dbctx.Context, userID uuid.UUID, f DueFilter) ([]*types.ReviewItem, error)
}

type reviewItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewItemRepo(db *gorm.DB, baseLog *logger.Logger) ReviewItemRepo {
	return &reviewItemRepo{db: db, log: baseLog.With("repo", "ReviewItemRepo")}
}

func (r *reviewItemRepo) ListByUserDocument(dbc dbctx.Context, userID, documentID uuid.UUID) ([]*types.ReviewItem, error) {
	var out []*types.ReviewItem
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewItemRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.Conn(r.db).Where("id IN ?", ids).Delete(&types.ReviewItem{})
	return res.RowsAffected, res.Error
}

func (r *reviewItemRepo) InsertIgnore(dbc dbctx.Context, rows []*types.ReviewItem) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "artifact_id"}},
			DoNothing: true,
		}).
		Create(rows)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return 0, nil
		}
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *reviewItemRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.ReviewItem, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var row types.ReviewItem
	if err := dbc.Conn(r.db).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *reviewItemRepo) SaveSchedule(dbc dbctx.Context, item *types.ReviewItem) error {
	if item == nil || item.ID == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.ReviewItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"next_review_at":   item.NextReviewAt,
			"ease_factor":      item.EaseFactor,
			"interval_days":    item.IntervalDays,
			"streak":           item.Streak,
			"last_quality":     item.LastQuality,
			"last_reviewed_at": item.LastReviewedAt,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *reviewItemRepo) Due(dbc dbctx.Context, userID uuid.UUID, f DueFilter) ([]*types.ReviewItem, error) {
	var out []*types.ReviewItem
	if userID == uuid.Nil {
		return out, nil
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	// Items whose flashcard row is gone never count against the limit.
	q := dbc.Conn(r.db).Model(&types.ReviewItem{}).
		Select("review_item.*").
		Joins("JOIN artifact ON artifact.id = review_item.artifact_id AND artifact.type = ?", study.ArtifactFlashcard).
		Where("review_item.user_id = ? AND review_item.next_review_at <= ?", userID, now)
	if f.DocumentID != nil {
		q = q.Where("review_item.document_id = ?", *f.DocumentID)
	}
	if err := q.Order("review_item.next_review_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
