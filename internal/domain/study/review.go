package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyforge-backend/internal/modules/study/srs"
)

// ReviewItem is the scheduler state for one (user, flashcard) pair.
type ReviewItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_artifact,priority:1" json:"user_id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_artifact,priority:2" json:"artifact_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`

	NextReviewAt time.Time `gorm:"column:next_review_at;not null;index" json:"next_review_at"`
	EaseFactor   float64   `gorm:"column:ease_factor;not null" json:"ease_factor"`
	IntervalDays int       `gorm:"column:interval_days;not null" json:"interval_days"`
	Streak       int       `gorm:"column:streak;not null" json:"streak"`

	LastQuality    *int       `gorm:"column:last_quality" json:"last_quality,omitempty"`
	LastReviewedAt *time.Time `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReviewItem) TableName() string { return "review_item" }

func (r *ReviewItem) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.EaseFactor == 0 {
		r.EaseFactor = srs.DefaultEaseFactor
	}
	if r.IntervalDays < 1 {
		r.IntervalDays = 1
	}
	return nil
}

// DailyUsage meters conversions per user per UTC day.
type DailyUsage struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Day         string    `gorm:"column:day;primaryKey;size:10" json:"day"`
	Conversions int       `gorm:"column:conversions;not null" json:"conversions"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyUsage) TableName() string { return "daily_usage" }

func UsageDay(t time.Time) string { return t.UTC().Format("2006-01-02") }
