package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyforge-backend/internal/data/repos"
	repostudy "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/content"
	"github.com/yungbote/studyforge-backend/internal/modules/study/srs"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type SyncResult struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// QueueItem is the review row the client renders.
type QueueItem struct {
	ID           uuid.UUID `json:"id"`
	ArtifactID   uuid.UUID `json:"artifactId"`
	DocumentID   uuid.UUID `json:"documentId"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	Interval     int       `json:"interval"`
	Streak       int       `json:"streak"`
	EaseFactor   float64   `json:"easeFactor"`
	NextReviewAt time.Time `json:"nextReviewAt"`

	// Preview is the next interval in days for each quality 0..5.
	Preview [srs.MaxQuality + 1]int `json:"preview"`
}

type ReviewService interface {
	// SyncReviewItemsForDocument drops items whose flashcard is not part of
	// sourceHash and inserts the missing ones due now.
	SyncReviewItemsForDocument(ctx context.Context, userID, documentID uuid.UUID, sourceHash string) (SyncResult, error)
	Answer(ctx context.Context, userID, itemID uuid.UUID, quality int) (*types.ReviewItem, error)
	DueQueue(ctx context.Context, userID uuid.UUID, documentID *uuid.UUID, limit int) ([]QueueItem, error)
}

type reviewService struct {
	log       *logger.Logger
	artifacts repos.ArtifactRepo
	items     repos.ReviewItemRepo
	now       func() time.Time
}

func NewReviewService(baseLog *logger.Logger, artifacts repos.ArtifactRepo, items repos.ReviewItemRepo) ReviewService {
	return &reviewService{
		log:       baseLog.With("service", "ReviewService"),
		artifacts: artifacts,
		items:     items,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) SyncReviewItemsForDocument(ctx context.Context, userID, documentID uuid.UUID, sourceHash string) (SyncResult, error) {
	var res SyncResult
	dbc := dbctx.Context{Ctx: ctx}

	current, err := s.artifacts.FlashcardIDs(dbc, documentID, sourceHash)
	if err != nil {
		return res, fmt.Errorf("list flashcards: %w", err)
	}
	valid := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		valid[id] = true
	}

	existing, err := s.items.ListByUserDocument(dbc, userID, documentID)
	if err != nil {
		return res, fmt.Errorf("list review items: %w", err)
	}
	have := make(map[uuid.UUID]bool, len(existing))
	var orphaned []uuid.UUID
	for _, it := range existing {
		if valid[it.ArtifactID] {
			have[it.ArtifactID] = true
			continue
		}
		orphaned = append(orphaned, it.ID)
	}
	if res.Deleted, err = s.items.DeleteByIDs(dbc, orphaned); err != nil {
		return res, fmt.Errorf("delete orphaned review items: %w", err)
	}

	now := s.now()
	var missing []*types.ReviewItem
	for _, id := range current {
		if have[id] {
			continue
		}
		have[id] = true
		missing = append(missing, &types.ReviewItem{
			UserID:       userID,
			ArtifactID:   id,
			DocumentID:   documentID,
			NextReviewAt: now,
			EaseFactor:   srs.DefaultEaseFactor,
			IntervalDays: 1,
		})
	}
	if res.Inserted, err = s.items.InsertIgnore(dbc, missing); err != nil {
		return res, fmt.Errorf("insert review items: %w", err)
	}
	if res.Deleted > 0 || res.Inserted > 0 {
		s.log.Debug("review items synced", "document_id", documentID, "deleted", res.Deleted, "inserted", res.Inserted)
	}
	return res, nil
}

func (s *reviewService) Answer(ctx context.Context, userID, itemID uuid.UUID, quality int) (*types.ReviewItem, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := s.items.GetForUser(dbc, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.ErrReviewNotFound
	}

	now := s.now()
	next, due, err := srs.Next(srs.State{
		EaseFactor:   item.EaseFactor,
		IntervalDays: item.IntervalDays,
		Streak:       item.Streak,
	}, quality, now)
	if errors.Is(err, srs.ErrInvalidQuality) {
		return nil, apierr.InvalidQuality(quality)
	}
	if err != nil {
		return nil, err
	}

	item.EaseFactor = next.EaseFactor
	item.IntervalDays = next.IntervalDays
	item.Streak = next.Streak
	item.NextReviewAt = due
	q := quality
	item.LastQuality = &q
	item.LastReviewedAt = &now
	if err := s.items.SaveSchedule(dbc, item); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	return item, nil
}

func (s *reviewService) DueQueue(ctx context.Context, userID uuid.UUID, documentID *uuid.UUID, limit int) ([]QueueItem, error) {
	dbc := dbctx.Context{Ctx: ctx}
	due, err := s.items.Due(dbc, userID, repostudy.DueFilter{DocumentID: documentID, Now: s.now(), Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]QueueItem, 0, len(due))
	if len(due) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, it := range due {
		ids = append(ids, it.ArtifactID)
	}
	arts, err := s.artifacts.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	cards := make(map[uuid.UUID]*content.Flashcard, len(arts))
	for _, a := range arts {
		if a.Type != study.ArtifactFlashcard {
			continue
		}
		c, err := content.Decode(a.Type, a.Content)
		if err != nil {
			s.log.Warn("undecodable flashcard", "artifact_id", a.ID, "error", err)
			continue
		}
		cards[a.ID] = c.(*content.Flashcard)
	}
	for _, it := range due {
		fc, ok := cards[it.ArtifactID]
		if !ok {
			continue
		}
		out = append(out, QueueItem{
			ID:           it.ID,
			ArtifactID:   it.ArtifactID,
			DocumentID:   it.DocumentID,
			Front:        fc.Front,
			Back:         fc.Back,
			Interval:     it.IntervalDays,
			Streak:       it.Streak,
			EaseFactor:   it.EaseFactor,
			NextReviewAt: it.NextReviewAt,
			Preview:      srs.Preview(srs.State{EaseFactor: it.EaseFactor, IntervalDays: it.IntervalDays, Streak: it.Streak}),
		})
	}
	return out, nil
}
