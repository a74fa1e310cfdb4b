package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studyforge-backend/internal/data/repos/study"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type DocumentRepo = study.DocumentRepo
type ChunkRepo = study.ChunkRepo
type ArtifactRepo = study.ArtifactRepo
type ReviewItemRepo = study.ReviewItemRepo
type DailyUsageRepo = study.DailyUsageRepo

type Repos struct {
	Document   DocumentRepo
	Chunk      ChunkRepo
	Artifact   ArtifactRepo
	ReviewItem ReviewItemRepo
	DailyUsage DailyUsageRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Document:   study.NewDocumentRepo(db, log),
		Chunk:      study.NewChunkRepo(db, log),
		Artifact:   study.NewArtifactRepo(db, log),
		ReviewItem: study.NewReviewItemRepo(db, log),
		DailyUsage: study.NewDailyUsageRepo(db, log),
	}
}
