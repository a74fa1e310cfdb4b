package domain

import "github.com/yungbote/studyforge-backend/internal/domain/study"

type (
	Document   = study.Document
	Chunk      = study.Chunk
	Artifact   = study.Artifact
	ReviewItem = study.ReviewItem
	DailyUsage = study.DailyUsage

	DocumentStatus   = study.DocumentStatus
	OCRConfidence    = study.OCRConfidence
	ExtractionMethod = study.ExtractionMethod
	ArtifactType     = study.ArtifactType
	Mode             = study.Mode
	Section          = study.Section
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&Document{},
		&Chunk{},
		&Artifact{},
		&ReviewItem{},
		&DailyUsage{},
	}
}
