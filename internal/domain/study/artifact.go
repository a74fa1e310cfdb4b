package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ArtifactType string

const (
	ArtifactSummary    ArtifactType = "summary"
	ArtifactContentMap ArtifactType = "content_map"
	ArtifactFlashcard  ArtifactType = "flashcard"
	ArtifactQuestion   ArtifactType = "question"
)

type Mode string

const (
	ModeFaithful Mode = "faithful"
	ModeDeepened Mode = "deepened"
	ModeExam     Mode = "exam"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeFaithful, ModeDeepened, ModeExam:
		return Mode(s), true
	}
	return "", false
}

type Section string

const (
	SectionFiel        Section = "FIEL"
	SectionComplemento Section = "COMPLEMENTO"
)

// Artifact rows are append-only. A changed source hash produces a new set.
type Artifact struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID    `gorm:"type:uuid;not null;index:idx_artifact_cache,priority:1" json:"document_id"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Type       ArtifactType `gorm:"column:type;not null;index" json:"type"`
	Mode       Mode         `gorm:"column:mode;not null;index:idx_artifact_cache,priority:2" json:"mode"`
	SourceHash string       `gorm:"column:source_hash;not null;index:idx_artifact_cache,priority:3" json:"source_hash"`

	Content        datatypes.JSON `gorm:"column:content" json:"content"`
	SourceChunkIDs datatypes.JSON `gorm:"column:source_chunk_ids" json:"source_chunk_ids"`

	Section            Section `gorm:"column:section" json:"section,omitempty"`
	NotFoundInMaterial bool    `gorm:"column:not_found_in_material;not null" json:"not_found_in_material"`
	Position           int     `gorm:"column:position;not null" json:"position"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Artifact) TableName() string { return "artifact" }

func (a *Artifact) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
