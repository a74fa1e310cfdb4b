package study

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.MustParse("6f1d7c4e-2a9b-5e3f-8c71-0d4b9a2e6f15")

// ChunkID is stable for a given document, source hash and position, so the
// same text always yields the same citation ids.
func ChunkID(documentID uuid.UUID, sourceHash string, order int) uuid.UUID {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%s:%d", documentID, sourceHash, order)))
}

type Chunk struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index:idx_chunk_doc_order,priority:1" json:"document_id"`
	SourceHash string    `gorm:"column:source_hash;not null;index" json:"source_hash"`
	OrderIndex int       `gorm:"column:order_index;not null;index:idx_chunk_doc_order,priority:2" json:"order"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`

	StartOffset int `gorm:"column:start_offset;not null" json:"start_offset"`
	EndOffset   int `gorm:"column:end_offset;not null" json:"end_offset"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Chunk) TableName() string { return "chunk" }
