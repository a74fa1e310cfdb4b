package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentUploading  DocumentStatus = "uploading"
	DocumentExtracting DocumentStatus = "extracting"
	DocumentGenerating DocumentStatus = "generating"
	DocumentReady      DocumentStatus = "ready"
	DocumentError      DocumentStatus = "error"
)

// Terminal states only leave through an explicit retry.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentReady || s == DocumentError
}

// CanTransition reports whether from -> to is a legal status move. retry
// allows a terminal document to re-enter the pipeline.
func CanTransition(from, to DocumentStatus, retry bool) bool {
	if from == to {
		return false
	}
	if from.Terminal() {
		return retry && (to == DocumentExtracting || to == DocumentGenerating)
	}
	if to == DocumentError {
		return true
	}
	switch from {
	case DocumentUploading:
		return to == DocumentExtracting
	case DocumentExtracting:
		return to == DocumentGenerating
	case DocumentGenerating:
		return to == DocumentReady
	}
	return false
}

type OCRConfidence string

const (
	ConfidenceHigh   OCRConfidence = "high"
	ConfidenceMedium OCRConfidence = "medium"
	ConfidenceLow    OCRConfidence = "low"
)

type ExtractionMethod string

const (
	ExtractionNative ExtractionMethod = "native"
	ExtractionOCR    ExtractionMethod = "ocr"
)

type Document struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	FolderID *uuid.UUID `gorm:"type:uuid;index" json:"folder_id,omitempty"`
	Title    string     `gorm:"column:title;not null" json:"title"`

	FileURL    string `gorm:"column:file_url" json:"file_url"`
	StorageKey string `gorm:"column:storage_key" json:"-"`
	FileName   string `gorm:"column:file_name" json:"file_name"`
	MimeType   string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64  `gorm:"column:size_bytes" json:"size_bytes"`

	ExtractedText    string           `gorm:"column:extracted_text;type:text" json:"-"`
	OCRConfidence    OCRConfidence    `gorm:"column:ocr_confidence" json:"ocr_confidence,omitempty"`
	ExtractionMethod ExtractionMethod `gorm:"column:extraction_method" json:"extraction_method,omitempty"`
	TextHash         string           `gorm:"column:text_hash;index" json:"text_hash,omitempty"`

	Status      DocumentStatus `gorm:"column:status;not null;index" json:"status"`
	StatusError string         `gorm:"column:status_error" json:"status_error,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DocumentUploading
	}
	return nil
}
