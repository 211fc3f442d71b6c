package domain

import (
	"fmt"
	"time"
)

// SourceType represents how a document entered the system
type SourceType string

const (
	SourceTypeUpload SourceType = "upload"
	SourceTypeURL    SourceType = "url"
	SourceTypeText   SourceType = "text"
)

// EmbeddingStatus represents the ingestion state of a document
type EmbeddingStatus string

const (
	EmbeddingStatusPending    EmbeddingStatus = "pending"
	EmbeddingStatusProcessing EmbeddingStatus = "processing"
	EmbeddingStatusCompleted  EmbeddingStatus = "completed"
	EmbeddingStatusFailed     EmbeddingStatus = "failed"
)

// Document represents a piece of ingestable content in a knowledge base
type Document struct {
	ID              string
	KnowledgeBaseID string
	Title           string
	Content         string
	SourceType      SourceType
	SourceURL       string
	FileKey         string
	Metadata        map[string]any
	EmbeddingStatus EmbeddingStatus
	Error           string
	IsEmbedded      bool
	ChunkCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDocument creates a new Document in the pending state
func NewDocument(id, knowledgeBaseID, title, content string, sourceType SourceType, createdAt time.Time) *Document {
	return &Document{
		ID:              id,
		KnowledgeBaseID: knowledgeBaseID,
		Title:           title,
		Content:         content,
		SourceType:      sourceType,
		Metadata:        map[string]any{},
		EmbeddingStatus: EmbeddingStatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.KnowledgeBaseID == "" {
		return fmt.Errorf("document KnowledgeBaseID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if !isValidSourceType(d.SourceType) {
		return fmt.Errorf("%w: %s", ErrInvalidSourceType, d.SourceType)
	}

	if !isValidEmbeddingStatus(d.EmbeddingStatus) {
		return fmt.Errorf("document EmbeddingStatus is invalid: %s", d.EmbeddingStatus)
	}

	switch d.SourceType {
	case SourceTypeURL:
		if d.SourceURL == "" {
			return fmt.Errorf("document SourceURL is required for url documents")
		}
	case SourceTypeUpload:
		if d.Content == "" && d.FileKey == "" {
			return fmt.Errorf("document FileKey is required for upload documents without inline content")
		}
	case SourceTypeText:
		if d.Content == "" {
			return fmt.Errorf("document Content is required for text documents")
		}
	}

	return nil
}

// CanTransitionEmbeddingStatus reports whether a document may move between the
// two ingestion states. The status only ever moves forward:
// pending -> processing -> completed | failed.
func CanTransitionEmbeddingStatus(from, to EmbeddingStatus) bool {
	switch from {
	case EmbeddingStatusPending:
		return to == EmbeddingStatusProcessing
	case EmbeddingStatusProcessing:
		return to == EmbeddingStatusCompleted || to == EmbeddingStatusFailed
	case EmbeddingStatusCompleted, EmbeddingStatusFailed:
		// Re-ingestion starts a new run from pending, handled separately.
		return to == EmbeddingStatusProcessing
	}
	return false
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypeUpload, SourceTypeURL, SourceTypeText:
		return true
	}
	return false
}

// isValidEmbeddingStatus checks if an EmbeddingStatus is valid
func isValidEmbeddingStatus(s EmbeddingStatus) bool {
	switch s {
	case EmbeddingStatusPending, EmbeddingStatusProcessing, EmbeddingStatusCompleted, EmbeddingStatusFailed:
		return true
	}
	return false
}
