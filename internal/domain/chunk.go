package domain

import (
	"fmt"
	"time"
)

// DocumentChunk represents one embedded window of a document's content.
// Chunks are written once per ingestion run and never mutated; re-ingestion
// replaces the whole set.
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	StartChar  int
	EndChar    int
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// VectorID returns the deterministic vector-store ID for this chunk
func (c *DocumentChunk) VectorID() string {
	return fmt.Sprintf("%s_%d", c.DocumentID, c.ChunkIndex)
}

// ValidateDocumentChunk validates a DocumentChunk instance
func ValidateDocumentChunk(c *DocumentChunk) error {
	if c == nil {
		return fmt.Errorf("document chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("document chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("document chunk DocumentID is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("document chunk ChunkIndex must not be negative")
	}

	if c.StartChar < 0 || c.EndChar < c.StartChar {
		return fmt.Errorf("document chunk offsets are invalid: [%d, %d)", c.StartChar, c.EndChar)
	}

	return nil
}
