package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// claimBatchSize bounds how many documents one poll picks up.
const claimBatchSize = 10

// PendingDocumentRepository claims queued documents for ingestion
type PendingDocumentRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error)
}

// DocumentIngester runs the ingestion pipeline for one document
type DocumentIngester interface {
	Ingest(ctx context.Context, documentID string) error
}

// IngestWorker drains the pending document queue through the ingestion
// pipeline. Claiming moves documents to processing, so concurrent workers
// never pick up the same document twice.
type IngestWorker struct {
	repo    PendingDocumentRepository
	service DocumentIngester
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo PendingDocumentRepository, service DocumentIngester) *IngestWorker {
	return &IngestWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	docs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	log.Printf("Ingesting %d pending documents", len(docs))

	for _, doc := range docs {
		if err := w.service.Ingest(ctx, doc.ID); err != nil {
			// Ingest records the failure on the document; keep draining.
			log.Printf("Error ingesting document %s: %v", doc.ID, err)
		}
	}

	return nil
}
