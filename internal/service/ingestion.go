package service

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/telemetry"
	"github.com/vortex-hue/forgeai/internal/vectorstore"
)

// EmbeddingClient defines the gateway interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IngestionDocumentRepository defines the document persistence interface for ingestion
type IngestionDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	SetProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

// IngestionChunkRepository defines the chunk persistence interface for ingestion
type IngestionChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
}

// IngestionKnowledgeBaseRepository resolves the knowledge base a document belongs to
type IngestionKnowledgeBaseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
}

// VectorStoreFactory opens a connected vector store for a knowledge base
type VectorStoreFactory interface {
	Open(ctx context.Context, backend domain.VectorBackend, collection string) (vectorstore.Store, error)
}

// ObjectStorage fetches document bodies for upload-sourced documents
type ObjectStorage interface {
	GetObjectText(ctx context.Context, key string) (string, error)
}

// IngestionService drives the document ingestion pipeline: chunk, embed,
// persist chunk rows and upsert vectors, with status tracking on the
// document.
type IngestionService struct {
	docs     IngestionDocumentRepository
	chunks   IngestionChunkRepository
	kbs      IngestionKnowledgeBaseRepository
	client   EmbeddingClient
	stores   VectorStoreFactory
	storage  ObjectStorage
	tx       TxRunner
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	docs IngestionDocumentRepository,
	chunks IngestionChunkRepository,
	kbs IngestionKnowledgeBaseRepository,
	client EmbeddingClient,
	stores VectorStoreFactory,
	chunkCfg ChunkConfig,
) *IngestionService {
	return &IngestionService{
		docs:     docs,
		chunks:   chunks,
		kbs:      kbs,
		client:   client,
		stores:   stores,
		chunkCfg: chunkCfg,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// WithObjectStorage enables fetching upload-sourced document bodies by file key
func (s *IngestionService) WithObjectStorage(storage ObjectStorage) *IngestionService {
	s.storage = storage
	return s
}

// WithTxRunner makes the chunk replacement and completion update atomic
func (s *IngestionService) WithTxRunner(tx TxRunner) *IngestionService {
	s.tx = tx
	return s
}

// WithUUIDGenerator overrides ID generation (for testing)
func (s *IngestionService) WithUUIDGenerator(gen UUIDGenerator) *IngestionService {
	s.uuidGen = gen
	return s
}

// Ingest runs the full pipeline for one document. Existing chunk rows and
// vector entries from a previous run are cleared and regenerated. Gateway
// errors abort the run and mark the document failed; retry is the caller's
// responsibility.
func (s *IngestionService) Ingest(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.ingest", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return err
	}

	if err := s.docs.SetProcessing(ctx, doc.ID); err != nil {
		span.SetError(err)
		return err
	}

	if err := s.ingest(ctx, doc); err != nil {
		span.SetError(err)
		if markErr := s.docs.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to record ingestion failure: %v (original: %w)", markErr, err)
		}
		return err
	}

	span.SetStatus(sentry.SpanStatusOK)
	return nil
}

func (s *IngestionService) ingest(ctx context.Context, doc *domain.Document) error {
	kb, err := s.kbs.GetByID(ctx, doc.KnowledgeBaseID)
	if err != nil {
		return err
	}

	content := doc.Content
	if content == "" && doc.SourceType == domain.SourceTypeUpload && doc.FileKey != "" {
		if s.storage == nil {
			return fmt.Errorf("document %s has no inline content and object storage is not configured", doc.ID)
		}
		content, err = s.storage.GetObjectText(ctx, doc.FileKey)
		if err != nil {
			return fmt.Errorf("failed to fetch document body: %w", err)
		}
	}

	chunks, err := ChunkText(content, s.chunkCfg)
	if err != nil {
		return err
	}

	// Embeddings are requested one chunk at a time, in index order.
	createdAt := time.Now().UTC()
	rows := make([]domain.DocumentChunk, 0, len(chunks))
	entries := make([]vectorstore.Entry, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.client.Embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.Index, err)
		}

		metadata := map[string]any{
			"document_id":    doc.ID,
			"document_title": doc.Title,
			"chunk_index":    chunk.Index,
		}
		for k, v := range doc.Metadata {
			if _, reserved := metadata[k]; !reserved {
				metadata[k] = v
			}
		}

		row := domain.DocumentChunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
			StartChar:  chunk.StartChar,
			EndChar:    chunk.EndChar,
			Embedding:  embedding,
			Metadata:   metadata,
			CreatedAt:  createdAt,
		}
		if err := domain.ValidateDocumentChunk(&row); err != nil {
			return err
		}
		rows = append(rows, row)

		entries = append(entries, vectorstore.Entry{
			ID:        row.VectorID(),
			Content:   chunk.Content,
			Metadata:  metadata,
			Embedding: embedding,
		})
	}

	store, err := s.stores.Open(ctx, kb.VectorBackend, kb.Collection)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer store.Close(ctx)

	// Clear vector entries from the previous run first so a shrinking
	// document leaves no stale trailing chunks behind. ChunkCount reflects
	// the last completed run only; a run that upserts vectors and then fails
	// before completion can leave trailing entries beyond this count until
	// the next successful re-ingest rebuilds the index.
	if doc.ChunkCount > 0 {
		staleIDs := make([]string, 0, doc.ChunkCount)
		for i := 0; i < doc.ChunkCount; i++ {
			staleIDs = append(staleIDs, fmt.Sprintf("%s_%d", doc.ID, i))
		}
		if err := store.Delete(ctx, staleIDs); err != nil {
			return fmt.Errorf("failed to clear previous vector entries: %w", err)
		}
	}

	// The full batch is upserted only once every chunk has been computed.
	if len(entries) > 0 {
		if err := store.AddEmbeddings(ctx, entries); err != nil {
			return fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	if s.tx != nil {
		return s.tx.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Chunks().ReplaceChunks(ctx, doc.ID, rows); err != nil {
				return fmt.Errorf("failed to replace chunks: %w", err)
			}
			return repos.Documents().MarkCompleted(ctx, doc.ID, len(rows))
		})
	}

	if err := s.chunks.ReplaceChunks(ctx, doc.ID, rows); err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}
	return s.docs.MarkCompleted(ctx, doc.ID, len(rows))
}
