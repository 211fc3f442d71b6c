package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// DocumentRepository handles persistence of documents.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, knowledge_base_id, title, content, source_type, source_url, file_key,
	metadata, embedding_status, error, is_embedded, chunk_count, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO documents
			(id, knowledge_base_id, title, content, source_type, source_url, file_key,
			 metadata, embedding_status, error, is_embedded, chunk_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.KnowledgeBaseID, d.Title, d.Content, d.SourceType,
		nullableString(d.SourceURL), nullableString(d.FileKey),
		metadata, d.EmbeddingStatus, nullableString(d.Error),
		d.IsEmbedded, d.ChunkCount, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE knowledge_base_id = $1 ORDER BY created_at ASC`, knowledgeBaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ClaimPending atomically claims up to limit pending documents for
// ingestion, moving them to processing so concurrent workers never pick up
// the same document twice.
func (r *DocumentRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM documents
			 WHERE embedding_status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE documents
		 SET embedding_status = $3,
		     error = NULL,
		     updated_at = $4
		 FROM cte
		 WHERE documents.id = cte.id
		 RETURNING `+qualifiedDocumentColumns(),
		domain.EmbeddingStatusPending, limit, domain.EmbeddingStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetProcessing moves a document into the processing state, visible to
// concurrent readers before chunking begins.
func (r *DocumentRepository) SetProcessing(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding_status = $1, error = NULL, updated_at = $2 WHERE id = $3`,
		domain.EmbeddingStatusProcessing, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkCompleted records a successful ingestion run.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET embedding_status = $1, is_embedded = true, chunk_count = $2, error = NULL, updated_at = $3
		 WHERE id = $4`,
		domain.EmbeddingStatusCompleted, chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkFailed records a failed ingestion run with the error captured verbatim.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET embedding_status = $1, error = $2, updated_at = $3
		 WHERE id = $4`,
		domain.EmbeddingStatusFailed, nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Requeue returns a document to pending so a later worker pass re-ingests it.
func (r *DocumentRepository) Requeue(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding_status = $1, updated_at = $2 WHERE id = $3`,
		domain.EmbeddingStatusPending, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func qualifiedDocumentColumns() string {
	return `documents.id, documents.knowledge_base_id, documents.title, documents.content,
		documents.source_type, documents.source_url, documents.file_key, documents.metadata,
		documents.embedding_status, documents.error, documents.is_embedded, documents.chunk_count,
		documents.created_at, documents.updated_at`
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var sourceURL, fileKey, errMsg pgtype.Text
	var metadata []byte

	err := row.Scan(&d.ID, &d.KnowledgeBaseID, &d.Title, &d.Content, &d.SourceType,
		&sourceURL, &fileKey, &metadata, &d.EmbeddingStatus, &errMsg,
		&d.IsEmbedded, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}

	if sourceURL.Valid {
		d.SourceURL = sourceURL.String
	}
	if fileKey.Valid {
		d.FileKey = fileKey.String
	}
	if errMsg.Valid {
		d.Error = errMsg.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, err
		}
	}
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}

	return &d, nil
}
