package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// DocumentChunkRepository handles persistence of document chunks.
type DocumentChunkRepository struct {
	db dbtx
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: pool}
}

func NewDocumentChunkRepositoryWithTx(tx dbtx) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: tx}
}

// ReplaceChunks deletes any existing chunks for a document and inserts the
// new set in chunk_index order. Re-ingestion clears and redoes; the
// (document_id, chunk_index) unique constraint backstops concurrent retries.
func (r *DocumentChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, chunk_index, content, start_char, end_char, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.StartChar, c.EndChar,
			pgvector.NewVector(c.Embedding), metadata, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *DocumentChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, start_char, end_char, embedding, metadata, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		var embedding pgvector.Vector
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content,
			&c.StartChar, &c.EndChar, &embedding, &metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, err
			}
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *DocumentChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID,
	).Scan(&count)
	return count, err
}
