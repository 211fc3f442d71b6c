package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore is the relational-extension backend: vectors live beside the
// relational tables in a vector-typed column, searched with the pgvector
// cosine distance operator.
type PgvectorStore struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPgvectorStore creates a store over the shared connection pool.
func NewPgvectorStore(pool *pgxpool.Pool, collection string) *PgvectorStore {
	return &PgvectorStore{pool: pool, collection: collection}
}

// Connect verifies the pool is reachable. The vector_entries table is
// managed by migrations.
func (s *PgvectorStore) Connect(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// AddEmbeddings upserts entries into vector_entries.
func (s *PgvectorStore) AddEmbeddings(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO vector_entries (id, collection, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id, collection) DO UPDATE SET
			     content = EXCLUDED.content,
			     metadata = EXCLUDED.metadata,
			     embedding = EXCLUDED.embedding`,
			e.ID, s.collection, e.Content, metadata, pgvector.NewVector(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}
	}

	return nil
}

// Search orders by cosine distance; the filter becomes a jsonb containment
// predicate, which matches the equality-conjunction contract.
func (s *PgvectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := `SELECT id, content, metadata, embedding <=> $1 AS distance
	          FROM vector_entries
	          WHERE collection = $2`
	args := []any{pgvector.NewVector(vector), s.collection}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
		query += ` AND metadata @> $3`
		args = append(args, filterJSON)
	}

	query += fmt.Sprintf(` ORDER BY distance ASC LIMIT %d`, topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var metadata []byte
		var distance float64
		if err := rows.Scan(&r.ID, &r.Content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", r.ID, err)
		}
		r.Distance = float32(distance)
		results = append(results, r)
	}

	return results, rows.Err()
}

// Delete removes entries by ID.
func (s *PgvectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM vector_entries WHERE collection = $1 AND id = ANY($2)`,
		s.collection, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// CollectionInfo returns the collection name and entry count.
func (s *PgvectorStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_entries WHERE collection = $1`,
		s.collection,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	return &CollectionInfo{Name: s.collection, Count: count}, nil
}

// Close is a no-op; the pool is shared and managed by the caller.
func (s *PgvectorStore) Close(ctx context.Context) error {
	return nil
}
