package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded-local backend: a persistent on-disk index with
// brute-force cosine similarity search. It suits small collections; past
// ~100K vectors a dedicated index server is the better choice.
type SQLiteStore struct {
	path       string
	collection string
	table      string
	db         *sql.DB
}

// NewSQLiteStore creates a store over the given database file and collection.
func NewSQLiteStore(path, collection string) *SQLiteStore {
	return &SQLiteStore{
		path:       path,
		collection: collection,
		table:      "vectors_" + sanitizeIdentifier(collection),
	}
}

// sanitizeIdentifier keeps only characters safe to embed in a table name.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default_collection"
	}
	return b.String()
}

// Connect opens the database file and creates the collection table if absent.
func (s *SQLiteStore) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding BLOB NOT NULL
		)`, s.table))
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create collection table: %w", err)
	}

	s.db = db
	return nil
}

// AddEmbeddings upserts entries into the collection table.
func (s *SQLiteStore) AddEmbeddings(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding`, s.table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Content, string(metadata), encodeFloat32s(e.Embedding)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// idScore holds a candidate during the scan phase of Search.
type idScore struct {
	ID    string
	Score float32
}

// Search performs brute-force cosine similarity over all vectors in the
// collection, applying the metadata filter during the scan.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, metadata, embedding FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	h := &idScoreHeap{}
	heap.Init(h)

	var buf []float32
	for rows.Next() {
		var id, metadataJSON string
		var blob []byte
		if err := rows.Scan(&id, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if len(filter) > 0 {
			var metadata map[string]any
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
			}
			if !matchesFilter(metadata, filter) {
				continue
			}
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", id, err)
		}

		score := cosineSimilarity(vector, buf, queryNorm)
		if h.Len() < topK {
			heap.Push(h, idScore{ID: id, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = idScore{ID: id, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	if h.Len() == 0 {
		return nil, nil
	}

	// Pop winners in ascending score order, filling the result slice from
	// the back so the most similar entry ends up first.
	topIDs := make([]string, h.Len())
	scores := make(map[string]float32, h.Len())
	for i := len(topIDs) - 1; i >= 0; i-- {
		item := heap.Pop(h).(idScore)
		topIDs[i] = item.ID
		scores[item.ID] = item.Score
	}

	byID, err := s.fetchByIDs(ctx, topIDs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(topIDs))
	for _, id := range topIDs {
		r, ok := byID[id]
		if !ok {
			continue
		}
		r.Distance = 1 - scores[id]
		results = append(results, r)
	}

	return results, nil
}

func (s *SQLiteStore) fetchByIDs(ctx context.Context, ids []string) (map[string]Result, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT id, content, metadata FROM %s WHERE id IN (?%s)`,
		s.table, strings.Repeat(",?", len(ids)-1))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Result, len(ids))
	for rows.Next() {
		var r Result
		var metadataJSON string
		if err := rows.Scan(&r.ID, &r.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", r.ID, err)
		}
		byID[r.ID] = r
	}
	return byID, rows.Err()
}

// Delete removes entries by ID.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (?%s)`,
		s.table, strings.Repeat(",?", len(ids)-1))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// CollectionInfo returns the collection name and entry count.
func (s *SQLiteStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	return &CollectionInfo{Name: s.collection, Count: count}, nil
}

// Close closes the underlying database file.
func (s *SQLiteStore) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// matchesFilter reports whether metadata satisfies every key/value pair in
// the filter. Values are compared by their string rendering since metadata
// round-trips through JSON.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosineSimilarity computes dot(a,b) / (aNorm * bNorm) with aNorm precomputed.
func cosineSimilarity(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// idScoreHeap is a min-heap of idScore ordered by Score, used to track the
// top-K candidates during a scan.
type idScoreHeap []idScore

func (h idScoreHeap) Len() int           { return len(h) }
func (h idScoreHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h idScoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x any)        { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
