// Package vectorstore provides a uniform contract over the interchangeable
// vector index backends a knowledge base can use.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// Entry is one vector record to index
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// Result is one search hit. Distance is the backend's native cosine
// distance: smaller is more similar.
type Result struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float32
}

// CollectionInfo describes a backend collection
type CollectionInfo struct {
	Name  string
	Count int64
}

// Store is the capability set every vector backend implements.
// Search results are ordered ascending by distance; fewer than topK results
// are returned when the collection has fewer members. Filter is an
// equality-conjunction over entry metadata; backends that cannot express a
// given filter must return domain.ErrFilterUnsupported rather than ignore it.
type Store interface {
	Connect(ctx context.Context) error
	AddEmbeddings(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Result, error)
	Delete(ctx context.Context, ids []string) error
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)
	Close(ctx context.Context) error
}

// Config carries the backend connection settings shared by all stores
type Config struct {
	// SQLitePath is the on-disk database file for the embedded backend
	SQLitePath string

	MilvusAddress  string
	MilvusUsername string
	MilvusPassword string

	// Pool backs the pgvector store
	Pool *pgxpool.Pool

	// Dimensions is the fixed embedding width for collection creation
	Dimensions int
}

// Factory opens connected stores from a fixed configuration. It satisfies
// the store-factory interfaces the services consume.
type Factory struct {
	cfg Config
}

// NewFactory creates a Factory over the given backend configuration.
func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg}
}

// Open resolves and connects the store for a knowledge base's backend.
func (f *Factory) Open(ctx context.Context, backend domain.VectorBackend, collection string) (Store, error) {
	store, err := Open(f.cfg, backend, collection)
	if err != nil {
		return nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Open resolves the store implementation for a knowledge base's backend.
// The returned store is not yet connected; callers run Connect once.
func Open(cfg Config, backend domain.VectorBackend, collection string) (Store, error) {
	switch backend {
	case domain.VectorBackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return NewSQLiteStore(cfg.SQLitePath, collection), nil
	case domain.VectorBackendMilvus:
		if cfg.MilvusAddress == "" {
			return nil, fmt.Errorf("milvus backend requires an address")
		}
		return NewMilvusStore(MilvusConfig{
			Address:    cfg.MilvusAddress,
			Username:   cfg.MilvusUsername,
			Password:   cfg.MilvusPassword,
			Collection: collection,
			Dimensions: cfg.Dimensions,
		}), nil
	case domain.VectorBackendPgvector:
		if cfg.Pool == nil {
			return nil, fmt.Errorf("pgvector backend requires a database pool")
		}
		return NewPgvectorStore(cfg.Pool, collection), nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrInvalidVectorBackend, backend)
}
