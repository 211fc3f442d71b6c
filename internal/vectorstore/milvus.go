package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/vortex-hue/forgeai/internal/domain"
)

const milvusVectorField = "embedding"

// MilvusConfig holds connection settings for the client-server backend
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Dimensions int
}

// MilvusStore is the client-server backend over a remote Milvus instance.
type MilvusStore struct {
	cfg MilvusConfig
	cli client.Client
}

// NewMilvusStore creates a store for the given collection.
func NewMilvusStore(cfg MilvusConfig) *MilvusStore {
	return &MilvusStore{cfg: cfg}
}

// Connect dials the server and creates the collection with cosine distance
// and the configured dimensionality if it does not exist yet.
func (s *MilvusStore) Connect(ctx context.Context) error {
	cli, err := client.NewClient(ctx, client.Config{
		Address:  s.cfg.Address,
		Username: s.cfg.Username,
		Password: s.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to milvus: %w", err)
	}

	has, err := cli.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		cli.Close()
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !has {
		schema := entity.NewSchema().
			WithName(s.cfg.Collection).
			WithField(entity.NewField().
				WithName("id").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName("content").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535)).
			WithField(entity.NewField().
				WithName("metadata").
				WithDataType(entity.FieldTypeJSON)).
			WithField(entity.NewField().
				WithName(milvusVectorField).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.cfg.Dimensions)))

		if err := cli.CreateCollection(ctx, schema, 1); err != nil {
			cli.Close()
			return fmt.Errorf("failed to create collection: %w", err)
		}

		index, err := entity.NewIndexAUTOINDEX(entity.COSINE)
		if err != nil {
			cli.Close()
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := cli.CreateIndex(ctx, s.cfg.Collection, milvusVectorField, index, false); err != nil {
			cli.Close()
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := cli.LoadCollection(ctx, s.cfg.Collection, false); err != nil {
		cli.Close()
		return fmt.Errorf("failed to load collection: %w", err)
	}

	s.cli = cli
	return nil
}

// AddEmbeddings upserts entries as columns.
func (s *MilvusStore) AddEmbeddings(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, 0, len(entries))
	contents := make([]string, 0, len(entries))
	metadatas := make([][]byte, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry missing ID")
		}
		if len(e.Embedding) != s.cfg.Dimensions {
			return fmt.Errorf("vector dim mismatch for id=%s: expected %d, got %d", e.ID, s.cfg.Dimensions, len(e.Embedding))
		}

		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}

		ids = append(ids, e.ID)
		contents = append(contents, e.Content)
		metadatas = append(metadatas, metadata)
		vectors = append(vectors, e.Embedding)
	}

	_, err := s.cli.Upsert(ctx, s.cfg.Collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnJSONBytes("metadata", metadatas),
		entity.NewColumnFloatVector(milvusVectorField, s.cfg.Dimensions, vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entries: %w", err)
	}
	return nil
}

// Search runs an approximate cosine search, compiling the metadata filter to
// a boolean expression over the JSON metadata field.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	if len(vector) != s.cfg.Dimensions {
		return nil, fmt.Errorf("vector dim mismatch: expected %d, got %d", s.cfg.Dimensions, len(vector))
	}

	expr, err := compileFilterExpr(filter)
	if err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	res, err := s.cli.Search(ctx, s.cfg.Collection, nil, expr,
		[]string{"id", "content", "metadata"},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusVectorField,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var results []Result
	for _, sr := range res {
		if sr.Err != nil {
			return nil, sr.Err
		}

		var contentCol, metadataCol entity.Column
		for _, c := range sr.Fields {
			switch c.Name() {
			case "content":
				contentCol = c
			case "metadata":
				metadataCol = c
			}
		}

		for i := 0; i < sr.ResultCount; i++ {
			id, err := sr.IDs.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read result ID: %w", err)
			}

			r := Result{
				ID: id,
				// Milvus returns cosine similarity; convert to distance so
				// all backends rank ascending.
				Distance: 1 - sr.Scores[i],
			}

			if contentCol != nil {
				if v, err := contentCol.GetAsString(i); err == nil {
					r.Content = v
				}
			}
			if metadataCol != nil {
				if v, err := metadataCol.Get(i); err == nil {
					if raw, ok := v.([]byte); ok {
						_ = json.Unmarshal(raw, &r.Metadata)
					}
				}
			}

			results = append(results, r)
		}
	}

	return results, nil
}

// Delete removes entries by ID.
func (s *MilvusStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf(`id in ["%s"]`, strings.Join(ids, `","`))
	if err := s.cli.Delete(ctx, s.cfg.Collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// CollectionInfo returns the collection name and row count.
func (s *MilvusStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection statistics: %w", err)
	}

	var count int64
	if raw, ok := stats["row_count"]; ok {
		count, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse row count: %w", err)
		}
	}

	return &CollectionInfo{Name: s.cfg.Collection, Count: count}, nil
}

// Close closes the client connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	if s.cli == nil {
		return nil
	}
	return s.cli.Close()
}

// compileFilterExpr renders an equality-conjunction filter as a milvus
// boolean expression over the JSON metadata field. Values that cannot be
// expressed are rejected rather than silently dropped.
func compileFilterExpr(filter map[string]any) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}

	terms := make([]string, 0, len(filter))
	for key, value := range filter {
		if strings.ContainsAny(key, `"'\`) {
			return "", fmt.Errorf("%w: unsupported filter key %q", domain.ErrFilterUnsupported, key)
		}

		switch v := value.(type) {
		case string:
			if strings.ContainsAny(v, `"'\`) {
				return "", fmt.Errorf("%w: unsupported filter value for %q", domain.ErrFilterUnsupported, key)
			}
			terms = append(terms, fmt.Sprintf(`metadata["%s"] == "%s"`, key, v))
		case int, int32, int64:
			terms = append(terms, fmt.Sprintf(`metadata["%s"] == %d`, key, v))
		case float32, float64:
			terms = append(terms, fmt.Sprintf(`metadata["%s"] == %v`, key, v))
		case bool:
			terms = append(terms, fmt.Sprintf(`metadata["%s"] == %t`, key, v))
		default:
			return "", fmt.Errorf("%w: unsupported filter value type %T for %q", domain.ErrFilterUnsupported, value, key)
		}
	}

	// Deterministic expression ordering is not required by the backend but
	// keeps logs stable.
	sort.Strings(terms)
	return strings.Join(terms, " && "), nil
}
