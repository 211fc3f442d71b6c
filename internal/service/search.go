package service

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/llm"
	"github.com/vortex-hue/forgeai/internal/telemetry"
)

// ModerationClient defines the gateway interface for content moderation
type ModerationClient interface {
	Moderate(ctx context.Context, text string) (*llm.ModerationResult, error)
}

// SearchKnowledgeBaseRepository resolves knowledge bases for search
type SearchKnowledgeBaseRepository interface {
	GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error)
	ListActive(ctx context.Context) ([]*domain.KnowledgeBase, error)
}

// SearchInput describes one semantic search request. KnowledgeBase may be
// empty, in which case the single active knowledge base is used.
type SearchInput struct {
	KnowledgeBase string
	Query         string
	TopK          int
	Filter        map[string]any
}

// SearchResult is one retrieved chunk, closest first
type SearchResult struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float32
}

// SearchService performs semantic search over a knowledge base.
type SearchService struct {
	kbs         SearchKnowledgeBaseRepository
	embedder    EmbeddingClient
	moderator   ModerationClient
	stores      VectorStoreFactory
	defaultTopK int
}

// NewSearchService creates a new SearchService instance
func NewSearchService(
	kbs SearchKnowledgeBaseRepository,
	embedder EmbeddingClient,
	moderator ModerationClient,
	stores VectorStoreFactory,
	defaultTopK int,
) *SearchService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &SearchService{
		kbs:         kbs,
		embedder:    embedder,
		moderator:   moderator,
		stores:      stores,
		defaultTopK: defaultTopK,
	}
}

// Search moderates and embeds the query, then runs a vector search against
// the resolved knowledge base. Results are ordered closest first; fewer than
// TopK results are returned when the collection is small.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]SearchResult, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	kb, err := s.resolveKnowledgeBase(ctx, input.KnowledgeBase)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query", telemetry.SpanAttributes{
		KnowledgeBaseID: kb.ID,
		Operation:       "search",
	})
	defer span.End()

	moderation, err := s.moderator.Moderate(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to moderate query: %w", err)
	}
	if moderation.Flagged {
		return nil, domain.ErrQueryFlagged
	}

	vector, err := s.embedder.Embed(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	store, err := s.stores.Open(ctx, kb.VectorBackend, kb.Collection)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	defer store.Close(ctx)

	topK := input.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	hits, err := store.Search(ctx, vector, topK, input.Filter)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			ID:       h.ID,
			Content:  h.Content,
			Metadata: h.Metadata,
			Distance: h.Distance,
		})
	}

	span.SetStatus(sentry.SpanStatusOK)
	return results, nil
}

// resolveKnowledgeBase returns the named knowledge base, or the single
// active one when no name is given. With more than one active knowledge
// base the caller must name one explicitly.
func (s *SearchService) resolveKnowledgeBase(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	if name != "" {
		return s.kbs.GetByName(ctx, name)
	}

	active, err := s.kbs.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, domain.ErrNoActiveKnowledgeBase
	case 1:
		return active[0], nil
	default:
		return nil, fmt.Errorf("multiple active knowledge bases; specify one by name")
	}
}
