package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// maxURLDocumentBytes caps how much of a fetched page is read.
const maxURLDocumentBytes = 4 << 20

// DocumentRepositoryInterface defines the persistence interface for documents
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error)
	Requeue(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// HTTPDoer issues outbound requests for url-sourced documents
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DocumentService manages document lifecycle around the ingestion pipeline.
type DocumentService struct {
	docs    DocumentRepositoryInterface
	kbs     IngestionKnowledgeBaseRepository
	stores  VectorStoreFactory
	httpCli HTTPDoer
	uuidGen UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docs DocumentRepositoryInterface,
	kbs IngestionKnowledgeBaseRepository,
	stores VectorStoreFactory,
) *DocumentService {
	return &DocumentService{
		docs:    docs,
		kbs:     kbs,
		stores:  stores,
		httpCli: &http.Client{Timeout: 30 * time.Second},
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// WithHTTPClient overrides the outbound HTTP client (for testing)
func (s *DocumentService) WithHTTPClient(cli HTTPDoer) *DocumentService {
	s.httpCli = cli
	return s
}

// WithUUIDGenerator overrides ID generation (for testing)
func (s *DocumentService) WithUUIDGenerator(gen UUIDGenerator) *DocumentService {
	s.uuidGen = gen
	return s
}

// CreateDocumentInput holds parameters for creating a document
type CreateDocumentInput struct {
	KnowledgeBaseID string
	Title           string
	Content         string
	SourceType      domain.SourceType
	SourceURL       string
	FileKey         string
	Metadata        map[string]any
}

// Create validates and persists a new pending document.
func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	if _, err := s.kbs.GetByID(ctx, input.KnowledgeBaseID); err != nil {
		return nil, err
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), input.KnowledgeBaseID, input.Title, input.Content, input.SourceType, time.Now().UTC())
	doc.SourceURL = input.SourceURL
	doc.FileKey = input.FileKey
	if input.Metadata != nil {
		doc.Metadata = input.Metadata
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// CreateFromURL fetches a page, extracts its title and visible text, and
// persists the result as a pending url-sourced document.
func (s *DocumentService) CreateFromURL(ctx context.Context, knowledgeBaseID, url string) (*domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
	}

	title, text, err := extractPageText(io.LimitReader(resp.Body, maxURLDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	if title == "" {
		title = url
	}

	return s.Create(ctx, CreateDocumentInput{
		KnowledgeBaseID: knowledgeBaseID,
		Title:           title,
		Content:         text,
		SourceType:      domain.SourceTypeURL,
		SourceURL:       url,
	})
}

// Reingest requeues a document so the worker re-runs the pipeline. The run
// itself clears the previous chunk set.
func (s *DocumentService) Reingest(ctx context.Context, id string) error {
	if _, err := s.docs.GetByID(ctx, id); err != nil {
		return err
	}
	return s.docs.Requeue(ctx, id)
}

// Delete removes a document, its chunks (by cascade) and its vector entries.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if doc.ChunkCount > 0 {
		kb, err := s.kbs.GetByID(ctx, doc.KnowledgeBaseID)
		if err != nil {
			return err
		}

		store, err := s.stores.Open(ctx, kb.VectorBackend, kb.Collection)
		if err != nil {
			return fmt.Errorf("failed to open vector store: %w", err)
		}
		defer store.Close(ctx)

		ids := make([]string, 0, doc.ChunkCount)
		for i := 0; i < doc.ChunkCount; i++ {
			ids = append(ids, fmt.Sprintf("%s_%d", doc.ID, i))
		}
		if err := store.Delete(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete vector entries: %w", err)
		}
	}

	return s.docs.Delete(ctx, id)
}

// Get returns one document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// List returns all documents in a knowledge base.
func (s *DocumentService) List(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error) {
	return s.docs.ListByKnowledgeBase(ctx, knowledgeBaseID)
}

// extractPageText walks the HTML tree collecting the page title and visible
// text, skipping script and style subtrees.
func extractPageText(r io.Reader) (title, text string, err error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return title, sb.String(), nil
}
