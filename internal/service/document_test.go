package service

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vortex-hue/forgeai/internal/domain"
)

type mockHTTPDoer struct {
	mock.Mock
}

func (m *mockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDocumentService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a pending document", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}

		kbs.On("GetByID", mock.Anything, "kb-1").Return(&domain.KnowledgeBase{ID: "kb-1"}, nil)
		docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
			return d.KnowledgeBaseID == "kb-1" && d.EmbeddingStatus == domain.EmbeddingStatusPending
		})).Return(nil)

		svc := NewDocumentService(docs, kbs, &mockStoreFactory{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		doc, err := svc.Create(ctx, CreateDocumentInput{
			KnowledgeBaseID: "kb-1",
			Title:           "Handbook",
			Content:         "some text",
			SourceType:      domain.SourceTypeText,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingStatusPending, doc.EmbeddingStatus)
		docs.AssertExpectations(t)
	})

	t.Run("unknown knowledge base rejected", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}

		kbs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeBaseNotFound)

		svc := NewDocumentService(docs, kbs, &mockStoreFactory{})
		_, err := svc.Create(ctx, CreateDocumentInput{
			KnowledgeBaseID: "missing",
			Title:           "Handbook",
			Content:         "some text",
			SourceType:      domain.SourceTypeText,
		})

		assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("url document requires a source url", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}

		kbs.On("GetByID", mock.Anything, "kb-1").Return(&domain.KnowledgeBase{ID: "kb-1"}, nil)

		svc := NewDocumentService(docs, kbs, &mockStoreFactory{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		_, err := svc.Create(ctx, CreateDocumentInput{
			KnowledgeBaseID: "kb-1",
			Title:           "Page",
			SourceType:      domain.SourceTypeURL,
		})

		require.Error(t, err)
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestDocumentService_CreateFromURL(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts title and visible text", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}
		httpCli := &mockHTTPDoer{}

		page := `<html><head><title>Refund Policy</title><style>body{}</style></head>
<body><script>var x=1;</script><h1>Refunds</h1><p>Refunds take 5 days.</p></body></html>`

		kbs.On("GetByID", mock.Anything, "kb-1").Return(&domain.KnowledgeBase{ID: "kb-1"}, nil)
		httpCli.On("Do", mock.Anything).Return(htmlResponse(http.StatusOK, page), nil)

		var created *domain.Document
		docs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Document)
		}).Return(nil)

		svc := NewDocumentService(docs, kbs, &mockStoreFactory{}).
			WithHTTPClient(httpCli).
			WithUUIDGenerator(&seqUUIDGenerator{})

		doc, err := svc.CreateFromURL(ctx, "kb-1", "https://example.com/refunds")

		require.NoError(t, err)
		assert.Equal(t, "Refund Policy", doc.Title)
		assert.Equal(t, domain.SourceTypeURL, doc.SourceType)
		assert.Equal(t, "https://example.com/refunds", doc.SourceURL)

		require.NotNil(t, created)
		assert.Contains(t, created.Content, "Refunds take 5 days.")
		assert.NotContains(t, created.Content, "var x=1;")
		assert.NotContains(t, created.Content, "body{}")
	})

	t.Run("falls back to the url when the page has no title", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}
		httpCli := &mockHTTPDoer{}

		kbs.On("GetByID", mock.Anything, "kb-1").Return(&domain.KnowledgeBase{ID: "kb-1"}, nil)
		httpCli.On("Do", mock.Anything).Return(htmlResponse(http.StatusOK, "<html><body><p>text</p></body></html>"), nil)
		docs.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc := NewDocumentService(docs, kbs, &mockStoreFactory{}).
			WithHTTPClient(httpCli).
			WithUUIDGenerator(&seqUUIDGenerator{})

		doc, err := svc.CreateFromURL(ctx, "kb-1", "https://example.com/untitled")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/untitled", doc.Title)
	})

	t.Run("non-200 response aborts", func(t *testing.T) {
		httpCli := &mockHTTPDoer{}
		httpCli.On("Do", mock.Anything).Return(htmlResponse(http.StatusNotFound, "not found"), nil)

		svc := NewDocumentService(&mockDocumentRepo{}, &mockKnowledgeBaseRepo{}, &mockStoreFactory{}).
			WithHTTPClient(httpCli)

		_, err := svc.CreateFromURL(ctx, "kb-1", "https://example.com/missing")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("clears vector entries before removing the row", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}
		factory := &mockStoreFactory{}
		store := &mockStore{}

		docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{
			ID:              "doc-1",
			KnowledgeBaseID: "kb-1",
			ChunkCount:      2,
		}, nil)
		kbs.On("GetByID", mock.Anything, "kb-1").Return(&domain.KnowledgeBase{
			ID:            "kb-1",
			VectorBackend: domain.VectorBackendSQLite,
			Collection:    "docs",
		}, nil)
		factory.On("Open", mock.Anything, domain.VectorBackendSQLite, "docs").Return(store, nil)
		store.On("Delete", mock.Anything, []string{"doc-1_0", "doc-1_1"}).Return(nil)
		store.On("Close", mock.Anything).Return(nil)
		docs.On("Delete", mock.Anything, "doc-1").Return(nil)

		svc := NewDocumentService(docs, kbs, factory)

		require.NoError(t, svc.Delete(ctx, "doc-1"))
		store.AssertExpectations(t)
		docs.AssertExpectations(t)
	})

	t.Run("document without chunks skips the vector store", func(t *testing.T) {
		docs := &mockDocumentRepo{}
		kbs := &mockKnowledgeBaseRepo{}
		factory := &mockStoreFactory{}

		docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{
			ID:              "doc-1",
			KnowledgeBaseID: "kb-1",
		}, nil)
		docs.On("Delete", mock.Anything, "doc-1").Return(nil)

		svc := NewDocumentService(docs, kbs, factory)

		require.NoError(t, svc.Delete(ctx, "doc-1"))
		factory.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Reingest(t *testing.T) {
	ctx := context.Background()

	docs := &mockDocumentRepo{}
	docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1"}, nil)
	docs.On("Requeue", mock.Anything, "doc-1").Return(nil)

	svc := NewDocumentService(docs, &mockKnowledgeBaseRepo{}, &mockStoreFactory{})

	require.NoError(t, svc.Reingest(ctx, "doc-1"))
	docs.AssertExpectations(t)
}
