package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/llm"
	"github.com/vortex-hue/forgeai/internal/vectorstore"
)

type mockDocumentRepo struct {
	mock.Mock
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error) {
	args := m.Called(ctx, knowledgeBaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) Requeue(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentRepo) SetProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentRepo) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	args := m.Called(ctx, id, chunkCount)
	return args.Error(0)
}

func (m *mockDocumentRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

type mockChunkRepo struct {
	mock.Mock
}

func (m *mockChunkRepo) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

type mockKnowledgeBaseRepo struct {
	mock.Mock
}

func (m *mockKnowledgeBaseRepo) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	args := m.Called(ctx, kb)
	return args.Error(0)
}

func (m *mockKnowledgeBaseRepo) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeBaseRepo) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeBaseRepo) List(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeBaseRepo) ListActive(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeBaseRepo) Activate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) Moderate(ctx context.Context, text string) (*llm.ModerationResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ModerationResult), args.Error(1)
}

type mockStoreFactory struct {
	mock.Mock
}

func (m *mockStoreFactory) Open(ctx context.Context, backend domain.VectorBackend, collection string) (vectorstore.Store, error) {
	args := m.Called(ctx, backend, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vectorstore.Store), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) AddEmbeddings(ctx context.Context, entries []vectorstore.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	args := m.Called(ctx, vector, topK, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorstore.Result), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *mockStore) CollectionInfo(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vectorstore.CollectionInfo), args.Error(1)
}

func (m *mockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockObjectStorage struct {
	mock.Mock
}

func (m *mockObjectStorage) GetObjectText(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type mockAgentConfigRepo struct {
	mock.Mock
}

func (m *mockAgentConfigRepo) Create(ctx context.Context, a *domain.AgentConfig) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAgentConfigRepo) GetByID(ctx context.Context, id string) (*domain.AgentConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentConfig), args.Error(1)
}

func (m *mockAgentConfigRepo) GetByName(ctx context.Context, name string) (*domain.AgentConfig, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentConfig), args.Error(1)
}

func (m *mockAgentConfigRepo) List(ctx context.Context) ([]*domain.AgentConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentConfig), args.Error(1)
}

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.AgentTask) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*domain.AgentTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentTask), args.Error(1)
}

func (m *mockTaskRepo) Cancel(ctx context.Context, id string, completedAt time.Time) error {
	args := m.Called(ctx, id, completedAt)
	return args.Error(0)
}

type mockTaskLogRepo struct {
	mock.Mock
}

func (m *mockTaskLogRepo) ListByTask(ctx context.Context, taskID string) ([]*domain.AgentTaskLog, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentTaskLog), args.Error(1)
}

// seqUUIDGenerator issues deterministic IDs for assertions.
type seqUUIDGenerator struct {
	n int
}

func (g *seqUUIDGenerator) NewString() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}
