package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vortex-hue/forgeai/internal/domain"
)

func TestKnowledgeBaseService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with defaulted collection", func(t *testing.T) {
		repo := &mockKnowledgeBaseRepo{}
		repo.On("Create", mock.Anything, mock.MatchedBy(func(kb *domain.KnowledgeBase) bool {
			return kb.Name == "docs" && kb.Collection == "docs" && !kb.IsActive
		})).Return(nil)

		svc := NewKnowledgeBaseService(repo).WithUUIDGenerator(&seqUUIDGenerator{})
		kb, err := svc.Create(ctx, CreateKnowledgeBaseInput{
			Name:    "docs",
			Backend: domain.VectorBackendSQLite,
		})

		require.NoError(t, err)
		assert.Equal(t, "docs", kb.Collection)
		repo.AssertExpectations(t)
	})

	t.Run("activate on create claims the backend slot", func(t *testing.T) {
		repo := &mockKnowledgeBaseRepo{}
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		repo.On("Activate", mock.Anything, "id-1").Return(nil)

		svc := NewKnowledgeBaseService(repo).WithUUIDGenerator(&seqUUIDGenerator{})
		kb, err := svc.Create(ctx, CreateKnowledgeBaseInput{
			Name:     "docs",
			Backend:  domain.VectorBackendMilvus,
			Activate: true,
		})

		require.NoError(t, err)
		assert.True(t, kb.IsActive)
		repo.AssertExpectations(t)
	})

	t.Run("invalid backend rejected before persistence", func(t *testing.T) {
		repo := &mockKnowledgeBaseRepo{}

		svc := NewKnowledgeBaseService(repo)
		_, err := svc.Create(ctx, CreateKnowledgeBaseInput{
			Name:    "docs",
			Backend: domain.VectorBackend("redis"),
		})

		assert.ErrorIs(t, err, domain.ErrInvalidVectorBackend)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate name surfaces as domain error", func(t *testing.T) {
		repo := &mockKnowledgeBaseRepo{}
		repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateName)

		svc := NewKnowledgeBaseService(repo)
		_, err := svc.Create(ctx, CreateKnowledgeBaseInput{
			Name:    "docs",
			Backend: domain.VectorBackendSQLite,
		})

		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})
}

func TestKnowledgeBaseService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves by name then activates", func(t *testing.T) {
		kb := &domain.KnowledgeBase{ID: "kb-1", Name: "docs", VectorBackend: domain.VectorBackendSQLite}
		repo := &mockKnowledgeBaseRepo{}
		repo.On("GetByName", mock.Anything, "docs").Return(kb, nil)
		repo.On("Activate", mock.Anything, "kb-1").Return(nil)

		svc := NewKnowledgeBaseService(repo)
		activated, err := svc.Activate(ctx, "docs")

		require.NoError(t, err)
		assert.True(t, activated.IsActive)
		repo.AssertExpectations(t)
	})

	t.Run("unknown name", func(t *testing.T) {
		repo := &mockKnowledgeBaseRepo{}
		repo.On("GetByName", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeBaseNotFound)

		svc := NewKnowledgeBaseService(repo)
		_, err := svc.Activate(ctx, "missing")

		assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)
		repo.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
	})
}
