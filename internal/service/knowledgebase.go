package service

import (
	"context"
	"time"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// KnowledgeBaseRepositoryInterface defines the persistence interface for knowledge bases
type KnowledgeBaseRepositoryInterface interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error)
	List(ctx context.Context) ([]*domain.KnowledgeBase, error)
	ListActive(ctx context.Context) ([]*domain.KnowledgeBase, error)
	Activate(ctx context.Context, id string) error
}

// KnowledgeBaseService manages knowledge base lifecycle.
type KnowledgeBaseService struct {
	repo    KnowledgeBaseRepositoryInterface
	uuidGen UUIDGenerator
}

// NewKnowledgeBaseService creates a new KnowledgeBaseService instance
func NewKnowledgeBaseService(repo KnowledgeBaseRepositoryInterface) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		repo:    repo,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// WithUUIDGenerator overrides ID generation (for testing)
func (s *KnowledgeBaseService) WithUUIDGenerator(gen UUIDGenerator) *KnowledgeBaseService {
	s.uuidGen = gen
	return s
}

// CreateKnowledgeBaseInput holds parameters for creating a knowledge base
type CreateKnowledgeBaseInput struct {
	Name       string
	Backend    domain.VectorBackend
	Collection string
	Activate   bool
}

// Create validates and persists a new knowledge base. When Activate is set
// the new knowledge base takes over the active slot for its backend.
func (s *KnowledgeBaseService) Create(ctx context.Context, input CreateKnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	kb := domain.NewKnowledgeBase(s.uuidGen.NewString(), input.Name, input.Backend, input.Collection, time.Now().UTC())

	if err := domain.ValidateKnowledgeBase(kb); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, kb); err != nil {
		return nil, err
	}

	if input.Activate {
		if err := s.repo.Activate(ctx, kb.ID); err != nil {
			return nil, err
		}
		kb.IsActive = true
	}

	return kb, nil
}

// Activate makes the named knowledge base the active one for its backend.
func (s *KnowledgeBaseService) Activate(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	kb, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Activate(ctx, kb.ID); err != nil {
		return nil, err
	}
	kb.IsActive = true

	return kb, nil
}

// List returns all knowledge bases.
func (s *KnowledgeBaseService) List(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	return s.repo.List(ctx)
}

// GetByName returns one knowledge base by name.
func (s *KnowledgeBaseService) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	return s.repo.GetByName(ctx, name)
}
