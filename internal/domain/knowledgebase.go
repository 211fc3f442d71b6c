package domain

import (
	"fmt"
	"time"
)

// VectorBackend selects which vector store implementation a knowledge base uses
type VectorBackend string

const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendMilvus   VectorBackend = "milvus"
	VectorBackendPgvector VectorBackend = "pgvector"
)

// KnowledgeBase represents a named collection of documents bound to one vector backend
type KnowledgeBase struct {
	ID            string
	Name          string
	VectorBackend VectorBackend
	Collection    string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewKnowledgeBase creates a new KnowledgeBase instance
func NewKnowledgeBase(id, name string, backend VectorBackend, collection string, createdAt time.Time) *KnowledgeBase {
	if collection == "" {
		collection = name
	}
	return &KnowledgeBase{
		ID:            id,
		Name:          name,
		VectorBackend: backend,
		Collection:    collection,
		IsActive:      false,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// ValidateKnowledgeBase validates a KnowledgeBase instance
func ValidateKnowledgeBase(kb *KnowledgeBase) error {
	if kb == nil {
		return fmt.Errorf("knowledge base cannot be nil")
	}

	if kb.ID == "" {
		return fmt.Errorf("knowledge base ID is required")
	}

	if kb.Name == "" {
		return fmt.Errorf("knowledge base Name is required")
	}

	if kb.Collection == "" {
		return fmt.Errorf("knowledge base Collection is required")
	}

	if !isValidVectorBackend(kb.VectorBackend) {
		return fmt.Errorf("%w: %s", ErrInvalidVectorBackend, kb.VectorBackend)
	}

	return nil
}

// isValidVectorBackend checks if a VectorBackend is valid
func isValidVectorBackend(b VectorBackend) bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMilvus, VectorBackendPgvector:
		return true
	}
	return false
}
