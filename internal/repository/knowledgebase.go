package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// KnowledgeBaseRepository handles persistence of knowledge bases.
type KnowledgeBaseRepository struct {
	db dbtx
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: pool}
}

func NewKnowledgeBaseRepositoryWithTx(tx dbtx) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: tx}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, name, vector_backend, collection, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		kb.ID, kb.Name, kb.VectorBackend, kb.Collection, kb.IsActive, kb.CreatedAt, kb.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "knowledge_bases_one_active_per_backend" {
				return domain.ErrActiveBackendConflict
			}
			return domain.ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, name, vector_backend, collection, is_active, created_at, updated_at
		 FROM knowledge_bases WHERE id = $1`, id))
}

func (r *KnowledgeBaseRepository) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, name, vector_backend, collection, is_active, created_at, updated_at
		 FROM knowledge_bases WHERE name = $1`, name))
}

func (r *KnowledgeBaseRepository) List(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, vector_backend, collection, is_active, created_at, updated_at
		 FROM knowledge_bases ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.Name, &kb.VectorBackend, &kb.Collection, &kb.IsActive, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, err
		}
		kbs = append(kbs, &kb)
	}
	return kbs, rows.Err()
}

// ListActive returns all active knowledge bases. The partial unique index
// guarantees at most one per backend.
func (r *KnowledgeBaseRepository) ListActive(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, vector_backend, collection, is_active, created_at, updated_at
		 FROM knowledge_bases WHERE is_active ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.Name, &kb.VectorBackend, &kb.Collection, &kb.IsActive, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, err
		}
		kbs = append(kbs, &kb)
	}
	return kbs, rows.Err()
}

// Activate flips the given knowledge base active, deactivating whichever
// knowledge base currently holds the active slot for the same backend.
func (r *KnowledgeBaseRepository) Activate(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE knowledge_bases SET is_active = false, updated_at = $1
		 WHERE is_active
		   AND vector_backend = (SELECT vector_backend FROM knowledge_bases WHERE id = $2)
		   AND id <> $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_bases SET is_active = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM knowledge_bases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

func (r *KnowledgeBaseRepository) scanOne(row pgx.Row) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := row.Scan(&kb.ID, &kb.Name, &kb.VectorBackend, &kb.Collection, &kb.IsActive, &kb.CreatedAt, &kb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}
