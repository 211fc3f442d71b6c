package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// AgentConfigRepository handles persistence of agent configurations.
type AgentConfigRepository struct {
	db dbtx
}

func NewAgentConfigRepository(pool *pgxpool.Pool) *AgentConfigRepository {
	return &AgentConfigRepository{db: pool}
}

func NewAgentConfigRepositoryWithTx(tx dbtx) *AgentConfigRepository {
	return &AgentConfigRepository{db: tx}
}

func (r *AgentConfigRepository) Create(ctx context.Context, a *domain.AgentConfig) error {
	goals, err := json.Marshal(a.Goals)
	if err != nil {
		return err
	}
	tools, err := json.Marshal(a.Tools)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO agent_configs
			(id, name, persona, goals, tools, system_prompt, temperature, max_iterations, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Name, a.Persona, goals, tools, nullableString(a.SystemPrompt),
		a.Temperature, a.MaxIterations, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *AgentConfigRepository) GetByID(ctx context.Context, id string) (*domain.AgentConfig, error) {
	return scanAgentConfig(r.db.QueryRow(ctx,
		`SELECT id, name, persona, goals, tools, system_prompt, temperature, max_iterations, is_active, created_at, updated_at
		 FROM agent_configs WHERE id = $1`, id))
}

func (r *AgentConfigRepository) GetByName(ctx context.Context, name string) (*domain.AgentConfig, error) {
	return scanAgentConfig(r.db.QueryRow(ctx,
		`SELECT id, name, persona, goals, tools, system_prompt, temperature, max_iterations, is_active, created_at, updated_at
		 FROM agent_configs WHERE name = $1`, name))
}

func (r *AgentConfigRepository) List(ctx context.Context) ([]*domain.AgentConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, persona, goals, tools, system_prompt, temperature, max_iterations, is_active, created_at, updated_at
		 FROM agent_configs ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.AgentConfig
	for rows.Next() {
		a, err := scanAgentConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, a)
	}
	return configs, rows.Err()
}

func scanAgentConfig(row pgx.Row) (*domain.AgentConfig, error) {
	var a domain.AgentConfig
	var goals, tools []byte
	var systemPrompt pgtype.Text

	err := row.Scan(&a.ID, &a.Name, &a.Persona, &goals, &tools, &systemPrompt,
		&a.Temperature, &a.MaxIterations, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(goals, &a.Goals); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tools, &a.Tools); err != nil {
		return nil, err
	}
	if systemPrompt.Valid {
		a.SystemPrompt = systemPrompt.String
	}

	return &a, nil
}
