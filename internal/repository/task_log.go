package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// AgentTaskLogRepository handles the append-only task audit trail.
type AgentTaskLogRepository struct {
	db dbtx
}

func NewAgentTaskLogRepository(pool *pgxpool.Pool) *AgentTaskLogRepository {
	return &AgentTaskLogRepository{db: pool}
}

func NewAgentTaskLogRepositoryWithTx(tx dbtx) *AgentTaskLogRepository {
	return &AgentTaskLogRepository{db: tx}
}

// Append writes one log entry. Entries are never updated or deleted.
func (r *AgentTaskLogRepository) Append(ctx context.Context, l *domain.AgentTaskLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agent_task_logs (id, task_id, iteration, action, observation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.TaskID, l.Iteration, l.Action, l.Observation, l.CreatedAt,
	)
	return err
}

// ListByTask returns a task's entries ordered by (iteration, created_at).
func (r *AgentTaskLogRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.AgentTaskLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, task_id, iteration, action, observation, created_at
		 FROM agent_task_logs
		 WHERE task_id = $1
		 ORDER BY iteration ASC, created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AgentTaskLog
	for rows.Next() {
		var l domain.AgentTaskLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Iteration, &l.Action, &l.Observation, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
