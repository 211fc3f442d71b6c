package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// AgentTaskRepository handles persistence of agent tasks.
type AgentTaskRepository struct {
	db dbtx
}

func NewAgentTaskRepository(pool *pgxpool.Pool) *AgentTaskRepository {
	return &AgentTaskRepository{db: pool}
}

func NewAgentTaskRepositoryWithTx(tx dbtx) *AgentTaskRepository {
	return &AgentTaskRepository{db: tx}
}

const agentTaskColumns = `id, agent_config_id, description, context, status, result, error,
	iterations_used, started_at, completed_at, created_at`

func (r *AgentTaskRepository) Create(ctx context.Context, t *domain.AgentTask) error {
	taskContext, err := json.Marshal(t.Context)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO agent_tasks
			(id, agent_config_id, description, context, status, result, error,
			 iterations_used, started_at, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.AgentConfigID, t.Description, taskContext, t.Status,
		nullableString(t.Result), nullableString(t.Error),
		t.IterationsUsed, t.StartedAt, t.CompletedAt, t.CreatedAt,
	)
	return err
}

func (r *AgentTaskRepository) GetByID(ctx context.Context, id string) (*domain.AgentTask, error) {
	return scanAgentTask(r.db.QueryRow(ctx,
		`SELECT `+agentTaskColumns+` FROM agent_tasks WHERE id = $1`, id))
}

// GetStatus reads only the current status. The orchestrator polls this at
// iteration boundaries to observe external cancellation.
func (r *AgentTaskRepository) GetStatus(ctx context.Context, id string) (domain.TaskStatus, error) {
	var status domain.TaskStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM agent_tasks WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTaskNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *AgentTaskRepository) ListByConfig(ctx context.Context, agentConfigID string) ([]*domain.AgentTask, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+agentTaskColumns+` FROM agent_tasks
		 WHERE agent_config_id = $1 ORDER BY created_at ASC`, agentConfigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.AgentTask
	for rows.Next() {
		t, err := scanAgentTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimPending atomically claims up to limit pending tasks, moving them to
// running with a start timestamp.
func (r *AgentTaskRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.AgentTask, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM agent_tasks
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE agent_tasks
		 SET status = $3,
		     started_at = $4
		 FROM cte
		 WHERE agent_tasks.id = cte.id
		 RETURNING agent_tasks.id, agent_tasks.agent_config_id, agent_tasks.description,
		           agent_tasks.context, agent_tasks.status, agent_tasks.result, agent_tasks.error,
		           agent_tasks.iterations_used, agent_tasks.started_at, agent_tasks.completed_at,
		           agent_tasks.created_at`,
		domain.TaskStatusPending, limit, domain.TaskStatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.AgentTask
	for rows.Next() {
		t, err := scanAgentTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkRunning transitions a pending task to running with a start timestamp.
func (r *AgentTaskRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_tasks SET status = $1, started_at = $2
		 WHERE id = $3 AND status = $4`,
		domain.TaskStatusRunning, startedAt, id, domain.TaskStatusPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		// Distinguish a missing task from an illegal transition.
		if _, getErr := r.GetStatus(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrTaskNotPending
	}
	return nil
}

// MarkCompleted records a successful run with its result text.
func (r *AgentTaskRepository) MarkCompleted(ctx context.Context, id, result string, iterationsUsed int, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_tasks
		 SET status = $1, result = $2, iterations_used = $3, completed_at = $4
		 WHERE id = $5 AND status = $6`,
		domain.TaskStatusCompleted, result, iterationsUsed, completedAt, id, domain.TaskStatusRunning,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// MarkFailed records a failed run with the error message captured verbatim.
func (r *AgentTaskRepository) MarkFailed(ctx context.Context, id, errMsg string, iterationsUsed int, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_tasks
		 SET status = $1, error = $2, iterations_used = $3, completed_at = $4
		 WHERE id = $5 AND status = $6`,
		domain.TaskStatusFailed, errMsg, iterationsUsed, completedAt, id, domain.TaskStatusRunning,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdateIterations persists the iteration counter mid-run.
func (r *AgentTaskRepository) UpdateIterations(ctx context.Context, id string, iterationsUsed int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_tasks SET iterations_used = $1 WHERE id = $2`,
		iterationsUsed, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Cancel moves a pending or running task to cancelled. In-flight executions
// observe the write at their next iteration boundary.
func (r *AgentTaskRepository) Cancel(ctx context.Context, id string, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_tasks SET status = $1, completed_at = $2
		 WHERE id = $3 AND status IN ($4, $5)`,
		domain.TaskStatusCancelled, completedAt, id, domain.TaskStatusPending, domain.TaskStatusRunning,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, getErr := r.GetStatus(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrTaskCancelled
	}
	return nil
}

func scanAgentTask(row pgx.Row) (*domain.AgentTask, error) {
	var t domain.AgentTask
	var taskContext []byte
	var result, errMsg pgtype.Text

	err := row.Scan(&t.ID, &t.AgentConfigID, &t.Description, &taskContext, &t.Status,
		&result, &errMsg, &t.IterationsUsed, &t.StartedAt, &t.CompletedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	if len(taskContext) > 0 {
		if err := json.Unmarshal(taskContext, &t.Context); err != nil {
			return nil, err
		}
	}
	if t.Context == nil {
		t.Context = map[string]any{}
	}
	if result.Valid {
		t.Result = result.String
	}
	if errMsg.Valid {
		t.Error = errMsg.String
	}

	return &t, nil
}
