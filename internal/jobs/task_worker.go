package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// PendingTaskRepository claims queued agent tasks for execution
type PendingTaskRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.AgentTask, error)
}

// AgentConfigReader loads the config a claimed task runs under
type AgentConfigReader interface {
	GetByID(ctx context.Context, id string) (*domain.AgentConfig, error)
}

// TaskExecutor runs one claimed task to a terminal state
type TaskExecutor interface {
	Execute(ctx context.Context, task *domain.AgentTask, cfg *domain.AgentConfig) (string, error)
}

// TaskWorker drains the pending agent task queue. Each claimed task runs
// under its own timeout so a stuck model call cannot stall the queue.
type TaskWorker struct {
	tasks    PendingTaskRepository
	agents   AgentConfigReader
	executor TaskExecutor
	timeout  time.Duration
}

// NewTaskWorker creates a new TaskWorker instance
func NewTaskWorker(tasks PendingTaskRepository, agents AgentConfigReader, executor TaskExecutor, timeout time.Duration) *TaskWorker {
	return &TaskWorker{
		tasks:    tasks,
		agents:   agents,
		executor: executor,
		timeout:  timeout,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *TaskWorker) ProcessJobs(ctx context.Context) error {
	claimed, err := w.tasks.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending tasks: %w", err)
	}

	if len(claimed) == 0 {
		return nil
	}

	log.Printf("Executing %d pending agent tasks", len(claimed))

	for _, task := range claimed {
		if err := w.runTask(ctx, task); err != nil {
			log.Printf("Error executing task %s: %v", task.ID, err)
		}
	}

	return nil
}

func (w *TaskWorker) runTask(ctx context.Context, task *domain.AgentTask) error {
	cfg, err := w.agents.GetByID(ctx, task.AgentConfigID)
	if err != nil {
		return fmt.Errorf("failed to load agent config %s: %w", task.AgentConfigID, err)
	}

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	_, err = w.executor.Execute(runCtx, task, cfg)
	if errors.Is(err, domain.ErrTaskCancelled) {
		log.Printf("Task %s was cancelled", task.ID)
		return nil
	}
	return err
}
