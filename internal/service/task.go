package service

import (
	"context"
	"time"

	"github.com/vortex-hue/forgeai/internal/domain"
)

// AgentConfigRepositoryInterface defines the persistence interface for agent configs
type AgentConfigRepositoryInterface interface {
	Create(ctx context.Context, a *domain.AgentConfig) error
	GetByID(ctx context.Context, id string) (*domain.AgentConfig, error)
	GetByName(ctx context.Context, name string) (*domain.AgentConfig, error)
	List(ctx context.Context) ([]*domain.AgentConfig, error)
}

// TaskRepositoryInterface defines the persistence interface for agent tasks
type TaskRepositoryInterface interface {
	Create(ctx context.Context, t *domain.AgentTask) error
	GetByID(ctx context.Context, id string) (*domain.AgentTask, error)
	Cancel(ctx context.Context, id string, completedAt time.Time) error
}

// TaskLogRepositoryInterface reads the task audit trail
type TaskLogRepositoryInterface interface {
	ListByTask(ctx context.Context, taskID string) ([]*domain.AgentTaskLog, error)
}

// TaskService manages agent configs and task submission.
type TaskService struct {
	agents  AgentConfigRepositoryInterface
	tasks   TaskRepositoryInterface
	logs    TaskLogRepositoryInterface
	uuidGen UUIDGenerator
}

// NewTaskService creates a new TaskService instance
func NewTaskService(
	agents AgentConfigRepositoryInterface,
	tasks TaskRepositoryInterface,
	logs TaskLogRepositoryInterface,
) *TaskService {
	return &TaskService{
		agents:  agents,
		tasks:   tasks,
		logs:    logs,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// WithUUIDGenerator overrides ID generation (for testing)
func (s *TaskService) WithUUIDGenerator(gen UUIDGenerator) *TaskService {
	s.uuidGen = gen
	return s
}

// CreateAgentInput holds parameters for creating an agent config
type CreateAgentInput struct {
	Name          string
	Persona       string
	Goals         []string
	Tools         []string
	SystemPrompt  string
	Temperature   float64
	MaxIterations int
}

// CreateAgent validates and persists an agent config. Validation rejects
// out-of-range temperature and non-positive iteration bounds before any
// side effect.
func (s *TaskService) CreateAgent(ctx context.Context, input CreateAgentInput) (*domain.AgentConfig, error) {
	agent := domain.NewAgentConfig(s.uuidGen.NewString(), input.Name, input.Persona, input.Goals, input.Tools, time.Now().UTC())
	agent.SystemPrompt = input.SystemPrompt
	if input.Temperature != 0 {
		agent.Temperature = input.Temperature
	}
	if input.MaxIterations != 0 {
		agent.MaxIterations = input.MaxIterations
	}

	if err := domain.ValidateAgentConfig(agent); err != nil {
		return nil, err
	}

	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}

	return agent, nil
}

// ListAgents returns all agent configs.
func (s *TaskService) ListAgents(ctx context.Context) ([]*domain.AgentConfig, error) {
	return s.agents.List(ctx)
}

// CreateTask validates and persists a new pending task for the named agent.
func (s *TaskService) CreateTask(ctx context.Context, agentName, description string, taskContext map[string]any) (*domain.AgentTask, error) {
	agent, err := s.agents.GetByName(ctx, agentName)
	if err != nil {
		return nil, err
	}

	task := domain.NewAgentTask(s.uuidGen.NewString(), agent.ID, description, taskContext, time.Now().UTC())

	if err := domain.ValidateAgentTask(task); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Cancel moves a pending or running task to cancelled. An in-flight
// execution observes the status at its next iteration boundary and exits.
func (s *TaskService) Cancel(ctx context.Context, taskID string) error {
	return s.tasks.Cancel(ctx, taskID, time.Now().UTC())
}

// Get returns one task by ID.
func (s *TaskService) Get(ctx context.Context, taskID string) (*domain.AgentTask, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// Logs returns a task's audit trail ordered by (iteration, created_at).
func (s *TaskService) Logs(ctx context.Context, taskID string) ([]*domain.AgentTaskLog, error) {
	return s.logs.ListByTask(ctx, taskID)
}
