package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vortex-hue/forgeai/internal/domain"
)

func TestTaskService_CreateAgent(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults when inputs are zero", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}
		agents.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc := NewTaskService(agents, &mockTaskRepo{}, &mockTaskLogRepo{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		agent, err := svc.CreateAgent(ctx, CreateAgentInput{
			Name:    "analyst",
			Persona: "You are a careful analyst.",
			Goals:   []string{"answer accurately"},
			Tools:   []string{"knowledge_search"},
		})

		require.NoError(t, err)
		assert.Equal(t, 0.7, agent.Temperature)
		assert.Equal(t, 5, agent.MaxIterations)
		assert.True(t, agent.IsActive)
		agents.AssertExpectations(t)
	})

	t.Run("overrides defaults when given", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}
		agents.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AgentConfig) bool {
			return a.Temperature == 1.2 && a.MaxIterations == 3
		})).Return(nil)

		svc := NewTaskService(agents, &mockTaskRepo{}, &mockTaskLogRepo{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		_, err := svc.CreateAgent(ctx, CreateAgentInput{
			Name:          "analyst",
			Persona:       "persona",
			Temperature:   1.2,
			MaxIterations: 3,
		})

		require.NoError(t, err)
		agents.AssertExpectations(t)
	})

	t.Run("out of range temperature rejected before persistence", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}

		svc := NewTaskService(agents, &mockTaskRepo{}, &mockTaskLogRepo{})
		_, err := svc.CreateAgent(ctx, CreateAgentInput{
			Name:        "analyst",
			Persona:     "persona",
			Temperature: 2.5,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidTemperature)
		agents.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("negative max iterations rejected", func(t *testing.T) {
		svc := NewTaskService(&mockAgentConfigRepo{}, &mockTaskRepo{}, &mockTaskLogRepo{})

		_, err := svc.CreateAgent(ctx, CreateAgentInput{
			Name:          "analyst",
			Persona:       "persona",
			MaxIterations: -1,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidMaxIterations)
	})
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending task for the named agent", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}
		tasks := &mockTaskRepo{}

		agents.On("GetByName", mock.Anything, "analyst").Return(&domain.AgentConfig{
			ID:   "agent-1",
			Name: "analyst",
		}, nil)
		tasks.On("Create", mock.Anything, mock.MatchedBy(func(task *domain.AgentTask) bool {
			return task.AgentConfigID == "agent-1" && task.Status == domain.TaskStatusPending
		})).Return(nil)

		svc := NewTaskService(agents, tasks, &mockTaskLogRepo{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		task, err := svc.CreateTask(ctx, "analyst", "Summarize the report", map[string]any{"quarter": "Q3"})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, "Q3", task.Context["quarter"])
		tasks.AssertExpectations(t)
	})

	t.Run("unknown agent", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}
		tasks := &mockTaskRepo{}

		agents.On("GetByName", mock.Anything, "missing").Return(nil, domain.ErrAgentNotFound)

		svc := NewTaskService(agents, tasks, &mockTaskLogRepo{})
		_, err := svc.CreateTask(ctx, "missing", "anything", nil)

		assert.ErrorIs(t, err, domain.ErrAgentNotFound)
		tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("empty description rejected", func(t *testing.T) {
		agents := &mockAgentConfigRepo{}
		tasks := &mockTaskRepo{}

		agents.On("GetByName", mock.Anything, "analyst").Return(&domain.AgentConfig{ID: "agent-1"}, nil)

		svc := NewTaskService(agents, tasks, &mockTaskLogRepo{}).
			WithUUIDGenerator(&seqUUIDGenerator{})

		_, err := svc.CreateTask(ctx, "analyst", "", nil)

		require.Error(t, err)
		tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestTaskService_Cancel(t *testing.T) {
	tasks := &mockTaskRepo{}
	tasks.On("Cancel", mock.Anything, "task-1", mock.Anything).Return(nil)

	svc := NewTaskService(&mockAgentConfigRepo{}, tasks, &mockTaskLogRepo{})
	err := svc.Cancel(context.Background(), "task-1")

	require.NoError(t, err)
	tasks.AssertExpectations(t)
}
