package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vortex-hue/forgeai/internal/domain"
)

type mockGenerationClient struct {
	mock.Mock
}

func (m *mockGenerationClient) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	args := m.Called(ctx, prompt, systemPrompt, temperature)
	return args.String(0), args.Error(1)
}

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	args := m.Called(ctx, id, startedAt)
	return args.Error(0)
}

func (m *mockTaskRepo) GetStatus(ctx context.Context, id string) (domain.TaskStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.TaskStatus), args.Error(1)
}

func (m *mockTaskRepo) UpdateIterations(ctx context.Context, id string, iterationsUsed int) error {
	args := m.Called(ctx, id, iterationsUsed)
	return args.Error(0)
}

func (m *mockTaskRepo) MarkCompleted(ctx context.Context, id, result string, iterationsUsed int, completedAt time.Time) error {
	args := m.Called(ctx, id, result, iterationsUsed, completedAt)
	return args.Error(0)
}

func (m *mockTaskRepo) MarkFailed(ctx context.Context, id, errMsg string, iterationsUsed int, completedAt time.Time) error {
	args := m.Called(ctx, id, errMsg, iterationsUsed, completedAt)
	return args.Error(0)
}

type mockLogRepo struct {
	mock.Mock

	entries []*domain.AgentTaskLog
}

func (m *mockLogRepo) Append(ctx context.Context, l *domain.AgentTaskLog) error {
	args := m.Called(ctx, l)
	if args.Error(0) == nil {
		m.entries = append(m.entries, l)
	}
	return args.Error(0)
}

type seqUUIDGenerator struct {
	n int
}

func (g *seqUUIDGenerator) NewString() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newTestTask(status domain.TaskStatus) *domain.AgentTask {
	return &domain.AgentTask{
		ID:            "task-1",
		AgentConfigID: "agent-1",
		Description:   "Summarize the quarterly report",
		Context:       map[string]any{},
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestConfig(maxIterations int, tools ...string) *domain.AgentConfig {
	return &domain.AgentConfig{
		ID:            "agent-1",
		Name:          "analyst",
		Persona:       "You are a careful analyst.",
		Goals:         []string{"answer accurately"},
		Tools:         tools,
		Temperature:   0.7,
		MaxIterations: maxIterations,
	}
}

func TestOrchestratorExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("direct answer completes in one iteration", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusPending)
		cfg := newTestConfig(1)

		tasks.On("MarkRunning", mock.Anything, "task-1", mock.Anything).Return(nil)
		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, task.Description, mock.Anything, 0.7).Return("The report shows 12% growth.", nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", 1).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "The report shows 12% growth.", 1, mock.Anything).Return(nil)

		result, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		assert.Equal(t, "The report shows 12% growth.", result)
		require.Len(t, logs.entries, 1)
		assert.Equal(t, "llm_response", logs.entries[0].Action)
		assert.Equal(t, 1, logs.entries[0].Iteration)
		tasks.AssertExpectations(t)
	})

	t.Run("already running task is not marked running again", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(1)

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, 0.7).Return("done", nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", 1).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "done", 1, mock.Anything).Return(nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		tasks.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tool loop exhausts iteration budget with degraded result", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(2, "web_search")

		toolOutput := "Search results for 'foo': no search provider is configured"
		wantResult := "Tool result: " + toolOutput

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, 0.7).Return("TOOL_CALL: web_search(foo)", nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", mock.Anything).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", wantResult, 2, mock.Anything).Return(nil)

		result, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		assert.Equal(t, wantResult, result)

		require.Len(t, logs.entries, 4)
		assert.Equal(t, "llm_response", logs.entries[0].Action)
		assert.Equal(t, "tool_web_search", logs.entries[1].Action)
		assert.Equal(t, toolOutput, logs.entries[1].Observation)
		assert.Equal(t, "llm_response", logs.entries[2].Action)
		assert.Equal(t, "tool_web_search", logs.entries[3].Action)
		assert.Equal(t, 2, logs.entries[3].Iteration)
		tasks.AssertExpectations(t)
	})

	t.Run("second prompt carries the tool result", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(3, "web_search")

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, task.Description, mock.Anything, 0.7).Return("TOOL_CALL: web_search(foo)", nil).Once()
		llm.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
			return assert.ObjectsAreEqual("Tool result: Search results for 'foo': no search provider is configured", p)
		}), mock.Anything, 0.7).Return("final answer", nil).Once()
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", mock.Anything).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "final answer", 2, mock.Anything).Return(nil)

		result, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		assert.Equal(t, "final answer", result)
		llm.AssertExpectations(t)
	})

	t.Run("tool failure is contained as observation", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}
		searcher := &mockSearcher{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(2, "knowledge_search")

		searcher.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("store unavailable"))

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, task.Description, mock.Anything, 0.7).Return("TOOL_CALL: knowledge_search(refunds)", nil).Once()
		llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, 0.7).Return("I could not retrieve the policy.", nil).Once()
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", mock.Anything).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "I could not retrieve the policy.", 2, mock.Anything).Return(nil)

		result, err := NewOrchestrator(llm, tasks, logs, ToolDeps{Searcher: searcher}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		assert.Equal(t, "I could not retrieve the policy.", result)

		require.Len(t, logs.entries, 3)
		assert.Equal(t, "tool_knowledge_search_error", logs.entries[1].Action)
		assert.Contains(t, logs.entries[1].Observation, "store unavailable")
		tasks.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancellation observed at iteration boundary", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(5)

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusCancelled, nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		assert.ErrorIs(t, err, domain.ErrTaskCancelled)
		llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		tasks.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		tasks.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("generation failure marks the task failed", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(3)

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, 0.7).Return("", errors.New("rate limited"))
		tasks.On("MarkFailed", mock.Anything, "task-1", mock.MatchedBy(func(msg string) bool {
			return assert.ObjectsAreEqual("generation failed: rate limited", msg)
		}), 0, mock.Anything).Return(nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
		tasks.AssertExpectations(t)
	})

	t.Run("invalid system prompt template fails the task", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(3)
		cfg.SystemPrompt = "You are {persona} working on {missing_field}"

		tasks.On("MarkFailed", mock.Anything, "task-1", mock.Anything, 0, mock.Anything).Return(nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		var missingErr *MissingFieldsError
		require.True(t, errors.As(err, &missingErr))
		assert.Equal(t, []string{"missing_field"}, missingErr.Fields)
		llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("custom template receives persona goals and tools", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		cfg := newTestConfig(1, "web_search", "file_read")
		cfg.SystemPrompt = "{persona} | {goals} | {tools}"

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, mock.Anything,
			"You are a careful analyst. | 1. answer accurately | web_search, file_read", 0.7).
			Return("ok", nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", 1).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "ok", 1, mock.Anything).Return(nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		llm.AssertExpectations(t)
	})

	t.Run("context entries appear in the initial prompt sorted by key", func(t *testing.T) {
		llm := &mockGenerationClient{}
		tasks := &mockTaskRepo{}
		logs := &mockLogRepo{}

		task := newTestTask(domain.TaskStatusRunning)
		task.Context = map[string]any{"quarter": "Q3", "audience": "board"}
		cfg := newTestConfig(1)

		wantPrompt := "Summarize the quarterly report\n\nContext:\naudience: board\nquarter: Q3"

		tasks.On("GetStatus", mock.Anything, "task-1").Return(domain.TaskStatusRunning, nil)
		llm.On("Generate", mock.Anything, wantPrompt, mock.Anything, 0.7).Return("ok", nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)
		tasks.On("UpdateIterations", mock.Anything, "task-1", 1).Return(nil)
		tasks.On("MarkCompleted", mock.Anything, "task-1", "ok", 1, mock.Anything).Return(nil)

		_, err := NewOrchestrator(llm, tasks, logs, ToolDeps{}).
			WithUUIDGenerator(&seqUUIDGenerator{}).
			Execute(ctx, task, cfg)

		require.NoError(t, err)
		llm.AssertExpectations(t)
	})
}
