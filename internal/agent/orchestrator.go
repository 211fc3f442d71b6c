package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/service"
	"github.com/vortex-hue/forgeai/internal/telemetry"
)

// GenerationClient produces model completions for the reason-act loop
type GenerationClient interface {
	Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error)
}

// TaskRepository is the task persistence surface the orchestrator drives
type TaskRepository interface {
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	GetStatus(ctx context.Context, id string) (domain.TaskStatus, error)
	UpdateIterations(ctx context.Context, id string, iterationsUsed int) error
	MarkCompleted(ctx context.Context, id, result string, iterationsUsed int, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string, iterationsUsed int, completedAt time.Time) error
}

// LogRepository appends audit entries for task iterations
type LogRepository interface {
	Append(ctx context.Context, l *domain.AgentTaskLog) error
}

// Orchestrator runs agent tasks through a bounded reason-act loop: each
// iteration asks the model for a completion, records it, and either finishes
// with the response or executes the requested tool and feeds the result back
// as the next prompt.
type Orchestrator struct {
	llm      GenerationClient
	tasks    TaskRepository
	logs     LogRepository
	toolDeps ToolDeps
	uuidGen  service.UUIDGenerator
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(llm GenerationClient, tasks TaskRepository, logs LogRepository, toolDeps ToolDeps) *Orchestrator {
	return &Orchestrator{
		llm:      llm,
		tasks:    tasks,
		logs:     logs,
		toolDeps: toolDeps,
		uuidGen:  &service.DefaultUUIDGenerator{},
	}
}

// WithUUIDGenerator overrides ID generation (for testing)
func (o *Orchestrator) WithUUIDGenerator(gen service.UUIDGenerator) *Orchestrator {
	o.uuidGen = gen
	return o
}

// Execute runs one task to a terminal state and returns its result. A still
// pending task is moved to running first; workers that claim tasks hand them
// over already running. Cancellation is observed at iteration boundaries and
// leaves the cancelled status untouched.
func (o *Orchestrator) Execute(ctx context.Context, task *domain.AgentTask, cfg *domain.AgentConfig) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.execute", telemetry.SpanAttributes{
		TaskID:    task.ID,
		Operation: "execute",
	})
	defer span.End()

	if task.Status == domain.TaskStatusPending {
		if err := o.tasks.MarkRunning(ctx, task.ID, time.Now().UTC()); err != nil {
			return "", err
		}
	}

	systemPrompt, err := o.buildSystemPrompt(cfg)
	if err != nil {
		return o.fail(ctx, span, task.ID, 0, err)
	}

	registry := BuildRegistry(cfg.Tools, o.toolDeps)
	prompt := buildInitialPrompt(task)

	iterations := 0
	for iterations < cfg.MaxIterations {
		status, err := o.tasks.GetStatus(ctx, task.ID)
		if err != nil {
			return o.fail(ctx, span, task.ID, iterations, err)
		}
		if status == domain.TaskStatusCancelled {
			return "", domain.ErrTaskCancelled
		}

		response, err := o.llm.Generate(ctx, prompt, systemPrompt, cfg.Temperature)
		if err != nil {
			return o.fail(ctx, span, task.ID, iterations, fmt.Errorf("generation failed: %w", err))
		}

		iterations++
		o.appendLog(ctx, task.ID, iterations, "llm_response", response)
		if err := o.tasks.UpdateIterations(ctx, task.ID, iterations); err != nil {
			return o.fail(ctx, span, task.ID, iterations, err)
		}

		call := ParseToolCall(response)
		if call == nil {
			if err := o.tasks.MarkCompleted(ctx, task.ID, response, iterations, time.Now().UTC()); err != nil {
				return "", err
			}
			return response, nil
		}

		telemetry.AddBreadcrumb(ctx, "agent.tool", call.Name)
		output, err := registry.Execute(ctx, call.Name, call.Args)
		if err != nil {
			output = fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
			o.appendLog(ctx, task.ID, iterations, "tool_"+call.Name+"_error", output)
		} else {
			o.appendLog(ctx, task.ID, iterations, "tool_"+call.Name, output)
		}

		prompt = "Tool result: " + output
	}

	// Iteration budget exhausted: the last observation stands in for a
	// final answer.
	if err := o.tasks.MarkCompleted(ctx, task.ID, prompt, iterations, time.Now().UTC()); err != nil {
		return "", err
	}
	return prompt, nil
}

// fail records the task failure and re-signals the cause.
func (o *Orchestrator) fail(ctx context.Context, span *telemetry.Span, taskID string, iterations int, cause error) (string, error) {
	span.SetError(cause)
	if err := o.tasks.MarkFailed(ctx, taskID, cause.Error(), iterations, time.Now().UTC()); err != nil {
		telemetry.CaptureError(ctx, err)
	}
	return "", cause
}

// appendLog writes one audit entry. Audit writes never interrupt the loop.
func (o *Orchestrator) appendLog(ctx context.Context, taskID string, iteration int, action, observation string) {
	err := o.logs.Append(ctx, &domain.AgentTaskLog{
		ID:          o.uuidGen.NewString(),
		TaskID:      taskID,
		Iteration:   iteration,
		Action:      action,
		Observation: observation,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		telemetry.CaptureError(ctx, err)
	}
}

// buildSystemPrompt renders the config's custom template when present,
// otherwise assembles the default persona/goals/tools prompt.
func (o *Orchestrator) buildSystemPrompt(cfg *domain.AgentConfig) (string, error) {
	goals := formatGoals(cfg.Goals)
	tools := strings.Join(cfg.Tools, ", ")

	if cfg.SystemPrompt != "" {
		rendered, err := RenderTemplate(cfg.SystemPrompt, map[string]string{
			"persona": cfg.Persona,
			"goals":   goals,
			"tools":   tools,
		})
		if err != nil {
			return "", fmt.Errorf("invalid system prompt template: %w", err)
		}
		return rendered, nil
	}

	var b strings.Builder
	b.WriteString(cfg.Persona)
	if goals != "" {
		b.WriteString("\n\nYour goals:\n")
		b.WriteString(goals)
	}
	if tools != "" {
		b.WriteString("\n\nAvailable tools: ")
		b.WriteString(tools)
	}
	b.WriteString("\n\nThink step by step and use tools when necessary.")
	b.WriteString("\nTo use a tool, respond with: TOOL_CALL: tool_name(arguments)")
	return b.String(), nil
}

// buildInitialPrompt combines the task description with its context entries,
// rendered in key order so the prompt is stable across runs.
func buildInitialPrompt(task *domain.AgentTask) string {
	if len(task.Context) == 0 {
		return task.Description
	}

	keys := make([]string, 0, len(task.Context))
	for k := range task.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(task.Description)
	b.WriteString("\n\nContext:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, task.Context[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatGoals(goals []string) string {
	if len(goals) == 0 {
		return ""
	}
	lines := make([]string, 0, len(goals))
	for i, g := range goals {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, g))
	}
	return strings.Join(lines, "\n")
}
