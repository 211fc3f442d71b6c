package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of an agent task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// AgentTask represents one unit of agent work and its outcome
type AgentTask struct {
	ID             string
	AgentConfigID  string
	Description    string
	Context        map[string]any
	Status         TaskStatus
	Result         string
	Error          string
	IterationsUsed int
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// AgentTaskLog is one append-only audit entry for a task iteration
type AgentTaskLog struct {
	ID          string
	TaskID      string
	Iteration   int
	Action      string
	Observation string
	CreatedAt   time.Time
}

// NewAgentTask creates a new AgentTask in the pending state
func NewAgentTask(id, agentConfigID, description string, taskContext map[string]any, createdAt time.Time) *AgentTask {
	if taskContext == nil {
		taskContext = map[string]any{}
	}
	return &AgentTask{
		ID:            id,
		AgentConfigID: agentConfigID,
		Description:   description,
		Context:       taskContext,
		Status:        TaskStatusPending,
		CreatedAt:     createdAt,
	}
}

// ValidateAgentTask validates an AgentTask instance
func ValidateAgentTask(t *AgentTask) error {
	if t == nil {
		return fmt.Errorf("agent task cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("agent task ID is required")
	}

	if t.AgentConfigID == "" {
		return fmt.Errorf("agent task AgentConfigID is required")
	}

	if t.Description == "" {
		return fmt.Errorf("agent task Description is required")
	}

	if !isValidTaskStatus(t.Status) {
		return fmt.Errorf("agent task Status is invalid: %s", t.Status)
	}

	return nil
}

// CanTransitionTaskStatus reports whether a task status transition is legal.
// Status moves forward only; terminal states never change.
func CanTransitionTaskStatus(from, to TaskStatus) bool {
	switch from {
	case TaskStatusPending:
		return to == TaskStatusRunning || to == TaskStatusCancelled
	case TaskStatusRunning:
		return to == TaskStatusCompleted || to == TaskStatusFailed || to == TaskStatusCancelled
	}
	return false
}

// IsTerminalTaskStatus reports whether a status is terminal
func IsTerminalTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// isValidTaskStatus checks if a TaskStatus is valid
func isValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}
