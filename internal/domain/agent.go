package domain

import (
	"fmt"
	"time"
)

// AgentConfig represents a configured agent persona with goals, tools and
// sampling parameters.
type AgentConfig struct {
	ID            string
	Name          string
	Persona       string
	Goals         []string
	Tools         []string
	SystemPrompt  string
	Temperature   float64
	MaxIterations int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAgentConfig creates a new AgentConfig instance
func NewAgentConfig(id, name, persona string, goals, tools []string, createdAt time.Time) *AgentConfig {
	return &AgentConfig{
		ID:            id,
		Name:          name,
		Persona:       persona,
		Goals:         goals,
		Tools:         tools,
		Temperature:   0.7,
		MaxIterations: 5,
		IsActive:      true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// ValidateAgentConfig validates an AgentConfig instance
func ValidateAgentConfig(a *AgentConfig) error {
	if a == nil {
		return fmt.Errorf("agent config cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("agent config ID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("agent config Name is required")
	}

	if a.Persona == "" {
		return fmt.Errorf("agent config Persona is required")
	}

	if a.Temperature < 0.0 || a.Temperature > 2.0 {
		return ErrInvalidTemperature
	}

	if a.MaxIterations < 1 {
		return ErrInvalidMaxIterations
	}

	return nil
}
