package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/service"
)

// AgentCmd creates the agent command group.
func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agent configurations",
	}

	cmd.AddCommand(agentCreateCmd())
	cmd.AddCommand(agentListCmd())

	return cmd
}

func agentCreateCmd() *cobra.Command {
	var (
		persona       string
		goals         []string
		tools         []string
		systemPrompt  string
		temperature   float64
		maxIterations int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an agent configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				agent, err := a.taskSvc.CreateAgent(ctx, service.CreateAgentInput{
					Name:          args[0],
					Persona:       persona,
					Goals:         goals,
					Tools:         tools,
					SystemPrompt:  systemPrompt,
					Temperature:   temperature,
					MaxIterations: maxIterations,
				})
				if err != nil {
					return err
				}

				fmt.Printf("Created agent '%s' (id: %s, max iterations: %d)\n", agent.Name, agent.ID, agent.MaxIterations)
				if len(agent.Tools) > 0 {
					fmt.Printf("Tools: %s\n", strings.Join(agent.Tools, ", "))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&persona, "persona", "p", "", "Agent persona (required)")
	cmd.Flags().StringArrayVarP(&goals, "goal", "g", nil, "Agent goal (repeatable)")
	cmd.Flags().StringArrayVarP(&tools, "tool", "t", nil, "Tool the agent may use (repeatable)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "Custom system prompt template ({persona}, {goals}, {tools})")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature in [0, 2]")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Reason-act iteration bound")
	_ = cmd.MarkFlagRequired("persona")

	return cmd
}

func agentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agent configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				agents, err := a.taskSvc.ListAgents(ctx)
				if err != nil {
					return err
				}

				if len(agents) == 0 {
					fmt.Println("No agents found.")
					return nil
				}

				for _, agent := range agents {
					fmt.Printf("%-24s iterations=%-3d temp=%.1f tools=[%s]\n",
						agent.Name, agent.MaxIterations, agent.Temperature, strings.Join(agent.Tools, ", "))
				}
				return nil
			})
		},
	}
}
