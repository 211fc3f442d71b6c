package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/agent"
	"github.com/vortex-hue/forgeai/internal/domain"
)

// TaskCmd creates the task command group.
func TaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage agent tasks",
	}

	cmd.AddCommand(taskRunCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskCancelCmd())
	cmd.AddCommand(taskLogsCmd())

	return cmd
}

func taskRunCmd() *cobra.Command {
	var (
		agentName   string
		contextJSON string
		wait        bool
	)

	cmd := &cobra.Command{
		Use:   "run <description>",
		Short: "Submit a task for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				var taskContext map[string]any
				if contextJSON != "" {
					if err := json.Unmarshal([]byte(contextJSON), &taskContext); err != nil {
						return fmt.Errorf("invalid context JSON: %w", err)
					}
				}

				task, err := a.taskSvc.CreateTask(ctx, agentName, args[0], taskContext)
				if err != nil {
					return err
				}

				if !wait {
					fmt.Printf("Task %s queued. The serve workers will execute it.\n", task.ID)
					return nil
				}

				cfg, err := a.agentRepo.GetByID(ctx, task.AgentConfigID)
				if err != nil {
					return err
				}

				orchestrator := agent.NewOrchestrator(a.llmClient, a.taskRepo, a.logRepo, agent.ToolDeps{
					Searcher: a.searchSvc,
				})

				runCtx, cancel := context.WithTimeout(ctx, a.cfg.AgentTimeout)
				defer cancel()

				result, err := orchestrator.Execute(runCtx, task, cfg)
				if err != nil {
					return err
				}

				fmt.Println(result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Agent name (required)")
	cmd.Flags().StringVarP(&contextJSON, "context", "c", "", "Task context as a JSON object")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Execute inline and print the result")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task's state and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				task, err := a.taskSvc.Get(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Status:     %s\n", task.Status)
				fmt.Printf("Iterations: %d\n", task.IterationsUsed)
				if domain.IsTerminalTaskStatus(task.Status) && task.CompletedAt != nil {
					fmt.Printf("Finished:   %s\n", task.CompletedAt.Format(time.RFC3339))
				}
				if task.Result != "" {
					fmt.Printf("Result:\n%s\n", task.Result)
				}
				if task.Error != "" {
					fmt.Printf("Error: %s\n", task.Error)
				}
				return nil
			})
		},
	}
}

func taskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a pending or running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.taskSvc.Cancel(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("Task cancelled. A running execution exits at its next iteration.")
				return nil
			})
		},
	}
}

func taskLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <task-id>",
		Short: "Show a task's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				logs, err := a.taskSvc.Logs(ctx, args[0])
				if err != nil {
					return err
				}

				if len(logs) == 0 {
					fmt.Println("No log entries found.")
					return nil
				}

				for _, l := range logs {
					fmt.Printf("[%d] %s\n%s\n\n", l.Iteration, l.Action, l.Observation)
				}
				return nil
			})
		},
	}
}
