package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/service"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		kbName     string
		topK       int
		filterJSON string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a knowledge base",
		Long:  "Runs semantic search over a knowledge base and prints the closest chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				var filter map[string]any
				if filterJSON != "" {
					if err := json.Unmarshal([]byte(filterJSON), &filter); err != nil {
						return fmt.Errorf("invalid filter JSON: %w", err)
					}
				}

				results, err := a.searchSvc.Search(ctx, service.SearchInput{
					KnowledgeBase: kbName,
					Query:         args[0],
					TopK:          topK,
					Filter:        filter,
				})
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}

				if len(results) == 0 {
					fmt.Println("No results found.")
					return nil
				}

				fmt.Printf("Found %d results:\n\n", len(results))
				for i, r := range results {
					fmt.Printf("%d. %s (distance %.4f)\n", i+1, r.ID, r.Distance)
					content := r.Content
					if len(content) > 200 {
						content = content[:197] + "..."
					}
					fmt.Printf("   %s\n", content)
					if i < len(results)-1 {
						fmt.Println(strings.Repeat("-", 40))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kbName, "kb", "", "Knowledge base name (defaults to the active one)")
	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum number of results")
	cmd.Flags().StringVar(&filterJSON, "filter", "", "Metadata equality filter as a JSON object")

	return cmd
}
