package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/service"
)

// KnowledgeBaseCmd creates the kb command group.
func KnowledgeBaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases",
	}

	cmd.AddCommand(kbCreateCmd())
	cmd.AddCommand(kbListCmd())
	cmd.AddCommand(kbInfoCmd())
	cmd.AddCommand(kbActivateCmd())

	return cmd
}

func kbCreateCmd() *cobra.Command {
	var (
		backend    string
		collection string
		activate   bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kb, err := a.kbSvc.Create(ctx, service.CreateKnowledgeBaseInput{
					Name:       args[0],
					Backend:    domain.VectorBackend(backend),
					Collection: collection,
					Activate:   activate,
				})
				if err != nil {
					return err
				}

				fmt.Printf("Created knowledge base '%s' (id: %s, backend: %s, collection: %s)\n",
					kb.Name, kb.ID, kb.VectorBackend, kb.Collection)
				if kb.IsActive {
					fmt.Println("Knowledge base is now active.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&backend, "backend", "b", "sqlite", "Vector backend: sqlite, milvus or pgvector")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name (defaults to the knowledge base name)")
	cmd.Flags().BoolVar(&activate, "activate", false, "Activate the knowledge base after creation")

	return cmd
}

func kbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kbs, err := a.kbSvc.List(ctx)
				if err != nil {
					return err
				}

				if len(kbs) == 0 {
					fmt.Println("No knowledge bases found.")
					return nil
				}

				for _, kb := range kbs {
					marker := " "
					if kb.IsActive {
						marker = "*"
					}
					fmt.Printf("%s %-24s backend=%-8s collection=%s\n", marker, kb.Name, kb.VectorBackend, kb.Collection)
				}
				return nil
			})
		},
	}
}

func kbInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a knowledge base and its vector collection size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kb, err := a.kbSvc.GetByName(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Name:       %s\n", kb.Name)
				fmt.Printf("Backend:    %s\n", kb.VectorBackend)
				fmt.Printf("Collection: %s\n", kb.Collection)
				fmt.Printf("Active:     %t\n", kb.IsActive)

				store, err := a.stores.Open(ctx, kb.VectorBackend, kb.Collection)
				if err != nil {
					return err
				}
				defer store.Close(ctx)

				info, err := store.CollectionInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Vectors:    %d\n", info.Count)
				return nil
			})
		},
	}
}

func kbActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <name>",
		Short: "Make a knowledge base the active one for its backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kb, err := a.kbSvc.Activate(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Knowledge base '%s' is now active for backend %s.\n", kb.Name, kb.VectorBackend)
				return nil
			})
		},
	}
}
