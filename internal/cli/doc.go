package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/domain"
	"github.com/vortex-hue/forgeai/internal/service"
)

// DocCmd creates the doc command group.
func DocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage documents",
	}

	cmd.AddCommand(docAddCmd())
	cmd.AddCommand(docAddURLCmd())
	cmd.AddCommand(docIngestCmd())
	cmd.AddCommand(docShowCmd())
	cmd.AddCommand(docListCmd())
	cmd.AddCommand(docURLCmd())
	cmd.AddCommand(docDeleteCmd())

	return cmd
}

// resolveKnowledgeBaseID maps a --kb name (or the active knowledge base when
// empty) to its ID.
func resolveKnowledgeBaseID(ctx context.Context, a *app, name string) (string, error) {
	if name != "" {
		kb, err := a.kbSvc.GetByName(ctx, name)
		if err != nil {
			return "", err
		}
		return kb.ID, nil
	}

	active, err := a.kbRepo.ListActive(ctx)
	if err != nil {
		return "", err
	}
	switch len(active) {
	case 0:
		return "", domain.ErrNoActiveKnowledgeBase
	case 1:
		return active[0].ID, nil
	default:
		return "", fmt.Errorf("multiple active knowledge bases; specify one with --kb")
	}
}

func docAddCmd() *cobra.Command {
	var (
		kbName       string
		title        string
		file         string
		metadataJSON string
	)

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a document from inline text or a local file",
		Long:  "Adds a pending document. The serve workers pick it up for chunking and embedding.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kbID, err := resolveKnowledgeBaseID(ctx, a, kbName)
				if err != nil {
					return err
				}

				var metadata map[string]any
				if metadataJSON != "" {
					if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
						return fmt.Errorf("invalid metadata JSON: %w", err)
					}
				}

				input := service.CreateDocumentInput{
					KnowledgeBaseID: kbID,
					Title:           title,
					Metadata:        metadata,
				}

				switch {
				case file != "":
					data, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("failed to read file: %w", err)
					}
					input.SourceType = domain.SourceTypeUpload
					if input.Title == "" {
						input.Title = filepath.Base(file)
					}
					if a.s3 != nil {
						// Store the body in object storage; ingestion fetches
						// it back by file key.
						key := fmt.Sprintf("uploads/%s-%s", uuid.NewString(), filepath.Base(file))
						contentType := mime.TypeByExtension(filepath.Ext(file))
						if contentType == "" {
							contentType = "text/plain"
						}
						if err := a.s3.PutObject(ctx, key, contentType, data); err != nil {
							return fmt.Errorf("failed to upload file: %w", err)
						}
						input.FileKey = key
					} else {
						input.Content = string(data)
					}
				case len(args) == 1:
					input.Content = args[0]
					input.SourceType = domain.SourceTypeText
					if input.Title == "" {
						return fmt.Errorf("--title is required for text documents")
					}
				default:
					return fmt.Errorf("provide inline text or --file")
				}

				doc, err := a.docSvc.Create(ctx, input)
				if err != nil {
					return err
				}

				fmt.Printf("Added document '%s' (id: %s). It will be ingested by the serve workers.\n", doc.Title, doc.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kbName, "kb", "", "Knowledge base name (defaults to the active one)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read document content from a local file")
	cmd.Flags().StringVarP(&metadataJSON, "metadata", "m", "", "Document metadata as a JSON object")

	return cmd
}

func docAddURLCmd() *cobra.Command {
	var kbName string

	cmd := &cobra.Command{
		Use:   "add-url <url>",
		Short: "Add a document by fetching a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kbID, err := resolveKnowledgeBaseID(ctx, a, kbName)
				if err != nil {
					return err
				}

				doc, err := a.docSvc.CreateFromURL(ctx, kbID, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Added document '%s' (id: %s) from %s.\n", doc.Title, doc.ID, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kbName, "kb", "", "Knowledge base name (defaults to the active one)")

	return cmd
}

func docIngestCmd() *cobra.Command {
	var now bool

	cmd := &cobra.Command{
		Use:   "ingest <document-id>",
		Short: "Re-run the ingestion pipeline for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if now {
					if err := a.ingestSvc.Ingest(ctx, args[0]); err != nil {
						return err
					}
					fmt.Println("Document ingested.")
					return nil
				}

				if err := a.docSvc.Reingest(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("Document queued for re-ingestion.")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&now, "now", false, "Run the pipeline inline instead of queuing for the workers")

	return cmd
}

func docShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <document-id>",
		Short: "Show a document's ingestion state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				doc, err := a.docSvc.Get(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Title:   %s\n", doc.Title)
				fmt.Printf("Source:  %s", doc.SourceType)
				if doc.SourceURL != "" {
					fmt.Printf(" (%s)", doc.SourceURL)
				}
				fmt.Println()
				fmt.Printf("Status:  %s\n", doc.EmbeddingStatus)
				fmt.Printf("Chunks:  %d\n", doc.ChunkCount)
				if doc.Error != "" {
					fmt.Printf("Error:   %s\n", doc.Error)
				}
				if len(doc.Metadata) > 0 {
					metadata, _ := json.Marshal(doc.Metadata)
					fmt.Printf("Metadata: %s\n", metadata)
				}
				return nil
			})
		},
	}
}

func docListCmd() *cobra.Command {
	var kbName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in a knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				kbID, err := resolveKnowledgeBaseID(ctx, a, kbName)
				if err != nil {
					return err
				}

				docs, err := a.docSvc.List(ctx, kbID)
				if err != nil {
					return err
				}

				if len(docs) == 0 {
					fmt.Println("No documents found.")
					return nil
				}

				for _, doc := range docs {
					fmt.Printf("%s  %-10s chunks=%-4d %s\n", doc.ID, doc.EmbeddingStatus, doc.ChunkCount, doc.Title)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kbName, "kb", "", "Knowledge base name (defaults to the active one)")

	return cmd
}

func docURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <document-id>",
		Short: "Print a presigned download URL for an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				doc, err := a.docSvc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if doc.FileKey == "" {
					return fmt.Errorf("document %s has no stored file", doc.ID)
				}
				if a.s3 == nil {
					return fmt.Errorf("object storage is not configured")
				}

				url, err := a.s3.GenerateDownloadURL(ctx, doc.FileKey)
				if err != nil {
					return err
				}
				fmt.Println(url)
				return nil
			})
		},
	}
}

func docDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document, its chunks and its vector entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				doc, err := a.docSvc.Get(ctx, args[0])
				if err != nil {
					return err
				}

				if err := a.docSvc.Delete(ctx, doc.ID); err != nil {
					return err
				}

				if doc.FileKey != "" && a.s3 != nil {
					if err := a.s3.DeleteObject(ctx, doc.FileKey); err != nil {
						fmt.Printf("Warning: stored file %s was not removed: %v\n", doc.FileKey, err)
					}
				}

				fmt.Println("Document deleted.")
				return nil
			})
		},
	}
}
