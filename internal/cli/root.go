// Package cli wires the forged command tree. Commands talk to the service
// layer directly; there is no HTTP surface.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd builds the forged command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forged",
		Short: "Forge AI engine - document ingestion and agent orchestration",
		Long: `Forge AI engine: ingest documents into searchable knowledge bases and
run configurable agents over them.

Environment variables use the FORGE_ prefix; FORGE_DATABASE_URL is required.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(KnowledgeBaseCmd())
	rootCmd.AddCommand(DocCmd())
	rootCmd.AddCommand(SearchCmd())
	rootCmd.AddCommand(AgentCmd())
	rootCmd.AddCommand(TaskCmd())
	rootCmd.AddCommand(SchemaCmd(rootCmd))

	return rootCmd
}
