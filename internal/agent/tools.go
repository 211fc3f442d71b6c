package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vortex-hue/forgeai/internal/service"
)

// maxFileReadBytes caps how much of a file the file_read tool returns.
const maxFileReadBytes = 64 << 10

// Tool is one named capability an agent may invoke
type Tool interface {
	Name() string
	Execute(ctx context.Context, args string) (string, error)
}

// KnowledgeSearcher runs semantic search for the knowledge_search tool
type KnowledgeSearcher interface {
	Search(ctx context.Context, input service.SearchInput) ([]service.SearchResult, error)
}

// ToolDeps carries the collaborators concrete tools need
type ToolDeps struct {
	Searcher KnowledgeSearcher
	// FileRoot confines file_read to one directory tree
	FileRoot string
}

// Registry maps tool names to implementations. It is built once per
// execution from the agent config's tool list; names without a known
// implementation resolve to a sentinel that reports unavailability instead
// of failing.
type Registry struct {
	tools map[string]Tool
}

// BuildRegistry constructs the registry for an agent config's tool names.
func BuildRegistry(names []string, deps ToolDeps) *Registry {
	tools := make(map[string]Tool, len(names))
	for _, name := range names {
		tools[name] = resolveTool(name, deps)
	}
	return &Registry{tools: tools}
}

// resolveTool is the registration table mapping known names to
// implementations.
func resolveTool(name string, deps ToolDeps) Tool {
	switch name {
	case "web_search":
		return &WebSearchTool{}
	case "file_read":
		return &FileReadTool{Root: deps.FileRoot}
	case "database_query":
		return &DatabaseQueryTool{}
	case "knowledge_search":
		return &KnowledgeSearchTool{Searcher: deps.Searcher}
	}
	return &unavailableTool{name: name}
}

// Execute invokes the named tool. Names outside the registry resolve to the
// unavailable sentinel so the agent loop receives a message, not a fault.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		tool = &unavailableTool{name: name}
	}
	return tool.Execute(ctx, args)
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// unavailableTool is the sentinel for unrecognized tool names.
type unavailableTool struct {
	name string
}

func (t *unavailableTool) Name() string { return t.name }

func (t *unavailableTool) Execute(ctx context.Context, args string) (string, error) {
	return fmt.Sprintf("Tool '%s' is not available", t.name), nil
}

// WebSearchTool is a placeholder until a search provider is wired in.
type WebSearchTool struct{}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Execute(ctx context.Context, args string) (string, error) {
	return fmt.Sprintf("Search results for '%s': no search provider is configured", args), nil
}

// FileReadTool reads a file relative to its root directory.
type FileReadTool struct {
	Root string
}

func (t *FileReadTool) Name() string { return "file_read" }

func (t *FileReadTool) Execute(ctx context.Context, args string) (string, error) {
	path := strings.TrimSpace(strings.Trim(args, `"'`))
	if path == "" {
		return "", fmt.Errorf("file_read requires a path argument")
	}

	root := t.Root
	if root == "" {
		root = "."
	}

	full := filepath.Join(root, filepath.Clean("/"+path))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) > maxFileReadBytes {
		data = data[:maxFileReadBytes]
	}
	return string(data), nil
}

// DatabaseQueryTool is a placeholder until a query surface is wired in.
type DatabaseQueryTool struct{}

func (t *DatabaseQueryTool) Name() string { return "database_query" }

func (t *DatabaseQueryTool) Execute(ctx context.Context, args string) (string, error) {
	return fmt.Sprintf("Query '%s' was not executed: no database surface is configured", args), nil
}

// KnowledgeSearchTool runs semantic search over the active knowledge base.
type KnowledgeSearchTool struct {
	Searcher KnowledgeSearcher
}

func (t *KnowledgeSearchTool) Name() string { return "knowledge_search" }

func (t *KnowledgeSearchTool) Execute(ctx context.Context, args string) (string, error) {
	query := strings.TrimSpace(strings.Trim(args, `"'`))
	if query == "" {
		return "", fmt.Errorf("knowledge_search requires a query argument")
	}
	if t.Searcher == nil {
		return "", fmt.Errorf("knowledge search is not configured")
	}

	results, err := t.Searcher.Search(ctx, service.SearchInput{Query: query})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No matching knowledge found", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, r.Content)
	}
	return b.String(), nil
}
