package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagSchema describes one flag of a command in the machine-readable
// command tree emitted by `forged schema`.
type flagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

type commandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Flags       []flagSchema    `json:"flags,omitempty"`
	Subcommands []commandSchema `json:"subcommands,omitempty"`
}

// SchemaCmd returns the hidden schema command. It prints the full forged
// command tree as JSON so wrappers and shell tooling can discover
// commands and flags without parsing help text.
func SchemaCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "schema [command...]",
		Short:  "Print the command tree as JSON",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := descend(root, args)
			out, err := json.MarshalIndent(describeCommand(target), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
}

func describeCommand(cmd *cobra.Command) commandSchema {
	s := commandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		s.Flags = append(s.Flags, flagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		s.Subcommands = append(s.Subcommands, describeCommand(sub))
	}

	return s
}

// descend follows a command path like ["doc", "add"] from root, stopping
// at the deepest command that matches.
func descend(cmd *cobra.Command, path []string) *cobra.Command {
	if len(path) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == path[0] || sub.HasAlias(path[0]) {
			return descend(sub, path[1:])
		}
	}
	return cmd
}
