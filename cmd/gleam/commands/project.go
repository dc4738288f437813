package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newAddCommand(sel *selection) *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "add <packages...>",
		Short: "Add new project dependencies",
		Long:  "Add new project dependencies. A version may be given as package@version.",
		Example: `  gleam add gleam_json
  gleam add gleeunit@1 --dev`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Add{Packages: args, Dev: dev})
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Add the packages as dev-only dependencies")

	return cmd
}

func newRemoveCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <packages...>",
		Short: "Remove project dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Remove{Packages: args})
		},
	}
}

func newCleanCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean build artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Clean{})
		},
	}
}

func newShellCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an Erlang shell with the project code loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Shell{})
		},
	}
}

func newLanguageServerCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server, to be used by editors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.LanguageServer{})
		},
	}
}

func newPrintConfigCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:    "print-config",
		Short:  "Read and print gleam.toml for debugging",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.PrintConfig{})
		},
	}
}
