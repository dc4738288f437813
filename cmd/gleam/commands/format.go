package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newFormatCommand(sel *selection) *cobra.Command {
	var stdin, check bool

	cmd := &cobra.Command{
		Use:   "format [files...]",
		Short: "Format source code",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdin && len(args) > 0 {
				return errors.New("files cannot be given together with --stdin")
			}
			files := optionalArgs(args)
			if !stdin && len(files) == 0 {
				files = []string{"."}
			}
			return sel.set(command.Format{Files: files, Stdin: stdin, Check: check})
		},
	}

	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read source from STDIN")
	cmd.Flags().BoolVar(&check, "check", false, "Check if inputs are formatted without changing them")

	return cmd
}

func newFixCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Rewrite deprecated Gleam code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Fix{})
		},
	}
}
