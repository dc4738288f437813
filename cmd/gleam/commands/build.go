package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
)

func newBuildCommand(sel *selection) *cobra.Command {
	var (
		target           *build.Target
		warningsAsErrors bool
		noPrintProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Build{
				Target:           target,
				WarningsAsErrors: warningsAsErrors,
				NoPrintProgress:  noPrintProgress,
			})
		},
	}

	cmd.Flags().BoolVar(&warningsAsErrors, "warnings-as-errors", false, "Consider the build failed if the package contains any warnings")
	addTargetFlag(cmd.Flags(), &target)
	cmd.Flags().BoolVar(&noPrintProgress, "no-print-progress", false, "Don't print progress information")

	return cmd
}

func newCheckCommand(sel *selection) *cobra.Command {
	var target *build.Target

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Type check the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Check{Target: target})
		},
	}

	addTargetFlag(cmd.Flags(), &target)

	return cmd
}
