package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newRunCommand(sel *selection) *cobra.Command {
	var (
		flags           command.EntrypointFlags
		module          string
		noPrintProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] [arguments...]",
		Short: "Run the project",
		Long:  "Run the main function of the <PROJECT_NAME> module, or of --module when given.",
		Example: `  # Run the project on the JavaScript target with Deno
  gleam run --target javascript --runtime deno

  # Everything after the first argument is passed to the program
  gleam run -- --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := completeEntrypointFlags(&flags, args); err != nil {
				return err
			}
			return sel.set(command.Run{
				EntrypointFlags: flags,
				Module:          module,
				NoPrintProgress: noPrintProgress,
			})
		},
	}

	bindEntrypointFlags(cmd, &flags)
	cmd.Flags().StringVarP(&module, "module", "m", "", "The module to run")
	cmd.Flags().BoolVar(&noPrintProgress, "no-print-progress", false, "Don't print progress information")

	return cmd
}

func newTestCommand(sel *selection) *cobra.Command {
	var flags command.EntrypointFlags

	cmd := &cobra.Command{
		Use:   "test [flags] [arguments...]",
		Short: "Run the project tests",
		Long:  "Run the main function of the <PROJECT_NAME>_test module.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := completeEntrypointFlags(&flags, args); err != nil {
				return err
			}
			return sel.set(command.Test{EntrypointFlags: flags})
		},
	}

	bindEntrypointFlags(cmd, &flags)

	return cmd
}

func newDevCommand(sel *selection) *cobra.Command {
	var flags command.EntrypointFlags

	cmd := &cobra.Command{
		Use:   "dev [flags] [arguments...]",
		Short: "Run the project development entrypoint",
		Long:  "Run the main function of the <PROJECT_NAME>_dev module.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := completeEntrypointFlags(&flags, args); err != nil {
				return err
			}
			return sel.set(command.Dev{EntrypointFlags: flags})
		},
	}

	bindEntrypointFlags(cmd, &flags)

	return cmd
}
