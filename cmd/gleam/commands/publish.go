package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newPublishCommand(sel *selection) *cobra.Command {
	var replace, yes bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the project to the Hex package repository",
		Long: `Publish the project to the Hex package repository.

Please ensure your package is suitable for production use before publishing.
If you have a prototype package that you wish to use in another project then
use git dependencies instead of publishing to the package repository.

HEXPM_API_KEY may hold a Hex API key to authenticate with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Publish{Replace: replace, Yes: yes})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing release of the same version")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
