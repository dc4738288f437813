package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newDepsCommand(sel *selection) *cobra.Command {
	cmd := newGroupCommand("deps", "Work with dependency packages",
		`The packages and the acceptable version ranges are specified in gleam.toml.
Once versions have been selected they are written to manifest.toml, which
locks the package to those versions. Use "gleam update" to select the newest
versions compatible with the requirements.`)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all dependency packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DepsList{})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "download",
		Short: "Download all dependency packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DepsDownload{})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "outdated",
		Short: "List all outdated dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DepsOutdated{})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update [packages...]",
		Short: "Update dependency packages to their latest versions",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DepsUpdate{Packages: optionalArgs(args)})
		},
	})
	cmd.AddCommand(newDepsTreeCommand(sel))

	return cmd
}

func newDepsTreeCommand(sel *selection) *cobra.Command {
	var pkg, invert string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Tree of all the dependency packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DepsTree{Package: pkg, Invert: invert})
		},
	}

	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Package to be used as the root of the tree")
	cmd.Flags().StringVarP(&invert, "invert", "i", "", "Invert the tree direction and focus on the given package")
	cmd.MarkFlagsMutuallyExclusive("package", "invert")

	return cmd
}

func newUpdateCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "update [packages...]",
		Short: "Update dependency packages to their latest versions",
		Long:  "Update the named packages, or every dependency when none are named.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.Update{Packages: optionalArgs(args)})
		},
	}
}
