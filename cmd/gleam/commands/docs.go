package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
)

func newDocsCommand(sel *selection) *cobra.Command {
	cmd := newGroupCommand("docs", "Render HTML documentation for the package",
		`Several options in gleam.toml configure the output:

   repository = { type = "github", user = "lpil", repo = "wibble" }
   links = [{ title = "Home page", href = "https://example.com" }]

   [documentation]
   pages = [{ title = "My Page", path = "my-page.html", source = "./my-page.md" }]`)

	cmd.AddCommand(newDocsBuildCommand(sel))
	cmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Publish HTML documentation to HexDocs",
		Long:  "Publish HTML documentation to HexDocs for the current version.\n\nHEXPM_API_KEY may hold a Hex API key to authenticate with.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DocsPublish{})
		},
	})
	cmd.AddCommand(newDocsRemoveCommand(sel))

	return cmd
}

func newDocsBuildCommand(sel *selection) *cobra.Command {
	var (
		open   bool
		target *build.Target
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render HTML docs locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DocsBuild{Open: open, Target: target})
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "Opens the docs in a browser after rendering")
	addTargetFlag(cmd.Flags(), &target)

	return cmd
}

func newDocsRemoveCommand(sel *selection) *cobra.Command {
	var pkg, version string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove HTML documentation from HexDocs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.DocsRemove{Package: pkg, Version: version})
		},
	}

	cmd.Flags().StringVar(&pkg, "package", "", "The name of the package")
	cmd.Flags().StringVar(&version, "version", "", "The version of the docs to remove")
	_ = cmd.MarkFlagRequired("package")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}
