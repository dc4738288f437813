package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/command"
)

func newExportCommand(sel *selection) *cobra.Command {
	cmd := newGroupCommand("export", "Export something useful from the Gleam project", "")

	leaf := func(use, short string, c command.Command) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sel.set(c)
			},
		}
	}

	cmd.AddCommand(leaf("erlang-shipment", "Precompiled Erlang, suitable for deployment", command.ExportErlangShipment{}))
	cmd.AddCommand(leaf("hex-tarball", "The package bundled into a tarball, suitable for publishing to Hex", command.ExportHexTarball{}))
	cmd.AddCommand(leaf("javascript-prelude", "The JavaScript prelude module", command.ExportJavaScriptPrelude{}))
	cmd.AddCommand(leaf("typescript-prelude", "The TypeScript prelude module", command.ExportTypeScriptPrelude{}))
	cmd.AddCommand(newExportOutCommand(sel, "package-interface",
		"Information on the modules, functions, and types in the project in JSON format",
		func(out string) command.Command { return command.ExportPackageInterface{Output: out} }))
	cmd.AddCommand(newExportOutCommand(sel, "package-information",
		"Package information (gleam.toml) in JSON format",
		func(out string) command.Command { return command.ExportPackageInformation{Output: out} }))

	return cmd
}

func newExportOutCommand(sel *selection, use, short string, build func(out string) command.Command) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(build(out))
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "The path to write the JSON file to")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
