package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
)

func newCompilePackageCommand(sel *selection) *cobra.Command {
	var (
		req    command.CompilePackage
		target build.Target
	)

	cmd := &cobra.Command{
		Use:   "compile-package",
		Short: "A low-level API for compiling a single Gleam package",
		Long: `A low-level API for compiling a single Gleam package.

This is to be used by other build tools to implement support for Gleam code.
It is not used directly by humans.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Target = target
			return sel.set(req)
		},
	}

	cmd.Flags().Var(&target, "target", "The compilation target for the generated project ("+build.Join(build.Targets)+")")
	cmd.Flags().StringVar(&req.PackageDirectory, "package", "", "The directory of the Gleam package")
	cmd.Flags().StringVar(&req.OutputDirectory, "out", "", "A directory to write compiled package to")
	cmd.Flags().StringVar(&req.LibDirectory, "lib", "", "A directory of precompiled Gleam projects")
	cmd.Flags().StringVar(&req.JavaScriptPrelude, "javascript-prelude", "", "The location of the JavaScript prelude module, relative to the `out` directory")
	cmd.Flags().BoolVar(&req.SkipBeam, "no-beam", false, "Skip Erlang to BEAM bytecode compilation if given")
	for _, name := range []string{"target", "package", "out", "lib"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
