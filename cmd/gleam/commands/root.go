package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/app"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/config"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// BuildInfo is the version information linked into the binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Execute parses args and dispatches the selected command. It returns nil
// without doing anything else when help or version output was requested.
func Execute(ctx context.Context, env *config.Environment, info BuildInfo, args []string) error {
	cmd, err := Parse(args, info, os.Stdout)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	session, err := telemetry.NewSession(telemetry.FromEnvironment(env, info.Version))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	dispatcher, err := app.NewDispatcher(env, app.Streams{Out: os.Stdout, Err: os.Stderr, In: os.Stdin})
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	return dispatcher.Dispatch(session.WithContext(ctx), cmd)
}

// Parse converts command line arguments into a Command without side effects
// beyond writing help or version text to out. Invalid input yields a usage
// error; a nil Command with a nil error means only help was shown.
func Parse(args []string, info BuildInfo, out io.Writer) (command.Command, error) {
	sel := &selection{}
	root := newRootCommand(info, sel)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	if err := root.Execute(); err != nil {
		return nil, engine.UsageError(err)
	}
	return sel.cmd, nil
}

// selection receives the command chosen by a leaf RunE.
type selection struct {
	cmd command.Command
}

func (s *selection) set(c command.Command) error {
	log.Debug().Str("command", c.Name()).Msg("Parsed command")
	s.cmd = c
	return nil
}

func newRootCommand(info BuildInfo, sel *selection) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gleam",
		Short:         "The Gleam build tool",
		Long:          "Build, test, run and publish Gleam projects.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(newBuildCommand(sel))
	rootCmd.AddCommand(newCheckCommand(sel))
	rootCmd.AddCommand(newPublishCommand(sel))
	rootCmd.AddCommand(newDocsCommand(sel))
	rootCmd.AddCommand(newDepsCommand(sel))
	rootCmd.AddCommand(newUpdateCommand(sel))
	rootCmd.AddCommand(newHexCommand(sel))
	rootCmd.AddCommand(newNewCommand(sel))
	rootCmd.AddCommand(newFormatCommand(sel))
	rootCmd.AddCommand(newFixCommand(sel))
	rootCmd.AddCommand(newShellCommand(sel))
	rootCmd.AddCommand(newRunCommand(sel))
	rootCmd.AddCommand(newTestCommand(sel))
	rootCmd.AddCommand(newDevCommand(sel))
	rootCmd.AddCommand(newCompilePackageCommand(sel))
	rootCmd.AddCommand(newPrintConfigCommand(sel))
	rootCmd.AddCommand(newAddCommand(sel))
	rootCmd.AddCommand(newRemoveCommand(sel))
	rootCmd.AddCommand(newCleanCommand(sel))
	rootCmd.AddCommand(newLanguageServerCommand(sel))
	rootCmd.AddCommand(newExportCommand(sel))

	return rootCmd
}

// newGroupCommand creates a command that only holds subcommands. Unlike a
// bare cobra parent it rejects unknown subcommands instead of printing help.
func newGroupCommand(use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
}
