package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/engine"
)

func newHexCommand(sel *selection) *cobra.Command {
	cmd := newGroupCommand("hex", "Work with the Hex package manager", "")

	cmd.AddCommand(newHexRetireCommand(sel))
	cmd.AddCommand(&cobra.Command{
		Use:   "unretire <package> <version>",
		Short: "Un-retire a release from Hex",
		Long:  "Un-retire a release from Hex.\n\nHEXPM_API_KEY may hold a Hex API key to authenticate with.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.HexUnretire{Package: args[0], Version: args[1]})
		},
	})
	cmd.AddCommand(newHexRevertCommand(sel))
	cmd.AddCommand(newHexOwnerCommand(sel))
	cmd.AddCommand(&cobra.Command{
		Use:   "authenticate",
		Short: "Authenticate with Hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.HexAuthenticate{})
		},
	})

	return cmd
}

func newHexRetireCommand(sel *selection) *cobra.Command {
	return &cobra.Command{
		Use:   "retire <package> <version> <reason> [message]",
		Short: "Retire a release from Hex",
		Long: "Retire a release from Hex. The reason is one of: " + build.Join(engine.RetirementReasons) +
			".\n\nHEXPM_API_KEY may hold a Hex API key to authenticate with.",
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, err := engine.ParseRetirementReason(args[2])
			if err != nil {
				return err
			}
			retire := command.HexRetire{Package: args[0], Version: args[1], Reason: reason}
			if len(args) == 4 {
				retire.Message = args[3]
			}
			return sel.set(retire)
		},
	}
}

func newHexRevertCommand(sel *selection) *cobra.Command {
	var pkg, version string

	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Revert a release from Hex",
		Long:  "Revert a release from Hex. The package and version default to those in gleam.toml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.HexRevert{Package: pkg, Version: version})
		},
	}

	cmd.Flags().StringVar(&pkg, "package", "", "The package to revert")
	cmd.Flags().StringVar(&version, "version", "", "The version to revert")

	return cmd
}

func newHexOwnerCommand(sel *selection) *cobra.Command {
	cmd := newGroupCommand("owner", "Deal with package ownership", "")

	var newOwner string
	transfer := &cobra.Command{
		Use:   "transfer <package> --to <username>",
		Short: "Transfer ownership of a package to another Hex user",
		Long:  "Transfer ownership of a package to another Hex user. Every existing owner is removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.HexOwnerTransfer{Package: args[0], NewOwner: newOwner})
		},
	}
	transfer.Flags().StringVar(&newOwner, "to", "", "The username or email of the new owner")
	_ = transfer.MarkFlagRequired("to")

	cmd.AddCommand(transfer)
	return cmd
}
