package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
)

// optionalFlag is an enumerated flag whose absence is distinguishable from
// any value.
type optionalFlag[T fmt.Stringer] struct {
	dst      **T
	parse    func(string) (T, error)
	typeName string
}

func (f *optionalFlag[T]) Set(s string) error {
	v, err := f.parse(s)
	if err != nil {
		return err
	}
	*f.dst = &v
	return nil
}

func (f *optionalFlag[T]) String() string {
	if *f.dst == nil {
		return ""
	}
	return (**f.dst).String()
}

func (f *optionalFlag[T]) Type() string {
	return f.typeName
}

var _ pflag.Value = (*optionalFlag[build.Target])(nil)

func addTargetFlag(fs *pflag.FlagSet, dst **build.Target) {
	fs.VarP(&optionalFlag[build.Target]{dst: dst, parse: build.ParseTarget, typeName: "target"},
		"target", "t", "Which compilation target to use ("+build.Join(build.Targets)+")")
}

func addRuntimeFlag(fs *pflag.FlagSet, dst **build.Runtime) {
	fs.Var(&optionalFlag[build.Runtime]{dst: dst, parse: build.ParseRuntime, typeName: "runtime"},
		"runtime", "Which JavaScript runtime to use ("+build.Join(build.Runtimes)+")")
}

// bindEntrypointFlags registers the flags shared by run, test and dev and
// configures cmd to forward everything after the first argument untouched.
func bindEntrypointFlags(cmd *cobra.Command, flags *command.EntrypointFlags) {
	addTargetFlag(cmd.Flags(), &flags.Target)
	addRuntimeFlag(cmd.Flags(), &flags.Runtime)
	cmd.Flags().SetInterspersed(false)
	cmd.Args = cobra.ArbitraryArgs
}

// optionalArgs returns nil for an empty argument list, so that "no
// arguments" has a single representation in a Command.
func optionalArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return append([]string{}, args...)
}

// completeEntrypointFlags records the forwarded arguments and rejects a
// runtime given together with a target that cannot use it.
func completeEntrypointFlags(flags *command.EntrypointFlags, args []string) error {
	flags.Arguments = append([]string{}, args...)
	if flags.Runtime != nil && flags.Target != nil && !flags.Runtime.CompatibleWith(*flags.Target) {
		return fmt.Errorf("the --runtime flag cannot be used with the %s target", *flags.Target)
	}
	return nil
}
