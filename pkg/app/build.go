package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

func (d *Dispatcher) build(ctx context.Context, paths project.Paths, c command.Build) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(c.Target, cfg.Target)

	opts := build.BuildOptions(&target, c.WarningsAsErrors, c.NoPrintProgress)
	_, err = d.pipeline.Execute(ctx, paths, opts, d.progress(c.NoPrintProgress), nil)
	return err
}

func (d *Dispatcher) check(ctx context.Context, paths project.Paths, c command.Check) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(c.Target, cfg.Target)

	_, err = d.pipeline.Execute(ctx, paths, build.CheckOptions(&target), d.progress(false), nil)
	return err
}

// runEntrypoint compiles the project and runs the main function selected by
// which, or by module when given.
func (d *Dispatcher) runEntrypoint(ctx context.Context, paths project.Paths, flags command.EntrypointFlags, which build.Which, module string, noPrintProgress bool) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}

	target := build.ResolveTarget(flags.Target, cfg.Target)
	rt, err := build.ResolveRuntime(flags.Runtime, cfg.JavaScript.Runtime, target)
	if err != nil {
		return engine.UsageError(err)
	}

	if module == "" {
		module = cfg.Name + which.ModuleSuffix()
	}

	tel := d.progress(noPrintProgress)
	_, err = d.pipeline.Execute(ctx, paths, build.EntrypointOptions(&target, noPrintProgress), tel, &engine.Action{
		Name: "run",
		Run: func(ctx context.Context, _ *engine.Output) error {
			tel.Running(module + ".main")
			return d.c.Runner.Run(ctx, paths, engine.RunRequest{
				Args:    flags.Arguments,
				Target:  target,
				Runtime: rt,
				Module:  module,
				Which:   which,
				Quiet:   noPrintProgress,
			})
		},
	})
	return err
}

func (d *Dispatcher) shell(ctx context.Context, paths project.Paths) error {
	_, err := d.pipeline.Execute(ctx, paths, build.ShellOptions(), d.progress(false), &engine.Action{
		Name: "shell",
		Run: func(ctx context.Context, out *engine.Output) error {
			return d.c.Runner.Shell(ctx, paths, out.Artifacts)
		},
	})
	return err
}

func (d *Dispatcher) printConfig(paths project.Paths) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(d.streams.Out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to print config", err)
	}
	return enc.Close()
}

func openBrowser(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", abs)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", abs)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", abs)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
