// Package runner executes the main function of a compiled module on the
// Erlang virtual machine or a JavaScript runtime.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

const stage = "run"

// Config configures the runner. Empty executables default to erl, node, deno
// and bun.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	Erlang string
	Node   string
	Deno   string
	Bun    string
}

// Runner implements engine.EntrypointRunner.
type Runner struct {
	cfg    Config
	logger zerolog.Logger
}

var _ engine.EntrypointRunner = (*Runner)(nil)

// New creates a runner.
func New(cfg Config) *Runner {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Erlang == "" {
		cfg.Erlang = "erl"
	}
	if cfg.Node == "" {
		cfg.Node = "node"
	}
	if cfg.Deno == "" {
		cfg.Deno = "deno"
	}
	if cfg.Bun == "" {
		cfg.Bun = "bun"
	}
	return &Runner{cfg: cfg, logger: telemetry.Component("runner")}
}

// Run executes the main function of the requested module, forwarding
// req.Args to the program unchanged.
func (r *Runner) Run(ctx context.Context, paths project.Paths, req engine.RunRequest) error {
	module := req.Module
	if module == "" {
		cfg, err := project.LoadConfig(paths)
		if err != nil {
			return engine.NewError(engine.ErrorKindProject, "", err)
		}
		module = cfg.Name + req.Which.ModuleSuffix()
	}

	if err := findModule(paths, req.Which, module); err != nil {
		return err
	}

	var (
		name string
		args []string
		err  error
	)
	switch req.Target {
	case build.TargetJavaScript:
		name, args, err = r.javascriptCommand(paths, module, req)
	default:
		name, args, err = r.erlangCommand(paths, module, req.Args)
	}
	if err != nil {
		return err
	}

	if !req.Quiet {
		r.logger.Info().Str("module", module).Str("target", req.Target.String()).Msg("Running")
	}
	return r.exec(ctx, name, args)
}

// Shell starts an interactive Erlang shell with every compiled package on the
// code path.
func (r *Runner) Shell(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) error {
	dir := paths.BuildDirectoryForTarget(build.ModeDev, build.TargetErlang)
	if artifacts != nil && artifacts.Directory != "" {
		dir = artifacts.Directory
	}

	ebins, err := ebinDirectories(dir)
	if err != nil {
		return err
	}
	args := make([]string, 0, 2*len(ebins))
	for _, ebin := range ebins {
		args = append(args, "-pa", ebin)
	}
	return r.exec(ctx, r.cfg.Erlang, args)
}

func (r *Runner) erlangCommand(paths project.Paths, module string, forwarded []string) (string, []string, error) {
	ebins, err := ebinDirectories(paths.BuildDirectoryForTarget(build.ModeDev, build.TargetErlang))
	if err != nil {
		return "", nil, err
	}

	var args []string
	for _, ebin := range ebins {
		args = append(args, "-pa", ebin)
	}
	args = append(args,
		"-eval", fmt.Sprintf("gleam@@main:run(%s)", ErlangModuleName(module)),
		"-noshell",
		"-extra",
	)
	args = append(args, forwarded...)
	return r.cfg.Erlang, args, nil
}

func (r *Runner) javascriptCommand(paths project.Paths, module string, req engine.RunRequest) (string, []string, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return "", nil, engine.NewError(engine.ErrorKindProject, "", err)
	}

	dir := paths.BuildDirectoryForPackage(build.ModeDev, build.TargetJavaScript, cfg.Name)
	entry := filepath.Join(dir, "gleam.main.mjs")
	script := fmt.Sprintf("import { main } from \"./%s.mjs\";\nmain();\n", module)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, runtimeError("failed to create "+dir, err)
	}
	if err := os.WriteFile(entry, []byte(script), 0o644); err != nil {
		return "", nil, runtimeError("failed to write JavaScript entry point", err)
	}

	var name string
	var args []string
	switch req.Runtime {
	case build.RuntimeDeno:
		name = r.cfg.Deno
		args = []string{"run", "--allow-all", "--unstable", entry}
	case build.RuntimeBun:
		name = r.cfg.Bun
		args = []string{"run", entry}
	default:
		name = r.cfg.Node
		args = []string{"--enable-source-maps", entry}
	}
	return name, append(args, req.Args...), nil
}

func (r *Runner) exec(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.cfg.Stdin
	cmd.Stdout = r.cfg.Stdout
	cmd.Stderr = r.cfg.Stderr

	r.logger.Debug().Str("executable", name).Strs("args", args).Msg("Starting program")
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return runtimeError(fmt.Sprintf("program exited with status %d", exitErr.ExitCode()), err)
	}
	return runtimeError(fmt.Sprintf("failed to start %s", name), err).
		WithHint(fmt.Sprintf("Ensure %s is installed and on your PATH.", name))
}

// findModule confirms the entry module exists. Modules are looked for in the
// directory of which first, then in the other source directories.
func findModule(paths project.Paths, which build.Which, module string) error {
	dirs := []string{which.Directory()}
	for _, w := range build.Whiches {
		if w != which {
			dirs = append(dirs, w.Directory())
		}
	}

	for _, dir := range dirs {
		file := filepath.Join(paths.Root(), dir, filepath.FromSlash(module)+".gleam")
		if _, err := os.Stat(file); err == nil {
			return nil
		}
	}

	expected := filepath.Join(which.Directory(), filepath.FromSlash(module)+".gleam")
	return engine.StageError(engine.ErrorKindRuntime, stage,
		fmt.Sprintf("%s entry point module %s was not found", which, module), nil).
		WithHint(fmt.Sprintf("Create %s with a public main function.", expected))
}

// ErlangModuleName converts a Gleam module path to its Erlang module name.
func ErlangModuleName(module string) string {
	return strings.ReplaceAll(module, "/", "@")
}

func ebinDirectories(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*", "ebin"))
	if err != nil {
		return nil, runtimeError("failed to list compiled packages", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func runtimeError(message string, err error) *engine.Error {
	return engine.StageError(engine.ErrorKindRuntime, stage, message, err)
}
