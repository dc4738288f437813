// Package backend drives the compiler backend executable. Every operation
// that needs the Gleam compiler itself (type checking, code generation,
// formatting, documentation and the language server) is delegated to it over
// a small command line protocol.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/export"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// Config configures the backend.
type Config struct {
	// Executable is the backend program, looked up on PATH when not a path.
	Executable string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// Backend implements the engine collaborators backed by the compiler.
type Backend struct {
	cfg    Config
	logger zerolog.Logger
}

var (
	_ engine.Compiler        = (*Backend)(nil)
	_ engine.Formatter       = (*Backend)(nil)
	_ engine.Fixer           = (*Backend)(nil)
	_ engine.LanguageServer  = (*Backend)(nil)
	_ engine.PackageCompiler = (*Backend)(nil)
	_ export.Compiler        = (*Backend)(nil)
)

// New creates a backend. Unset streams default to the process streams.
func New(cfg Config) *Backend {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	return &Backend{cfg: cfg, logger: telemetry.Component("backend")}
}

// report is what the backend prints on stdout after compiling.
type report struct {
	Warnings int `json:"warnings"`
}

// Compile compiles the project against the locked manifest, which is passed
// to the backend on stdin.
func (b *Backend) Compile(ctx context.Context, paths project.Paths, opts build.Options, manifest *engine.Manifest) (*engine.Artifacts, error) {
	target := opts.TargetOr("")
	if target == "" {
		cfg, err := project.LoadConfig(paths)
		if err != nil {
			return nil, engine.NewError(engine.ErrorKindProject, "", err)
		}
		target = cfg.Target
	}

	args := []string{
		"compile",
		"--root", paths.Root(),
		"--mode", opts.Mode.String(),
		"--target", target.String(),
		"--codegen", opts.Codegen.String(),
		"--compile", opts.Compile.String(),
		"--target-support", opts.RootTargetSupport.String(),
	}
	if opts.WarningsAsErrors {
		args = append(args, "--warnings-as-errors")
	}
	if opts.NoPrintProgress {
		args = append(args, "--no-print-progress")
	}

	var stdin bytes.Buffer
	if manifest != nil {
		if err := toml.NewEncoder(&stdin).Encode(manifest); err != nil {
			return nil, engine.StageError(engine.ErrorKindCompile, engine.StageCompile, "failed to encode manifest", err)
		}
	}

	var stdout bytes.Buffer
	b.logger.Debug().Str("options", opts.String()).Msg("Compiling")
	if err := b.run(ctx, args, &stdin, &stdout, b.cfg.Stderr); err != nil {
		return nil, backendError(engine.StageCompile, "compilation failed", err)
	}

	var rep report
	if out := bytes.TrimSpace(stdout.Bytes()); len(out) > 0 {
		if err := json.Unmarshal(lastLine(out), &rep); err != nil {
			return nil, backendError(engine.StageCompile, "the compiler backend returned an invalid report", err)
		}
	}

	return &engine.Artifacts{
		Directory: paths.BuildDirectoryForTarget(opts.Mode, target),
		Target:    target,
		Mode:      opts.Mode,
		Warnings:  rep.Warnings,
	}, nil
}

// Format formats files in place, checks them, or formats stdin to stdout.
func (b *Backend) Format(ctx context.Context, req engine.FormatRequest) error {
	args := []string{"format"}
	if req.Stdin {
		args = append(args, "--stdin")
	}
	if req.Check {
		args = append(args, "--check")
	}
	args = append(args, req.Files...)

	if err := b.run(ctx, args, b.cfg.Stdin, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		if req.Check && exitCode(err) == 1 {
			return engine.NewError(engine.ErrorKindCompile, "some files are not formatted", nil).
				WithHint("Run `gleam format` to format them.")
		}
		return backendError("", "formatting failed", err)
	}
	return nil
}

// Fix rewrites deprecated syntax in the project's sources.
func (b *Backend) Fix(ctx context.Context, paths project.Paths) error {
	if err := b.run(ctx, []string{"fix", "--root", paths.Root()}, nil, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		return backendError("", "fixing failed", err)
	}
	return nil
}

// Serve runs the language server on the process streams until ctx is done or
// the client disconnects.
func (b *Backend) Serve(ctx context.Context) error {
	if err := b.run(ctx, []string{"lsp"}, b.cfg.Stdin, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		return engine.NewError(engine.ErrorKindIO, "language server stopped", err)
	}
	return nil
}

// CompilePackage compiles one package with explicit inputs and outputs.
func (b *Backend) CompilePackage(ctx context.Context, req engine.CompilePackageRequest) error {
	args := []string{
		"compile-package",
		"--target", req.Target.String(),
		"--package", req.PackageDirectory,
		"--out", req.OutputDirectory,
		"--lib", req.LibDirectory,
	}
	if req.JavaScriptPrelude != "" {
		args = append(args, "--javascript-prelude", req.JavaScriptPrelude)
	}
	if req.SkipBeam {
		args = append(args, "--no-beam")
	}

	if err := b.run(ctx, args, nil, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		return backendError("", "compilation failed", err)
	}
	return nil
}

// Render writes HTML documentation for the compiled project and returns its
// directory.
func (b *Backend) Render(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return "", engine.NewError(engine.ErrorKindProject, "", err)
	}
	out := paths.DocsDirectory(cfg.Name)

	args := []string{"docs", "--root", paths.Root(), "--out", out}
	if artifacts != nil {
		args = append(args, "--build-dir", artifacts.Directory)
	}
	if err := b.run(ctx, args, nil, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		return "", engine.StageError(engine.ErrorKindDocs, "docs", "failed to render documentation", b.hint(err))
	}
	return out, nil
}

// PackageInterface writes the JSON interface of the project's modules to out.
func (b *Backend) PackageInterface(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts, out string) error {
	args := []string{"package-interface", "--root", paths.Root(), "--out", out}
	if artifacts != nil {
		args = append(args, "--build-dir", artifacts.Directory)
	}
	if err := b.run(ctx, args, nil, b.cfg.Stdout, b.cfg.Stderr); err != nil {
		return engine.StageError(engine.ErrorKindExport, "export", "failed to export package interface", b.hint(err))
	}
	return nil
}

// Prelude writes the prelude for language to w.
func (b *Backend) Prelude(ctx context.Context, language export.Language, w io.Writer) error {
	if err := b.run(ctx, []string{"prelude", "--language", string(language)}, nil, w, b.cfg.Stderr); err != nil {
		return engine.StageError(engine.ErrorKindExport, "export", "failed to export "+string(language)+" prelude", b.hint(err))
	}
	return nil
}

func (b *Backend) run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, b.cfg.Executable, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	timer := telemetry.NewTimer()
	err := cmd.Run()
	b.logger.Debug().
		Str("executable", b.cfg.Executable).
		Strs("args", args).
		Dur("duration", timer.Duration()).
		Err(err).
		Msg("Ran compiler backend")

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// hint attaches installation advice when the executable is missing.
func (b *Backend) hint(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return engine.NewError(engine.ErrorKindIO, fmt.Sprintf("compiler backend %q not found", b.cfg.Executable), err).
			WithHint("Install the compiler backend or set GLEAM_BACKEND to its path.")
	}
	return err
}

// backendError reports a failed backend run. Operations outside the build
// pipeline pass an empty stage.
func backendError(stage, message string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return engine.StageError(engine.ErrorKindCompile, stage, "compiler backend not found", err).
			WithHint("Install the compiler backend or set GLEAM_BACKEND to its path.")
	}
	if code := exitCode(err); code > 0 {
		message += " (exit status " + strconv.Itoa(code) + ")"
	}
	return engine.StageError(engine.ErrorKindCompile, stage, message, err)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func lastLine(b []byte) []byte {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return b
}
