// Package export writes compiled packages in distributable forms: an Erlang
// shipment, a Hex release tarball, and JSON descriptions of the package.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

const stage = "export"

// Language selects a prelude.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// Compiler provides the exports only the compiler can produce.
type Compiler interface {
	PackageInterface(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts, out string) error
	Prelude(ctx context.Context, language Language, w io.Writer) error
}

// Exporter implements engine.Exporter.
type Exporter struct {
	compiler Compiler
	out      io.Writer
	logger   zerolog.Logger
}

var _ engine.Exporter = (*Exporter)(nil)

// New creates an exporter reporting progress to out.
func New(compiler Compiler, out io.Writer) *Exporter {
	return &Exporter{compiler: compiler, out: out, logger: telemetry.Component("export")}
}

// ErlangShipment copies the compiled BEAM files and priv directories of every
// package into one directory with a start script.
func (e *Exporter) ErlangShipment(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error) {
	if artifacts == nil || artifacts.Target != build.TargetErlang {
		return "", engine.StageError(engine.ErrorKindExport, stage, "an Erlang shipment needs an Erlang build", nil)
	}

	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return "", engine.NewError(engine.ErrorKindProject, "", err)
	}

	out := paths.ErlangShipmentDirectory()
	if err := os.RemoveAll(out); err != nil {
		return "", exportError("failed to clear "+out, err)
	}

	packages, err := os.ReadDir(artifacts.Directory)
	if err != nil {
		return "", exportError("failed to read build directory", err)
	}

	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !pkg.IsDir() {
			continue
		}
		for _, sub := range []string{"ebin", "priv"} {
			src := filepath.Join(artifacts.Directory, pkg.Name(), sub)
			if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err := copyDir(src, filepath.Join(out, pkg.Name(), sub)); err != nil {
				return "", exportError("failed to copy "+pkg.Name(), err)
			}
		}
	}

	script := fmt.Sprintf(entrypointScript, cfg.Name)
	if err := os.WriteFile(filepath.Join(out, "entrypoint.sh"), []byte(script), 0o755); err != nil {
		return "", exportError("failed to write entrypoint.sh", err)
	}

	e.logger.Info().Str("directory", out).Int("packages", len(packages)).Msg("Exported Erlang shipment")
	return out, nil
}

const entrypointScript = `#!/bin/sh
set -eu

PACKAGE=%s
BASE=$(dirname "$0")
COMMAND="${1-default}"

run() {
  exec erl \
    -pa "$BASE"/*/ebin \
    -eval "$PACKAGE@@main:run($PACKAGE)" \
    -noshell \
    -extra "$@"
}

shell() {
  erl -pa "$BASE"/*/ebin
}

case "$COMMAND" in
run)
  shift
  run "$@"
  ;;

shell)
  shell
  ;;

*)
  echo "usage:" >&2
  echo "  entrypoint.sh \$COMMAND" >&2
  echo "" >&2
  echo "commands:" >&2
  echo "  run    Run the project main function" >&2
  echo "  shell  Run an Erlang shell" >&2
  exit 1
  ;;
esac
`

// HexTarball writes the release tarball to the build directory and returns
// its path.
func (e *Exporter) HexTarball(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return "", engine.NewError(engine.ErrorKindProject, "", err)
	}

	tarball, err := BuildHexTarball(ctx, paths, cfg, artifacts)
	if err != nil {
		return "", err
	}

	file := filepath.Join(paths.BuildDirectory(), fmt.Sprintf("%s-%s.tar", cfg.Name, cfg.Version))
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", exportError("failed to create build directory", err)
	}
	if err := os.WriteFile(file, tarball.Data, 0o644); err != nil {
		return "", exportError("failed to write "+file, err)
	}

	e.logger.Info().Str("file", file).Str("checksum", tarball.OuterChecksum).Int("files", len(tarball.Files)).Msg("Exported hex tarball")
	return file, nil
}

// PackageInterface writes the JSON description of the package's modules.
func (e *Exporter) PackageInterface(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts, out string) error {
	return e.compiler.PackageInterface(ctx, paths, artifacts, out)
}

// PackageInformation writes gleam.toml as JSON.
func (e *Exporter) PackageInformation(_ context.Context, paths project.Paths, out string) error {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return engine.NewError(engine.ErrorKindProject, "", err)
	}

	data, err := json.MarshalIndent(map[string]*project.Config{"gleam.toml": cfg}, "", "  ")
	if err != nil {
		return exportError("failed to encode package information", err)
	}
	return writeOutput(out, append(data, '\n'))
}

// JavaScriptPrelude writes the JavaScript prelude module.
func (e *Exporter) JavaScriptPrelude(ctx context.Context, w io.Writer) error {
	return e.compiler.Prelude(ctx, LanguageJavaScript, w)
}

// TypeScriptPrelude writes the TypeScript declarations of the prelude.
func (e *Exporter) TypeScriptPrelude(ctx context.Context, w io.Writer) error {
	return e.compiler.Prelude(ctx, LanguageTypeScript, w)
}

func writeOutput(out string, data []byte) error {
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportError("failed to create "+dir, err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return exportError("failed to write "+out, err)
	}
	return nil
}

func exportError(message string, err error) error {
	return engine.StageError(engine.ErrorKindExport, stage, message, err)
}
