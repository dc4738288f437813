package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

// fakeProgram writes an executable that prints its arguments one per line
// and then runs body.
func fakeProgram(t *testing.T, name, body string) string {
	t.Helper()
	exe := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\"\n" + body + "\n"
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))
	return exe
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) project.Paths {
	t.Helper()
	paths := project.NewPaths(t.TempDir())
	writeFile(t, paths.ConfigFile(), "name = \"app\"\nversion = \"1.0.0\"\n")
	writeFile(t, filepath.Join(paths.SrcDirectory(), "app.gleam"), "pub fn main() { Nil }\n")
	writeFile(t, filepath.Join(paths.TestDirectory(), "app_test.gleam"), "pub fn main() { Nil }\n")
	writeFile(t, filepath.Join(paths.SrcDirectory(), "app", "cli.gleam"), "pub fn main() { Nil }\n")
	return paths
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestRunErlang(t *testing.T) {
	paths := newProject(t)
	dir := paths.BuildDirectoryForTarget(build.ModeDev, build.TargetErlang)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app", "ebin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gleam_stdlib", "ebin"), 0o755))

	var stdout bytes.Buffer
	r := New(Config{Stdout: &stdout, Stderr: &bytes.Buffer{}, Erlang: fakeProgram(t, "erl", "")})

	err := r.Run(context.Background(), paths, engine.RunRequest{
		Args:   []string{"--verbose", "input.txt"},
		Target: build.TargetErlang,
		Module: "app/cli",
		Which:  build.WhichSrc,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-pa", filepath.Join(dir, "app", "ebin"),
		"-pa", filepath.Join(dir, "gleam_stdlib", "ebin"),
		"-eval", "gleam@@main:run(app@cli)",
		"-noshell",
		"-extra",
		"--verbose", "input.txt",
	}, lines(stdout.String()))
}

func TestRunDefaultsModuleFromConfig(t *testing.T) {
	paths := newProject(t)
	var stdout bytes.Buffer
	r := New(Config{Stdout: &stdout, Stderr: &bytes.Buffer{}, Erlang: fakeProgram(t, "erl", "")})

	require.NoError(t, r.Run(context.Background(), paths, engine.RunRequest{Target: build.TargetErlang, Which: build.WhichTest}))
	assert.Contains(t, stdout.String(), "gleam@@main:run(app_test)")
}

func TestRunMissingEntryModule(t *testing.T) {
	paths := newProject(t)
	r := New(Config{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Erlang: fakeProgram(t, "erl", "")})

	err := r.Run(context.Background(), paths, engine.RunRequest{Target: build.TargetErlang, Module: "app_dev", Which: build.WhichDev})

	var e *engine.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, engine.ErrorKindRuntime, e.Kind)
	assert.Equal(t, "dev entry point module app_dev was not found", e.Message)
	assert.Contains(t, e.Hint, filepath.Join("dev", "app_dev.gleam"))
}

func TestRunJavaScriptRuntimes(t *testing.T) {
	tests := []struct {
		runtime build.Runtime
		prefix  []string
	}{
		{build.RuntimeNodeJS, []string{"--enable-source-maps"}},
		{build.RuntimeDeno, []string{"run", "--allow-all", "--unstable"}},
		{build.RuntimeBun, []string{"run"}},
	}

	for _, tt := range tests {
		t.Run(tt.runtime.String(), func(t *testing.T) {
			paths := newProject(t)
			var stdout bytes.Buffer
			r := New(Config{
				Stdout: &stdout,
				Stderr: &bytes.Buffer{},
				Node:   fakeProgram(t, "node", ""),
				Deno:   fakeProgram(t, "deno", ""),
				Bun:    fakeProgram(t, "bun", ""),
			})

			err := r.Run(context.Background(), paths, engine.RunRequest{
				Args:    []string{"a", "b"},
				Target:  build.TargetJavaScript,
				Runtime: tt.runtime,
				Module:  "app",
				Which:   build.WhichSrc,
			})
			require.NoError(t, err)

			entry := filepath.Join(paths.BuildDirectoryForPackage(build.ModeDev, build.TargetJavaScript, "app"), "gleam.main.mjs")
			want := append(append([]string{}, tt.prefix...), entry, "a", "b")
			assert.Equal(t, want, lines(stdout.String()))

			script, err := os.ReadFile(entry)
			require.NoError(t, err)
			assert.Equal(t, "import { main } from \"./app.mjs\";\nmain();\n", string(script))
		})
	}
}

func TestRunNonZeroExit(t *testing.T) {
	paths := newProject(t)
	r := New(Config{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Erlang: fakeProgram(t, "erl", "exit 3")})

	err := r.Run(context.Background(), paths, engine.RunRequest{Target: build.TargetErlang, Module: "app", Which: build.WhichSrc})

	var e *engine.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, engine.ErrorKindRuntime, e.Kind)
	assert.Equal(t, "program exited with status 3", e.Message)
}

func TestRunMissingRuntime(t *testing.T) {
	paths := newProject(t)
	r := New(Config{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Erlang: filepath.Join(t.TempDir(), "erl")})

	err := r.Run(context.Background(), paths, engine.RunRequest{Target: build.TargetErlang, Module: "app", Which: build.WhichSrc})

	var e *engine.Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Message, "failed to start")
	assert.NotEmpty(t, e.Hint)
}

func TestShell(t *testing.T) {
	paths := newProject(t)
	dir := paths.BuildDirectoryForTarget(build.ModeDev, build.TargetErlang)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app", "ebin"), 0o755))

	var stdout bytes.Buffer
	r := New(Config{Stdout: &stdout, Stderr: &bytes.Buffer{}, Erlang: fakeProgram(t, "erl", "")})

	require.NoError(t, r.Shell(context.Background(), paths, &engine.Artifacts{Directory: dir, Target: build.TargetErlang}))
	assert.Equal(t, []string{"-pa", filepath.Join(dir, "app", "ebin")}, lines(stdout.String()))
}

func TestErlangModuleName(t *testing.T) {
	assert.Equal(t, "app", ErlangModuleName("app"))
	assert.Equal(t, "app@internal@cli", ErlangModuleName("app/internal/cli"))
}
