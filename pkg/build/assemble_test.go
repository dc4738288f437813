package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOptionsNeverWritesArtifactsOrFailsOnWarnings(t *testing.T) {
	erlang := TargetErlang
	for _, target := range []*Target{nil, &erlang} {
		opts := CheckOptions(target)
		assert.Equal(t, CodegenDepsOnly, opts.Codegen)
		assert.False(t, opts.WarningsAsErrors)
		assert.Equal(t, CompileAll, opts.Compile)
		assert.Equal(t, ModeDev, opts.Mode)
		assert.Equal(t, TargetSupportEnforced, opts.RootTargetSupport)
	}
}

func TestBuildOptionsHonorsFlags(t *testing.T) {
	js := TargetJavaScript
	opts := BuildOptions(&js, true, true)

	assert.Equal(t, CodegenAll, opts.Codegen)
	assert.Equal(t, CompileAll, opts.Compile)
	assert.True(t, opts.WarningsAsErrors)
	assert.True(t, opts.NoPrintProgress)
	require.NotNil(t, opts.Target)
	assert.Equal(t, TargetJavaScript, *opts.Target)

	defaults := BuildOptions(nil, false, false)
	assert.Nil(t, defaults.Target)
	assert.False(t, defaults.WarningsAsErrors)
	assert.Equal(t, TargetErlang, defaults.TargetOr(TargetErlang))
}

func TestOptionsDoNotAliasCallerTarget(t *testing.T) {
	target := TargetJavaScript
	opts := BuildOptions(&target, false, false)
	target = TargetErlang

	assert.Equal(t, TargetJavaScript, *opts.Target)
}

func TestOptionsAreDeterministic(t *testing.T) {
	js := TargetJavaScript
	assert.Equal(t, EntrypointOptions(&js, true), EntrypointOptions(&js, true))
	assert.Equal(t, CheckOptions(nil), CheckOptions(nil))
}

func TestProductionAndDocsOptions(t *testing.T) {
	prod := ProductionOptions(nil)
	assert.Equal(t, ModeProd, prod.Mode)
	assert.Equal(t, CodegenAll, prod.Codegen)

	docs := DocsOptions(nil)
	assert.Equal(t, ModeProd, docs.Mode)
	assert.Equal(t, CodegenDepsOnly, docs.Codegen)
}

func TestShellOptionsAlwaysTargetErlang(t *testing.T) {
	opts := ShellOptions()
	require.NotNil(t, opts.Target)
	assert.Equal(t, TargetErlang, *opts.Target)
}

func TestResolveTarget(t *testing.T) {
	js := TargetJavaScript
	assert.Equal(t, TargetJavaScript, ResolveTarget(&js, TargetErlang))
	assert.Equal(t, TargetJavaScript, ResolveTarget(nil, TargetJavaScript))
	assert.Equal(t, TargetErlang, ResolveTarget(nil, ""))
}

func TestResolveRuntime(t *testing.T) {
	deno := RuntimeDeno

	got, err := ResolveRuntime(&deno, RuntimeBun, TargetJavaScript)
	require.NoError(t, err)
	assert.Equal(t, RuntimeDeno, got)

	got, err = ResolveRuntime(nil, RuntimeBun, TargetJavaScript)
	require.NoError(t, err)
	assert.Equal(t, RuntimeBun, got)

	got, err = ResolveRuntime(nil, "", TargetJavaScript)
	require.NoError(t, err)
	assert.Equal(t, RuntimeNodeJS, got)

	got, err = ResolveRuntime(nil, RuntimeBun, TargetErlang)
	require.NoError(t, err)
	assert.Equal(t, Runtime(""), got)

	_, err = ResolveRuntime(&deno, "", TargetErlang)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deno")
}
