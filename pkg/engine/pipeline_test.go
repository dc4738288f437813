package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

type recorder struct {
	calls []string
}

type fakeResolver struct {
	rec      *recorder
	manifest *Manifest
	err      error
	gotTel   telemetry.Telemetry
	gotReq   ResolveRequest
}

func (f *fakeResolver) ResolveAndDownload(_ context.Context, _ project.Paths, tel telemetry.Telemetry, req ResolveRequest) (*Manifest, error) {
	f.rec.calls = append(f.rec.calls, StageDependencies)
	f.gotTel = tel
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.manifest, nil
}

type fakeCompiler struct {
	rec         *recorder
	err         error
	gotOpts     build.Options
	gotManifest *Manifest
}

func (f *fakeCompiler) Compile(_ context.Context, paths project.Paths, opts build.Options, manifest *Manifest) (*Artifacts, error) {
	f.rec.calls = append(f.rec.calls, StageCompile)
	f.gotOpts = opts
	f.gotManifest = manifest
	if f.err != nil {
		return nil, f.err
	}
	return &Artifacts{
		Directory: paths.BuildDirectoryForTarget(opts.Mode, opts.TargetOr(build.TargetErlang)),
		Target:    opts.TargetOr(build.TargetErlang),
		Mode:      opts.Mode,
	}, nil
}

func newFakes() (*recorder, *fakeResolver, *fakeCompiler) {
	rec := &recorder{}
	manifest := &Manifest{Packages: []ManifestPackage{{Name: "gleam_stdlib", Version: "0.34.0", Source: SourceHex}}}
	return rec, &fakeResolver{rec: rec, manifest: manifest}, &fakeCompiler{rec: rec}
}

func recordingAction(rec *recorder, err error) *Action {
	return &Action{
		Name: "run",
		Run: func(_ context.Context, out *Output) error {
			rec.calls = append(rec.calls, "run")
			if out.Manifest == nil || out.Artifacts == nil {
				return errors.New("action ran without build output")
			}
			return err
		},
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	rec, resolver, compiler := newFakes()
	p := NewPipeline(resolver, compiler)

	out, err := p.Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), telemetry.Null{}, recordingAction(rec, nil))
	require.NoError(t, err)

	assert.Equal(t, []string{StageDependencies, StageCompile, "run"}, rec.calls)
	assert.Same(t, resolver.manifest, out.Manifest)
	assert.Same(t, resolver.manifest, compiler.gotManifest)
	assert.Equal(t, DefaultDependencyConfig, resolver.gotReq.Config)
}

func TestPipelineWithoutAction(t *testing.T) {
	rec, resolver, compiler := newFakes()

	out, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), telemetry.Null{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{StageDependencies, StageCompile}, rec.calls)
	assert.NotNil(t, out.Artifacts)
}

func TestDependencyFailureSkipsCompile(t *testing.T) {
	rec, resolver, compiler := newFakes()
	stageErr := StageError(ErrorKindDependency, StageDependencies, "failed to download gleam_stdlib", errors.New("connection refused"))
	resolver.err = stageErr

	out, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), telemetry.Null{}, recordingAction(rec, nil))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Same(t, stageErr, err, "the stage error is returned unchanged")
	assert.Equal(t, []string{StageDependencies}, rec.calls)
}

func TestCompileFailureSkipsAction(t *testing.T) {
	rec, resolver, compiler := newFakes()
	compileErr := errors.New("type mismatch in src/app.gleam")
	compiler.err = compileErr

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, true, false), telemetry.Null{}, recordingAction(rec, nil))

	require.ErrorIs(t, err, compileErr)
	assert.Equal(t, compileErr, err)
	assert.Equal(t, []string{StageDependencies, StageCompile}, rec.calls)
}

func TestActionFailurePropagates(t *testing.T) {
	rec, resolver, compiler := newFakes()
	runErr := StageError(ErrorKindRuntime, "test", "test entry point module app_test was not found", nil)

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.EntrypointOptions(nil, false), telemetry.Null{}, recordingAction(rec, runErr))

	assert.Same(t, runErr, err)
	assert.True(t, IsKind(err, ErrorKindRuntime))
	assert.Equal(t, []string{StageDependencies, StageCompile, "run"}, rec.calls)
}

func TestNilManifestIsADependencyFailure(t *testing.T) {
	rec, resolver, compiler := newFakes()
	resolver.manifest = nil

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), telemetry.Null{}, nil)

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorKindDependency))
	assert.Equal(t, []string{StageDependencies}, rec.calls)
}

func TestActionWithoutRunIsRejectedBeforeAnyStage(t *testing.T) {
	rec, resolver, compiler := newFakes()

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), telemetry.Null{}, &Action{Name: "broken"})

	require.Error(t, err)
	assert.Empty(t, rec.calls)
}

func TestCheckResolvesThenCompilesDependenciesOnly(t *testing.T) {
	rec, resolver, compiler := newFakes()
	erlang := build.TargetErlang

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.CheckOptions(&erlang), telemetry.Null{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{StageDependencies, StageCompile}, rec.calls)
	assert.Equal(t, build.CodegenDepsOnly, compiler.gotOpts.Codegen)
	assert.False(t, compiler.gotOpts.WarningsAsErrors)
	require.NotNil(t, compiler.gotOpts.Target)
	assert.Equal(t, build.TargetErlang, *compiler.gotOpts.Target)
}

func TestTelemetrySinkIsPassedThrough(t *testing.T) {
	_, resolver, compiler := newFakes()
	sink := telemetry.NewReporter(&discard{}, false)

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), sink, nil)
	require.NoError(t, err)
	assert.Same(t, sink, resolver.gotTel)
}

func TestWithResolveRequestDoesNotMutateOriginal(t *testing.T) {
	_, resolver, compiler := newFakes()
	base := NewPipeline(resolver, compiler)
	updating := base.WithResolveRequest(ResolveRequest{
		Excluded: []string{"gleam_stdlib"},
		Config:   DependencyManagerConfig{UseManifest: UseManifestNo},
	})

	_, err := updating.Resolve(context.Background(), project.NewPaths("/app"), telemetry.Null{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gleam_stdlib"}, resolver.gotReq.Excluded)
	assert.Equal(t, UseManifestNo, resolver.gotReq.Config.UseManifest)

	_, err = base.Resolve(context.Background(), project.NewPaths("/app"), telemetry.Null{})
	require.NoError(t, err)
	assert.Empty(t, resolver.gotReq.Excluded)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type progressTel struct {
	telemetry.Null
	events []string
}

func (p *progressTel) CompilingPackage(name string)  { p.events = append(p.events, "compiling "+name) }
func (p *progressTel) CompiledPackage(time.Duration) { p.events = append(p.events, "compiled") }
func (p *progressTel) CheckingPackage(name string)   { p.events = append(p.events, "checking "+name) }
func (p *progressTel) CheckedPackage(time.Duration)  { p.events = append(p.events, "checked") }

func TestCompileStageReportsProgress(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, project.ConfigFileName), []byte("name = \"wibble\"\nversion = \"1.0.0\"\n"), 0o644))
	erlang := build.TargetErlang

	tests := []struct {
		name string
		opts build.Options
		want []string
	}{
		{"build", build.BuildOptions(&erlang, false, false), []string{"compiling wibble", "compiled"}},
		{"check", build.CheckOptions(&erlang), []string{"checking wibble", "checked"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resolver, compiler := newFakes()
			tel := &progressTel{}

			_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths(root), tt.opts, tel, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tel.events)
		})
	}
}

func TestCompileFailureReportsNoCompletion(t *testing.T) {
	_, resolver, compiler := newFakes()
	compiler.err = StageError(ErrorKindCompile, StageCompile, "type error", nil)
	tel := &progressTel{}

	_, err := NewPipeline(resolver, compiler).Execute(context.Background(), project.NewPaths("/app"), build.BuildOptions(nil, false, false), tel, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"compiling app"}, tel.events)
}
