package engine

import (
	"context"
	"errors"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// Stage names reported in spans, metrics and diagnostics.
const (
	StageDependencies = "dependencies"
	StageCompile      = "compile"
)

// Output is what the dependency and compile stages hand to the action.
type Output struct {
	Manifest  *Manifest
	Artifacts *Artifacts
}

// Action is the downstream step a command runs on a successful build.
type Action struct {
	// Name identifies the stage, for example "run" or "export".
	Name string

	Run func(ctx context.Context, out *Output) error
}

// Pipeline sequences dependency acquisition, compilation and an optional
// action. A stage runs only if every earlier stage succeeded, and the first
// failure is returned exactly as the stage produced it.
type Pipeline struct {
	resolver DependencyResolver
	compiler Compiler
	request  ResolveRequest
}

// NewPipeline creates a pipeline using the default dependency configuration.
func NewPipeline(resolver DependencyResolver, compiler Compiler) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		compiler: compiler,
		request:  ResolveRequest{Config: DefaultDependencyConfig},
	}
}

// WithResolveRequest returns a copy of the pipeline that resolves with req.
func (p *Pipeline) WithResolveRequest(req ResolveRequest) *Pipeline {
	cp := *p
	cp.request = req
	return &cp
}

type stage struct {
	name  string
	attrs []attribute.KeyValue
	run   func(ctx context.Context) error
}

// Execute runs [dependencies, compile, action] in order against the project
// at paths. action may be nil.
func (p *Pipeline) Execute(ctx context.Context, paths project.Paths, opts build.Options, tel telemetry.Telemetry, action *Action) (*Output, error) {
	out := &Output{}

	compileAttrs := []attribute.KeyValue{telemetry.AttrMode.String(opts.Mode.String())}
	if opts.Target != nil {
		compileAttrs = append(compileAttrs, telemetry.AttrTarget.String(opts.Target.String()))
	}

	stages := []stage{
		{
			name: StageDependencies,
			run: func(ctx context.Context) error {
				manifest, err := p.resolver.ResolveAndDownload(ctx, paths, tel, p.request)
				if err != nil {
					return err
				}
				if manifest == nil {
					return StageError(ErrorKindDependency, StageDependencies, "dependency resolution produced no manifest", nil)
				}
				out.Manifest = manifest
				return nil
			},
		},
		{
			name:  StageCompile,
			attrs: compileAttrs,
			run: func(ctx context.Context) error {
				checking := opts.Codegen == build.CodegenDepsOnly
				name := packageName(paths)
				if checking {
					tel.CheckingPackage(name)
				} else {
					tel.CompilingPackage(name)
				}

				timer := telemetry.NewTimer()
				artifacts, err := p.compiler.Compile(ctx, paths, opts, out.Manifest)
				if err != nil {
					return err
				}
				out.Artifacts = artifacts

				if checking {
					tel.CheckedPackage(timer.Duration())
				} else {
					tel.CompiledPackage(timer.Duration())
				}
				return nil
			},
		},
	}

	if action != nil {
		if action.Run == nil {
			return nil, errors.New("action " + action.Name + " has no Run function")
		}
		stages = append(stages, stage{
			name: action.Name,
			run: func(ctx context.Context) error {
				return action.Run(ctx, out)
			},
		})
	}

	if err := runStages(ctx, stages); err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve runs only the dependency stage.
func (p *Pipeline) Resolve(ctx context.Context, paths project.Paths, tel telemetry.Telemetry) (*Manifest, error) {
	var manifest *Manifest
	err := runStages(ctx, []stage{{
		name: StageDependencies,
		run: func(ctx context.Context) error {
			m, err := p.resolver.ResolveAndDownload(ctx, paths, tel, p.request)
			manifest = m
			return err
		},
	}})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// packageName is the root package name for progress output, falling back to
// the directory name when gleam.toml cannot be read.
func packageName(paths project.Paths) string {
	if cfg, err := project.LoadConfig(paths); err == nil && cfg.Name != "" {
		return cfg.Name
	}
	return filepath.Base(paths.Root())
}

func runStages(ctx context.Context, stages []stage) error {
	for _, s := range stages {
		op := telemetry.StartStage(ctx, s.name, s.attrs...)
		op.Logger.Debug().Msg("Starting stage")

		err := s.run(op.Ctx)
		op.End(err)

		if err != nil {
			op.Logger.Debug().Err(err).Msg("Stage failed")
			return err
		}
	}
	return nil
}
