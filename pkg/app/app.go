// Package app dispatches a parsed command to the pipeline and the
// collaborators that carry it out.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/brightly-salty/gleam/pkg/backend"
	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/config"
	"github.com/brightly-salty/gleam/pkg/deps"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/export"
	"github.com/brightly-salty/gleam/pkg/hex"
	"github.com/brightly-salty/gleam/pkg/newproject"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/runner"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// Streams are the standard streams commands read from and write to.
type Streams struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader
}

// Collaborators are the external subsystems commands are delegated to.
type Collaborators struct {
	Dependencies    engine.DependencyManager
	Compiler        engine.Compiler
	Runner          engine.EntrypointRunner
	Exporter        engine.Exporter
	Publisher       engine.Publisher
	Docs            engine.DocsRenderer
	Registry        engine.Registry
	Formatter       engine.Formatter
	Fixer           engine.Fixer
	LanguageServer  engine.LanguageServer
	PackageCompiler engine.PackageCompiler
	Creator         engine.ProjectCreator
}

// Dispatcher executes commands.
type Dispatcher struct {
	env      *config.Environment
	streams  Streams
	c        Collaborators
	pipeline *engine.Pipeline
	closers  []io.Closer

	// findProject locates the project for commands that need one.
	findProject func() (project.Paths, error)

	// openBrowser opens a rendered page for `docs build --open`.
	openBrowser func(ctx context.Context, path string) error
}

// New creates a dispatcher over the given collaborators.
func New(env *config.Environment, streams Streams, c Collaborators) *Dispatcher {
	return &Dispatcher{
		env:         env,
		streams:     streams,
		c:           c,
		pipeline:    engine.NewPipeline(c.Dependencies, c.Compiler),
		findProject: project.FindFromWorkingDirectory,
		openBrowser: openBrowser,
	}
}

// NewDispatcher wires the production collaborators from env.
// The package cache is opened only by commands that resolve dependencies.
func NewDispatcher(env *config.Environment, streams Streams) (*Dispatcher, error) {
	prompt := hex.NewPrompt(streams.In, streams.Err)
	client := hex.NewClient(hex.ClientConfig{
		APIURL:          env.HexAPIURL,
		RepoURL:         env.HexRepoURL,
		APIKey:          env.HexAPIKey,
		CredentialsFile: env.CredentialsFile(),
	}, prompt)

	compiler := backend.New(backend.Config{
		Executable: env.Backend,
		Stdout:     streams.Out,
		Stderr:     streams.Err,
		Stdin:      streams.In,
	})
	exporter := export.New(compiler, streams.Err)

	manager := deps.NewManager(deps.Config{
		Repository: client,
		IndexFile:  env.PackageIndexFile(),
		CacheDir:   env.PackageCacheDir(),
		Out:        streams.Err,
	})

	d := New(env, streams, Collaborators{
		Dependencies:    manager,
		Compiler:        compiler,
		Runner:          runner.New(runner.Config{Stdout: streams.Out, Stderr: streams.Err, Stdin: streams.In}),
		Exporter:        exporter,
		Publisher:       hex.NewPublisher(client, exporter, prompt, streams.Err),
		Docs:            hex.NewDocs(compiler, client),
		Registry:        client,
		Formatter:       compiler,
		Fixer:           compiler,
		LanguageServer:  compiler,
		PackageCompiler: compiler,
		Creator:         newproject.New(streams.Out),
	})
	d.closers = append(d.closers, manager)

	return d, nil
}

// Close releases resources held by the collaborators.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Dispatch executes cmd. The returned error is displayable and, for stage
// failures, is exactly the error the failing stage produced.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) (err error) {
	op := telemetry.StartCommand(ctx, cmd.Name())
	defer func() { op.End(err) }()
	ctx = op.Ctx

	var paths project.Paths
	if command.RequiresProject(cmd) {
		paths, err = d.findProject()
		if err != nil {
			return engine.ProjectError(err)
		}
		if op.Span != nil {
			op.Span.SetAttributes(telemetry.AttrProjectRoot.String(paths.Root()))
		}
	}

	op.Logger.Debug().Str("root", paths.Root()).Msg("Dispatching command")

	switch c := cmd.(type) {
	case command.Build:
		return d.build(ctx, paths, c)
	case command.Check:
		return d.check(ctx, paths, c)
	case command.Run:
		return d.runEntrypoint(ctx, paths, c.EntrypointFlags, build.WhichSrc, c.Module, c.NoPrintProgress)
	case command.Test:
		return d.runEntrypoint(ctx, paths, c.EntrypointFlags, build.WhichTest, "", false)
	case command.Dev:
		return d.runEntrypoint(ctx, paths, c.EntrypointFlags, build.WhichDev, "", false)
	case command.Shell:
		return d.shell(ctx, paths)
	case command.CompilePackage:
		return d.c.PackageCompiler.CompilePackage(ctx, engine.CompilePackageRequest(c))
	case command.Format:
		return d.c.Formatter.Format(ctx, engine.FormatRequest{Files: c.Files, Stdin: c.Stdin, Check: c.Check})
	case command.Fix:
		return d.c.Fixer.Fix(ctx, paths)
	case command.LanguageServer:
		return d.c.LanguageServer.Serve(ctx)
	case command.New:
		return d.c.Creator.Create(ctx, engine.NewProjectRequest{
			Root:       c.Root,
			Name:       c.ProjectName,
			Template:   c.Template,
			SkipGit:    c.SkipGit,
			SkipGitHub: c.SkipGitHub,
		})
	case command.PrintConfig:
		return d.printConfig(paths)
	case command.Clean:
		return d.c.Dependencies.Clean(ctx, paths)

	case command.Add:
		return d.add(ctx, paths, c)
	case command.Remove:
		return d.remove(ctx, paths, c)
	case command.Update:
		return d.update(ctx, paths, c.Packages)
	case command.DepsUpdate:
		return d.update(ctx, paths, c.Packages)
	case command.DepsDownload:
		_, err := d.pipeline.Resolve(ctx, paths, d.progress(false))
		return err
	case command.DepsList:
		return d.listDependencies(ctx, paths)
	case command.DepsOutdated:
		return d.outdated(ctx, paths)
	case command.DepsTree:
		return d.tree(ctx, paths, c)

	case command.Publish:
		return d.publish(ctx, paths, c)
	case command.DocsBuild:
		return d.docsBuild(ctx, paths, c)
	case command.DocsPublish:
		return d.docsPublish(ctx, paths)
	case command.DocsRemove:
		return d.c.Registry.RemoveDocs(ctx, c.Package, c.Version)

	case command.HexRetire:
		return d.c.Registry.Retire(ctx, c.Package, c.Version, c.Reason, c.Message)
	case command.HexUnretire:
		return d.c.Registry.Unretire(ctx, c.Package, c.Version)
	case command.HexRevert:
		return d.revert(ctx, paths, c)
	case command.HexOwnerTransfer:
		return d.c.Registry.TransferOwner(ctx, c.Package, c.NewOwner)
	case command.HexAuthenticate:
		return d.c.Registry.Authenticate(ctx)

	case command.ExportErlangShipment:
		return d.exportErlangShipment(ctx, paths)
	case command.ExportHexTarball:
		return d.exportHexTarball(ctx, paths)
	case command.ExportJavaScriptPrelude:
		return d.c.Exporter.JavaScriptPrelude(ctx, d.streams.Out)
	case command.ExportTypeScriptPrelude:
		return d.c.Exporter.TypeScriptPrelude(ctx, d.streams.Out)
	case command.ExportPackageInterface:
		return d.exportPackageInterface(ctx, paths, c.Output)
	case command.ExportPackageInformation:
		return d.c.Exporter.PackageInformation(ctx, paths, c.Output)
	}

	return fmt.Errorf("unsupported command %q", cmd.Name())
}

// progress selects the telemetry sink shared by every stage of a command.
func (d *Dispatcher) progress(noPrintProgress bool) telemetry.Telemetry {
	return telemetry.Select(noPrintProgress, d.streams.Err, !d.env.NoColour)
}

func (d *Dispatcher) loadConfig(paths project.Paths) (*project.Config, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return nil, engine.NewError(engine.ErrorKindProject, "", err).
			WithHint("Check the syntax of " + project.ConfigFileName + ".")
	}
	log.Debug().Str("package", cfg.Name).Str("version", cfg.Version).Msg("Loaded project config")
	return cfg, nil
}
