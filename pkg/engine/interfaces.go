package engine

import (
	"context"
	"io"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// DependencyResolver produces the Manifest every compilation starts from.
// Retries belong here, never in the Pipeline.
type DependencyResolver interface {
	// ResolveAndDownload resolves the project's requirements, honouring an
	// existing manifest.toml when allowed, and downloads missing packages.
	ResolveAndDownload(ctx context.Context, paths project.Paths, tel telemetry.Telemetry, req ResolveRequest) (*Manifest, error)
}

// DependencyManager covers the dependency commands that do not compile.
type DependencyManager interface {
	DependencyResolver

	// Outdated lists locked packages with newer releases available.
	Outdated(ctx context.Context, paths project.Paths) ([]OutdatedPackage, error)

	// Tree renders the dependency tree of the locked manifest.
	Tree(ctx context.Context, paths project.Paths, manifest *Manifest, req TreeRequest) (string, error)

	// Clean removes build output.
	Clean(ctx context.Context, paths project.Paths) error
}

// Compiler runs the compilation pipeline.
type Compiler interface {
	Compile(ctx context.Context, paths project.Paths, opts build.Options, manifest *Manifest) (*Artifacts, error)
}

// EntrypointRunner executes a compiled entry point.
type EntrypointRunner interface {
	Run(ctx context.Context, paths project.Paths, req RunRequest) error

	// Shell starts an interactive Erlang shell with the compiled code loaded.
	Shell(ctx context.Context, paths project.Paths, artifacts *Artifacts) error
}

// Exporter writes build artifacts in distributable forms.
type Exporter interface {
	ErlangShipment(ctx context.Context, paths project.Paths, artifacts *Artifacts) (string, error)
	HexTarball(ctx context.Context, paths project.Paths, artifacts *Artifacts) (string, error)
	PackageInterface(ctx context.Context, paths project.Paths, artifacts *Artifacts, out string) error
	PackageInformation(ctx context.Context, paths project.Paths, out string) error

	// JavaScriptPrelude and TypeScriptPrelude need no project.
	JavaScriptPrelude(ctx context.Context, w io.Writer) error
	TypeScriptPrelude(ctx context.Context, w io.Writer) error
}

// Publisher uploads a compiled package to the registry.
type Publisher interface {
	Publish(ctx context.Context, paths project.Paths, artifacts *Artifacts, req PublishRequest) error
}

// DocsRenderer renders and uploads package documentation.
type DocsRenderer interface {
	// Render writes HTML documentation and returns the output directory.
	Render(ctx context.Context, paths project.Paths, artifacts *Artifacts) (string, error)

	// Publish renders documentation and uploads it for the current version.
	Publish(ctx context.Context, paths project.Paths, artifacts *Artifacts) error
}

// Registry performs package ownership operations against the package
// registry. None of them need a project.
type Registry interface {
	Retire(ctx context.Context, pkg, version string, reason RetirementReason, message string) error
	Unretire(ctx context.Context, pkg, version string) error
	Revert(ctx context.Context, pkg, version string) error
	TransferOwner(ctx context.Context, pkg, newOwner string) error
	RemoveDocs(ctx context.Context, pkg, version string) error
	Authenticate(ctx context.Context) error
}

// Formatter formats source files or stdin.
type Formatter interface {
	Format(ctx context.Context, req FormatRequest) error
}

// Fixer rewrites deprecated syntax in a project.
type Fixer interface {
	Fix(ctx context.Context, paths project.Paths) error
}

// LanguageServer serves the language server protocol on stdio.
type LanguageServer interface {
	Serve(ctx context.Context) error
}

// PackageCompiler compiles a single package outside any project.
type PackageCompiler interface {
	CompilePackage(ctx context.Context, req CompilePackageRequest) error
}

// ProjectCreator scaffolds a new project.
type ProjectCreator interface {
	Create(ctx context.Context, req NewProjectRequest) error
}
