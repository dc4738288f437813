// Package command defines the closed set of commands the tool accepts. A
// Command value is produced by parsing the command line and is fully
// validated: enumerations are parsed, required values are present and
// conflicting flags have been rejected.
package command

import (
	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/engine"
)

// Command is one parsed invocation. Only types in this package implement it.
type Command interface {
	// Name is the space separated subcommand path, e.g. "deps tree".
	Name() string

	command()
}

// EntrypointFlags are the flags shared by run, test and dev.
type EntrypointFlags struct {
	// Target overrides the project's configured target.
	Target *build.Target

	// Runtime overrides the JavaScript runtime.
	Runtime *build.Runtime

	// Arguments are forwarded verbatim to the entry point.
	Arguments []string
}

type Build struct {
	Target           *build.Target
	WarningsAsErrors bool
	NoPrintProgress  bool
}

type Check struct {
	Target *build.Target
}

type Run struct {
	EntrypointFlags

	// Module runs this module's main function instead of the package's.
	Module          string
	NoPrintProgress bool
}

type Test struct {
	EntrypointFlags
}

type Dev struct {
	EntrypointFlags
}

type Format struct {
	Files []string
	Stdin bool
	Check bool
}

type Fix struct{}

type Add struct {
	// Packages are names, optionally suffixed with @version.
	Packages []string
	Dev      bool
}

type Remove struct {
	Packages []string
}

// Update is the top-level shorthand for `deps update`.
type Update struct {
	Packages []string
}

type Clean struct{}

type DocsBuild struct {
	Open   bool
	Target *build.Target
}

type DocsPublish struct{}

type DocsRemove struct {
	Package string
	Version string
}

type DepsList struct{}

type DepsDownload struct{}

type DepsOutdated struct{}

type DepsUpdate struct {
	Packages []string
}

// DepsTree renders the dependency tree. At most one of Package and Invert is
// set.
type DepsTree struct {
	Package string
	Invert  string
}

type HexRetire struct {
	Package string
	Version string
	Reason  engine.RetirementReason
	Message string
}

type HexUnretire struct {
	Package string
	Version string
}

// HexRevert removes a release. Empty fields default to the project's name and
// version.
type HexRevert struct {
	Package string
	Version string
}

type HexOwnerTransfer struct {
	Package  string
	NewOwner string
}

type HexAuthenticate struct{}

type ExportErlangShipment struct{}

type ExportHexTarball struct{}

type ExportJavaScriptPrelude struct{}

type ExportTypeScriptPrelude struct{}

type ExportPackageInterface struct {
	Output string
}

type ExportPackageInformation struct {
	Output string
}

type New struct {
	Root        string
	ProjectName string
	Template    engine.Template
	SkipGit     bool
	SkipGitHub  bool
}

type Publish struct {
	Replace bool
	Yes     bool
}

type PrintConfig struct{}

type LanguageServer struct{}

type Shell struct{}

type CompilePackage struct {
	Target            build.Target
	PackageDirectory  string
	OutputDirectory   string
	LibDirectory      string
	JavaScriptPrelude string
	SkipBeam          bool
}

func (Build) Name() string { return "build" }
func (Check) Name() string { return "check" }
func (Run) Name() string { return "run" }
func (Test) Name() string { return "test" }
func (Dev) Name() string { return "dev" }
func (Format) Name() string { return "format" }
func (Fix) Name() string { return "fix" }
func (Add) Name() string { return "add" }
func (Remove) Name() string { return "remove" }
func (Update) Name() string { return "update" }
func (Clean) Name() string { return "clean" }
func (DocsBuild) Name() string { return "docs build" }
func (DocsPublish) Name() string { return "docs publish" }
func (DocsRemove) Name() string { return "docs remove" }
func (DepsList) Name() string { return "deps list" }
func (DepsDownload) Name() string { return "deps download" }
func (DepsOutdated) Name() string { return "deps outdated" }
func (DepsUpdate) Name() string { return "deps update" }
func (DepsTree) Name() string { return "deps tree" }
func (HexRetire) Name() string { return "hex retire" }
func (HexUnretire) Name() string { return "hex unretire" }
func (HexRevert) Name() string { return "hex revert" }
func (HexOwnerTransfer) Name() string { return "hex owner transfer" }
func (HexAuthenticate) Name() string { return "hex authenticate" }
func (ExportErlangShipment) Name() string { return "export erlang-shipment" }
func (ExportHexTarball) Name() string { return "export hex-tarball" }
func (ExportJavaScriptPrelude) Name() string { return "export javascript-prelude" }
func (ExportTypeScriptPrelude) Name() string { return "export typescript-prelude" }
func (ExportPackageInterface) Name() string { return "export package-interface" }
func (ExportPackageInformation) Name() string { return "export package-information" }
func (New) Name() string { return "new" }
func (Publish) Name() string { return "publish" }
func (PrintConfig) Name() string { return "print-config" }
func (LanguageServer) Name() string { return "lsp" }
func (Shell) Name() string { return "shell" }
func (CompilePackage) Name() string { return "compile-package" }

func (Build) command() {}
func (Check) command() {}
func (Run) command() {}
func (Test) command() {}
func (Dev) command() {}
func (Format) command() {}
func (Fix) command() {}
func (Add) command() {}
func (Remove) command() {}
func (Update) command() {}
func (Clean) command() {}
func (DocsBuild) command() {}
func (DocsPublish) command() {}
func (DocsRemove) command() {}
func (DepsList) command() {}
func (DepsDownload) command() {}
func (DepsOutdated) command() {}
func (DepsUpdate) command() {}
func (DepsTree) command() {}
func (HexRetire) command() {}
func (HexUnretire) command() {}
func (HexRevert) command() {}
func (HexOwnerTransfer) command() {}
func (HexAuthenticate) command() {}
func (ExportErlangShipment) command() {}
func (ExportHexTarball) command() {}
func (ExportJavaScriptPrelude) command() {}
func (ExportTypeScriptPrelude) command() {}
func (ExportPackageInterface) command() {}
func (ExportPackageInformation) command() {}
func (New) command() {}
func (Publish) command() {}
func (PrintConfig) command() {}
func (LanguageServer) command() {}
func (Shell) command() {}
func (CompilePackage) command() {}

// RequiresProject reports whether c operates on the project found from the
// working directory.
func RequiresProject(c Command) bool {
	switch v := c.(type) {
	case HexRevert:
		return v.Package == "" || v.Version == ""
	case New, Format, DocsRemove,
		HexRetire, HexUnretire, HexOwnerTransfer, HexAuthenticate,
		ExportJavaScriptPrelude, ExportTypeScriptPrelude,
		LanguageServer, CompilePackage:
		return false
	default:
		return true
	}
}
