package build

import "fmt"

// Mode is the build mode, which selects the build output directory.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
	ModeLsp  Mode = "lsp"
)

// String returns the canonical name of the mode.
func (m Mode) String() string {
	return string(m)
}

// Codegen controls which packages have target code written to disk.
type Codegen string

const (
	// CodegenAll generates code for the root package and every dependency.
	CodegenAll Codegen = "all"

	// CodegenDepsOnly generates code for dependencies only; the root package
	// is analysed but produces no build artifacts.
	CodegenDepsOnly Codegen = "deps-only"
)

// String returns the canonical name of the codegen setting.
func (c Codegen) String() string {
	return string(c)
}

// Compile controls which packages are compiled.
type Compile string

const (
	// CompileAll compiles the root package and every dependency.
	CompileAll Compile = "all"

	// CompileDepsOnly compiles dependencies only.
	CompileDepsOnly Compile = "deps-only"
)

// String returns the canonical name of the compile setting.
func (c Compile) String() string {
	return string(c)
}

// TargetSupport controls whether the root package must support the selected target.
type TargetSupport string

const (
	TargetSupportEnforced    TargetSupport = "enforced"
	TargetSupportNotEnforced TargetSupport = "not-enforced"
)

// String returns the canonical name of the target support setting.
func (t TargetSupport) String() string {
	return string(t)
}

// Options is the configuration consumed by the compilation pipeline.
//
// Options is constructed once per command by one of the assembler functions
// and passed by value; nothing mutates it afterwards.
type Options struct {
	RootTargetSupport TargetSupport
	WarningsAsErrors  bool
	Codegen           Codegen
	Compile           Compile
	Mode              Mode

	// Target overrides the target configured in gleam.toml when non-nil.
	Target *Target

	NoPrintProgress bool
}

// TargetOr returns the override target, or fallback when none was given.
func (o Options) TargetOr(fallback Target) Target {
	if o.Target != nil {
		return *o.Target
	}
	return fallback
}

// String renders the options for logs.
func (o Options) String() string {
	target := "default"
	if o.Target != nil {
		target = o.Target.String()
	}
	return fmt.Sprintf("mode=%s target=%s codegen=%s compile=%s warnings_as_errors=%t",
		o.Mode, target, o.Codegen, o.Compile, o.WarningsAsErrors)
}
