package build

import "fmt"

// CheckOptions assembles the options of a type check. A check analyses the
// whole project but writes code for dependencies only, and never fails on
// warnings.
func CheckOptions(target *Target) Options {
	return Options{
		RootTargetSupport: TargetSupportEnforced,
		WarningsAsErrors:  false,
		Codegen:           CodegenDepsOnly,
		Compile:           CompileAll,
		Mode:              ModeDev,
		Target:            copyTarget(target),
		NoPrintProgress:   false,
	}
}

// BuildOptions assembles the options of a full development build.
func BuildOptions(target *Target, warningsAsErrors, noPrintProgress bool) Options {
	return Options{
		RootTargetSupport: TargetSupportEnforced,
		WarningsAsErrors:  warningsAsErrors,
		Codegen:           CodegenAll,
		Compile:           CompileAll,
		Mode:              ModeDev,
		Target:            copyTarget(target),
		NoPrintProgress:   noPrintProgress,
	}
}

// EntrypointOptions assembles the options shared by run, test and dev.
func EntrypointOptions(target *Target, noPrintProgress bool) Options {
	return Options{
		RootTargetSupport: TargetSupportEnforced,
		WarningsAsErrors:  false,
		Codegen:           CodegenAll,
		Compile:           CompileAll,
		Mode:              ModeDev,
		Target:            copyTarget(target),
		NoPrintProgress:   noPrintProgress,
	}
}

// ProductionOptions assembles the options used before publishing or exporting
// a package: production mode, full codegen, warnings tolerated.
func ProductionOptions(target *Target) Options {
	return Options{
		RootTargetSupport: TargetSupportEnforced,
		WarningsAsErrors:  false,
		Codegen:           CodegenAll,
		Compile:           CompileAll,
		Mode:              ModeProd,
		Target:            copyTarget(target),
		NoPrintProgress:   false,
	}
}

// DocsOptions assembles the options used to analyse a package before
// rendering its documentation.
func DocsOptions(target *Target) Options {
	opts := ProductionOptions(target)
	opts.Codegen = CodegenDepsOnly
	return opts
}

// ShellOptions assembles the options of the interactive shell, which always
// runs on the Erlang target.
func ShellOptions() Options {
	erlang := TargetErlang
	return BuildOptions(&erlang, false, false)
}

// ResolveTarget picks the explicit target when given, then the configured
// one, then Erlang.
func ResolveTarget(explicit *Target, configured Target) Target {
	if explicit != nil {
		return *explicit
	}
	if configured != "" {
		return configured
	}
	return TargetErlang
}

// ResolveRuntime picks the runtime for target. An explicit runtime wins over
// the configured one; a runtime with a non-JavaScript target is an error.
func ResolveRuntime(explicit *Runtime, configured Runtime, target Target) (Runtime, error) {
	if explicit != nil {
		if !explicit.CompatibleWith(target) {
			return "", fmt.Errorf("the %s runtime cannot be used with the %s target", *explicit, target)
		}
		return *explicit, nil
	}
	if target != TargetJavaScript {
		return "", nil
	}
	if configured != "" {
		return configured, nil
	}
	return RuntimeNodeJS, nil
}

func copyTarget(target *Target) *Target {
	if target == nil {
		return nil
	}
	t := *target
	return &t
}
