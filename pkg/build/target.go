package build

import (
	"fmt"
	"strings"
)

// Target is a compilation platform.
type Target string

const (
	// TargetErlang compiles to Erlang source and BEAM bytecode.
	TargetErlang Target = "erlang"

	// TargetJavaScript compiles to JavaScript modules.
	TargetJavaScript Target = "javascript"
)

// Targets lists every supported target in display order.
var Targets = []Target{TargetErlang, TargetJavaScript}

// ParseTarget parses a target name, ignoring case.
func ParseTarget(s string) (Target, error) {
	for _, t := range Targets {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", invalidChoice("target", s, Targets)
}

// String returns the canonical name of the target.
func (t Target) String() string {
	return string(t)
}

// Set implements pflag.Value.
func (t *Target) Set(s string) error {
	parsed, err := ParseTarget(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Type implements pflag.Value.
func (t *Target) Type() string {
	return "target"
}

// Runtime is a JavaScript execution environment.
type Runtime string

const (
	RuntimeNodeJS Runtime = "nodejs"
	RuntimeDeno   Runtime = "deno"
	RuntimeBun    Runtime = "bun"
)

// Runtimes lists every supported runtime in display order.
var Runtimes = []Runtime{RuntimeNodeJS, RuntimeDeno, RuntimeBun}

// ParseRuntime parses a runtime name, ignoring case.
func ParseRuntime(s string) (Runtime, error) {
	for _, r := range Runtimes {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", invalidChoice("runtime", s, Runtimes)
}

// String returns the canonical name of the runtime.
func (r Runtime) String() string {
	return string(r)
}

// Set implements pflag.Value.
func (r *Runtime) Set(s string) error {
	parsed, err := ParseRuntime(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Type implements pflag.Value.
func (r *Runtime) Type() string {
	return "runtime"
}

// CompatibleWith reports whether the runtime can execute code built for target.
// Every runtime is a JavaScript runtime.
func (r Runtime) CompatibleWith(t Target) bool {
	return t == TargetJavaScript
}

// Which selects the entry point category of an execution command.
type Which string

const (
	// WhichSrc runs the main function of the package's own module.
	WhichSrc Which = "src"

	// WhichTest runs the main function of the <package>_test module.
	WhichTest Which = "test"

	// WhichDev runs the main function of the <package>_dev module.
	WhichDev Which = "dev"
)

// Whiches lists every entry point category.
var Whiches = []Which{WhichSrc, WhichTest, WhichDev}

// ParseWhich parses an entry point category, ignoring case.
func ParseWhich(s string) (Which, error) {
	for _, w := range Whiches {
		if strings.EqualFold(s, string(w)) {
			return w, nil
		}
	}
	return "", invalidChoice("entry point", s, Whiches)
}

// String returns the canonical name of the entry point category.
func (w Which) String() string {
	return string(w)
}

// ModuleSuffix is appended to the package name to find the default module.
func (w Which) ModuleSuffix() string {
	switch w {
	case WhichTest:
		return "_test"
	case WhichDev:
		return "_dev"
	default:
		return ""
	}
}

// Directory is the project-relative directory that holds the entry point.
func (w Which) Directory() string {
	switch w {
	case WhichTest:
		return "test"
	case WhichDev:
		return "dev"
	default:
		return "src"
	}
}

// Join renders a list of choices the way usage errors and help text show them.
func Join[T ~string](choices []T) string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}

func invalidChoice[T ~string](what, got string, choices []T) error {
	return fmt.Errorf("invalid %s %q, expected one of: %s", what, got, Join(choices))
}
