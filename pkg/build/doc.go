// Package build holds the vocabulary shared by every stage of a build: the
// target, runtime and entry point enumerations, and the immutable Options
// record handed to the compilation pipeline.
//
// Options are never built by hand outside this package. Each command picks
// one of the assembler functions, which encode the policy for that command:
//
//	CheckOptions       dependency-only codegen, warnings never fatal
//	BuildOptions       full codegen, optional warnings-as-errors
//	EntrypointOptions  shared by run, test and dev
//	ProductionOptions  publish and export
//	DocsOptions        documentation rendering
//	ShellOptions       interactive Erlang shell
//
// Every enumeration parses case-insensitively and reports the valid choices
// when given an unknown value.
package build
