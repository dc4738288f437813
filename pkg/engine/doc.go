// Package engine sequences the stages a project command goes through.
//
// # Overview
//
// Every command that builds a project runs the same pipeline:
//
//  1. Dependencies - resolve requirements against the manifest and download
//     missing packages (DependencyManager)
//  2. Compile - hand the manifest to the compiler for the requested mode and
//     target (Compiler)
//  3. Action - run, shell, export, publish or render docs over the compiled
//     artifacts (Action)
//
// A stage only starts once the previous one has succeeded, and the first
// failing stage ends the command. Pipeline.Resolve runs the first stage on
// its own for the dependency commands.
//
// # Errors
//
// Failures are reported as *Error values carrying an ErrorKind, the stage
// that produced them and an optional hint for the user. Use IsKind and
// KindOf to inspect an error chain, and Printer to render one.
//
// # Collaborators
//
// The interfaces in this package are the seams to the external subsystems:
// the compiler backend, the package registry, the runtime launcher and the
// project scaffolder. Each is implemented outside the engine and injected by
// the dispatcher.
package engine
