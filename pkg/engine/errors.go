package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for reporting.
type ErrorKind string

const (
	// ErrorKindUsage is malformed command line input. It is raised before any
	// stage runs.
	ErrorKindUsage ErrorKind = "usage"

	// ErrorKindProject means no project could be located.
	ErrorKindProject ErrorKind = "project"

	// ErrorKindDependency is a failure to resolve or download dependencies.
	ErrorKindDependency ErrorKind = "dependency"

	// ErrorKindCompile is a compilation failure.
	ErrorKindCompile ErrorKind = "compile"

	// ErrorKindRuntime is a failure while executing an entry point.
	ErrorKindRuntime ErrorKind = "runtime"

	// ErrorKindExport is a failure while exporting a build artifact.
	ErrorKindExport ErrorKind = "export"

	// ErrorKindPublish is a failure while publishing a package.
	ErrorKindPublish ErrorKind = "publish"

	// ErrorKindDocs is a failure while rendering or uploading documentation.
	ErrorKindDocs ErrorKind = "docs"

	// ErrorKindRegistry is a failure reported by the package registry.
	ErrorKindRegistry ErrorKind = "registry"

	// ErrorKindIO is a filesystem or process failure outside any stage.
	ErrorKindIO ErrorKind = "io"
)

// Error is a classified, displayable failure.
type Error struct {
	// Kind is the failure classification.
	Kind ErrorKind `json:"kind"`

	// Stage names the pipeline stage that failed, if any.
	Stage string `json:"stage,omitempty"`

	// Message is the human-readable summary.
	Message string `json:"message"`

	// Hint is an optional suggestion shown below the message.
	Hint string `json:"hint,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinel values
// such as ErrNoProject can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || e.Message == t.Message)
}

// WithHint attaches a suggestion to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithStage records the stage that produced the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// UsageError reports malformed command line input.
func UsageError(err error) *Error {
	return &Error{
		Kind: ErrorKindUsage,
		Err:  err,
		Hint: "Run with --help to see the available commands and flags.",
	}
}

// ProjectError reports that no project could be located.
func ProjectError(err error) *Error {
	return &Error{
		Kind:    ErrorKindProject,
		Message: "no project found",
		Err:     err,
		Hint:    "Run this command from inside a directory containing gleam.toml, or create one with `gleam new`.",
	}
}

// StageError reports a failure inside a pipeline stage.
func StageError(kind ErrorKind, stage, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the classification of err, or ErrorKindIO when err carries
// none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindIO
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ErrNoProject matches any project-location failure with errors.Is.
var ErrNoProject = &Error{Kind: ErrorKindProject, Message: "no project found"}
