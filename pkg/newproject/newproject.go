// Package newproject scaffolds new Gleam projects.
package newproject

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Versions pinned into generated files.
const (
	StdlibRequirement   = ">= 0.44.0 and < 2.0.0"
	GleeunitRequirement = ">= 1.0.0 and < 2.0.0"
	OTPVersion          = "27.1.2"
	GleamVersion        = "1.6.3"
	NodeVersion         = "20"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedNames cannot be package names: Gleam keywords, Erlang reserved
// words, and names of modules every project depends on.
var reservedNames = map[string]bool{
	"as": true, "assert": true, "auto": true, "case": true, "const": true,
	"delegate": true, "derive": true, "echo": true, "else": true, "fn": true,
	"if": true, "implement": true, "import": true, "let": true, "macro": true,
	"opaque": true, "panic": true, "pub": true, "test": true, "todo": true,
	"type": true, "use": true,
	"after": true, "and": true, "andalso": true, "band": true, "begin": true,
	"bnot": true, "bor": true, "bsl": true, "bsr": true, "bxor": true,
	"catch": true, "cond": true, "div": true, "end": true, "maybe": true,
	"not": true, "of": true, "or": true, "orelse": true, "receive": true,
	"rem": true, "try": true, "when": true, "xor": true,
	"gleam": true, "gleam_stdlib": true, "gleeunit": true,
}

// Creator implements engine.ProjectCreator.
type Creator struct {
	out    io.Writer
	git    func(ctx context.Context, dir string) error
	logger zerolog.Logger
}

var _ engine.ProjectCreator = (*Creator)(nil)

// New creates a Creator that prints instructions to out.
func New(out io.Writer) *Creator {
	return &Creator{out: out, git: gitInit, logger: telemetry.Component("new")}
}

type templateData struct {
	Name                string
	JavaScript          bool
	StdlibRequirement   string
	GleeunitRequirement string
	OTPVersion          string
	GleamVersion        string
	NodeVersion         string
}

type file struct {
	path     string
	template string
}

// Create writes a new project to req.Root. The directory must not exist or
// must be empty.
func (c *Creator) Create(ctx context.Context, req engine.NewProjectRequest) error {
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return engine.NewError(engine.ErrorKindIO, "invalid project directory", err)
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(root)
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := checkEmpty(root); err != nil {
		return err
	}

	data := templateData{
		Name:                name,
		JavaScript:          req.Template == engine.TemplateJavaScript,
		StdlibRequirement:   StdlibRequirement,
		GleeunitRequirement: GleeunitRequirement,
		OTPVersion:          OTPVersion,
		GleamVersion:        GleamVersion,
		NodeVersion:         NodeVersion,
	}

	files := []file{
		{"gleam.toml", "gleam.toml.tmpl"},
		{"README.md", "README.md.tmpl"},
		{".gitignore", "gitignore.tmpl"},
		{filepath.Join("src", name+".gleam"), "module.gleam.tmpl"},
		{filepath.Join("test", name+"_test.gleam"), "test.gleam.tmpl"},
	}
	if !req.SkipGitHub {
		files = append(files, file{filepath.Join(".github", "workflows", "test.yml"), "workflow.yml.tmpl"})
	}

	for _, f := range files {
		if err := write(filepath.Join(root, f.path), f.template, data); err != nil {
			return err
		}
	}

	if !req.SkipGit {
		if err := c.git(ctx, root); err != nil {
			c.logger.Warn().Err(err).Str("root", root).Msg("Failed to initialise git repository")
		}
	}

	c.logger.Info().Str("name", name).Str("root", root).Str("template", req.Template.String()).Msg("Created project")
	fmt.Fprintf(c.out, "Your Gleam project %s has been successfully created.\n"+
		"The project can be compiled and tested by running these commands:\n\n"+
		"\tcd %s\n\tgleam test\n", name, req.Root)
	return nil
}

// ValidateName reports whether name can be used as a package name.
func ValidateName(name string) error {
	switch {
	case !namePattern.MatchString(name):
		return engine.UsageError(fmt.Errorf("invalid project name %q", name)).
			WithHint("Project names must start with a lowercase letter and contain only lowercase letters, numbers and underscores.")
	case reservedNames[name]:
		return engine.UsageError(fmt.Errorf("invalid project name %q: it is a reserved word", name)).
			WithHint("Choose a different name with --name.")
	}
	return nil
}

func checkEmpty(root string) error {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to read "+root, err)
	}
	if len(entries) > 0 {
		return engine.NewError(engine.ErrorKindProject, fmt.Sprintf("%s already exists and is not empty", root), nil).
			WithHint("Choose a new directory or remove the existing files.")
	}
	return nil
}

func write(path, name string, data templateData) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to render "+filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to write "+path, err)
	}
	return nil
}

func gitInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, "git", "init", "--quiet")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}
