package project

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/brightly-salty/gleam/pkg/build"
)

// Requirement is a dependency declaration. Exactly one of Version, Path or
// Git is set.
type Requirement struct {
	Version string `toml:"version,omitempty" yaml:"version,omitempty" json:"version,omitempty"`
	Path    string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
	Git     string `toml:"git,omitempty" yaml:"git,omitempty" json:"git,omitempty"`
	Ref     string `toml:"ref,omitempty" yaml:"ref,omitempty" json:"ref,omitempty"`
}

// String renders the requirement the way gleam.toml spells it.
func (r Requirement) String() string {
	switch {
	case r.Path != "":
		return fmt.Sprintf("{ path = %q }", r.Path)
	case r.Git != "":
		return fmt.Sprintf("{ git = %q, ref = %q }", r.Git, r.Ref)
	default:
		return fmt.Sprintf("%q", r.Version)
	}
}

// Repository points at the package's source code host.
type Repository struct {
	Type string `toml:"type" yaml:"type" json:"type"`
	User string `toml:"user,omitempty" yaml:"user,omitempty" json:"user,omitempty"`
	Repo string `toml:"repo,omitempty" yaml:"repo,omitempty" json:"repo,omitempty"`
	URL  string `toml:"url,omitempty" yaml:"url,omitempty" json:"url,omitempty"`
}

// Link is an extra sidebar link in rendered documentation.
type Link struct {
	Title string `toml:"title" yaml:"title" json:"title" validate:"required"`
	Href  string `toml:"href" yaml:"href" json:"href" validate:"required,url"`
}

// DocsPage is an extra markdown page rendered into the documentation.
type DocsPage struct {
	Title  string `toml:"title" yaml:"title" json:"title" validate:"required"`
	Path   string `toml:"path" yaml:"path" json:"path" validate:"required"`
	Source string `toml:"source" yaml:"source" json:"source" validate:"required"`
}

// ErlangConfig holds Erlang target settings.
type ErlangConfig struct {
	ApplicationStartModule string   `toml:"application_start_module,omitempty" yaml:"application_start_module,omitempty" json:"application_start_module,omitempty"`
	ExtraApplications      []string `toml:"extra_applications,omitempty" yaml:"extra_applications,omitempty" json:"extra_applications,omitempty"`
}

// JavaScriptConfig holds JavaScript target settings.
type JavaScriptConfig struct {
	TypescriptDeclarations bool          `toml:"typescript_declarations" yaml:"typescript_declarations" json:"typescript_declarations"`
	Runtime                build.Runtime `toml:"-" yaml:"runtime,omitempty" json:"runtime,omitempty"`
}

// DocumentationConfig holds documentation settings.
type DocumentationConfig struct {
	Pages []DocsPage `toml:"pages" yaml:"pages,omitempty" json:"pages,omitempty" validate:"dive"`
}

// Config is the decoded gleam.toml of a package.
type Config struct {
	Name            string                 `yaml:"name" json:"name" validate:"required,packagename"`
	Version         string                 `yaml:"version" json:"version" validate:"required,semver"`
	Description     string                 `yaml:"description,omitempty" json:"description"`
	Licences        []string               `yaml:"licences,omitempty" json:"licences"`
	GleamVersion    string                 `yaml:"gleam,omitempty" json:"gleam_version,omitempty"`
	Target          build.Target           `yaml:"target" json:"target"`
	Repository      *Repository            `yaml:"repository,omitempty" json:"repository,omitempty"`
	Links           []Link                 `yaml:"links,omitempty" json:"links" validate:"dive"`
	InternalModules []string               `yaml:"internal_modules,omitempty" json:"internal_modules,omitempty"`
	Dependencies    map[string]Requirement `yaml:"dependencies" json:"dependencies"`
	DevDependencies map[string]Requirement `yaml:"dev-dependencies" json:"dev-dependencies"`
	Erlang          ErlangConfig           `yaml:"erlang" json:"erlang"`
	JavaScript      JavaScriptConfig       `yaml:"javascript" json:"javascript"`
	Documentation   DocumentationConfig    `yaml:"documentation" json:"documentation"`
}

// rawConfig mirrors gleam.toml before requirements and enumerations are
// normalised.
type rawConfig struct {
	Name            string              `toml:"name"`
	Version         string              `toml:"version"`
	Description     string              `toml:"description"`
	Licences        []string            `toml:"licences"`
	Gleam           string              `toml:"gleam"`
	Target          string              `toml:"target"`
	Repository      *Repository         `toml:"repository"`
	Links           []Link              `toml:"links"`
	InternalModules []string            `toml:"internal_modules"`
	Dependencies    map[string]any      `toml:"dependencies"`
	DevDependencies map[string]any      `toml:"dev-dependencies"`
	DevDepsAlias    map[string]any      `toml:"dev_dependencies"`
	Erlang          ErlangConfig        `toml:"erlang"`
	JavaScript      rawJavaScript       `toml:"javascript"`
	Documentation   DocumentationConfig `toml:"documentation"`
}

type rawJavaScript struct {
	TypescriptDeclarations bool   `toml:"typescript_declarations"`
	Runtime                string `toml:"runtime"`
}

var packageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("packagename", func(fl validator.FieldLevel) bool {
		return packageNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// LoadConfig reads and validates the gleam.toml of the project at paths.
func LoadConfig(paths Paths) (*Config, error) {
	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", paths.ConfigFile(), err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", paths.ConfigFile(), err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates gleam.toml content.
func ParseConfig(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := &Config{
		Name:            raw.Name,
		Version:         raw.Version,
		Description:     raw.Description,
		Licences:        raw.Licences,
		GleamVersion:    raw.Gleam,
		Target:          build.TargetErlang,
		Repository:      raw.Repository,
		Links:           raw.Links,
		InternalModules: raw.InternalModules,
		Erlang:          raw.Erlang,
		Documentation:   raw.Documentation,
		JavaScript: JavaScriptConfig{
			TypescriptDeclarations: raw.JavaScript.TypescriptDeclarations,
		},
	}

	if raw.Target != "" {
		t, err := build.ParseTarget(raw.Target)
		if err != nil {
			return nil, err
		}
		cfg.Target = t
	}

	if raw.JavaScript.Runtime != "" {
		name := raw.JavaScript.Runtime
		if strings.EqualFold(name, "node") {
			name = string(build.RuntimeNodeJS)
		}
		r, err := build.ParseRuntime(name)
		if err != nil {
			return nil, err
		}
		cfg.JavaScript.Runtime = r
	}

	deps, err := parseRequirements(raw.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	cfg.Dependencies = deps

	devRaw := raw.DevDependencies
	if devRaw == nil {
		devRaw = raw.DevDepsAlias
	}
	devDeps, err := parseRequirements(devRaw)
	if err != nil {
		return nil, fmt.Errorf("dev-dependencies: %w", err)
	}
	cfg.DevDependencies = devDeps

	for name := range cfg.DevDependencies {
		if _, ok := cfg.Dependencies[name]; ok {
			return nil, fmt.Errorf("package %s is both a dependency and a dev-dependency", name)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describeValidation(err)
	}

	return cfg, nil
}

// AllRequirements merges dependencies and, when dev is true, dev-dependencies.
func (c *Config) AllRequirements(dev bool) map[string]Requirement {
	all := make(map[string]Requirement, len(c.Dependencies)+len(c.DevDependencies))
	for name, r := range c.Dependencies {
		all[name] = r
	}
	if dev {
		for name, r := range c.DevDependencies {
			all[name] = r
		}
	}
	return all
}

// SortedDependencyNames lists every declared dependency name in order.
func (c *Config) SortedDependencyNames() []string {
	names := make([]string, 0, len(c.Dependencies)+len(c.DevDependencies))
	for name := range c.AllRequirements(true) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseRequirements(raw map[string]any) (map[string]Requirement, error) {
	reqs := make(map[string]Requirement, len(raw))
	for name, value := range raw {
		if !packageNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid package name %q", name)
		}
		switch v := value.(type) {
		case string:
			reqs[name] = Requirement{Version: v}
		case map[string]any:
			r := Requirement{
				Version: stringField(v, "version"),
				Path:    stringField(v, "path"),
				Git:     stringField(v, "git"),
				Ref:     stringField(v, "ref"),
			}
			set := 0
			for _, s := range []string{r.Version, r.Path, r.Git} {
				if s != "" {
					set++
				}
			}
			if set != 1 {
				return nil, fmt.Errorf("package %s must specify exactly one of version, path or git", name)
			}
			if r.Git != "" && r.Ref == "" {
				return nil, fmt.Errorf("git dependency %s must specify a ref", name)
			}
			reqs[name] = r
		default:
			return nil, fmt.Errorf("package %s has an unsupported requirement of type %T", name, value)
		}
	}
	return reqs, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "packagename":
			msgs = append(msgs, fmt.Sprintf("%q is not a valid package name: use lowercase letters, digits and underscores", fe.Value()))
		case "semver":
			msgs = append(msgs, fmt.Sprintf("%q is not a valid version", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
