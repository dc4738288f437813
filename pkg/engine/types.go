package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/project"
)

// SourceKind identifies where a locked package comes from.
type SourceKind string

const (
	SourceHex   SourceKind = "hex"
	SourceGit   SourceKind = "git"
	SourceLocal SourceKind = "local"
)

// Manifest is the resolved, locked set of dependency packages. It is produced
// by the DependencyResolver and is read-only input to every later stage.
type Manifest struct {
	// Requirements are the root package's requirements the manifest was
	// resolved against.
	Requirements map[string]project.Requirement `toml:"requirements"`

	// Packages are the locked packages, sorted by name.
	Packages []ManifestPackage `toml:"packages"`
}

// ManifestPackage is one locked package.
type ManifestPackage struct {
	Name          string     `toml:"name"`
	Version       string     `toml:"version"`
	BuildTools    []string   `toml:"build_tools"`
	Requirements  []string   `toml:"requirements"`
	OTPApp        string     `toml:"otp_app,omitempty"`
	Source        SourceKind `toml:"source"`
	OuterChecksum string     `toml:"outer_checksum,omitempty"`
	Repo          string     `toml:"repo,omitempty"`
	Commit        string     `toml:"commit,omitempty"`
	Path          string     `toml:"path,omitempty"`
}

// Package returns the locked package called name.
func (m *Manifest) Package(name string) (ManifestPackage, bool) {
	for _, p := range m.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return ManifestPackage{}, false
}

// Sort orders packages by name so the manifest renders deterministically.
func (m *Manifest) Sort() {
	sort.Slice(m.Packages, func(i, j int) bool {
		return m.Packages[i].Name < m.Packages[j].Name
	})
}

// Artifacts describes the output of a successful compilation.
type Artifacts struct {
	// Directory is the build directory for the selected mode and target.
	Directory string

	// Target is the target that was compiled.
	Target build.Target

	// Mode is the mode that was compiled.
	Mode build.Mode

	// Warnings is the number of warnings emitted.
	Warnings int
}

// UseManifest controls whether an existing manifest.toml is honored.
type UseManifest bool

const (
	UseManifestYes UseManifest = true
	UseManifestNo  UseManifest = false
)

// CheckMajorVersions controls whether upgrades across major versions are
// reported before they are written.
type CheckMajorVersions bool

const (
	CheckMajorVersionsYes CheckMajorVersions = true
	CheckMajorVersionsNo  CheckMajorVersions = false
)

// DependencyManagerConfig configures a resolution.
type DependencyManagerConfig struct {
	UseManifest        UseManifest
	CheckMajorVersions CheckMajorVersions
}

// DefaultDependencyConfig is used by every command that compiles.
var DefaultDependencyConfig = DependencyManagerConfig{
	UseManifest:        UseManifestYes,
	CheckMajorVersions: CheckMajorVersionsNo,
}

// ResolveRequest carries the inputs of a dependency resolution beyond the
// project itself.
type ResolveRequest struct {
	// Overrides adds or replaces root requirements for this resolution only.
	Overrides map[string]project.Requirement

	// Excluded lists packages whose locked versions are discarded so they are
	// resolved afresh.
	Excluded []string

	Config DependencyManagerConfig
}

// RunRequest carries the parameters of an entry point execution.
type RunRequest struct {
	Args    []string
	Target  build.Target
	Runtime build.Runtime

	// Module overrides the default module for Which when non-empty.
	Module string

	Which build.Which

	// Quiet suppresses the runner's own progress output.
	Quiet bool
}

// OutdatedPackage is a locked package with a newer release.
type OutdatedPackage struct {
	Name    string
	Current string
	Latest  string
}

// TreeRequest selects the part of the dependency tree to render. At most one
// of Package and Invert is set.
type TreeRequest struct {
	Package string
	Invert  string
}

// PublishRequest carries the publish flags.
type PublishRequest struct {
	// Replace overwrites an existing release of the same version.
	Replace bool

	// Yes skips the confirmation prompt.
	Yes bool
}

// FormatRequest selects what to format.
type FormatRequest struct {
	Files []string
	Stdin bool

	// Check reports unformatted files instead of rewriting them.
	Check bool
}

// CompilePackageRequest describes a standalone package compilation.
type CompilePackageRequest struct {
	Target            build.Target
	PackageDirectory  string
	OutputDirectory   string
	LibDirectory      string
	JavaScriptPrelude string
	SkipBeam          bool
}

// RetirementReason explains why a release is retired.
type RetirementReason string

const (
	RetireOther      RetirementReason = "other"
	RetireInvalid    RetirementReason = "invalid"
	RetireSecurity   RetirementReason = "security"
	RetireDeprecated RetirementReason = "deprecated"
	RetireRenamed    RetirementReason = "renamed"
)

// RetirementReasons lists every reason in display order.
var RetirementReasons = []RetirementReason{RetireOther, RetireInvalid, RetireSecurity, RetireDeprecated, RetireRenamed}

// ParseRetirementReason parses a reason, ignoring case.
func ParseRetirementReason(s string) (RetirementReason, error) {
	for _, r := range RetirementReasons {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid retirement reason %q, expected one of: %s", s, build.Join(RetirementReasons))
}

// Template selects the scaffold used by `new`.
type Template string

const (
	TemplateErlang     Template = "erlang"
	TemplateJavaScript Template = "javascript"
)

// Templates lists every template in display order.
var Templates = []Template{TemplateErlang, TemplateJavaScript}

// ParseTemplate parses a template name, ignoring case.
func ParseTemplate(s string) (Template, error) {
	for _, t := range Templates {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid template %q, expected one of: %s", s, build.Join(Templates))
}

// String returns the canonical name of the template.
func (t Template) String() string { return string(t) }

// Set implements pflag.Value.
func (t *Template) Set(s string) error {
	parsed, err := ParseTemplate(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Type implements pflag.Value.
func (t *Template) Type() string { return "template" }

// NewProjectRequest describes a project to scaffold.
type NewProjectRequest struct {
	Root       string
	Name       string
	Template   Template
	SkipGit    bool
	SkipGitHub bool
}
