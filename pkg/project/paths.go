// Package project locates a project on disk and reads its gleam.toml.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brightly-salty/gleam/pkg/build"
)

const (
	// ConfigFileName marks the root directory of a project.
	ConfigFileName = "gleam.toml"

	// ManifestFileName is the lock file written next to gleam.toml.
	ManifestFileName = "manifest.toml"
)

// ErrNoProject is returned by Find when no directory up to the filesystem
// root contains gleam.toml.
var ErrNoProject = errors.New("no " + ConfigFileName + " found in this directory or any parent directory")

// Paths identifies the root of a project and the locations derived from it.
type Paths struct {
	root string
}

// NewPaths returns the paths of the project rooted at root.
func NewPaths(root string) Paths {
	return Paths{root: filepath.Clean(root)}
}

// Root is the project root directory.
func (p Paths) Root() string { return p.root }

// ConfigFile is the path of gleam.toml.
func (p Paths) ConfigFile() string { return filepath.Join(p.root, ConfigFileName) }

// ManifestFile is the path of manifest.toml.
func (p Paths) ManifestFile() string { return filepath.Join(p.root, ManifestFileName) }

// SrcDirectory holds the package's source modules.
func (p Paths) SrcDirectory() string { return filepath.Join(p.root, "src") }

// TestDirectory holds the package's test modules.
func (p Paths) TestDirectory() string { return filepath.Join(p.root, "test") }

// DevDirectory holds the package's development modules.
func (p Paths) DevDirectory() string { return filepath.Join(p.root, "dev") }

// BuildDirectory holds every build output of the project.
func (p Paths) BuildDirectory() string { return filepath.Join(p.root, "build") }

// PackagesDirectory holds downloaded dependency sources.
func (p Paths) PackagesDirectory() string { return filepath.Join(p.BuildDirectory(), "packages") }

// PackagesTOML records which package versions are present in PackagesDirectory.
func (p Paths) PackagesTOML() string { return filepath.Join(p.PackagesDirectory(), "packages.toml") }

// BuildDirectoryForMode is build/<mode>.
func (p Paths) BuildDirectoryForMode(mode build.Mode) string {
	return filepath.Join(p.BuildDirectory(), mode.String())
}

// BuildDirectoryForTarget is build/<mode>/<target>.
func (p Paths) BuildDirectoryForTarget(mode build.Mode, target build.Target) string {
	return filepath.Join(p.BuildDirectoryForMode(mode), target.String())
}

// BuildDirectoryForPackage is build/<mode>/<target>/<package>.
func (p Paths) BuildDirectoryForPackage(mode build.Mode, target build.Target, pkg string) string {
	return filepath.Join(p.BuildDirectoryForTarget(mode, target), pkg)
}

// ErlangShipmentDirectory is where `export erlang-shipment` writes its output.
func (p Paths) ErlangShipmentDirectory() string {
	return filepath.Join(p.BuildDirectory(), "erlang-shipment")
}

// DocsDirectory is where rendered documentation is written.
func (p Paths) DocsDirectory(pkg string) string {
	return filepath.Join(p.BuildDirectoryForMode(build.ModeDev), "docs", pkg)
}

// Find walks upward from dir until it finds a directory containing
// gleam.toml. It only reads the filesystem.
func Find(dir string) (Paths, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for current := abs; ; {
		info, err := os.Stat(filepath.Join(current, ConfigFileName))
		if err == nil && !info.IsDir() {
			return NewPaths(current), nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Paths{}, fmt.Errorf("failed to inspect %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return Paths{}, ErrNoProject
		}
		current = parent
	}
}

// FindFromWorkingDirectory is Find starting at the process working directory.
func FindFromWorkingDirectory() (Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Find(wd)
}
