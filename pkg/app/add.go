package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	packageName    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	partialVersion = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)
)

// AddSpecifier is one `gleam add` argument: a package name optionally
// followed by @ and a full or partial version.
type AddSpecifier struct {
	Name string

	// Version is the version as written, or empty.
	Version string
}

// ParseAddSpecifier parses name or name@version.
func ParseAddSpecifier(s string) (AddSpecifier, error) {
	name, version, hasVersion := strings.Cut(s, "@")
	if !packageName.MatchString(name) {
		return AddSpecifier{}, fmt.Errorf("invalid package name %q", name)
	}
	if hasVersion && !partialVersion.MatchString(version) {
		return AddSpecifier{}, fmt.Errorf("invalid version %q for package %s", version, name)
	}
	return AddSpecifier{Name: name, Version: version}, nil
}

// Range is the requirement the package is resolved with. A full version is
// pinned exactly; a partial one allows anything up to the next major.
func (s AddSpecifier) Range() string {
	if s.Version == "" {
		return ">= 0.0.0"
	}

	parts := strings.Split(s.Version, ".")
	switch len(parts) {
	case 3:
		return s.Version
	case 2:
		return fmt.Sprintf(">= %s.%s.0 and < %s", parts[0], parts[1], nextMajor(parts[0]))
	default:
		return fmt.Sprintf(">= %s.0.0 and < %s", parts[0], nextMajor(parts[0]))
	}
}

// RequirementFor is the requirement written to gleam.toml once selected has
// been chosen by resolution.
func (s AddSpecifier) RequirementFor(selected string) (string, error) {
	if s.Version != "" {
		return s.Range(), nil
	}

	v := "v" + selected
	if !semver.IsValid(v) {
		return "", fmt.Errorf("package %s resolved to invalid version %q", s.Name, selected)
	}
	major := strings.TrimPrefix(semver.Major(v), "v")
	return fmt.Sprintf(">= %s and < %s", selected, nextMajor(major)), nil
}

func nextMajor(major string) string {
	n, err := strconv.Atoi(major)
	if err != nil {
		return major + ".0.0"
	}
	return strconv.Itoa(n+1) + ".0.0"
}
