package deps

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Constraint is a parsed Hex version requirement such as
// ">= 1.0.0 and < 2.0.0" or "~> 1.2 or == 0.9.0".
type Constraint struct {
	raw          string
	alternatives [][]comparison
}

type comparison struct {
	op      string
	version string // canonical semver with a leading "v"
}

var operators = []string{">=", "<=", "==", "!=", "~>", ">", "<"}

// ParseConstraint parses a requirement string.
func ParseConstraint(s string) (Constraint, error) {
	c := Constraint{raw: strings.TrimSpace(s)}
	if c.raw == "" {
		return c, fmt.Errorf("empty version requirement")
	}

	for _, alt := range strings.Split(c.raw, " or ") {
		var clauses []comparison
		for _, clause := range strings.Split(alt, " and ") {
			cmp, err := parseComparison(strings.TrimSpace(clause))
			if err != nil {
				return c, fmt.Errorf("invalid version requirement %q: %w", s, err)
			}
			clauses = append(clauses, cmp...)
		}
		c.alternatives = append(c.alternatives, clauses)
	}
	return c, nil
}

func parseComparison(clause string) ([]comparison, error) {
	op := "=="
	for _, candidate := range operators {
		if strings.HasPrefix(clause, candidate) {
			op = candidate
			clause = strings.TrimSpace(strings.TrimPrefix(clause, candidate))
			break
		}
	}

	version, parts, err := canonical(clause)
	if err != nil {
		return nil, err
	}

	if op != "~>" {
		return []comparison{{op: op, version: version}}, nil
	}

	// ~> 1.2 allows any 1.x at or above 1.2; ~> 1.2.3 allows any 1.2.x at or
	// above 1.2.3.
	var upper string
	switch parts {
	case 1:
		return nil, fmt.Errorf("~> needs at least a major and minor version")
	case 2:
		upper = bump(semver.Major(version), 0)
	default:
		upper = bump(semver.MajorMinor(version), 1)
	}
	return []comparison{{op: ">=", version: version}, {op: "<", version: upper}}, nil
}

// canonical normalises a version written with one to three components.
func canonical(v string) (string, int, error) {
	if v == "" {
		return "", 0, fmt.Errorf("missing version")
	}
	core := v
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := len(strings.Split(core, "."))

	sv := "v" + v
	if !semver.IsValid(sv) {
		return "", 0, fmt.Errorf("invalid version %q", v)
	}
	return semver.Canonical(sv), parts, nil
}

// bump increments component (0 major, 1 minor) of a "vX" or "vX.Y" prefix.
func bump(prefix string, component int) string {
	var major, minor int
	fmt.Sscanf(prefix, "v%d.%d", &major, &minor)
	if component == 0 {
		return fmt.Sprintf("v%d.0.0", major+1)
	}
	return fmt.Sprintf("v%d.%d.0", major, minor+1)
}

// Matches reports whether version satisfies the constraint. Pre-releases only
// match constraints that mention a pre-release.
func (c Constraint) Matches(version string) bool {
	v := "v" + version
	if !semver.IsValid(v) {
		return false
	}
	if semver.Prerelease(v) != "" && !c.allowsPrerelease() {
		return false
	}

	for _, alt := range c.alternatives {
		ok := true
		for _, cmp := range alt {
			if !cmp.matches(v) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (c Constraint) allowsPrerelease() bool {
	for _, alt := range c.alternatives {
		for _, cmp := range alt {
			if semver.Prerelease(cmp.version) != "" {
				return true
			}
		}
	}
	return false
}

func (c comparison) matches(v string) bool {
	r := semver.Compare(v, c.version)
	switch c.op {
	case ">=":
		return r >= 0
	case "<=":
		return r <= 0
	case ">":
		return r > 0
	case "<":
		return r < 0
	case "!=":
		return r != 0
	default:
		return r == 0
	}
}

// String returns the requirement as written.
func (c Constraint) String() string {
	return c.raw
}

// compareVersions orders two versions written without a leading "v".
func compareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

func majorOf(version string) string {
	return semver.Major("v" + version)
}

func isPrerelease(version string) bool {
	return semver.Prerelease("v"+version) != ""
}
