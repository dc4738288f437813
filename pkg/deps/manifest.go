package deps

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

const manifestHeader = `# This file was generated by Gleam
# You typically do not need to edit this file
`

// ReadManifest decodes manifest.toml. A missing file is reported with an
// error matching os.ErrNotExist.
func ReadManifest(path string) (*engine.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m engine.Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	if m.Requirements == nil {
		m.Requirements = map[string]project.Requirement{}
	}
	m.Sort()
	return &m, nil
}

// WriteManifest writes m to path unless the file already holds the same
// content. It reports whether the file changed.
func WriteManifest(path string, m *engine.Manifest) (bool, error) {
	data := RenderManifest(m)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// RenderManifest formats m with one inline table per package so that diffs
// stay readable.
func RenderManifest(m *engine.Manifest) []byte {
	var b strings.Builder
	b.WriteString(manifestHeader)
	b.WriteString("\npackages = [\n")

	pkgs := append([]engine.ManifestPackage(nil), m.Packages...)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	for _, p := range pkgs {
		fields := []string{
			"name = " + quote(p.Name),
			"version = " + quote(p.Version),
			"build_tools = " + quoteList(p.BuildTools),
			"requirements = " + quoteList(p.Requirements),
		}
		if p.OTPApp != "" {
			fields = append(fields, "otp_app = "+quote(p.OTPApp))
		}
		fields = append(fields, "source = "+quote(string(p.Source)))
		switch p.Source {
		case engine.SourceHex:
			fields = append(fields, "outer_checksum = "+quote(p.OuterChecksum))
		case engine.SourceGit:
			fields = append(fields, "repo = "+quote(p.Repo), "commit = "+quote(p.Commit))
		case engine.SourceLocal:
			fields = append(fields, "path = "+quote(p.Path))
		}
		fmt.Fprintf(&b, "  { %s },\n", strings.Join(fields, ", "))
	}
	b.WriteString("]\n\n[requirements]\n")

	names := make([]string, 0, len(m.Requirements))
	for name := range m.Requirements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s = %s\n", name, inlineRequirement(m.Requirements[name]))
	}
	return []byte(b.String())
}

func inlineRequirement(r project.Requirement) string {
	switch {
	case r.Path != "":
		return "{ path = " + quote(r.Path) + " }"
	case r.Git != "":
		return "{ git = " + quote(r.Git) + ", ref = " + quote(r.Ref) + " }"
	default:
		return "{ version = " + quote(r.Version) + " }"
	}
}

// quote renders a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// sameRequirements reports whether the manifest was resolved against reqs.
func sameRequirements(a, b map[string]project.Requirement) bool {
	if len(a) != len(b) {
		return false
	}
	for name, r := range a {
		if other, ok := b[name]; !ok || other != r {
			return false
		}
	}
	return true
}
