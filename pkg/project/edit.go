package project

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const (
	dependenciesTable    = "dependencies"
	devDependenciesTable = "dev-dependencies"
)

var tableHeader = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*(#.*)?$`)

// AddDependencies writes reqs into the dependencies (or dev-dependencies)
// table of gleam.toml, replacing any existing entry of the same name. The
// rest of the file, comments included, is preserved.
func AddDependencies(paths Paths, reqs map[string]Requirement, dev bool) error {
	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", paths.ConfigFile(), err)
	}

	table := dependenciesTable
	if dev {
		table = devDependenciesTable
	}

	lines := splitLines(string(data))
	for _, name := range sortedKeys(reqs) {
		lines = removeEntry(lines, dependenciesTable, name)
		lines = removeEntry(lines, devDependenciesTable, name)
		lines = removeEntry(lines, "dev_dependencies", name)
		lines = insertEntry(lines, table, fmt.Sprintf("%s = %s", name, reqs[name]))
	}

	return writeConfig(paths, lines)
}

// RemoveDependencies deletes the named packages from both dependency tables
// of gleam.toml. It fails without writing if any name is not declared.
func RemoveDependencies(paths Paths, names []string) error {
	cfg, err := LoadConfig(paths)
	if err != nil {
		return err
	}
	for _, name := range names {
		_, inDeps := cfg.Dependencies[name]
		_, inDev := cfg.DevDependencies[name]
		if !inDeps && !inDev {
			return fmt.Errorf("package %s is not a dependency of %s", name, cfg.Name)
		}
	}

	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", paths.ConfigFile(), err)
	}

	lines := splitLines(string(data))
	for _, name := range names {
		lines = removeEntry(lines, dependenciesTable, name)
		lines = removeEntry(lines, devDependenciesTable, name)
		lines = removeEntry(lines, "dev_dependencies", name)
	}

	return writeConfig(paths, lines)
}

func writeConfig(paths Paths, lines []string) error {
	content := strings.Join(lines, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if _, err := ParseConfig([]byte(content)); err != nil {
		return fmt.Errorf("refusing to write invalid %s: %w", ConfigFileName, err)
	}
	if err := os.WriteFile(paths.ConfigFile(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", paths.ConfigFile(), err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// tableBounds returns the index of the header line of table and the index one
// past its last line, or -1 when the table is absent.
func tableBounds(lines []string, table string) (int, int) {
	start := -1
	for i, line := range lines {
		m := tableHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if start >= 0 {
			return start, i
		}
		if strings.TrimSpace(m[1]) == table {
			start = i
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, len(lines)
}

func entryPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*"?` + regexp.QuoteMeta(name) + `"?\s*=`)
}

func removeEntry(lines []string, table, name string) []string {
	start, end := tableBounds(lines, table)
	if start < 0 {
		return lines
	}
	pattern := entryPattern(name)
	out := make([]string, 0, len(lines))
	out = append(out, lines[:start+1]...)
	for _, line := range lines[start+1 : end] {
		if !pattern.MatchString(line) {
			out = append(out, line)
		}
	}
	return append(out, lines[end:]...)
}

func insertEntry(lines []string, table, entry string) []string {
	start, end := tableBounds(lines, table)
	if start < 0 {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		return append(lines, "["+table+"]", entry)
	}

	// Place the entry after the last non-blank line of the table so blank
	// separators before the next table stay where they were.
	at := end
	for at > start+1 && strings.TrimSpace(lines[at-1]) == "" {
		at--
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, entry)
	return append(out, lines[at:]...)
}

func sortedKeys(reqs map[string]Requirement) []string {
	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
