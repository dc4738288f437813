package export

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

// hexTarballVersion is the version of the Hex tarball format written.
const hexTarballVersion = "3"

// sourceExtensions are the files under src/ shipped in a release.
var sourceExtensions = map[string]bool{
	".gleam": true,
	".erl":   true,
	".hrl":   true,
	".mjs":   true,
	".js":    true,
	".ts":    true,
	".ex":    true,
}

// Tarball is a built Hex release.
type Tarball struct {
	Data []byte

	// InnerChecksum covers the version, metadata and contents, as Hex
	// verifies it.
	InnerChecksum string

	// OuterChecksum is the SHA-256 of Data, as recorded in manifests.
	OuterChecksum string

	// Files are the paths included in contents.tar.gz.
	Files []string
}

// BuildHexTarball assembles the release tarball of the package at paths. The
// generated Erlang in artifacts, when present, is shipped alongside the
// sources so consumers need not compile Gleam.
func BuildHexTarball(ctx context.Context, paths project.Paths, cfg *project.Config, artifacts *engine.Artifacts) (*Tarball, error) {
	files, err := releaseFiles(paths, cfg, artifacts)
	if err != nil {
		return nil, exportError("failed to collect package files", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := writeTar(files)
	if err != nil {
		return nil, exportError("failed to archive package files", err)
	}
	contentsGz, err := gzipBytes(contents)
	if err != nil {
		return nil, exportError("failed to compress package files", err)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	metadata := []byte(hexMetadata(cfg, names))

	inner := sha256.New()
	inner.Write([]byte(hexTarballVersion))
	inner.Write(metadata)
	inner.Write(contentsGz)
	innerChecksum := fmt.Sprintf("%X", inner.Sum(nil))

	outer, err := writeTar([]entry{
		{name: "VERSION", data: []byte(hexTarballVersion)},
		{name: "CHECKSUM", data: []byte(innerChecksum)},
		{name: "metadata.config", data: metadata},
		{name: "contents.tar.gz", data: contentsGz},
	})
	if err != nil {
		return nil, exportError("failed to write package tarball", err)
	}

	return &Tarball{
		Data:          outer,
		InnerChecksum: innerChecksum,
		OuterChecksum: fmt.Sprintf("%X", sha256.Sum256(outer)),
		Files:         names,
	}, nil
}

func releaseFiles(paths project.Paths, cfg *project.Config, artifacts *engine.Artifacts) ([]entry, error) {
	var files []entry
	seen := map[string]bool{}
	add := func(name string, data []byte) {
		if !seen[name] {
			seen[name] = true
			files = append(files, entry{name: name, data: data})
		}
	}

	for _, name := range []string{project.ConfigFileName, "README.md", "README", "LICENCE", "LICENSE", "LICENCE.md", "LICENSE.md", "NOTICE"} {
		data, err := os.ReadFile(filepath.Join(paths.Root(), name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		add(name, data)
	}

	sources, err := collect(paths.SrcDirectory())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, s := range sources {
		if sourceExtensions[filepath.Ext(s.name)] {
			add("src/"+s.name, s.data)
		}
	}

	if artifacts != nil && artifacts.Directory != "" {
		generated := filepath.Join(artifacts.Directory, cfg.Name, "_gleam_artefacts")
		entries, err := collect(generated)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, g := range entries {
			switch filepath.Ext(g.name) {
			case ".erl":
				add("src/"+filepath.Base(g.name), g.data)
			case ".hrl":
				add("include/"+filepath.Base(g.name), g.data)
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// hexMetadata renders metadata.config as Erlang terms.
func hexMetadata(cfg *project.Config, files []string) string {
	var b strings.Builder

	term := func(key, value string) {
		fmt.Fprintf(&b, "{%s, %s}.\n", erlBinary(key), value)
	}

	term("name", erlBinary(cfg.Name))
	term("app", erlBinary(cfg.Name))
	term("version", erlBinary(cfg.Version))
	term("description", erlBinary(cfg.Description))
	term("licenses", erlList(cfg.Licences, erlBinary))
	term("build_tools", erlList([]string{"gleam"}, erlBinary))

	var links []string
	if cfg.Repository != nil && cfg.Repository.URL != "" {
		links = append(links, fmt.Sprintf("{%s, %s}", erlBinary("Repository"), erlBinary(cfg.Repository.URL)))
	}
	for _, l := range cfg.Links {
		links = append(links, fmt.Sprintf("{%s, %s}", erlBinary(l.Title), erlBinary(l.Href)))
	}
	term("links", "["+strings.Join(links, ", ")+"]")

	names := make([]string, 0, len(cfg.Dependencies))
	for name := range cfg.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var reqs []string
	for _, name := range names {
		req := cfg.Dependencies[name]
		reqs = append(reqs, fmt.Sprintf("{%s, [{%s, %s}, {%s, false}, {%s, %s}]}",
			erlBinary(name),
			erlBinary("app"), erlBinary(name),
			erlBinary("optional"),
			erlBinary("requirement"), erlBinary(req.Version)))
	}
	term("requirements", "["+strings.Join(reqs, ", ")+"]")
	term("files", erlList(files, erlBinary))

	return b.String()
}

func erlBinary(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `<<"` + r.Replace(s) + `"/utf8>>`
}

func erlList(items []string, render func(string) string) string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = render(item)
	}
	return "[" + strings.Join(out, ", ") + "]"
}
