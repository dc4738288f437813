package deps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

// node is one package in a rendered tree.
type node struct {
	name    string
	version string
}

// Tree renders the dependency tree of manifest. With req.Package the tree
// starts at that package; with req.Invert it shows what depends on the
// package instead.
func (m *Manager) Tree(_ context.Context, paths project.Paths, manifest *engine.Manifest, req engine.TreeRequest) (string, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return "", engine.NewError(engine.ErrorKindProject, "", err)
	}

	root := node{name: cfg.Name, version: cfg.Version}
	versions := map[string]string{root.name: root.version}
	edges := map[string][]string{}

	for name := range manifest.Requirements {
		if _, ok := manifest.Package(name); ok {
			edges[root.name] = append(edges[root.name], name)
		}
	}
	for _, p := range manifest.Packages {
		versions[p.Name] = p.Version
		edges[p.Name] = append(edges[p.Name], p.Requirements...)
	}

	start := root
	switch {
	case req.Invert != "":
		if _, ok := manifest.Package(req.Invert); !ok {
			return "", notInManifest(req.Invert)
		}
		edges = invert(edges)
		start = node{name: req.Invert, version: versions[req.Invert]}
	case req.Package != "":
		if _, ok := manifest.Package(req.Package); !ok {
			return "", notInManifest(req.Package)
		}
		start = node{name: req.Package, version: versions[req.Package]}
	}

	for name := range edges {
		sort.Strings(edges[name])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s\n", start.name, start.version)
	renderChildren(&b, start.name, "", edges, versions, map[string]bool{start.name: true})
	return b.String(), nil
}

func renderChildren(b *strings.Builder, name, prefix string, edges map[string][]string, versions map[string]string, path map[string]bool) {
	children := edges[name]
	for i, child := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		fmt.Fprintf(b, "%s%s%s v%s", prefix, branch, child, versions[child])
		if path[child] {
			b.WriteString(" (*)\n")
			continue
		}
		b.WriteString("\n")

		path[child] = true
		renderChildren(b, child, prefix+indent, edges, versions, path)
		delete(path, child)
	}
}

func invert(edges map[string][]string) map[string][]string {
	inverted := map[string][]string{}
	for from, tos := range edges {
		for _, to := range tos {
			inverted[to] = append(inverted[to], from)
		}
	}
	return inverted
}

func notInManifest(name string) error {
	return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
		fmt.Sprintf("package %s is not in the dependency tree", name), nil)
}
