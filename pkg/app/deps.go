package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

// update re-resolves the named packages, or every package when none are
// named, ignoring their locked versions.
func (d *Dispatcher) update(ctx context.Context, paths project.Paths, packages []string) error {
	req := engine.ResolveRequest{
		Excluded: packages,
		Config: engine.DependencyManagerConfig{
			UseManifest:        engine.UseManifestYes,
			CheckMajorVersions: engine.CheckMajorVersionsYes,
		},
	}
	if len(packages) == 0 {
		req.Config.UseManifest = engine.UseManifestNo
	}

	_, err := d.pipeline.WithResolveRequest(req).Resolve(ctx, paths, d.progress(false))
	return err
}

func (d *Dispatcher) listDependencies(ctx context.Context, paths project.Paths) error {
	manifest, err := d.pipeline.Resolve(ctx, paths, d.progress(false))
	if err != nil {
		return err
	}

	for _, pkg := range manifest.Packages {
		fmt.Fprintf(d.streams.Out, "%s %s\n", pkg.Name, pkg.Version)
	}
	return nil
}

func (d *Dispatcher) outdated(ctx context.Context, paths project.Paths) error {
	if _, err := d.pipeline.Resolve(ctx, paths, d.progress(false)); err != nil {
		return err
	}

	packages, err := d.c.Dependencies.Outdated(ctx, paths)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(d.streams.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Package\tCurrent\tLatest")
	fmt.Fprintln(w, "-------\t-------\t------")
	for _, p := range packages {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Current, p.Latest)
	}
	return w.Flush()
}

func (d *Dispatcher) tree(ctx context.Context, paths project.Paths, c command.DepsTree) error {
	manifest, err := d.pipeline.Resolve(ctx, paths, d.progress(false))
	if err != nil {
		return err
	}

	tree, err := d.c.Dependencies.Tree(ctx, paths, manifest, engine.TreeRequest{Package: c.Package, Invert: c.Invert})
	if err != nil {
		return err
	}
	fmt.Fprint(d.streams.Out, tree)
	if !strings.HasSuffix(tree, "\n") {
		fmt.Fprintln(d.streams.Out)
	}
	return nil
}

// add resolves the new packages alongside the existing requirements, then
// records them in gleam.toml with a range starting at the selected version.
func (d *Dispatcher) add(ctx context.Context, paths project.Paths, c command.Add) error {
	specs := make([]AddSpecifier, 0, len(c.Packages))
	overrides := make(map[string]project.Requirement, len(c.Packages))
	for _, raw := range c.Packages {
		spec, err := ParseAddSpecifier(raw)
		if err != nil {
			return engine.UsageError(err)
		}
		specs = append(specs, spec)
		overrides[spec.Name] = project.Requirement{Version: spec.Range()}
	}

	req := engine.ResolveRequest{Overrides: overrides, Config: engine.DefaultDependencyConfig}
	manifest, err := d.pipeline.WithResolveRequest(req).Resolve(ctx, paths, d.progress(false))
	if err != nil {
		return err
	}

	added := make(map[string]project.Requirement, len(specs))
	for _, spec := range specs {
		pkg, ok := manifest.Package(spec.Name)
		if !ok {
			return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
				fmt.Sprintf("package %s was not selected by dependency resolution", spec.Name), nil)
		}
		version, err := spec.RequirementFor(pkg.Version)
		if err != nil {
			return engine.NewError(engine.ErrorKindDependency, "", err)
		}
		added[spec.Name] = project.Requirement{Version: version}
	}

	if err := project.AddDependencies(paths, added, c.Dev); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to update "+project.ConfigFileName, err)
	}

	for _, spec := range specs {
		fmt.Fprintf(d.streams.Err, "%11s %s %s\n", "Added", spec.Name, added[spec.Name].Version)
	}
	return nil
}

func (d *Dispatcher) remove(ctx context.Context, paths project.Paths, c command.Remove) error {
	if err := project.RemoveDependencies(paths, c.Packages); err != nil {
		return engine.NewError(engine.ErrorKindProject, "", err)
	}

	if _, err := d.pipeline.Resolve(ctx, paths, d.progress(false)); err != nil {
		return err
	}

	for _, name := range c.Packages {
		fmt.Fprintf(d.streams.Err, "%11s %s\n", "Removed", name)
	}
	return nil
}
