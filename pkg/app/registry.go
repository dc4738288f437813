package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

func (d *Dispatcher) publish(ctx context.Context, paths project.Paths, c command.Publish) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(nil, cfg.Target)

	_, err = d.pipeline.Execute(ctx, paths, build.ProductionOptions(&target), d.progress(false), &engine.Action{
		Name: "publish",
		Run: func(ctx context.Context, out *engine.Output) error {
			return d.c.Publisher.Publish(ctx, paths, out.Artifacts, engine.PublishRequest{Replace: c.Replace, Yes: c.Yes})
		},
	})
	return err
}

func (d *Dispatcher) docsBuild(ctx context.Context, paths project.Paths, c command.DocsBuild) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(c.Target, cfg.Target)

	_, err = d.pipeline.Execute(ctx, paths, build.DocsOptions(&target), d.progress(false), &engine.Action{
		Name: "docs",
		Run: func(ctx context.Context, out *engine.Output) error {
			dir, err := d.c.Docs.Render(ctx, paths, out.Artifacts)
			if err != nil {
				return err
			}
			fmt.Fprintf(d.streams.Err, "%11s %s\n", "Generated", dir)

			if !c.Open {
				return nil
			}
			if err := d.openBrowser(ctx, filepath.Join(dir, "index.html")); err != nil {
				return engine.NewError(engine.ErrorKindDocs, "failed to open the docs in a browser", err)
			}
			return nil
		},
	})
	return err
}

func (d *Dispatcher) docsPublish(ctx context.Context, paths project.Paths) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(nil, cfg.Target)

	_, err = d.pipeline.Execute(ctx, paths, build.DocsOptions(&target), d.progress(false), &engine.Action{
		Name: "docs",
		Run: func(ctx context.Context, out *engine.Output) error {
			return d.c.Docs.Publish(ctx, paths, out.Artifacts)
		},
	})
	return err
}

// revert removes a release, defaulting to the package and version in
// gleam.toml.
func (d *Dispatcher) revert(ctx context.Context, paths project.Paths, c command.HexRevert) error {
	pkg, version := c.Package, c.Version
	if pkg == "" || version == "" {
		cfg, err := d.loadConfig(paths)
		if err != nil {
			return err
		}
		if pkg == "" {
			pkg = cfg.Name
		}
		if version == "" {
			version = cfg.Version
		}
	}
	return d.c.Registry.Revert(ctx, pkg, version)
}

func (d *Dispatcher) exportErlangShipment(ctx context.Context, paths project.Paths) error {
	erlang := build.TargetErlang
	return d.export(ctx, paths, build.ProductionOptions(&erlang), func(ctx context.Context, out *engine.Output) error {
		dir, err := d.c.Exporter.ErlangShipment(ctx, paths, out.Artifacts)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.streams.Out, "Your Erlang shipment has been generated to %s\n", dir)
		return nil
	})
}

func (d *Dispatcher) exportHexTarball(ctx context.Context, paths project.Paths) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(nil, cfg.Target)

	return d.export(ctx, paths, build.ProductionOptions(&target), func(ctx context.Context, out *engine.Output) error {
		file, err := d.c.Exporter.HexTarball(ctx, paths, out.Artifacts)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.streams.Out, "Your hex tarball has been generated in %s\n", file)
		return nil
	})
}

func (d *Dispatcher) exportPackageInterface(ctx context.Context, paths project.Paths, output string) error {
	cfg, err := d.loadConfig(paths)
	if err != nil {
		return err
	}
	target := build.ResolveTarget(nil, cfg.Target)

	return d.export(ctx, paths, build.DocsOptions(&target), func(ctx context.Context, out *engine.Output) error {
		return d.c.Exporter.PackageInterface(ctx, paths, out.Artifacts, output)
	})
}

func (d *Dispatcher) export(ctx context.Context, paths project.Paths, opts build.Options, run func(context.Context, *engine.Output) error) error {
	_, err := d.pipeline.Execute(ctx, paths, opts, d.progress(false), &engine.Action{Name: "export", Run: run})
	return err
}
