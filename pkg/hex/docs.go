package hex

import (
	"context"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/export"
	"github.com/brightly-salty/gleam/pkg/project"
)

// Renderer writes HTML documentation for a compiled package.
type Renderer interface {
	Render(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error)
}

// Docs renders documentation locally and publishes it to HexDocs. It
// implements engine.DocsRenderer.
type Docs struct {
	renderer Renderer
	client   *Client
}

var _ engine.DocsRenderer = (*Docs)(nil)

// NewDocs creates a docs publisher.
func NewDocs(renderer Renderer, client *Client) *Docs {
	return &Docs{renderer: renderer, client: client}
}

// Render writes the documentation and returns its directory.
func (d *Docs) Render(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error) {
	return d.renderer.Render(ctx, paths, artifacts)
}

// Publish renders the documentation and uploads it for the version in
// gleam.toml.
func (d *Docs) Publish(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) error {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return engine.NewError(engine.ErrorKindProject, "", err)
	}

	if _, err := d.client.APIKey(); err != nil {
		return err
	}

	dir, err := d.renderer.Render(ctx, paths, artifacts)
	if err != nil {
		return err
	}

	archive, err := export.TarGzDirectory(dir)
	if err != nil {
		return engine.StageError(engine.ErrorKindDocs, "docs", "failed to archive documentation", err)
	}

	if err := d.client.PublishDocs(ctx, cfg.Name, cfg.Version, archive); err != nil {
		return err
	}

	d.client.logger.Info().Str("package", cfg.Name).Str("version", cfg.Version).Msg("Published docs")
	return nil
}
