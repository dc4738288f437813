package hex

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/project"
)

// TarballExporter builds the release tarball of a compiled package.
type TarballExporter interface {
	HexTarball(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts) (string, error)
}

// Publisher publishes compiled packages. It implements engine.Publisher.
type Publisher struct {
	client   *Client
	exporter TarballExporter
	prompt   Prompter
	out      io.Writer
}

var _ engine.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher reporting to out.
func NewPublisher(client *Client, exporter TarballExporter, prompt Prompter, out io.Writer) *Publisher {
	return &Publisher{client: client, exporter: exporter, prompt: prompt, out: out}
}

// Publish builds the release tarball and uploads it after confirmation.
func (p *Publisher) Publish(ctx context.Context, paths project.Paths, artifacts *engine.Artifacts, req engine.PublishRequest) error {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return engine.NewError(engine.ErrorKindProject, "", err)
	}

	if err := checkPublishable(cfg); err != nil {
		return err
	}

	// Fail on a missing key before doing any work.
	if _, err := p.client.APIKey(); err != nil {
		return err
	}

	file, err := p.exporter.HexTarball(ctx, paths, artifacts)
	if err != nil {
		return err
	}
	tarball, err := os.ReadFile(file)
	if err != nil {
		return engine.StageError(engine.ErrorKindPublish, "publish", "failed to read package tarball", err)
	}

	if !req.Yes {
		fmt.Fprintf(p.out, "\nName: %s\nVersion: %s\n\n", cfg.Name, cfg.Version)
		ok, err := p.prompt.Confirm("Do you wish to publish this package?")
		if err != nil {
			return engine.NewError(engine.ErrorKindIO, "failed to read confirmation", err)
		}
		if !ok {
			fmt.Fprintln(p.out, "Not publishing.")
			return nil
		}
	}

	if err := p.client.PublishRelease(ctx, tarball, req.Replace); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "%11s %s v%s\n", "Published", cfg.Name, cfg.Version)
	p.client.logger.Info().Str("package", cfg.Name).Str("version", cfg.Version).Int("bytes", len(tarball)).Msg("Published package")
	return nil
}

func checkPublishable(cfg *project.Config) error {
	if cfg.Description == "" {
		return engine.StageError(engine.ErrorKindPublish, "publish", "the package has no description", nil).
			WithHint("Add a description to " + project.ConfigFileName + ".")
	}
	if len(cfg.Licences) == 0 {
		return engine.StageError(engine.ErrorKindPublish, "publish", "the package has no licence", nil).
			WithHint(`Add licences = ["Apache-2.0"] or similar to ` + project.ConfigFileName + ".")
	}
	for name, req := range cfg.Dependencies {
		if req.Version == "" {
			return engine.StageError(engine.ErrorKindPublish, "publish",
				fmt.Sprintf("dependency %s is not a Hex package", name), nil).
				WithHint("Packages with path or git dependencies cannot be published.")
		}
	}
	return nil
}
