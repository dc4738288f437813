package deps

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/hex"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/stores"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

const (
	lockFileName = "gleam.lock"

	// staleLockAge is the age after which a lock left by a crashed process
	// is taken over.
	staleLockAge = 10 * time.Minute
)

// installed is build/packages/packages.toml, which records the unpacked
// version of each package.
type installed struct {
	Packages map[string]string `toml:"packages"`
}

// download unpacks every Hex package of manifest that is not already present
// at the locked version, and removes packages no longer in the manifest.
func (m *Manager) download(ctx context.Context, paths project.Paths, tel telemetry.Telemetry, manifest *engine.Manifest) error {
	dir := paths.PackagesDirectory()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return downloadError("failed to create "+dir, err)
	}

	unlock, err := lockDirectory(ctx, dir, tel)
	if err != nil {
		return err
	}
	defer unlock()

	current := readInstalled(paths.PackagesTOML())

	wanted := map[string]bool{}
	var missing []engine.ManifestPackage
	for _, p := range manifest.Packages {
		if p.Source != engine.SourceHex {
			continue
		}
		wanted[p.Name] = true
		if current.Packages[p.Name] == p.Version && exists(filepath.Join(dir, p.Name)) {
			continue
		}
		missing = append(missing, p)
	}

	if err := removeUnwanted(dir, wanted); err != nil {
		return err
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, p := range missing {
		g.Go(func() error {
			tel.DownloadingPackage(p.Name)
			data, err := m.tarball(gctx, p)
			if err != nil {
				return err
			}
			target := filepath.Join(dir, p.Name)
			if err := os.RemoveAll(target); err != nil {
				return downloadError("failed to clear "+target, err)
			}
			if err := extract(data, target); err != nil {
				return downloadError(fmt.Sprintf("failed to unpack %s %s", p.Name, p.Version), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	next := installed{Packages: map[string]string{}}
	for _, p := range manifest.Packages {
		if p.Source == engine.SourceHex {
			next.Packages[p.Name] = p.Version
		}
	}
	if err := writeInstalled(paths.PackagesTOML(), next); err != nil {
		return downloadError("failed to write "+paths.PackagesTOML(), err)
	}

	if len(missing) > 0 {
		tel.PackagesDownloaded(start, len(missing))
		if s := telemetry.FromContext(ctx); s != nil {
			s.Metrics.AddPackagesDownloaded(len(missing))
		}
		m.logger.Info().Int("packages", len(missing)).Dur("duration", time.Since(start)).Msg("Downloaded packages")
	}
	return nil
}

// tarball returns the release tarball of p from the cache, downloading and
// caching it when absent or corrupt.
func (m *Manager) tarball(ctx context.Context, p engine.ManifestPackage) ([]byte, error) {
	index := m.packageIndex()
	if index != nil {
		if cached, err := index.Lookup(ctx, p.Name, p.Version); err == nil {
			data, err := os.ReadFile(cached.Path)
			if err == nil && (p.OuterChecksum == "" || strings.EqualFold(hex.Checksum(data), p.OuterChecksum)) {
				if err := index.Touch(ctx, p.Name, p.Version); err != nil {
					m.logger.Warn().Err(err).Str("package", p.Name).Msg("Failed to update package cache")
				}
				m.logger.Debug().Str("package", p.Name).Str("version", p.Version).Msg("Using cached tarball")
				return data, nil
			}
			m.logger.Warn().Str("package", p.Name).Str("version", p.Version).Msg("Discarding corrupt cached tarball")
		} else if !errors.Is(err, stores.ErrNotCached) {
			m.logger.Warn().Err(err).Msg("Failed to read package cache")
		}
	}

	data, err := m.repo.DownloadTarball(ctx, p.Name, p.Version, p.OuterChecksum)
	if err != nil {
		if engine.IsKind(err, engine.ErrorKindDependency) {
			return nil, err
		}
		return nil, downloadError(fmt.Sprintf("failed to download %s %s", p.Name, p.Version), err)
	}

	if m.cacheDir != "" {
		m.store(ctx, p, data)
	}
	return data, nil
}

func (m *Manager) store(ctx context.Context, p engine.ManifestPackage, data []byte) {
	path := filepath.Join(m.cacheDir, "hex", fmt.Sprintf("%s-%s.tar", p.Name, p.Version))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to create package cache")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache tarball")
		return
	}
	index := m.packageIndex()
	if index == nil {
		return
	}
	err := index.Record(ctx, &stores.CachedPackage{
		Name:     p.Name,
		Version:  p.Version,
		Checksum: hex.Checksum(data),
		Path:     path,
		Size:     int64(len(data)),
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("package", p.Name).Msg("Failed to index cached tarball")
	}
}

// extract unpacks the contents.tar.gz member of a Hex release tarball into
// dir.
func extract(data []byte, dir string) error {
	contents, err := member(data, "contents.tar.gz")
	if err != nil {
		return err
	}

	zr, err := gzip.NewReader(bytes.NewReader(contents))
	if err != nil {
		return fmt.Errorf("invalid contents.tar.gz: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(filepath.FromSlash(hdr.Name))
		if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return fmt.Errorf("archive entry %q escapes the package directory", hdr.Name)
		}
		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			_, err = io.Copy(f, tr)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
		}
	}
}

// member returns the named file of an uncompressed tarball.
func member(data []byte, name string) ([]byte, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tarball has no %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid tarball: %w", err)
		}
		if hdr.Name == name {
			return io.ReadAll(tr)
		}
	}
}

func removeUnwanted(dir string, wanted map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return downloadError("failed to read "+dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || wanted[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return downloadError("failed to remove "+e.Name(), err)
		}
	}
	return nil
}

func readInstalled(path string) installed {
	var in installed
	data, err := os.ReadFile(path)
	if err == nil {
		_ = toml.Unmarshal(data, &in)
	}
	if in.Packages == nil {
		in.Packages = map[string]string{}
	}
	return in
}

func writeInstalled(path string, in installed) error {
	data, err := toml.Marshal(in)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// lockDirectory takes an exclusive lock on dir for this process, waiting for
// other processes to release it.
func lockDirectory(ctx context.Context, dir string, tel telemetry.Telemetry) (func(), error) {
	path := filepath.Join(dir, lockFileName)
	waiting := false

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, downloadError("failed to lock build directory", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(path)
			continue
		}

		if !waiting {
			tel.WaitingForBuildDirectoryLock()
			waiting = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func downloadError(message string, err error) error {
	return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies, message, err)
}
