// Package deps resolves, locks and downloads a project's dependencies.
//
// Resolution honours manifest.toml: when the project's requirements are
// unchanged the locked versions are used as they are, and otherwise locked
// versions are preferred wherever they still satisfy the requirements.
// Downloaded tarballs are kept in a shared cache indexed by the package
// store, and unpacked into build/packages.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/hex"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/stores"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

// Repository is the package registry.
type Repository interface {
	Versions(ctx context.Context, pkg string) ([]string, error)
	Release(ctx context.Context, pkg, version string) (*hex.Release, error)
	DownloadTarball(ctx context.Context, pkg, version, checksum string) ([]byte, error)
}

// Config configures a Manager.
type Config struct {
	Repository Repository

	// Index records cached tarballs and release lists. When nil, IndexFile
	// is opened the first time the cache is needed.
	Index *stores.PackageIndex

	// IndexFile is the SQLite file backing the index. When both Index and
	// IndexFile are empty the cache is disabled.
	IndexFile string

	// CacheDir holds downloaded tarballs.
	CacheDir string

	// Concurrency bounds parallel downloads. Defaults to 8.
	Concurrency int

	// Out receives notices such as available major upgrades. Defaults to
	// stderr.
	Out io.Writer
}

// Manager implements engine.DependencyManager.
type Manager struct {
	repo        Repository
	cacheDir    string
	concurrency int
	out         io.Writer
	logger      zerolog.Logger

	indexFile string
	indexOnce sync.Once
	index     *stores.PackageIndex
	ownsIndex bool
}

var _ engine.DependencyManager = (*Manager)(nil)

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	return &Manager{
		repo:        cfg.Repository,
		cacheDir:    cfg.CacheDir,
		concurrency: cfg.Concurrency,
		out:         cfg.Out,
		logger:      telemetry.Component("deps"),
		indexFile:   cfg.IndexFile,
		index:       cfg.Index,
	}
}

// packageIndex returns the cache index, opening it on first use. It returns
// nil when the cache is disabled or cannot be opened.
func (m *Manager) packageIndex() *stores.PackageIndex {
	m.indexOnce.Do(func() {
		if m.index != nil || m.indexFile == "" {
			return
		}
		index, err := stores.OpenPackageIndex(m.indexFile)
		if err != nil {
			m.logger.Warn().Err(err).Str("path", m.indexFile).Msg("Package cache unavailable")
			return
		}
		m.index = index
		m.ownsIndex = true
	})
	return m.index
}

// Close closes the package index if the manager opened it.
func (m *Manager) Close() error {
	if m.ownsIndex && m.index != nil {
		return m.index.Close()
	}
	return nil
}

// ResolveAndDownload produces the manifest for the project at paths, writes
// manifest.toml when it changed, and makes every locked Hex package
// available under build/packages.
func (m *Manager) ResolveAndDownload(ctx context.Context, paths project.Paths, tel telemetry.Telemetry, req engine.ResolveRequest) (*engine.Manifest, error) {
	cfg, err := project.LoadConfig(paths)
	if err != nil {
		return nil, engine.NewError(engine.ErrorKindProject, "", err)
	}

	reqs := cfg.AllRequirements(true)
	for name, r := range req.Overrides {
		reqs[name] = r
	}

	existing, err := ReadManifest(paths.ManifestFile())
	switch {
	case errors.Is(err, os.ErrNotExist):
		existing = nil
	case err != nil:
		m.logger.Warn().Err(err).Msg("Ignoring unreadable manifest")
		existing = nil
	}

	if existing != nil {
		for _, name := range req.Excluded {
			if _, ok := existing.Package(name); !ok {
				return nil, engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
					fmt.Sprintf("%s is not a dependency of this project", name), nil)
			}
		}
	}

	manifest := existing
	useLocked := req.Config.UseManifest == engine.UseManifestYes && existing != nil
	if !useLocked || len(req.Excluded) > 0 || !sameRequirements(existing.Requirements, reqs) {
		tel.ResolvingPackageVersions()

		locked := map[string]string{}
		if useLocked {
			for _, p := range existing.Packages {
				locked[p.Name] = p.Version
			}
			for _, name := range req.Excluded {
				delete(locked, name)
			}
		}

		manifest, err = m.lock(ctx, paths, cfg.Name, reqs, locked)
		if err != nil {
			return nil, err
		}

		if req.Config.CheckMajorVersions == engine.CheckMajorVersionsYes {
			m.reportMajorVersions(ctx, manifest)
		}
	}

	changed, err := WriteManifest(paths.ManifestFile(), manifest)
	if err != nil {
		return nil, engine.StageError(engine.ErrorKindDependency, engine.StageDependencies, "failed to write manifest.toml", err)
	}
	if changed {
		m.logger.Info().Int("packages", len(manifest.Packages)).Msg("Wrote manifest")
	}

	if err := m.download(ctx, paths, tel, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// lock resolves reqs and converts the result into a manifest.
func (m *Manager) lock(ctx context.Context, paths project.Paths, root string, reqs map[string]project.Requirement, locked map[string]string) (*engine.Manifest, error) {
	res, err := m.resolve(ctx, paths, root, reqs, locked)
	if err != nil {
		return nil, err
	}

	manifest := &engine.Manifest{Requirements: reqs}

	for name, rel := range res.hex {
		var requires []string
		for dep := range rel.Requirements {
			if _, ok := res.hex[dep]; ok {
				requires = append(requires, dep)
			} else if _, ok := res.locals[dep]; ok {
				requires = append(requires, dep)
			}
		}
		sort.Strings(requires)

		tools := rel.BuildTools
		if len(tools) == 0 {
			tools = []string{"gleam"}
		}
		manifest.Packages = append(manifest.Packages, engine.ManifestPackage{
			Name:          name,
			Version:       rel.Version,
			BuildTools:    tools,
			Requirements:  nonNil(requires),
			OTPApp:        name,
			Source:        engine.SourceHex,
			OuterChecksum: rel.Checksum,
		})
	}

	for name, local := range res.locals {
		requires := local.config.SortedDependencyNames()
		// Only runtime dependencies of a local package are locked.
		var runtime []string
		for _, dep := range requires {
			if _, ok := local.config.Dependencies[dep]; ok {
				runtime = append(runtime, dep)
			}
		}
		manifest.Packages = append(manifest.Packages, engine.ManifestPackage{
			Name:         name,
			Version:      local.config.Version,
			BuildTools:   []string{"gleam"},
			Requirements: nonNil(runtime),
			OTPApp:       name,
			Source:       engine.SourceLocal,
			Path:         local.path,
		})
	}

	manifest.Sort()
	return manifest, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// versions lists the published versions of name, falling back to the cached
// list when the registry cannot be reached.
func (m *Manager) versions(ctx context.Context, name string) ([]string, error) {
	index := m.packageIndex()
	versions, err := m.repo.Versions(ctx, name)
	if err == nil {
		if index != nil {
			if err := index.RecordReleases(ctx, name, versions); err != nil {
				m.logger.Warn().Err(err).Str("package", name).Msg("Failed to cache release list")
			}
		}
		return versions, nil
	}

	if ctx.Err() == nil && index != nil {
		if cached, cacheErr := index.Releases(ctx, name); cacheErr == nil {
			m.logger.Warn().Err(err).Str("package", name).Time("fetched_at", cached.FetchedAt).
				Msg("Registry unavailable, using cached release list")
			return cached.Versions, nil
		}
	}

	return nil, engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
		fmt.Sprintf("failed to fetch versions of %s", name), err)
}

// latestStable returns the newest non pre-release version in versions.
func latestStable(versions []string) string {
	latest := ""
	for _, v := range versions {
		if isPrerelease(v) {
			continue
		}
		if latest == "" || compareVersions(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}

// reportMajorVersions lists Hex packages whose newest release is a major
// version ahead of the locked one.
func (m *Manager) reportMajorVersions(ctx context.Context, manifest *engine.Manifest) {
	outdated, err := m.outdated(ctx, manifest)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to check for major version upgrades")
		return
	}

	var majors []engine.OutdatedPackage
	for _, p := range outdated {
		if majorOf(p.Latest) != majorOf(p.Current) {
			majors = append(majors, p)
		}
	}
	if len(majors) == 0 {
		return
	}

	fmt.Fprint(m.out, "\nThe following dependencies have new major versions available:\n\n")
	for _, p := range majors {
		fmt.Fprintf(m.out, "%s %s -> %s\n", p.Name, p.Current, p.Latest)
	}
	fmt.Fprintln(m.out)
}

// Outdated lists the locked Hex packages with newer stable releases.
func (m *Manager) Outdated(ctx context.Context, paths project.Paths) ([]engine.OutdatedPackage, error) {
	manifest, err := ReadManifest(paths.ManifestFile())
	if err != nil {
		return nil, engine.StageError(engine.ErrorKindDependency, engine.StageDependencies, "failed to read manifest.toml", err)
	}
	return m.outdated(ctx, manifest)
}

func (m *Manager) outdated(ctx context.Context, manifest *engine.Manifest) ([]engine.OutdatedPackage, error) {
	var (
		mu  sync.Mutex
		out []engine.OutdatedPackage
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, p := range manifest.Packages {
		if p.Source != engine.SourceHex {
			continue
		}
		g.Go(func() error {
			versions, err := m.versions(ctx, p.Name)
			if err != nil {
				return err
			}
			latest := latestStable(versions)
			if latest != "" && compareVersions(latest, p.Version) > 0 {
				mu.Lock()
				out = append(out, engine.OutdatedPackage{Name: p.Name, Current: p.Version, Latest: latest})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Clean removes the build directory and prunes cache entries unused for a
// long time.
func (m *Manager) Clean(ctx context.Context, paths project.Paths) error {
	if err := os.RemoveAll(paths.BuildDirectory()); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to remove "+paths.BuildDirectory(), err)
	}

	index := m.packageIndex()
	if index == nil {
		return nil
	}
	stale, err := index.Prune(ctx, time.Now().Add(-cacheRetention))
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to prune package cache")
		return nil
	}
	for _, p := range stale {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn().Err(err).Str("path", p.Path).Msg("Failed to remove cached tarball")
		}
	}
	if len(stale) > 0 {
		m.logger.Info().Int("packages", len(stale)).Msg("Pruned package cache")
	}
	return nil
}

// cacheRetention is how long an unused tarball stays in the cache.
const cacheRetention = 90 * 24 * time.Hour
