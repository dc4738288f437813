package deps

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/hex"
	"github.com/brightly-salty/gleam/pkg/project"
	"github.com/brightly-salty/gleam/pkg/stores"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

type fakeRepo struct {
	mu           sync.Mutex
	releases     map[string]map[string]*hex.Release
	tarballs     map[string][]byte
	versionCalls int
	downloads    int
	offline      bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{releases: map[string]map[string]*hex.Release{}, tarballs: map[string][]byte{}}
}

// add publishes name at version with the given requirements.
func (r *fakeRepo) add(t *testing.T, name, version string, reqs map[string]string) {
	t.Helper()
	data := releaseTarball(t, map[string]string{
		"gleam.toml":            fmt.Sprintf("name = %q\nversion = %q\n", name, version),
		"src/" + name + ".gleam": "// " + version + "\n",
	})

	deps := map[string]hex.Dependency{}
	for dep, req := range reqs {
		deps[dep] = hex.Dependency{Requirement: req, App: dep}
	}

	if r.releases[name] == nil {
		r.releases[name] = map[string]*hex.Release{}
	}
	r.releases[name][version] = &hex.Release{
		Name:         name,
		Version:      version,
		Checksum:     hex.Checksum(data),
		Requirements: deps,
		BuildTools:   []string{"gleam"},
	}
	r.tarballs[name+"@"+version] = data
}

func (r *fakeRepo) Versions(_ context.Context, pkg string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versionCalls++
	if r.offline {
		return nil, fmt.Errorf("connection refused")
	}
	var versions []string
	for v := range r.releases[pkg] {
		versions = append(versions, v)
	}
	if versions == nil {
		return nil, fmt.Errorf("package %s not found", pkg)
	}
	sort.Slice(versions, func(i, j int) bool { return compareVersions(versions[i], versions[j]) < 0 })
	return versions, nil
}

func (r *fakeRepo) Release(_ context.Context, pkg, version string) (*hex.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.releases[pkg][version]
	if !ok {
		return nil, fmt.Errorf("release %s %s not found", pkg, version)
	}
	cp := *rel
	return &cp, nil
}

func (r *fakeRepo) DownloadTarball(_ context.Context, pkg, version, checksum string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads++
	data, ok := r.tarballs[pkg+"@"+version]
	if !ok {
		return nil, fmt.Errorf("tarball %s %s not found", pkg, version)
	}
	if checksum != "" && hex.Checksum(data) != checksum {
		return nil, engine.NewError(engine.ErrorKindDependency, "checksum mismatch", nil)
	}
	return data, nil
}

func releaseTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var inner bytes.Buffer
	tw := tar.NewWriter(&inner)
	for _, name := range names {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(files[name])), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(inner.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var outer bytes.Buffer
	tw = tar.NewWriter(&outer)
	for _, f := range []struct {
		name string
		data []byte
	}{
		{"VERSION", []byte("3")},
		{"contents.tar.gz", gz.Bytes()},
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.data)), Typeflag: tar.TypeReg}))
		_, err := tw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return outer.Bytes()
}

type recordingTel struct {
	telemetry.Null
	mu          sync.Mutex
	resolving   int
	downloading []string
	downloaded  int
}

func (r *recordingTel) ResolvingPackageVersions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolving++
}

func (r *recordingTel) DownloadingPackage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloading = append(r.downloading, name)
}

func (r *recordingTel) PackagesDownloaded(_ time.Time, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloaded += count
}

type fixture struct {
	repo    *fakeRepo
	index   *stores.PackageIndex
	manager *Manager
	out     *bytes.Buffer
	paths   project.Paths
}

func newFixture(t *testing.T, dependencies string) *fixture {
	t.Helper()

	index, err := stores.OpenPackageIndex(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	repo := newFakeRepo()
	repo.add(t, "gleam_stdlib", "0.39.0", nil)
	repo.add(t, "gleam_stdlib", "0.40.0", nil)
	repo.add(t, "gleam_stdlib", "1.0.0-rc1", nil)
	repo.add(t, "gleam_json", "1.0.0", map[string]string{"gleam_stdlib": ">= 0.30.0 and < 2.0.0"})
	repo.add(t, "gleam_json", "2.0.0", map[string]string{"gleam_stdlib": ">= 0.40.0 and < 2.0.0"})
	repo.add(t, "gleeunit", "1.2.0", map[string]string{"gleam_stdlib": ">= 0.34.0 and < 2.0.0"})

	var out bytes.Buffer
	root := t.TempDir()
	paths := project.NewPaths(root)
	writeConfig(t, paths, dependencies)

	return &fixture{
		repo:  repo,
		index: index,
		out:   &out,
		paths: paths,
		manager: NewManager(Config{
			Repository: repo,
			Index:      index,
			CacheDir:   filepath.Join(t.TempDir(), "cache"),
			Out:        &out,
		}),
	}
}

func writeConfig(t *testing.T, paths project.Paths, dependencies string) {
	t.Helper()
	config := "name = \"app\"\nversion = \"1.0.0\"\n\n[dependencies]\n" + dependencies
	require.NoError(t, os.MkdirAll(paths.Root(), 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile(), []byte(config), 0o644))
}

// defaultRequest resolves the way build and check do.
var defaultRequest = engine.ResolveRequest{Config: engine.DefaultDependencyConfig}

// resolve passes req to the manager unchanged, including its Config.
func (f *fixture) resolve(t *testing.T, tel telemetry.Telemetry, req engine.ResolveRequest) *engine.Manifest {
	t.Helper()
	m, err := f.manager.ResolveAndDownload(context.Background(), f.paths, tel, req)
	require.NoError(t, err)
	return m
}

func versionsOf(m *engine.Manifest) map[string]string {
	out := map[string]string{}
	for _, p := range m.Packages {
		out[p.Name] = p.Version
	}
	return out
}

func TestResolveSelectsNewestCompatibleVersions(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 3.0.0"`+"\n")
	tel := &recordingTel{}

	m := f.resolve(t, tel, defaultRequest)

	assert.Equal(t, map[string]string{"gleam_json": "2.0.0", "gleam_stdlib": "0.40.0"}, versionsOf(m))
	json, ok := m.Package("gleam_json")
	require.True(t, ok)
	assert.Equal(t, []string{"gleam_stdlib"}, json.Requirements)
	assert.Equal(t, engine.SourceHex, json.Source)
	assert.Equal(t, f.repo.releases["gleam_json"]["2.0.0"].Checksum, json.OuterChecksum)

	assert.Equal(t, 1, tel.resolving)
	assert.ElementsMatch(t, []string{"gleam_json", "gleam_stdlib"}, tel.downloading)
	assert.Equal(t, 2, tel.downloaded)
}

func TestResolveBacktracks(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 3.0.0"`+"\n"+`gleam_stdlib = "< 0.40.0"`+"\n")

	m := f.resolve(t, telemetry.Null{}, defaultRequest)

	assert.Equal(t, map[string]string{"gleam_json": "1.0.0", "gleam_stdlib": "0.39.0"}, versionsOf(m))
}

func TestResolveConflict(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 2.0.0"`+"\n"+`gleam_stdlib = "< 0.40.0"`+"\n")

	_, err := f.manager.ResolveAndDownload(context.Background(), f.paths, telemetry.Null{}, engine.ResolveRequest{Config: engine.DefaultDependencyConfig})

	var e *engine.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, engine.ErrorKindDependency, e.Kind)
	assert.Equal(t, engine.StageDependencies, e.Stage)
	assert.Contains(t, err.Error(), "gleam_stdlib")
	assert.NoFileExists(t, f.paths.ManifestFile())
}

func TestResolveUnknownPackage(t *testing.T) {
	f := newFixture(t, `nonexistent = ">= 1.0.0"`+"\n")

	_, err := f.manager.ResolveAndDownload(context.Background(), f.paths, telemetry.Null{}, engine.ResolveRequest{Config: engine.DefaultDependencyConfig})
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.ErrorKindDependency))
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestManifestIsReusedWhenRequirementsUnchanged(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	first := f.resolve(t, telemetry.Null{}, defaultRequest)
	calls := f.repo.versionCalls

	f.repo.add(t, "gleam_stdlib", "0.41.0", nil)
	tel := &recordingTel{}
	second := f.resolve(t, tel, defaultRequest)

	assert.Equal(t, versionsOf(first), versionsOf(second))
	assert.Equal(t, calls, f.repo.versionCalls, "no registry access")
	assert.Zero(t, tel.resolving)
	assert.Empty(t, tel.downloading)
}

func TestLockedVersionsArePreferredWhenRequirementsChange(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)

	f.repo.add(t, "gleam_stdlib", "0.41.0", nil)
	writeConfig(t, f.paths, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n"+`gleeunit = ">= 1.0.0 and < 2.0.0"`+"\n")

	m := f.resolve(t, telemetry.Null{}, defaultRequest)
	assert.Equal(t, map[string]string{"gleam_stdlib": "0.40.0", "gleeunit": "1.2.0"}, versionsOf(m))
}

func TestExcludedPackagesAreResolvedAfresh(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)
	f.repo.add(t, "gleam_stdlib", "0.41.0", nil)

	m := f.resolve(t, telemetry.Null{}, engine.ResolveRequest{
		Excluded: []string{"gleam_stdlib"},
		Config:   engine.DependencyManagerConfig{UseManifest: engine.UseManifestYes, CheckMajorVersions: engine.CheckMajorVersionsYes},
	})
	assert.Equal(t, "0.41.0", versionsOf(m)["gleam_stdlib"])
}

func TestExcludingUnknownPackageFails(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)

	_, err := f.manager.ResolveAndDownload(context.Background(), f.paths, telemetry.Null{}, engine.ResolveRequest{
		Excluded: []string{"lustre"},
		Config:   engine.DefaultDependencyConfig,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lustre is not a dependency")
}

func TestUseManifestNoIgnoresLockedVersions(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)
	f.repo.add(t, "gleam_stdlib", "0.41.0", nil)

	m := f.resolve(t, telemetry.Null{}, engine.ResolveRequest{Config: engine.DependencyManagerConfig{UseManifest: engine.UseManifestNo}})
	assert.Equal(t, "0.41.0", versionsOf(m)["gleam_stdlib"])
}

func TestOverridesAreRecordedInManifest(t *testing.T) {
	f := newFixture(t, "")

	m := f.resolve(t, telemetry.Null{}, engine.ResolveRequest{
		Overrides: map[string]project.Requirement{"gleam_json": {Version: ">= 1.0.0 and < 2.0.0"}},
		Config:    engine.DefaultDependencyConfig,
	})
	assert.Equal(t, "1.0.0", versionsOf(m)["gleam_json"])

	written, err := ReadManifest(f.paths.ManifestFile())
	require.NoError(t, err)
	assert.Equal(t, ">= 1.0.0 and < 2.0.0", written.Requirements["gleam_json"].Version)
}

func TestMajorVersionsAreReported(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 2.0.0"`+"\n")

	f.resolve(t, telemetry.Null{}, engine.ResolveRequest{
		Config: engine.DependencyManagerConfig{UseManifest: engine.UseManifestNo, CheckMajorVersions: engine.CheckMajorVersionsYes},
	})
	assert.Contains(t, f.out.String(), "gleam_json 1.0.0 -> 2.0.0")
	assert.NotContains(t, f.out.String(), "gleam_stdlib")
}

func TestLocalPathDependency(t *testing.T) {
	f := newFixture(t, `helper = { path = "../helper" }`+"\n")
	helper := project.NewPaths(filepath.Join(filepath.Dir(f.paths.Root()), "helper"))
	require.NoError(t, os.MkdirAll(helper.Root(), 0o755))
	require.NoError(t, os.WriteFile(helper.ConfigFile(), []byte("name = \"helper\"\nversion = \"0.2.0\"\n\n[dependencies]\ngleam_stdlib = \"< 0.40.0\"\n"), 0o644))

	m := f.resolve(t, telemetry.Null{}, defaultRequest)

	local, ok := m.Package("helper")
	require.True(t, ok)
	assert.Equal(t, engine.SourceLocal, local.Source)
	assert.Equal(t, "../helper", local.Path)
	assert.Equal(t, "0.2.0", local.Version)
	assert.Equal(t, []string{"gleam_stdlib"}, local.Requirements)
	assert.Equal(t, "0.39.0", versionsOf(m)["gleam_stdlib"])
	assert.NoDirExists(t, filepath.Join(f.paths.PackagesDirectory(), "helper"))
}

func TestGitDependencyIsRejected(t *testing.T) {
	f := newFixture(t, `lib = { git = "https://example.com/lib.git", ref = "main" }`+"\n")

	_, err := f.manager.ResolveAndDownload(context.Background(), f.paths, telemetry.Null{}, engine.ResolveRequest{Config: engine.DefaultDependencyConfig})

	var e *engine.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, engine.ErrorKindDependency, e.Kind)
	assert.NotEmpty(t, e.Hint)
}

func TestDownloadUnpacksAndCaches(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)

	src, err := os.ReadFile(filepath.Join(f.paths.PackagesDirectory(), "gleam_stdlib", "src", "gleam_stdlib.gleam"))
	require.NoError(t, err)
	assert.Equal(t, "// 0.40.0\n", string(src))

	installed := readInstalled(f.paths.PackagesTOML())
	assert.Equal(t, map[string]string{"gleam_stdlib": "0.40.0"}, installed.Packages)
	assert.NoFileExists(t, filepath.Join(f.paths.PackagesDirectory(), lockFileName))

	cached, err := f.index.Lookup(context.Background(), "gleam_stdlib", "0.40.0")
	require.NoError(t, err)
	assert.FileExists(t, cached.Path)
	assert.Equal(t, 1, f.repo.downloads)

	// A fresh checkout of the same project is served from the cache.
	require.NoError(t, os.RemoveAll(f.paths.BuildDirectory()))
	f.resolve(t, telemetry.Null{}, defaultRequest)
	assert.Equal(t, 1, f.repo.downloads)
	assert.FileExists(t, filepath.Join(f.paths.PackagesDirectory(), "gleam_stdlib", "gleam.toml"))
}

func TestDownloadRemovesUnusedPackages(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 3.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)
	require.DirExists(t, filepath.Join(f.paths.PackagesDirectory(), "gleam_json"))

	writeConfig(t, f.paths, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)

	assert.NoDirExists(t, filepath.Join(f.paths.PackagesDirectory(), "gleam_json"))
	assert.DirExists(t, filepath.Join(f.paths.PackagesDirectory(), "gleam_stdlib"))
}

func TestCachedReleasesUsedWhenOffline(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	_, err := f.manager.Outdated(context.Background(), f.paths)
	require.Error(t, err, "no manifest yet")

	f.resolve(t, telemetry.Null{}, defaultRequest)
	f.repo.offline = true

	m := f.resolve(t, telemetry.Null{}, engine.ResolveRequest{Config: engine.DependencyManagerConfig{UseManifest: engine.UseManifestNo}})
	assert.Equal(t, "0.40.0", versionsOf(m)["gleam_stdlib"])
}

func TestOutdated(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 2.0.0"`+"\n"+`gleam_stdlib = "< 0.40.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)

	outdated, err := f.manager.Outdated(context.Background(), f.paths)
	require.NoError(t, err)
	assert.Equal(t, []engine.OutdatedPackage{
		{Name: "gleam_json", Current: "1.0.0", Latest: "2.0.0"},
		{Name: "gleam_stdlib", Current: "0.39.0", Latest: "0.40.0"},
	}, outdated)
}

func TestTree(t *testing.T) {
	f := newFixture(t, `gleam_json = ">= 1.0.0 and < 3.0.0"`+"\n"+`gleeunit = ">= 1.0.0 and < 2.0.0"`+"\n")
	m := f.resolve(t, telemetry.Null{}, defaultRequest)

	tree, err := f.manager.Tree(context.Background(), f.paths, m, engine.TreeRequest{})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"app v1.0.0",
		"├── gleam_json v2.0.0",
		"│   └── gleam_stdlib v0.40.0",
		"└── gleeunit v1.2.0",
		"    └── gleam_stdlib v0.40.0",
		"",
	}, "\n"), tree)

	tree, err = f.manager.Tree(context.Background(), f.paths, m, engine.TreeRequest{Package: "gleam_json"})
	require.NoError(t, err)
	assert.Equal(t, "gleam_json v2.0.0\n└── gleam_stdlib v0.40.0\n", tree)

	tree, err = f.manager.Tree(context.Background(), f.paths, m, engine.TreeRequest{Invert: "gleam_stdlib"})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"gleam_stdlib v0.40.0",
		"├── gleam_json v2.0.0",
		"│   └── app v1.0.0",
		"└── gleeunit v1.2.0",
		"    └── app v1.0.0",
		"",
	}, "\n"), tree)

	_, err = f.manager.Tree(context.Background(), f.paths, m, engine.TreeRequest{Package: "lustre"})
	assert.True(t, engine.IsKind(err, engine.ErrorKindDependency))
}

func TestClean(t *testing.T) {
	f := newFixture(t, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")
	f.resolve(t, telemetry.Null{}, defaultRequest)
	require.DirExists(t, f.paths.BuildDirectory())

	require.NoError(t, f.manager.Clean(context.Background(), f.paths))
	assert.NoDirExists(t, f.paths.BuildDirectory())
	assert.FileExists(t, f.paths.ManifestFile())
}

func TestManifestRendering(t *testing.T) {
	m := &engine.Manifest{
		Requirements: map[string]project.Requirement{
			"gleam_stdlib": {Version: ">= 0.34.0 and < 2.0.0"},
			"helper":       {Path: "../helper"},
		},
		Packages: []engine.ManifestPackage{
			{Name: "helper", Version: "0.2.0", BuildTools: []string{"gleam"}, Requirements: []string{}, Source: engine.SourceLocal, Path: "../helper"},
			{Name: "gleam_stdlib", Version: "0.40.0", BuildTools: []string{"gleam"}, Requirements: []string{}, OTPApp: "gleam_stdlib", Source: engine.SourceHex, OuterChecksum: "ABC"},
		},
	}

	assert.Equal(t, `# This file was generated by Gleam
# You typically do not need to edit this file

packages = [
  { name = "gleam_stdlib", version = "0.40.0", build_tools = ["gleam"], requirements = [], otp_app = "gleam_stdlib", source = "hex", outer_checksum = "ABC" },
  { name = "helper", version = "0.2.0", build_tools = ["gleam"], requirements = [], source = "local", path = "../helper" },
]

[requirements]
gleam_stdlib = { version = ">= 0.34.0 and < 2.0.0" }
helper = { path = "../helper" }
`, string(RenderManifest(m)))

	path := filepath.Join(t.TempDir(), "manifest.toml")
	changed, err := WriteManifest(path, m)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = WriteManifest(path, m)
	require.NoError(t, err)
	assert.False(t, changed)

	read, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "gleam_stdlib", read.Packages[0].Name)
	assert.Equal(t, "ABC", read.Packages[0].OuterChecksum)
	assert.Equal(t, "../helper", read.Requirements["helper"].Path)
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	data := releaseTarball(t, map[string]string{"../evil": "x"})
	err := extract(data, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestIndexFileOpenedOnFirstUse(t *testing.T) {
	repo := newFakeRepo()
	repo.add(t, "gleam_stdlib", "0.40.0", nil)

	paths := project.NewPaths(t.TempDir())
	writeConfig(t, paths, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")

	indexFile := filepath.Join(t.TempDir(), "cache", "packages.db")
	m := NewManager(Config{Repository: repo, IndexFile: indexFile, CacheDir: t.TempDir(), Out: &bytes.Buffer{}})
	t.Cleanup(func() { _ = m.Close() })

	assert.NoFileExists(t, indexFile)

	_, err := m.ResolveAndDownload(context.Background(), paths, telemetry.Null{}, defaultRequest)
	require.NoError(t, err)
	assert.FileExists(t, indexFile)
}

func TestUnwritableIndexFileDisablesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.add(t, "gleam_stdlib", "0.40.0", nil)

	paths := project.NewPaths(t.TempDir())
	writeConfig(t, paths, `gleam_stdlib = ">= 0.30.0 and < 2.0.0"`+"\n")

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	m := NewManager(Config{Repository: repo, IndexFile: filepath.Join(blocker, "packages.db"), Out: &bytes.Buffer{}})
	t.Cleanup(func() { _ = m.Close() })

	got, err := m.ResolveAndDownload(context.Background(), paths, telemetry.Null{}, defaultRequest)
	require.NoError(t, err)
	assert.Equal(t, "0.40.0", versionsOf(got)["gleam_stdlib"])
	assert.DirExists(t, filepath.Join(paths.PackagesDirectory(), "gleam_stdlib"))
	require.NoError(t, m.Clean(context.Background(), paths))
}
