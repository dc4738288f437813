package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightly-salty/gleam/pkg/build"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindInRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), "name = \"app\"\nversion = \"1.0.0\"\n")

	paths, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), paths.Root())
	assert.Equal(t, filepath.Join(root, "manifest.toml"), paths.ManifestFile())
}

func TestFindWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), "name = \"app\"\nversion = \"1.0.0\"\n")
	nested := filepath.Join(root, "src", "app", "internal")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	paths, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), paths.Root())
}

func TestFindPrefersNearestAncestor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), "")
	inner := filepath.Join(root, "packages", "inner")
	writeFile(t, filepath.Join(inner, ConfigFileName), "")

	paths, err := Find(filepath.Join(inner, "src"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(inner), paths.Root())
}

func TestFindNoProject(t *testing.T) {
	dir := t.TempDir()

	_, err := Find(dir)
	require.ErrorIs(t, err, ErrNoProject)
}

func TestFindIgnoresDirectoryNamedLikeConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigFileName), 0o755))

	_, err := Find(dir)
	require.ErrorIs(t, err, ErrNoProject)
}

func TestFindDoesNotWrite(t *testing.T) {
	dir := t.TempDir()

	_, _ = Find(dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDerivedPaths(t *testing.T) {
	p := NewPaths("/work/app")

	assert.Equal(t, filepath.Join("/work/app", "build", "packages"), p.PackagesDirectory())
	assert.Equal(t, filepath.Join("/work/app", "build", "dev", "javascript"),
		p.BuildDirectoryForTarget(build.ModeDev, build.TargetJavaScript))
	assert.Equal(t, filepath.Join("/work/app", "build", "prod", "erlang", "app"),
		p.BuildDirectoryForPackage(build.ModeProd, build.TargetErlang, "app"))
	assert.Equal(t, filepath.Join("/work/app", "test"), p.TestDirectory())
	assert.Equal(t, filepath.Join("/work/app", "build", "erlang-shipment"), p.ErlangShipmentDirectory())
}
