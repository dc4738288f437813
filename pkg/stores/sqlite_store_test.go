package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestIndex creates an in-memory index for testing
func setupTestIndex(t *testing.T) *PackageIndex {
	t.Helper()

	idx, err := OpenPackageIndex(":memory:")
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestIndexLifecycle tests opening, migrating and closing an on-disk index
func TestIndexLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "packages.db")

	idx, err := OpenPackageIndex(path)
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	ctx := context.Background()
	if err := idx.db.PingContext(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	for _, table := range []string{"packages", "releases"} {
		var count int
		if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("failed to close index: %v", err)
	}

	// Reopening runs no migrations and keeps the schema.
	idx, err = OpenPackageIndex(path)
	if err != nil {
		t.Fatalf("failed to reopen index: %v", err)
	}
	_ = idx.Close()
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := OpenPackageIndex(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

// TestPackageCRUD tests recording, looking up, touching and removing packages
func TestPackageCRUD(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	idx.now = fixedClock(fetched)

	pkg := &CachedPackage{
		Name:     "gleam_stdlib",
		Version:  "0.34.0",
		Checksum: "ABCDEF",
		Path:     "/cache/gleam_stdlib-0.34.0.tar",
		Size:     1024,
	}
	if err := idx.Record(ctx, pkg); err != nil {
		t.Fatalf("failed to record package: %v", err)
	}

	got, err := idx.Lookup(ctx, "gleam_stdlib", "0.34.0")
	if err != nil {
		t.Fatalf("failed to look up package: %v", err)
	}
	if got.Checksum != "ABCDEF" || got.Path != pkg.Path || got.Size != 1024 {
		t.Errorf("unexpected package: %+v", got)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("expected fetched at %v, got %v", fetched, got.FetchedAt)
	}

	used := fetched.Add(time.Hour)
	idx.now = fixedClock(used)
	if err := idx.Touch(ctx, "gleam_stdlib", "0.34.0"); err != nil {
		t.Fatalf("failed to touch package: %v", err)
	}
	got, err = idx.Lookup(ctx, "gleam_stdlib", "0.34.0")
	if err != nil {
		t.Fatalf("failed to look up package: %v", err)
	}
	if !got.LastUsedAt.Equal(used) {
		t.Errorf("expected last used at %v, got %v", used, got.LastUsedAt)
	}

	if err := idx.Remove(ctx, "gleam_stdlib", "0.34.0"); err != nil {
		t.Fatalf("failed to remove package: %v", err)
	}
	if _, err := idx.Lookup(ctx, "gleam_stdlib", "0.34.0"); !errors.Is(err, ErrNotCached) {
		t.Errorf("expected ErrNotCached after removal, got %v", err)
	}
}

func TestRecordReplacesExistingEntry(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	for _, checksum := range []string{"OLD", "NEW"} {
		if err := idx.Record(ctx, &CachedPackage{Name: "gleeunit", Version: "1.0.0", Checksum: checksum, Path: "/p"}); err != nil {
			t.Fatalf("failed to record package: %v", err)
		}
	}

	packages, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("failed to list packages: %v", err)
	}
	if len(packages) != 1 || packages[0].Checksum != "NEW" {
		t.Errorf("expected one updated entry, got %+v", packages)
	}
}

func TestTouchUnknownPackage(t *testing.T) {
	idx := setupTestIndex(t)

	err := idx.Touch(context.Background(), "missing", "1.0.0")
	if !errors.Is(err, ErrNotCached) {
		t.Errorf("expected ErrNotCached, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []CachedPackage{
		{Name: "a", Version: "1.0.0", LastUsedAt: base},
		{Name: "b", Version: "1.0.0", LastUsedAt: base.Add(48 * time.Hour)},
		{Name: "c", Version: "2.0.0", LastUsedAt: base.Add(time.Hour)},
	}
	for i := range entries {
		entries[i].FetchedAt = base
		entries[i].Path = "/cache/" + entries[i].Name
		if err := idx.Record(ctx, &entries[i]); err != nil {
			t.Fatalf("failed to record package: %v", err)
		}
	}

	stale, err := idx.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if len(stale) != 2 || stale[0].Name != "a" || stale[1].Name != "c" {
		t.Errorf("unexpected pruned packages: %+v", stale)
	}

	remaining, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("failed to list packages: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Name != "b" {
		t.Errorf("unexpected remaining packages: %+v", remaining)
	}
}

func TestReleases(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	idx.now = fixedClock(now)

	if _, err := idx.Releases(ctx, "gleam_json"); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}

	if err := idx.RecordReleases(ctx, "gleam_json", []string{"1.0.0", "1.0.1", "2.0.0"}); err != nil {
		t.Fatalf("failed to record releases: %v", err)
	}

	r, err := idx.Releases(ctx, "gleam_json")
	if err != nil {
		t.Fatalf("failed to get releases: %v", err)
	}
	if len(r.Versions) != 3 || r.Versions[2] != "2.0.0" {
		t.Errorf("unexpected versions: %v", r.Versions)
	}
	if !r.Fresh(now.Add(time.Minute), time.Hour) {
		t.Error("expected releases to be fresh")
	}
	if r.Fresh(now.Add(2*time.Hour), time.Hour) {
		t.Error("expected releases to be stale")
	}
}
