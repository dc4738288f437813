package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PackageIndex records the contents of the package cache in SQLite.
type PackageIndex struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenPackageIndex opens, creating and migrating if needed, the index at
// path. ":memory:" opens a private in-memory index.
func OpenPackageIndex(path string) (*PackageIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	idx := &PackageIndex{path: path, now: time.Now}
	ctx := context.Background()
	if err := idx.init(ctx); err != nil {
		return nil, err
	}
	if err := idx.migrate(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// init opens the database connection and enables WAL mode.
func (s *PackageIndex) init(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One connection, so that ":memory:" is a single database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

func (s *PackageIndex) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *PackageIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Lookup returns the cached tarball of name at version, or ErrNotCached.
func (s *PackageIndex) Lookup(ctx context.Context, name, version string) (*CachedPackage, error) {
	query := `
		SELECT name, version, checksum, path, size, fetched_at, last_used_at
		FROM packages
		WHERE name = ? AND version = ?
	`

	pkg := &CachedPackage{}
	err := s.db.QueryRowContext(ctx, query, name, version).Scan(
		&pkg.Name,
		&pkg.Version,
		&pkg.Checksum,
		&pkg.Path,
		&pkg.Size,
		&pkg.FetchedAt,
		&pkg.LastUsedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", name, version, ErrNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up package: %w", err)
	}

	return pkg, nil
}

// Record inserts or replaces the entry for a downloaded tarball.
func (s *PackageIndex) Record(ctx context.Context, pkg *CachedPackage) error {
	now := s.now().UTC()
	if pkg.FetchedAt.IsZero() {
		pkg.FetchedAt = now
	}
	if pkg.LastUsedAt.IsZero() {
		pkg.LastUsedAt = now
	}

	query := `
		INSERT INTO packages (name, version, checksum, path, size, fetched_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, version) DO UPDATE SET
			checksum = excluded.checksum,
			path = excluded.path,
			size = excluded.size,
			fetched_at = excluded.fetched_at,
			last_used_at = excluded.last_used_at
	`

	_, err := s.db.ExecContext(ctx, query,
		pkg.Name,
		pkg.Version,
		pkg.Checksum,
		pkg.Path,
		pkg.Size,
		pkg.FetchedAt,
		pkg.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record package: %w", err)
	}

	return nil
}

// Touch marks a cached package as used now.
func (s *PackageIndex) Touch(ctx context.Context, name, version string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE packages SET last_used_at = ? WHERE name = ? AND version = ?`,
		s.now().UTC(), name, version)
	if err != nil {
		return fmt.Errorf("failed to touch package: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", name, version, ErrNotCached)
	}

	return nil
}

// List returns every cached package ordered by name and version.
func (s *PackageIndex) List(ctx context.Context) ([]CachedPackage, error) {
	return s.query(ctx, `
		SELECT name, version, checksum, path, size, fetched_at, last_used_at
		FROM packages
		ORDER BY name, version
	`)
}

// Remove deletes the entry for name at version. The tarball itself is left
// for the caller to delete.
func (s *PackageIndex) Remove(ctx context.Context, name, version string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE name = ? AND version = ?`, name, version)
	if err != nil {
		return fmt.Errorf("failed to remove package: %w", err)
	}
	return nil
}

// Prune removes and returns the entries not used since before.
func (s *PackageIndex) Prune(ctx context.Context, before time.Time) ([]CachedPackage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT name, version, checksum, path, size, fetched_at, last_used_at
		FROM packages
		WHERE last_used_at < ?
		ORDER BY name, version
	`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale packages: %w", err)
	}
	stale, err := scanPackages(rows)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE last_used_at < ?`, before.UTC()); err != nil {
		return nil, fmt.Errorf("failed to prune packages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stale, nil
}

// Releases returns the cached release list of name, or ErrNotCached.
func (s *PackageIndex) Releases(ctx context.Context, name string) (*CachedReleases, error) {
	var (
		encoded string
		r       = &CachedReleases{Name: name}
	)
	err := s.db.QueryRowContext(ctx, `SELECT versions, fetched_at FROM releases WHERE name = ?`, name).
		Scan(&encoded, &r.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s releases: %w", name, ErrNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get releases: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &r.Versions); err != nil {
		return nil, fmt.Errorf("failed to decode releases of %s: %w", name, err)
	}
	return r, nil
}

// RecordReleases stores the release list of name, fetched now.
func (s *PackageIndex) RecordReleases(ctx context.Context, name string, versions []string) error {
	encoded, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("failed to encode releases: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO releases (name, versions, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET versions = excluded.versions, fetched_at = excluded.fetched_at
	`, name, string(encoded), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record releases: %w", err)
	}
	return nil
}

func (s *PackageIndex) query(ctx context.Context, query string, args ...any) ([]CachedPackage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}
	return scanPackages(rows)
}

func scanPackages(rows *sql.Rows) ([]CachedPackage, error) {
	defer rows.Close()

	var packages []CachedPackage
	for rows.Next() {
		var pkg CachedPackage
		if err := rows.Scan(
			&pkg.Name,
			&pkg.Version,
			&pkg.Checksum,
			&pkg.Path,
			&pkg.Size,
			&pkg.FetchedAt,
			&pkg.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}

	return packages, nil
}
