package stores

import (
	"errors"
	"time"
)

// ErrNotCached is returned when a package or release list has no index entry.
var ErrNotCached = errors.New("not in package cache")

// CachedPackage is a downloaded package tarball.
type CachedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Checksum is the registry's outer checksum of the tarball, hex encoded.
	Checksum string `json:"checksum"`

	// Path is the tarball's location in the cache directory.
	Path string `json:"path"`

	Size       int64     `json:"size"`
	FetchedAt  time.Time `json:"fetched_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// CachedReleases is the list of published versions of a package.
type CachedReleases struct {
	Name      string    `json:"name"`
	Versions  []string  `json:"versions"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether the list was fetched within maxAge of now.
func (r *CachedReleases) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.FetchedAt) < maxAge
}
