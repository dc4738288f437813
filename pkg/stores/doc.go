// Package stores persists the package cache index: which package tarballs
// have been downloaded, where they live on disk, and the release lists last
// fetched from the registry. It is backed by SQLite in WAL mode with
// embedded migrations.
package stores
