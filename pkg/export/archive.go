package export

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
)

// epoch is the modification time of every archived file, so archives of the
// same inputs are byte-identical.
var epoch = time.Unix(0, 0).UTC()

// entry is one file in an archive.
type entry struct {
	name string
	data []byte
	mode int64
}

func writeTar(entries []entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:    filepath.ToSlash(e.name),
			Mode:    mode,
			Size:    int64(len(e.data)),
			ModTime: epoch,
			Format:  tar.FormatUSTAR,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write header for %s: %w", e.name, err)
		}
		if _, err := tw.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.ModTime = epoch
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// collect reads every regular file under dir, keyed by its slash-separated
// path relative to dir, in lexical order.
func collect(dir string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, entry{name: filepath.ToSlash(rel), data: data, mode: int64(info.Mode().Perm())})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

// TarGzDirectory archives the contents of dir as a gzipped tarball.
func TarGzDirectory(dir string) ([]byte, error) {
	entries, err := collect(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	archive, err := writeTar(entries)
	if err != nil {
		return nil, err
	}
	return gzipBytes(archive)
}

// copyDir copies the regular files of src into dst, creating directories as
// needed.
func copyDir(src, dst string) error {
	entries, err := collect(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(dst, filepath.FromSlash(e.name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, e.data, fs.FileMode(e.mode)); err != nil {
			return err
		}
	}
	return nil
}
