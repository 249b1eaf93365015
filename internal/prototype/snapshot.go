package prototype

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

type snapshotFile struct {
	Version     int         `msgpack:"version"`
	Fingerprint string      `msgpack:"fingerprint"`
	Dim         int         `msgpack:"dim"`
	Labels      []string    `msgpack:"labels"`
	Centroids   [][]float32 `msgpack:"centroids"`
}

// Save writes labels and the centroid matrix to path. The file is replaced
// atomically so a concurrent Load never sees a half-written snapshot.
func Save(set *Set, path string) error {
	if set == nil {
		return fmt.Errorf("nil prototype set")
	}
	data, err := msgpack.Marshal(&snapshotFile{
		Version:     snapshotVersion,
		Fingerprint: set.fingerprint,
		Dim:         set.dim,
		Labels:      set.labels,
		Centroids:   set.centroids,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads a snapshot written by Save. It never touches the image corpus.
// A snapshot built by a different extractor is reported as corrupt.
func Load(path, fingerprint string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return nil, err
	}
	var file snapshotFile
	if err := msgpack.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if file.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorruptSnapshot, file.Version)
	}
	if fingerprint != "" && file.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: %w: have %q, want %q", ErrCorruptSnapshot, ErrFingerprintChanged, file.Fingerprint, fingerprint)
	}
	set, err := NewSet(file.Fingerprint, file.Dim, file.Labels, file.Centroids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return set, nil
}
