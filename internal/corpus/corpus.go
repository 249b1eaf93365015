// Package corpus is the labeled baseline image corpus kept on local disk as
// <root>/<label>/<image>.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/prototype"
)

var ErrInvalidLabel = errors.New("invalid label")

type Dir struct {
	root string
}

func New(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Root() string {
	return d.root
}

// Walk delivers every image under the corpus in label then file-name order.
// A missing root is an empty corpus.
func (d *Dir) Walk(ctx context.Context, fn func(prototype.Sample) error) error {
	labels, err := d.Labels()
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for _, label := range labels {
		dir := filepath.Join(d.root, label)
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("read corpus label dir failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("read corpus image failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if err := fn(prototype.Sample{Label: label, Source: path, Image: data}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Labels lists the label directories, sorted.
func (d *Dir) Labels() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	labels := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			labels = append(labels, entry.Name())
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// Add stores data under label and returns the written path.
func (d *Dir) Add(ctx context.Context, label string, data []byte, ext string) (string, error) {
	_ = ctx
	label = prototype.NormalizeLabel(label)
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	dir := filepath.Join(d.root, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "feedback_"+uuid.NewString()+ext)
	if err := os.Rename(tmpName, path); err != nil {
		return "", err
	}
	return path, nil
}
