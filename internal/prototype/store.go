package prototype

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/vision"
)

// Store owns the single shared Set handle. Replacements are built off to the
// side and published with one pointer swap, so readers always see a whole set.
type Store struct {
	current      atomic.Pointer[Set]
	extractor    vision.Extractor
	corpus       SampleSource
	snapshotPath string
}

func NewStore(extractor vision.Extractor, corpus SampleSource, snapshotPath string) *Store {
	s := &Store{extractor: extractor, corpus: corpus, snapshotPath: snapshotPath}
	s.current.Store(Empty(extractor.Fingerprint(), extractor.Dim()))
	return s
}

func (s *Store) Extractor() vision.Extractor {
	return s.extractor
}

func (s *Store) Current() *Set {
	return s.current.Load()
}

func (s *Store) Categories() []string {
	return s.Current().Categories()
}

// Swap publishes set. Sets from a different extractor are rejected.
func (s *Store) Swap(ctx context.Context, set *Set) error {
	if set == nil {
		return errors.New("nil prototype set")
	}
	if set.Fingerprint() != s.extractor.Fingerprint() {
		return ErrFingerprintChanged
	}
	s.current.Store(set)
	logutil.GetLogger(ctx).Info("prototype set swapped", zap.Int("labels", set.Len()))
	return nil
}

// Rebuild recomputes the set from the baseline corpus and publishes it.
func (s *Store) Rebuild(ctx context.Context) (*Set, error) {
	set, err := Build(ctx, s.extractor, s.corpus)
	if err != nil {
		return nil, err
	}
	if err := s.Swap(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// Retrain rebuilds from the corpus plus extra, persists the snapshot and then
// publishes the result. An empty result leaves both the snapshot and the live
// set untouched.
func (s *Store) Retrain(ctx context.Context, extra ...SampleSource) (*Set, error) {
	sources := append([]SampleSource{s.corpus}, extra...)
	set, err := Build(ctx, s.extractor, sources...)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, ErrNoPrototypes
	}
	if s.snapshotPath != "" {
		if err := Save(set, s.snapshotPath); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}
	if err := s.Swap(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadOrBuild publishes the snapshot when one is present and readable, and
// otherwise builds from the corpus. A fresh non-empty build is saved as the
// new snapshot.
func (s *Store) LoadOrBuild(ctx context.Context) (*Set, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("snapshot", s.snapshotPath))
	if s.snapshotPath != "" && fileExists(s.snapshotPath) {
		set, err := Load(s.snapshotPath, s.extractor.Fingerprint())
		if err == nil {
			if err := s.Swap(ctx, set); err != nil {
				return nil, err
			}
			logger.Info("prototype snapshot loaded", zap.Int("labels", set.Len()))
			return set, nil
		}
		logger.Warn("prototype snapshot unusable, rebuilding from corpus", zap.Error(err))
	}
	set, err := s.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if s.snapshotPath != "" && set.Len() > 0 {
		if err := Save(set, s.snapshotPath); err != nil {
			logger.Warn("save prototype snapshot failed", zap.Error(err))
		}
	}
	return set, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
