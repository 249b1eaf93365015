package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/imagefetch"
	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/timeutil"
	"github.com/xxxsen/outfitcast/internal/prototype"
	"github.com/xxxsen/outfitcast/internal/vision"
)

type TrainingService struct {
	store    *prototype.Store
	uploads  UploadStore
	features FeatureCache
	fetcher  imagefetch.Fetcher
}

type ModelStatus struct {
	Labels     int      `json:"labels"`
	Categories []string `json:"categories"`
}

func NewTrainingService(store *prototype.Store, uploads UploadStore, features FeatureCache, fetcher imagefetch.Fetcher) *TrainingService {
	return &TrainingService{store: store, uploads: uploads, features: features, fetcher: fetcher}
}

// Retrain rebuilds the prototypes from the corpus plus every verified upload,
// saves the snapshot and swaps the result in. prototype.ErrNoPrototypes is
// returned when nothing usable was found; the old model stays live.
func (s *TrainingService) Retrain(ctx context.Context) (*ModelStatus, error) {
	if s.features != nil {
		n, err := s.features.Prune(ctx, s.store.Extractor().Fingerprint())
		if err != nil {
			logutil.GetLogger(ctx).Warn("prune stale descriptors failed", zap.Error(err))
		} else if n > 0 {
			logutil.GetLogger(ctx).Info("stale descriptors pruned", zap.Int64("count", n))
		}
	}
	set, err := s.store.Retrain(ctx, &verifiedSource{
		uploads:   s.uploads,
		features:  s.features,
		fetcher:   s.fetcher,
		extractor: s.store.Extractor(),
	})
	if err != nil {
		return nil, err
	}
	return &ModelStatus{Labels: set.Len(), Categories: set.Categories()}, nil
}

// Reload republishes the snapshot, or the corpus when the snapshot is unusable.
func (s *TrainingService) Reload(ctx context.Context) (*ModelStatus, error) {
	set, err := s.store.LoadOrBuild(ctx)
	if err != nil {
		return nil, err
	}
	return &ModelStatus{Labels: set.Len(), Categories: set.Categories()}, nil
}

// Verify marks an upload as a trusted retraining sample.
func (s *TrainingService) Verify(ctx context.Context, uploadID string) error {
	if _, err := s.uploads.GetByID(ctx, uploadID); err != nil {
		return err
	}
	return s.uploads.MarkVerified(ctx, uploadID, timeutil.NowUnix())
}

// verifiedSource streams verified uploads as samples. Descriptors are served
// from the feature cache when present; fetch or decode failures skip the
// sample.
type verifiedSource struct {
	uploads   UploadStore
	features  FeatureCache
	fetcher   imagefetch.Fetcher
	extractor vision.Extractor
}

func (v *verifiedSource) Walk(ctx context.Context, fn func(prototype.Sample) error) error {
	logger := logutil.GetLogger(ctx)
	items, err := v.uploads.ListVerified(ctx)
	if err != nil {
		return err
	}
	logger.Info("verified samples listed", zap.Int("count", len(items)))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := prototype.NormalizeLabel(item.UserLabel)
		if label == "" || item.ImageURL == "" {
			continue
		}
		vec, err := v.descriptor(ctx, item)
		if err != nil {
			logger.Warn("skip verified sample",
				zap.String("upload_id", item.ID),
				zap.String("label", label),
				zap.Error(err),
			)
			continue
		}
		if err := fn(prototype.Sample{Label: label, Source: "upload:" + item.ID, Vector: vec}); err != nil {
			return err
		}
	}
	return nil
}

func (v *verifiedSource) descriptor(ctx context.Context, item model.Upload) ([]float32, error) {
	fingerprint := v.extractor.Fingerprint()
	if v.features != nil {
		vec, ok, err := v.features.Get(ctx, item.ID, fingerprint)
		if err != nil {
			logutil.GetLogger(ctx).Warn("read cached descriptor failed", zap.String("upload_id", item.ID), zap.Error(err))
		} else if ok {
			return vec, nil
		}
	}
	data, err := v.fetcher.Fetch(ctx, item.ImageURL)
	if err != nil {
		return nil, err
	}
	vec, err := v.extractor.Extract(data)
	if err != nil {
		return nil, err
	}
	if v.features != nil {
		if err := v.features.Save(ctx, &model.SampleFeature{
			UploadID:    item.ID,
			Fingerprint: fingerprint,
			Descriptor:  vec,
			Ctime:       timeutil.NowUnix(),
		}); err != nil {
			logutil.GetLogger(ctx).Warn("cache descriptor failed", zap.String("upload_id", item.ID), zap.Error(err))
		}
	}
	return vec, nil
}
