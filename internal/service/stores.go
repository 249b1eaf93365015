package service

import (
	"context"

	"github.com/xxxsen/outfitcast/internal/model"
)

type UploadStore interface {
	Create(ctx context.Context, upload *model.Upload) error
	GetByID(ctx context.Context, id string) (*model.Upload, error)
	SetUserLabel(ctx context.Context, id, label string, mtime int64) error
	MarkVerified(ctx context.Context, id string, mtime int64) error
	ListVerified(ctx context.Context) ([]model.Upload, error)
	Count(ctx context.Context) (int64, error)
	CountVerified(ctx context.Context) (int64, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, fb *model.Feedback) error
	MarkModelUpdated(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type FeatureCache interface {
	Get(ctx context.Context, uploadID, fingerprint string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.SampleFeature) error
	Prune(ctx context.Context, fingerprint string) (int64, error)
}

type OutfitStore interface {
	Create(ctx context.Context, outfit *model.Outfit) error
	GetByID(ctx context.Context, id string) (*model.Outfit, error)
	Update(ctx context.Context, outfit *model.Outfit) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter model.OutfitFilter) ([]model.Outfit, error)
}
