package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/classifier"
	"github.com/xxxsen/outfitcast/internal/config"
	"github.com/xxxsen/outfitcast/internal/filestore"
	"github.com/xxxsen/outfitcast/internal/model"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/pkg/timeutil"
	"github.com/xxxsen/outfitcast/internal/prototype"
)

const defaultUploadFolder = "wardrobe"

var ErrStoreImage = errors.New("store image failed")

type ClassifyService struct {
	store   *prototype.Store
	files   filestore.Store
	uploads UploadStore
}

type Prediction struct {
	OutfitType        string  `json:"outfit_type"`
	Confidence        float64 `json:"confidence"`
	ConfidenceMessage string  `json:"confidence_message"`
}

type UploadInput struct {
	Data     []byte
	Filename string
	Folder   string
	BaseURL  string
}

type UploadResult struct {
	UploadID          string  `json:"upload_id"`
	ImageURL          string  `json:"image_url"`
	ObjectKey         string  `json:"object_key"`
	PredictedCategory string  `json:"predicted_category"`
	Confidence        float64 `json:"confidence"`
}

func NewClassifyService(store *prototype.Store, files filestore.Store, uploads UploadStore) *ClassifyService {
	return &ClassifyService{store: store, files: files, uploads: uploads}
}

// Classify extracts the descriptor of data and matches it against the live
// prototype set. Decode failures are returned, never masked.
func (s *ClassifyService) Classify(ctx context.Context, data []byte) (classifier.Result, error) {
	vec, err := s.store.Extractor().Extract(data)
	if err != nil {
		return classifier.Result{}, err
	}
	return classifier.Classify(vec, s.store.Current()), nil
}

func (s *ClassifyService) Categories() []string {
	return s.store.Categories()
}

// Predict classifies data and records the prediction. Recording is best
// effort.
func (s *ClassifyService) Predict(ctx context.Context, data []byte) (*Prediction, error) {
	res, err := s.Classify(ctx, data)
	if err != nil {
		return nil, err
	}
	if s.uploads != nil {
		now := timeutil.NowUnix()
		upload := &model.Upload{
			ID:             newID(),
			PredictedLabel: res.Label,
			Confidence:     res.Confidence,
			Ctime:          now,
			Mtime:          now,
		}
		if err := s.uploads.Create(ctx, upload); err != nil {
			logutil.GetLogger(ctx).Warn("record prediction failed", zap.Error(err))
		}
	}
	return &Prediction{
		OutfitType:        res.Label,
		Confidence:        res.Confidence,
		ConfidenceMessage: classifier.ConfidenceMessage(res.Confidence),
	}, nil
}

// Upload stores the image, classifies it and records the upload. A failed
// classification is recorded as unknown.
func (s *ClassifyService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: object storage is not configured, set file_store in the config", config.ErrConfiguration)
	}
	if len(in.Data) == 0 {
		return nil, appErr.ErrInvalid
	}
	folder := strings.TrimSpace(in.Folder)
	if folder == "" {
		folder = defaultUploadFolder
	}
	folder, err := filestore.CleanKey(folder)
	if err != nil {
		return nil, appErr.ErrInvalid
	}
	id := newID()
	key := folder + "/" + id + imageExt(in.Filename)
	if err := s.files.Save(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreImage, err)
	}
	result := &UploadResult{
		UploadID:          id,
		ObjectKey:         key,
		ImageURL:          s.files.URL(key, in.BaseURL),
		PredictedCategory: classifier.UnknownLabel,
	}
	if res, err := s.Classify(ctx, in.Data); err != nil {
		logutil.GetLogger(ctx).Warn("classify upload failed", zap.String("key", key), zap.Error(err))
	} else {
		result.PredictedCategory = res.Label
		result.Confidence = res.Confidence
	}
	if s.uploads != nil {
		now := timeutil.NowUnix()
		if err := s.uploads.Create(ctx, &model.Upload{
			ID:             id,
			ObjectKey:      key,
			ImageURL:       result.ImageURL,
			PredictedLabel: result.PredictedCategory,
			Confidence:     result.Confidence,
			Ctime:          now,
			Mtime:          now,
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}
