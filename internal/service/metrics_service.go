package service

import (
	"context"

	"github.com/xxxsen/outfitcast/internal/prototype"
)

type Metrics struct {
	TotalPredictions int64    `json:"total_predictions"`
	VerifiedUploads  int64    `json:"verified_uploads"`
	TotalFeedback    int64    `json:"total_feedback"`
	Categories       []string `json:"categories"`
}

type MetricsService struct {
	uploads  UploadStore
	feedback FeedbackStore
	store    *prototype.Store
}

func NewMetricsService(uploads UploadStore, feedback FeedbackStore, store *prototype.Store) *MetricsService {
	return &MetricsService{uploads: uploads, feedback: feedback, store: store}
}

func (s *MetricsService) Get(ctx context.Context) (*Metrics, error) {
	total, err := s.uploads.Count(ctx)
	if err != nil {
		return nil, err
	}
	verified, err := s.uploads.CountVerified(ctx)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		TotalPredictions: total,
		VerifiedUploads:  verified,
		TotalFeedback:    feedback,
		Categories:       s.store.Categories(),
	}, nil
}
