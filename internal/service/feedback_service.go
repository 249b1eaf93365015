package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/corpus"
	"github.com/xxxsen/outfitcast/internal/filestore"
	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/timeutil"
	"github.com/xxxsen/outfitcast/internal/prototype"
)

// ErrUntrustedImage marks an image reference the file store did not produce.
var ErrUntrustedImage = errors.New("image not served by the file store")

// maxLearnBytes bounds one image read back from the file store.
const maxLearnBytes = 32 << 20

type FeedbackInput struct {
	UploadID       string `json:"upload_id"`
	ImageURL       string `json:"image_url"`
	PredictedLabel string `json:"predicted_label"`
	CorrectedLabel string `json:"corrected_label"`
	IsHelpful      *bool  `json:"is_helpful"`
	Comment        string `json:"comment"`
}

type FeedbackResult struct {
	FeedbackID   string `json:"feedback_id"`
	ModelUpdated bool   `json:"model_updated"`
}

type FeedbackService struct {
	feedback FeedbackStore
	uploads  UploadStore
	files    filestore.Store
	corpus   *corpus.Dir
	store    *prototype.Store
}

// NewFeedbackService learns only from images kept in files; a nil store
// disables learning.
func NewFeedbackService(feedback FeedbackStore, uploads UploadStore, files filestore.Store, dir *corpus.Dir, store *prototype.Store) *FeedbackService {
	return &FeedbackService{feedback: feedback, uploads: uploads, files: files, corpus: dir, store: store}
}

// Submit records the feedback and, when both an image and a corrected label
// are known, teaches the corpus and reloads the prototypes. Only the record
// itself can fail the call. Upload bookkeeping is best effort and learning
// degrades to ModelUpdated=false.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	logger := logutil.GetLogger(ctx)
	in.UploadID = strings.TrimSpace(in.UploadID)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	corrected := prototype.NormalizeLabel(in.CorrectedLabel)
	now := timeutil.NowUnix()

	if in.UploadID != "" {
		upload, err := s.uploads.GetByID(ctx, in.UploadID)
		if err != nil {
			logger.Warn("feedback upload lookup failed", zap.String("upload_id", in.UploadID), zap.Error(err))
		} else {
			if in.ImageURL == "" {
				in.ImageURL = upload.ImageURL
			}
			if in.PredictedLabel == "" {
				in.PredictedLabel = upload.PredictedLabel
			}
			if corrected != "" {
				if err := s.uploads.SetUserLabel(ctx, upload.ID, corrected, now); err != nil {
					logger.Warn("set upload user label failed", zap.String("upload_id", upload.ID), zap.Error(err))
				}
			}
		}
	}

	fb := &model.Feedback{
		ID:             newID(),
		UploadID:       in.UploadID,
		ImageURL:       in.ImageURL,
		PredictedLabel: prototype.NormalizeLabel(in.PredictedLabel),
		CorrectedLabel: corrected,
		IsHelpful:      in.IsHelpful,
		Comment:        strings.TrimSpace(in.Comment),
		Ctime:          now,
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}
	result := &FeedbackResult{FeedbackID: fb.ID}
	if fb.ImageURL == "" || corrected == "" {
		return result, nil
	}
	if err := s.learn(ctx, fb.ImageURL, corrected); err != nil {
		logger.Warn("learn from feedback failed",
			zap.String("feedback_id", fb.ID),
			zap.String("label", corrected),
			zap.Error(err),
		)
		return result, nil
	}
	result.ModelUpdated = true
	if err := s.feedback.MarkModelUpdated(ctx, fb.ID); err != nil {
		logger.Warn("mark feedback model_updated failed", zap.String("feedback_id", fb.ID), zap.Error(err))
	}
	return result, nil
}

func (s *FeedbackService) learn(ctx context.Context, imageURL, label string) error {
	key, data, err := s.readStored(ctx, imageURL)
	if err != nil {
		return err
	}
	if _, err := s.store.Extractor().Extract(data); err != nil {
		return err
	}
	path, err := s.corpus.Add(ctx, label, data, imageExt(key))
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("feedback sample added to corpus", zap.String("path", path), zap.String("label", label))
	_, err = s.store.Rebuild(ctx)
	return err
}

// readStored loads an image the file store served under imageURL. Any other
// reference is refused, so feedback never triggers an outbound request.
func (s *FeedbackService) readStored(ctx context.Context, imageURL string) (string, []byte, error) {
	if s.files == nil {
		return "", nil, fmt.Errorf("%w: no file store configured", ErrUntrustedImage)
	}
	key, ok := s.files.KeyOf(imageURL)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUntrustedImage, imageURL)
	}
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxLearnBytes+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > maxLearnBytes {
		return "", nil, fmt.Errorf("stored image %s exceeds %d bytes", key, maxLearnBytes)
	}
	return key, data, nil
}
