package job

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/prototype"
	"github.com/xxxsen/outfitcast/internal/service"
)

type Retrainer interface {
	Retrain(ctx context.Context) (*service.ModelStatus, error)
}

// RetrainJob periodically rebuilds the prototypes from the corpus and the
// verified uploads.
type RetrainJob struct {
	trainer Retrainer
}

func NewRetrainJob(trainer Retrainer) *RetrainJob {
	return &RetrainJob{trainer: trainer}
}

func (j *RetrainJob) Name() string {
	return "prototype_retrain"
}

func (j *RetrainJob) Run(ctx context.Context) error {
	if j.trainer == nil {
		return nil
	}
	status, err := j.trainer.Retrain(ctx)
	if errors.Is(err, prototype.ErrNoPrototypes) {
		logutil.GetLogger(ctx).Warn("retrain produced no prototypes, keeping current model")
		return nil
	}
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("retrain finished", zap.Int("labels", status.Labels), zap.Strings("categories", status.Categories))
	return nil
}
