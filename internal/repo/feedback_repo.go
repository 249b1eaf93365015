package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/dbutil"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
)

type FeedbackRepo struct {
	db *sql.DB
}

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Create(ctx context.Context, fb *model.Feedback) error {
	data := map[string]interface{}{
		"id":              fb.ID,
		"upload_id":       fb.UploadID,
		"image_url":       fb.ImageURL,
		"predicted_label": fb.PredictedLabel,
		"corrected_label": fb.CorrectedLabel,
		"is_helpful":      fb.IsHelpful,
		"comment":         fb.Comment,
		"model_updated":   fb.ModelUpdated,
		"ctime":           fb.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("feedback", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FeedbackRepo) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	sqlStr, args, err := builder.BuildSelect("feedback", map[string]interface{}{"id": id}, []string{
		"id", "upload_id", "image_url", "predicted_label", "corrected_label", "is_helpful", "comment", "model_updated", "ctime",
	})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.Feedback
	var helpful sql.NullBool
	if err := rows.Scan(&item.ID, &item.UploadID, &item.ImageURL, &item.PredictedLabel, &item.CorrectedLabel,
		&helpful, &item.Comment, &item.ModelUpdated, &item.Ctime); err != nil {
		return nil, err
	}
	if helpful.Valid {
		v := helpful.Bool
		item.IsHelpful = &v
	}
	return &item, rows.Err()
}

func (r *FeedbackRepo) MarkModelUpdated(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildUpdate("feedback", map[string]interface{}{"id": id}, map[string]interface{}{"model_updated": true})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FeedbackRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "feedback", nil)
}
