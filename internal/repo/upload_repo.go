package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/dbutil"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
)

var uploadColumns = []string{
	"id", "object_key", "image_url", "predicted_label", "confidence", "user_label", "is_verified", "ctime", "mtime",
}

type UploadRepo struct {
	db *sql.DB
}

func NewUploadRepo(db *sql.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

func (r *UploadRepo) Create(ctx context.Context, upload *model.Upload) error {
	data := map[string]interface{}{
		"id":              upload.ID,
		"object_key":      upload.ObjectKey,
		"image_url":       upload.ImageURL,
		"predicted_label": upload.PredictedLabel,
		"confidence":      upload.Confidence,
		"user_label":      upload.UserLabel,
		"is_verified":     upload.IsVerified,
		"ctime":           upload.Ctime,
		"mtime":           upload.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("uploads", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UploadRepo) GetByID(ctx context.Context, id string) (*model.Upload, error) {
	sqlStr, args, err := builder.BuildSelect("uploads", map[string]interface{}{"id": id}, uploadColumns)
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
	item, err := scanUpload(rows)
	if err != nil {
		return nil, err
	}
	return item, rows.Err()
}

func (r *UploadRepo) SetUserLabel(ctx context.Context, id, label string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{"user_label": label, "mtime": mtime})
}

func (r *UploadRepo) MarkVerified(ctx context.Context, id string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{"is_verified": true, "mtime": mtime})
}

func (r *UploadRepo) update(ctx context.Context, id string, fields map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("uploads", map[string]interface{}{"id": id}, fields)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	return expectAffected(res, err)
}

// ListVerified returns verified uploads that have an image to re-fetch,
// oldest first.
func (r *UploadRepo) ListVerified(ctx context.Context) ([]model.Upload, error) {
	sqlStr := `
		SELECT id, object_key, image_url, predicted_label, confidence, user_label, is_verified, ctime, mtime
		FROM uploads
		WHERE is_verified = ? AND image_url <> ?
		ORDER BY ctime ASC, id ASC
	`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{true, ""})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Upload, 0)
	for rows.Next() {
		item, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *UploadRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "uploads", nil)
}

func (r *UploadRepo) CountVerified(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "uploads", map[string]interface{}{"is_verified": true})
}

func scanUpload(rows *sql.Rows) (*model.Upload, error) {
	var item model.Upload
	if err := rows.Scan(&item.ID, &item.ObjectKey, &item.ImageURL, &item.PredictedLabel, &item.Confidence,
		&item.UserLabel, &item.IsVerified, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	return &item, nil
}

func count(ctx context.Context, db *sql.DB, table string, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildSelect(table, where, []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var n int64
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
