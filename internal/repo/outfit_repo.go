package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/dbutil"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
)

var outfitColumns = []string{
	"id", "image_url", "object_key", "category", "color", "occasion", "notes", "confidence", "last_worn_date", "ctime", "mtime",
}

type OutfitRepo struct {
	db *sql.DB
}

func NewOutfitRepo(db *sql.DB) *OutfitRepo {
	return &OutfitRepo{db: db}
}

func (r *OutfitRepo) Create(ctx context.Context, outfit *model.Outfit) error {
	data := map[string]interface{}{
		"id":             outfit.ID,
		"image_url":      outfit.ImageURL,
		"object_key":     outfit.ObjectKey,
		"category":       outfit.Category,
		"color":          outfit.Color,
		"occasion":       outfit.Occasion,
		"notes":          outfit.Notes,
		"confidence":     outfit.Confidence,
		"last_worn_date": outfit.LastWornDate,
		"ctime":          outfit.Ctime,
		"mtime":          outfit.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("outfits", []map[string]interface{}{data})
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

func (r *OutfitRepo) GetByID(ctx context.Context, id string) (*model.Outfit, error) {
	sqlStr, args, err := builder.BuildSelect("outfits", map[string]interface{}{"id": id}, outfitColumns)
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
	item, err := scanOutfit(rows)
	if err != nil {
		return nil, err
	}
	return item, rows.Err()
}

// Update rewrites the mutable fields of an existing outfit.
func (r *OutfitRepo) Update(ctx context.Context, outfit *model.Outfit) error {
	fields := map[string]interface{}{
		"category":       outfit.Category,
		"color":          outfit.Color,
		"occasion":       outfit.Occasion,
		"notes":          outfit.Notes,
		"last_worn_date": outfit.LastWornDate,
		"mtime":          outfit.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("outfits", map[string]interface{}{"id": outfit.ID}, fields)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	return expectAffected(res, err)
}

func (r *OutfitRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("outfits", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	return expectAffected(res, err)
}

// List returns outfits matching f, newest first unless f asks for the least
// recently worn first. Never worn outfits store '' and sort before any date.
func (r *OutfitRepo) List(ctx context.Context, f model.OutfitFilter) ([]model.Outfit, error) {
	var (
		conds []string
		args  []interface{}
	)
	where := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.Category != "" {
		where("category = ?", f.Category)
	}
	if f.Occasion != "" {
		where("occasion = ?", f.Occasion)
	}
	if f.WornOn != "" {
		where("last_worn_date = ?", f.WornOn)
	}
	if f.WornBefore != "" {
		where("last_worn_date < ?", f.WornBefore)
	}
	sqlStr := "SELECT " + strings.Join(outfitColumns, ", ") + " FROM outfits"
	if len(conds) > 0 {
		sqlStr += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.LeastRecentFirst {
		sqlStr += " ORDER BY last_worn_date ASC, ctime DESC, id ASC"
	} else {
		sqlStr += " ORDER BY ctime DESC, id ASC"
	}
	if f.Limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, f.Limit)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Outfit, 0)
	for rows.Next() {
		item, err := scanOutfit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanOutfit(rows *sql.Rows) (*model.Outfit, error) {
	var (
		item       model.Outfit
		confidence sql.NullFloat64
	)
	if err := rows.Scan(&item.ID, &item.ImageURL, &item.ObjectKey, &item.Category, &item.Color, &item.Occasion,
		&item.Notes, &confidence, &item.LastWornDate, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	if confidence.Valid {
		v := confidence.Float64
		item.Confidence = &v
	}
	return &item, nil
}

func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
