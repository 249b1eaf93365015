package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/outfitcast/internal/model"
)

// SampleFeatureRepo caches descriptors of verified uploads per extractor
// fingerprint.
type SampleFeatureRepo struct {
	db *sql.DB
}

func NewSampleFeatureRepo(db *sql.DB) *SampleFeatureRepo {
	return &SampleFeatureRepo{db: db}
}

func (r *SampleFeatureRepo) Get(ctx context.Context, uploadID, fingerprint string) ([]float32, bool, error) {
	const query = `
		SELECT descriptor
		FROM sample_features
		WHERE upload_id = $1 AND fingerprint = $2
	`
	row := r.db.QueryRowContext(ctx, query, uploadID, fingerprint)
	var descriptor pgvector.Vector
	if err := row.Scan(&descriptor); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return descriptor.Slice(), true, nil
}

func (r *SampleFeatureRepo) Save(ctx context.Context, item *model.SampleFeature) error {
	const query = `
		INSERT INTO sample_features (upload_id, fingerprint, descriptor, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (upload_id, fingerprint) DO UPDATE SET
			descriptor = EXCLUDED.descriptor,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.UploadID,
		item.Fingerprint,
		pgvector.NewVector(item.Descriptor),
		item.Ctime,
	)
	return err
}

// Prune drops descriptors computed by any extractor other than fingerprint.
func (r *SampleFeatureRepo) Prune(ctx context.Context, fingerprint string) (int64, error) {
	const query = `DELETE FROM sample_features WHERE fingerprint <> $1`
	res, err := r.db.ExecContext(ctx, query, fingerprint)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
