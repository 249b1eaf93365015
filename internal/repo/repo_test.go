package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/outfitcast/internal/model"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/pkg/timeutil"
	"github.com/xxxsen/outfitcast/internal/repo"
	"github.com/xxxsen/outfitcast/internal/testutil"
)

func TestUploadRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	uploads := repo.NewUploadRepo(db)
	now := timeutil.NowUnix()
	require.NoError(t, uploads.Create(ctx, &model.Upload{ID: "u1", ImageURL: "http://img/1.jpg", PredictedLabel: "shirt", Confidence: 0.8, Ctime: now, Mtime: now}))
	require.NoError(t, uploads.Create(ctx, &model.Upload{ID: "u2", PredictedLabel: "jeans", Ctime: now, Mtime: now}))
	require.ErrorIs(t, uploads.Create(ctx, &model.Upload{ID: "u1", Ctime: now, Mtime: now}), appErr.ErrConflict)

	got, err := uploads.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "shirt", got.PredictedLabel)
	_, err = uploads.GetByID(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, uploads.SetUserLabel(ctx, "u1", "kurti", now+1))
	require.NoError(t, uploads.MarkVerified(ctx, "u1", now+1))
	require.NoError(t, uploads.MarkVerified(ctx, "u2", now+1))
	require.ErrorIs(t, uploads.MarkVerified(ctx, "missing", now), appErr.ErrNotFound)

	verified, err := uploads.ListVerified(ctx)
	require.NoError(t, err)
	// u2 has no image and cannot be a training sample
	require.Len(t, verified, 1)
	require.Equal(t, "kurti", verified[0].UserLabel)

	total, err := uploads.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	nVerified, err := uploads.CountVerified(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, nVerified)
}

func TestFeedbackRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	feedback := repo.NewFeedbackRepo(db)
	helpful := false
	require.NoError(t, feedback.Create(ctx, &model.Feedback{ID: "f1", CorrectedLabel: "jeans", IsHelpful: &helpful, Ctime: timeutil.NowUnix()}))
	require.NoError(t, feedback.Create(ctx, &model.Feedback{ID: "f2", Comment: "nice", Ctime: timeutil.NowUnix()}))
	require.NoError(t, feedback.MarkModelUpdated(ctx, "f1"))

	got, err := feedback.GetByID(ctx, "f1")
	require.NoError(t, err)
	require.True(t, got.ModelUpdated)
	require.NotNil(t, got.IsHelpful)
	require.False(t, *got.IsHelpful)

	got, err = feedback.GetByID(ctx, "f2")
	require.NoError(t, err)
	require.Nil(t, got.IsHelpful)

	n, err := feedback.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestSampleFeatureRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	features := repo.NewSampleFeatureRepo(db)
	_, ok, err := features.Get(ctx, "u1", "rgb224-h32-c8-v1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, features.Save(ctx, &model.SampleFeature{UploadID: "u1", Fingerprint: "rgb224-h32-c8-v1", Descriptor: []float32{0.5, 0.25}, Ctime: 1}))
	require.NoError(t, features.Save(ctx, &model.SampleFeature{UploadID: "u1", Fingerprint: "rgb224-h32-c8-v1", Descriptor: []float32{1, 2}, Ctime: 2}))
	vec, ok, err := features.Get(ctx, "u1", "rgb224-h32-c8-v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2}, vec)

	_, ok, err = features.Get(ctx, "u1", "rgb128-h16-c4-v1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, features.Save(ctx, &model.SampleFeature{UploadID: "u2", Fingerprint: "rgb128-h16-c4-v1", Descriptor: []float32{3, 4}, Ctime: 3}))
	n, err := features.Prune(ctx, "rgb224-h32-c8-v1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, err = features.Get(ctx, "u1", "rgb224-h32-c8-v1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOutfitRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	outfits := repo.NewOutfitRepo(db)
	now := timeutil.NowUnix()
	confidence := 0.75
	require.NoError(t, outfits.Create(ctx, &model.Outfit{ID: "o1", ImageURL: "http://img/1.jpg", Category: "shirt", Occasion: "office", Confidence: &confidence, Ctime: now, Mtime: now}))
	require.NoError(t, outfits.Create(ctx, &model.Outfit{ID: "o2", ImageURL: "http://img/2.jpg", Category: "shirt", Occasion: "party", LastWornDate: "2024-03-01", Ctime: now + 1, Mtime: now + 1}))
	require.NoError(t, outfits.Create(ctx, &model.Outfit{ID: "o3", ImageURL: "http://img/3.jpg", Category: "jeans", LastWornDate: "2024-03-19", Ctime: now + 2, Mtime: now + 2}))
	require.ErrorIs(t, outfits.Create(ctx, &model.Outfit{ID: "o1", ImageURL: "x", Category: "x", Ctime: now, Mtime: now}), appErr.ErrConflict)

	got, err := outfits.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got.Confidence)
	require.Equal(t, 0.75, *got.Confidence)
	got, err = outfits.GetByID(ctx, "o2")
	require.NoError(t, err)
	require.Nil(t, got.Confidence)
	_, err = outfits.GetByID(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	listIDs := func(f model.OutfitFilter) []string {
		items, err := outfits.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.ID)
		}
		return out
	}
	require.Equal(t, []string{"o3", "o2", "o1"}, listIDs(model.OutfitFilter{}))
	require.Equal(t, []string{"o2", "o1"}, listIDs(model.OutfitFilter{Category: "shirt"}))
	require.Equal(t, []string{"o1"}, listIDs(model.OutfitFilter{Category: "shirt", Occasion: "office"}))
	require.Equal(t, []string{"o3"}, listIDs(model.OutfitFilter{WornOn: "2024-03-19"}))
	require.Equal(t, []string{"o2", "o1"}, listIDs(model.OutfitFilter{WornBefore: "2024-03-10"}))
	require.Equal(t, []string{"o1", "o2"}, listIDs(model.OutfitFilter{LeastRecentFirst: true, Limit: 2}))

	got.LastWornDate = "2024-03-20"
	got.Notes = "dry clean"
	got.Mtime = now + 5
	require.NoError(t, outfits.Update(ctx, got))
	got, err = outfits.GetByID(ctx, "o2")
	require.NoError(t, err)
	require.Equal(t, "2024-03-20", got.LastWornDate)
	require.Equal(t, "dry clean", got.Notes)
	require.ErrorIs(t, outfits.Update(ctx, &model.Outfit{ID: "missing"}), appErr.ErrNotFound)

	require.NoError(t, outfits.Delete(ctx, "o1"))
	require.ErrorIs(t, outfits.Delete(ctx, "o1"), appErr.ErrNotFound)
	require.Equal(t, []string{"o3", "o2"}, listIDs(model.OutfitFilter{}))
}
