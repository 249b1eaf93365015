package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/outfitcast/internal/config"
	"github.com/xxxsen/outfitcast/internal/corpus"
	"github.com/xxxsen/outfitcast/internal/filestore"
	"github.com/xxxsen/outfitcast/internal/imagefetch"
	"github.com/xxxsen/outfitcast/internal/model"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/prototype"
	"github.com/xxxsen/outfitcast/internal/vision"
	"github.com/xxxsen/outfitcast/internal/weather"
)

var (
	red   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	blue  = color.RGBA{R: 20, G: 20, B: 200, A: 255}
	green = color.RGBA{R: 20, G: 200, B: 20, A: 255}
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeUploads struct {
	mu        sync.Mutex
	items     map[string]*model.Upload
	order     []string
	failLabel bool
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{items: map[string]*model.Upload{}}
}

func (f *fakeUploads) Create(ctx context.Context, u *model.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[u.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *u
	f.items[u.ID] = &cp
	f.order = append(f.order, u.ID)
	return nil
}

func (f *fakeUploads) GetByID(ctx context.Context, id string) (*model.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploads) SetUserLabel(ctx context.Context, id, label string, mtime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLabel {
		return errors.New("db down")
	}
	u, ok := f.items[id]
	if !ok {
		return appErr.ErrNotFound
	}
	u.UserLabel, u.Mtime = label, mtime
	return nil
}

func (f *fakeUploads) MarkVerified(ctx context.Context, id string, mtime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return appErr.ErrNotFound
	}
	u.IsVerified, u.Mtime = true, mtime
	return nil
}

func (f *fakeUploads) ListVerified(ctx context.Context) ([]model.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Upload, 0)
	for _, id := range f.order {
		if u := f.items[id]; u.IsVerified && u.ImageURL != "" {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUploads) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

func (f *fakeUploads) CountVerified(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.items {
		if u.IsVerified {
			n++
		}
	}
	return n, nil
}

type fakeFeedback struct {
	items   map[string]*model.Feedback
	failAdd bool
}

func (f *fakeFeedback) Create(ctx context.Context, fb *model.Feedback) error {
	if f.failAdd {
		return errors.New("db down")
	}
	cp := *fb
	f.items[fb.ID] = &cp
	return nil
}

func (f *fakeFeedback) MarkModelUpdated(ctx context.Context, id string) error {
	if fb, ok := f.items[id]; ok {
		fb.ModelUpdated = true
	}
	return nil
}

func (f *fakeFeedback) Count(ctx context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

type fakeFeatures struct {
	items map[string][]float32
}

func (f *fakeFeatures) Get(ctx context.Context, uploadID, fingerprint string) ([]float32, bool, error) {
	v, ok := f.items[uploadID+"|"+fingerprint]
	return v, ok, nil
}

func (f *fakeFeatures) Save(ctx context.Context, item *model.SampleFeature) error {
	f.items[item.UploadID+"|"+item.Fingerprint] = item.Descriptor
	return nil
}

func (f *fakeFeatures) Prune(ctx context.Context, fingerprint string) (int64, error) {
	var n int64
	for key := range f.items {
		if !strings.HasSuffix(key, "|"+fingerprint) {
			delete(f.items, key)
			n++
		}
	}
	return n, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	images map[string][]byte
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	data, ok := f.images[url]
	if !ok {
		return nil, imagefetch.ErrFetch
	}
	return data, nil
}

type fakeWeather struct {
	report weather.Report
	last   weather.Query
}

func (f *fakeWeather) Get(ctx context.Context, q weather.Query) weather.Report {
	f.last = q
	return f.report
}

type fixture struct {
	store   *prototype.Store
	corpus  *corpus.Dir
	uploads *fakeUploads
}

// newFixture builds a store over a corpus of two red shirts and two blue
// jeans.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	for label, c := range map[string]color.RGBA{"shirt": red, "jeans": blue} {
		dir := filepath.Join(root, label)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, name := range []string{"a.png", "b.png"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), solidPNG(t, c), 0o644))
		}
	}
	ext, err := vision.NewExtractor(vision.Config{Size: 16, HistogramBins: 8, CoarseBins: 4})
	require.NoError(t, err)
	dir := corpus.New(root)
	store := prototype.NewStore(ext, dir, filepath.Join(t.TempDir(), "model.msgpack"))
	_, err = store.LoadOrBuild(context.Background())
	require.NoError(t, err)
	return &fixture{store: store, corpus: dir, uploads: newFakeUploads()}
}

func TestClassifyService_Predict(t *testing.T) {
	fx := newFixture(t)
	svc := NewClassifyService(fx.store, nil, fx.uploads)
	ctx := context.Background()

	pred, err := svc.Predict(ctx, solidPNG(t, red))
	require.NoError(t, err)
	require.Equal(t, "shirt", pred.OutfitType)
	require.Equal(t, 1.0, pred.Confidence)
	require.Equal(t, "Very confident prediction", pred.ConfidenceMessage)
	n, _ := fx.uploads.Count(ctx)
	require.EqualValues(t, 1, n)

	_, err = svc.Predict(ctx, []byte("not an image"))
	require.ErrorIs(t, err, vision.ErrImageDecode)
	require.Equal(t, []string{"jeans", "shirt"}, svc.Categories())
}

func TestClassifyService_Upload(t *testing.T) {
	fx := newFixture(t)
	dir := t.TempDir()
	files, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	svc := NewClassifyService(fx.store, files, fx.uploads)
	ctx := context.Background()

	res, err := svc.Upload(ctx, UploadInput{Data: solidPNG(t, blue), Filename: "look.PNG", BaseURL: "http://host"})
	require.NoError(t, err)
	require.Equal(t, "jeans", res.PredictedCategory)
	require.Equal(t, "wardrobe/"+res.UploadID+".png", res.ObjectKey)
	require.Equal(t, "http://host/api/v1/files/"+res.ObjectKey, res.ImageURL)
	_, err = os.Stat(filepath.Join(dir, "wardrobe", res.UploadID+".png"))
	require.NoError(t, err)
	stored, err := fx.uploads.GetByID(ctx, res.UploadID)
	require.NoError(t, err)
	require.Equal(t, res.ImageURL, stored.ImageURL)

	// undecodable images are still stored, labeled unknown
	res, err = svc.Upload(ctx, UploadInput{Data: []byte("garbage"), Filename: "x.jpg", Folder: "inbox"})
	require.NoError(t, err)
	require.Equal(t, "unknown", res.PredictedCategory)
	require.Equal(t, 0.0, res.Confidence)

	_, err = svc.Upload(ctx, UploadInput{Data: solidPNG(t, red), Folder: "../escape"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = NewClassifyService(fx.store, nil, fx.uploads).Upload(ctx, UploadInput{Data: solidPNG(t, red)})
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func newLocalFiles(t *testing.T) filestore.Store {
	t.Helper()
	files, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	return files
}

// storeImage saves data under key and returns the URL clients see for it.
func storeImage(t *testing.T, files filestore.Store, key string, data []byte) string {
	t.Helper()
	require.NoError(t, files.Save(context.Background(), key, bytes.NewReader(data), int64(len(data))))
	return files.URL(key, "http://api.test")
}

func TestFeedbackService_LearnsFromCorrection(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	files := newLocalFiles(t)
	imageURL := storeImage(t, files, "wardrobe/up1.png", solidPNG(t, green))
	require.NoError(t, fx.uploads.Create(ctx, &model.Upload{ID: "up1", ObjectKey: "wardrobe/up1.png", ImageURL: imageURL, PredictedLabel: "shirt"}))
	feedback := &fakeFeedback{items: map[string]*model.Feedback{}}
	svc := NewFeedbackService(feedback, fx.uploads, files, fx.corpus, fx.store)

	res, err := svc.Submit(ctx, FeedbackInput{UploadID: "up1", CorrectedLabel: " Kurti "})
	require.NoError(t, err)
	require.True(t, res.ModelUpdated)
	require.Equal(t, []string{"jeans", "kurti", "shirt"}, fx.store.Categories())

	stored := feedback.items[res.FeedbackID]
	require.Equal(t, imageURL, stored.ImageURL)
	require.Equal(t, "shirt", stored.PredictedLabel)
	require.Equal(t, "kurti", stored.CorrectedLabel)
	require.True(t, stored.ModelUpdated)

	up, err := fx.uploads.GetByID(ctx, "up1")
	require.NoError(t, err)
	require.Equal(t, "kurti", up.UserLabel)

	labels, err := fx.corpus.Labels()
	require.NoError(t, err)
	require.Contains(t, labels, "kurti")
}

func TestFeedbackService_LearningFailureStillRecords(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	files := newLocalFiles(t)
	badURL := storeImage(t, files, "wardrobe/bad.png", []byte("nope"))
	feedback := &fakeFeedback{items: map[string]*model.Feedback{}}
	svc := NewFeedbackService(feedback, fx.uploads, files, fx.corpus, fx.store)
	before := fx.store.Current()

	res, err := svc.Submit(ctx, FeedbackInput{ImageURL: files.URL("wardrobe/missing.png", "http://api.test"), CorrectedLabel: "coat"})
	require.NoError(t, err)
	require.False(t, res.ModelUpdated)
	require.Contains(t, feedback.items, res.FeedbackID)

	res, err = svc.Submit(ctx, FeedbackInput{ImageURL: badURL, CorrectedLabel: "coat"})
	require.NoError(t, err)
	require.False(t, res.ModelUpdated)
	require.Same(t, before, fx.store.Current())

	// no image or label means nothing to learn
	helpful := true
	res, err = svc.Submit(ctx, FeedbackInput{IsHelpful: &helpful, Comment: "great"})
	require.NoError(t, err)
	require.False(t, res.ModelUpdated)
	require.Len(t, feedback.items, 3)

	feedback.failAdd = true
	_, err = svc.Submit(ctx, FeedbackInput{Comment: "x"})
	require.Error(t, err)
}

func TestFeedbackService_UploadBookkeepingIsBestEffort(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	files := newLocalFiles(t)
	feedback := &fakeFeedback{items: map[string]*model.Feedback{}}
	svc := NewFeedbackService(feedback, fx.uploads, files, fx.corpus, fx.store)

	res, err := svc.Submit(ctx, FeedbackInput{UploadID: "missing", PredictedLabel: "Shirt", CorrectedLabel: "coat", Comment: "wrong"})
	require.NoError(t, err)
	require.False(t, res.ModelUpdated)
	stored := feedback.items[res.FeedbackID]
	require.NotNil(t, stored)
	require.Equal(t, "missing", stored.UploadID)
	require.Equal(t, "shirt", stored.PredictedLabel)
	require.Equal(t, "coat", stored.CorrectedLabel)

	imageURL := storeImage(t, files, "wardrobe/up2.png", solidPNG(t, green))
	require.NoError(t, fx.uploads.Create(ctx, &model.Upload{ID: "up2", ImageURL: imageURL, PredictedLabel: "shirt"}))
	fx.uploads.failLabel = true
	res, err = svc.Submit(ctx, FeedbackInput{UploadID: "up2", CorrectedLabel: "kurti"})
	require.NoError(t, err)
	require.True(t, res.ModelUpdated)
	require.Equal(t, imageURL, feedback.items[res.FeedbackID].ImageURL)
	up, err := fx.uploads.GetByID(ctx, "up2")
	require.NoError(t, err)
	require.Empty(t, up.UserLabel)
}

func TestFeedbackService_LearnsOnlyFromStoredImages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	files := newLocalFiles(t)
	storeImage(t, files, "wardrobe/green.png", solidPNG(t, green))
	feedback := &fakeFeedback{items: map[string]*model.Feedback{}}
	svc := NewFeedbackService(feedback, fx.uploads, files, fx.corpus, fx.store)
	before := fx.store.Current()

	for _, ref := range []string{
		"http://169.254.169.254/latest/meta-data/iam",
		"http://api.test/elsewhere/wardrobe/green.png",
		"http://api.test/api/v1/files/../../etc/passwd",
		"file:///etc/passwd",
	} {
		res, err := svc.Submit(ctx, FeedbackInput{ImageURL: ref, CorrectedLabel: "coat"})
		require.NoError(t, err, ref)
		require.False(t, res.ModelUpdated, ref)
		require.Equal(t, ref, feedback.items[res.FeedbackID].ImageURL)
	}
	require.Same(t, before, fx.store.Current())
	labels, err := fx.corpus.Labels()
	require.NoError(t, err)
	require.NotContains(t, labels, "coat")

	res, err := NewFeedbackService(feedback, fx.uploads, nil, fx.corpus, fx.store).Submit(ctx, FeedbackInput{
		ImageURL:       files.URL("wardrobe/green.png", "http://api.test"),
		CorrectedLabel: "coat",
	})
	require.NoError(t, err)
	require.False(t, res.ModelUpdated)

	res, err = svc.Submit(ctx, FeedbackInput{ImageURL: files.URL("wardrobe/green.png", "http://other.host"), CorrectedLabel: "coat"})
	require.NoError(t, err)
	require.True(t, res.ModelUpdated)
	require.Contains(t, fx.store.Categories(), "coat")
}

func TestTrainingService_Retrain(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for _, u := range []*model.Upload{
		{ID: "ok", ImageURL: "http://img/green.png", UserLabel: "Kurti"},
		{ID: "gone", ImageURL: "http://img/404.png", UserLabel: "coat"},
		{ID: "nolabel", ImageURL: "http://img/green.png"},
		{ID: "unverified", ImageURL: "http://img/green.png", UserLabel: "saree"},
	} {
		require.NoError(t, fx.uploads.Create(ctx, u))
	}
	features := &fakeFeatures{items: map[string][]float32{"ok|rgb64-h4-c2-v1": {1}}}
	fetcher := &fakeFetcher{images: map[string][]byte{"http://img/green.png": solidPNG(t, green)}}
	svc := NewTrainingService(fx.store, fx.uploads, features, fetcher)

	for _, id := range []string{"ok", "gone", "nolabel"} {
		require.NoError(t, svc.Verify(ctx, id))
	}
	require.ErrorIs(t, svc.Verify(ctx, "missing"), appErr.ErrNotFound)

	status, err := svc.Retrain(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"jeans", "kurti", "shirt"}, status.Categories)
	require.Equal(t, 3, status.Labels)
	require.Equal(t, status.Categories, fx.store.Categories())
	require.Len(t, features.items, 1)
	require.NotContains(t, features.items, "ok|rgb64-h4-c2-v1")
	require.Equal(t, 2, fetcher.calls)

	// cached descriptors avoid a second download
	_, err = svc.Retrain(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, fetcher.calls)

	reloaded, err := svc.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, status.Categories, reloaded.Categories)
}

func TestTrainingService_EmptyRetrainKeepsModel(t *testing.T) {
	ext, err := vision.NewExtractor(vision.Config{Size: 16, HistogramBins: 8, CoarseBins: 4})
	require.NoError(t, err)
	store := prototype.NewStore(ext, corpus.New(filepath.Join(t.TempDir(), "none")), filepath.Join(t.TempDir(), "m.msgpack"))
	svc := NewTrainingService(store, newFakeUploads(), nil, &fakeFetcher{})
	_, err = svc.Retrain(context.Background())
	require.ErrorIs(t, err, prototype.ErrNoPrototypes)
}

func TestOutfitService_Analyze(t *testing.T) {
	fx := newFixture(t)
	provider := &fakeWeather{report: weather.Report{Temp: 3, Rain: 12, MinTemp: 2, MaxTemp: 6, HasForecast: true, Description: "snow"}}
	svc := NewOutfitService(NewClassifyService(fx.store, nil, nil), provider, "Delhi")

	out, err := svc.Analyze(context.Background(), solidPNG(t, red), OutfitQuery{Occasion: "office"})
	require.NoError(t, err)
	require.Equal(t, "Delhi", provider.last.City)
	require.Equal(t, "shirt", out.OutfitType)
	require.Equal(t, "cotton", out.Material)
	require.Equal(t, 3.0, out.Temperature)
	require.Equal(t, "bad", string(out.OutfitVerdict.Status))
	require.Equal(t, "bad", string(out.MaterialVerdict.Status))
	require.Equal(t, "bad", string(out.FinalVerdict.Status))
	require.Equal(t, []string{"raincoat", "waterproof backpack", "quick-dry towel"}, out.RainAdvice)
	require.Contains(t, out.Accessories, "laptop bag")
	require.Contains(t, out.Accessories, "beanie")
	require.Equal(t, []string{"Wool shirt", "Thermal shirt"}, out.SuggestedAlternatives)
	require.Equal(t, "snow", out.WeatherBreakdown.Description)

	lat, lon := 1.5, 2.5
	_, err = svc.Analyze(context.Background(), solidPNG(t, blue), OutfitQuery{Lat: &lat, Lon: &lon, Material: "Wool"})
	require.NoError(t, err)
	require.Empty(t, provider.last.City)

	_, err = svc.Analyze(context.Background(), []byte("x"), OutfitQuery{})
	require.ErrorIs(t, err, vision.ErrImageDecode)
}

func TestTravelService_Pack(t *testing.T) {
	provider := &fakeWeather{report: weather.Report{Temp: 11.96, Rain: 15}}
	svc := NewTravelService(provider, "Delhi")
	plan := svc.Pack(context.Background(), "Shimla", nil, nil)
	require.Equal(t, "Shimla", plan.City)
	require.Equal(t, 12.0, plan.Temperature)
	require.Equal(t, 15.0, plan.RainProbability)
	require.Equal(t, []string{"jackets", "raincoat"}, plan.PackingRecommendation.Outerwear)
	require.Contains(t, plan.PackingRecommendation.Accessories, "umbrella")
}

func TestMetricsService_Get(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.uploads.Create(ctx, &model.Upload{ID: "a", IsVerified: true}))
	require.NoError(t, fx.uploads.Create(ctx, &model.Upload{ID: "b"}))
	feedback := &fakeFeedback{items: map[string]*model.Feedback{"f": {ID: "f"}}}

	m, err := NewMetricsService(fx.uploads, feedback, fx.store).Get(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, m.TotalPredictions)
	require.EqualValues(t, 1, m.VerifiedUploads)
	require.EqualValues(t, 1, m.TotalFeedback)
	require.Equal(t, []string{"jeans", "shirt"}, m.Categories)
}

func TestImageExt(t *testing.T) {
	require.Equal(t, ".png", imageExt("http://cdn/x/y.PNG?sig=1"))
	require.Equal(t, ".webp", imageExt("photo.webp"))
	require.Equal(t, ".jpg", imageExt("http://cdn/x/y"))
	require.Equal(t, ".jpg", imageExt("evil.sh"))
}
