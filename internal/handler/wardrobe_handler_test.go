package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/outfitcast/internal/model"
	"github.com/xxxsen/outfitcast/internal/pkg/errcode"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/service"
)

type memOutfits struct {
	mu    sync.Mutex
	items map[string]*model.Outfit
	order []string
}

func newMemOutfits() *memOutfits {
	return &memOutfits{items: map[string]*model.Outfit{}}
}

func (m *memOutfits) Create(ctx context.Context, o *model.Outfit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.items[o.ID] = &cp
	m.order = append(m.order, o.ID)
	return nil
}

func (m *memOutfits) GetByID(ctx context.Context, id string) (*model.Outfit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOutfits) Update(ctx context.Context, o *model.Outfit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[o.ID]; !ok {
		return appErr.ErrNotFound
	}
	cp := *o
	m.items[o.ID] = &cp
	return nil
}

func (m *memOutfits) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return appErr.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memOutfits) List(ctx context.Context, f model.OutfitFilter) ([]model.Outfit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Outfit, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		o, ok := m.items[m.order[i]]
		if !ok {
			continue
		}
		if (f.Category != "" && o.Category != f.Category) ||
			(f.Occasion != "" && o.Occasion != f.Occasion) ||
			(f.WornOn != "" && o.LastWornDate != f.WornOn) ||
			(f.WornBefore != "" && o.LastWornDate >= f.WornBefore) {
			continue
		}
		out = append(out, *o)
	}
	if f.LeastRecentFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].LastWornDate < out[j].LastWornDate })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func jsonRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWardrobeHandlers(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()
	require.NoError(t, env.uploads.Create(ctx, &model.Upload{ID: "u1", ImageURL: "http://example.com/api/v1/files/wardrobe/u1.png", PredictedLabel: "jeans", Confidence: 1}))

	out := do(t, env.router, jsonRequest(t, http.MethodPost, "/api/v1/wardrobe/outfits", `{"upload_id":"u1","occasion":"Casual","color":"blue"}`))
	require.Equal(t, 0, out.Code)
	var jeans model.Outfit
	require.NoError(t, json.Unmarshal(out.Data, &jeans))
	require.Equal(t, "jeans", jeans.Category)
	require.Equal(t, "casual", jeans.Occasion)

	out = do(t, env.router, jsonRequest(t, http.MethodPost, "/api/v1/wardrobe/outfits", `{"image_url":"http://cdn/s.png","category":"Shirt","occasion":"office"}`))
	require.Equal(t, 0, out.Code)
	var shirt model.Outfit
	require.NoError(t, json.Unmarshal(out.Data, &shirt))

	out = do(t, env.router, jsonRequest(t, http.MethodPost, "/api/v1/wardrobe/outfits", `{"category":"shirt"}`))
	require.Equal(t, errcode.ErrInvalid, out.Code)
	out = do(t, env.router, jsonRequest(t, http.MethodPost, "/api/v1/wardrobe/outfits", `{"category":`))
	require.Equal(t, errcode.ErrInvalid, out.Code)

	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/outfits?category=SHIRT", nil))
	var list service.OutfitList
	require.NoError(t, json.Unmarshal(out.Data, &list))
	require.Equal(t, 1, list.Count)
	require.Equal(t, shirt.ID, list.Outfits[0].ID)

	out = do(t, env.router, jsonRequest(t, http.MethodPut, "/api/v1/wardrobe/outfits/"+shirt.ID, `{"color":"white","notes":"linen"}`))
	require.Equal(t, 0, out.Code)
	var updated model.Outfit
	require.NoError(t, json.Unmarshal(out.Data, &updated))
	require.Equal(t, "white", updated.Color)
	require.Equal(t, "shirt", updated.Category)
	require.Equal(t, "linen", updated.Notes)

	out = do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/outfits/"+shirt.ID+"/wear", nil))
	require.Equal(t, 0, out.Code)
	var worn model.Outfit
	require.NoError(t, json.Unmarshal(out.Data, &worn))
	require.NotEmpty(t, worn.LastWornDate)

	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/worn/"+worn.LastWornDate, nil))
	var dated service.DatedOutfits
	require.NoError(t, json.Unmarshal(out.Data, &dated))
	require.Equal(t, 1, dated.Count)
	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/worn/yesterday", nil))
	require.Equal(t, errcode.ErrInvalid, out.Code)

	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/not-worn-recently", nil))
	var stale service.NotWornOutfits
	require.NoError(t, json.Unmarshal(out.Data, &stale))
	require.Equal(t, 30, stale.Days)
	require.Equal(t, 1, stale.Count)
	require.Equal(t, jeans.ID, stale.Outfits[0].ID)
	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/not-worn-recently?days=abc", nil))
	require.Equal(t, errcode.ErrInvalid, out.Code)

	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/suggestions", nil))
	require.NoError(t, json.Unmarshal(out.Data, &list))
	require.Equal(t, 1, list.Count)
	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/suggestions?avoid_recent=false", nil))
	require.NoError(t, json.Unmarshal(out.Data, &list))
	require.Equal(t, 2, list.Count)
	require.Equal(t, jeans.ID, list.Outfits[0].ID)
	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/suggestions?avoid_recent=maybe", nil))
	require.Equal(t, errcode.ErrInvalid, out.Code)

	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/stats", nil))
	var stats service.WardrobeStats
	require.NoError(t, json.Unmarshal(out.Data, &stats))
	require.Equal(t, 2, stats.TotalOutfits)
	require.Equal(t, map[string]int{"jeans": 1, "shirt": 1}, stats.Categories)
	require.Equal(t, 1, stats.NeverWorn)
	require.Equal(t, 1, stats.RecentlyWorn7Days)

	out = do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/v1/wardrobe/outfits/"+shirt.ID, nil))
	require.Equal(t, 0, out.Code)
	out = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/v1/wardrobe/outfits/"+shirt.ID, nil))
	require.Equal(t, errcode.ErrNotFound, out.Code)
	out = do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/v1/wardrobe/outfits/"+shirt.ID+"/wear", nil))
	require.Equal(t, errcode.ErrNotFound, out.Code)
}
