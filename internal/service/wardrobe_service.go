package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/classifier"
	"github.com/xxxsen/outfitcast/internal/model"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/pkg/timeutil"
	"github.com/xxxsen/outfitcast/internal/prototype"
)

const (
	dateLayout = "2006-01-02"

	recentlyWornDays = 7
	suggestionLimit  = 10
)

type OutfitInput struct {
	UploadID   string   `json:"upload_id"`
	ImageURL   string   `json:"image_url"`
	Category   string   `json:"category"`
	Color      string   `json:"color"`
	Occasion   string   `json:"occasion"`
	Notes      string   `json:"notes"`
	Confidence *float64 `json:"confidence"`
}

// OutfitPatch changes only the non-empty fields; Notes is applied when set.
type OutfitPatch struct {
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Occasion string  `json:"occasion"`
	Notes    *string `json:"notes"`
}

type OutfitList struct {
	Count   int            `json:"count"`
	Outfits []model.Outfit `json:"outfits"`
}

type DatedOutfits struct {
	Date    string         `json:"date"`
	Count   int            `json:"count"`
	Outfits []model.Outfit `json:"outfits"`
}

type NotWornOutfits struct {
	Days       int            `json:"days"`
	CutoffDate string         `json:"cutoff_date"`
	Count      int            `json:"count"`
	Outfits    []model.Outfit `json:"outfits"`
}

type SuggestQuery struct {
	Category    string
	Occasion    string
	AvoidRecent bool
	Days        int
}

type WardrobeStats struct {
	TotalOutfits      int            `json:"total_outfits"`
	Categories        map[string]int `json:"categories"`
	NeverWorn         int            `json:"never_worn"`
	RecentlyWorn7Days int            `json:"recently_worn_7_days"`
}

type WardrobeService struct {
	outfits OutfitStore
	uploads UploadStore
	now     func() time.Time
}

func NewWardrobeService(outfits OutfitStore, uploads UploadStore) *WardrobeService {
	return &WardrobeService{outfits: outfits, uploads: uploads, now: time.Now}
}

// Save stores a wardrobe item. With an upload id, the image, category and
// confidence default to what the upload recorded.
func (s *WardrobeService) Save(ctx context.Context, in OutfitInput) (*model.Outfit, error) {
	in.UploadID = strings.TrimSpace(in.UploadID)
	outfit := &model.Outfit{
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Category:   prototype.NormalizeLabel(in.Category),
		Color:      strings.TrimSpace(in.Color),
		Occasion:   prototype.NormalizeLabel(in.Occasion),
		Notes:      strings.TrimSpace(in.Notes),
		Confidence: in.Confidence,
	}
	if in.UploadID != "" {
		upload, err := s.uploads.GetByID(ctx, in.UploadID)
		if err != nil {
			return nil, err
		}
		if outfit.ImageURL == "" {
			outfit.ImageURL = upload.ImageURL
			outfit.ObjectKey = upload.ObjectKey
		}
		if outfit.Category == "" {
			outfit.Category = uploadCategory(upload)
		}
		if outfit.Confidence == nil && upload.PredictedLabel != classifier.UnknownLabel {
			confidence := upload.Confidence
			outfit.Confidence = &confidence
		}
	}
	if outfit.ImageURL == "" || outfit.Category == "" {
		return nil, fmt.Errorf("%w: image_url and category are required", appErr.ErrInvalid)
	}
	if c := outfit.Confidence; c != nil && (*c < 0 || *c > 1) {
		return nil, fmt.Errorf("%w: confidence must be within [0, 1]", appErr.ErrInvalid)
	}
	now := timeutil.NowUnix()
	outfit.ID = newID()
	outfit.Ctime, outfit.Mtime = now, now
	if err := s.outfits.Create(ctx, outfit); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("outfit saved", zap.String("outfit_id", outfit.ID), zap.String("category", outfit.Category))
	return outfit, nil
}

func uploadCategory(upload *model.Upload) string {
	if upload.UserLabel != "" {
		return upload.UserLabel
	}
	if upload.PredictedLabel == classifier.UnknownLabel {
		return ""
	}
	return upload.PredictedLabel
}

func (s *WardrobeService) Get(ctx context.Context, id string) (*model.Outfit, error) {
	return s.outfits.GetByID(ctx, strings.TrimSpace(id))
}

func (s *WardrobeService) List(ctx context.Context, category, occasion string) (*OutfitList, error) {
	items, err := s.outfits.List(ctx, model.OutfitFilter{
		Category: prototype.NormalizeLabel(category),
		Occasion: prototype.NormalizeLabel(occasion),
	})
	if err != nil {
		return nil, err
	}
	return &OutfitList{Count: len(items), Outfits: items}, nil
}

func (s *WardrobeService) Update(ctx context.Context, id string, patch OutfitPatch) (*model.Outfit, error) {
	outfit, err := s.outfits.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if v := prototype.NormalizeLabel(patch.Category); v != "" {
		outfit.Category = v
	}
	if v := strings.TrimSpace(patch.Color); v != "" {
		outfit.Color = v
	}
	if v := prototype.NormalizeLabel(patch.Occasion); v != "" {
		outfit.Occasion = v
	}
	if patch.Notes != nil {
		outfit.Notes = strings.TrimSpace(*patch.Notes)
	}
	outfit.Mtime = timeutil.NowUnix()
	if err := s.outfits.Update(ctx, outfit); err != nil {
		return nil, err
	}
	return outfit, nil
}

func (s *WardrobeService) Delete(ctx context.Context, id string) error {
	return s.outfits.Delete(ctx, strings.TrimSpace(id))
}

// Wear records today as the outfit's last worn date.
func (s *WardrobeService) Wear(ctx context.Context, id string) (*model.Outfit, error) {
	outfit, err := s.outfits.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	outfit.LastWornDate = s.today().Format(dateLayout)
	outfit.Mtime = timeutil.NowUnix()
	if err := s.outfits.Update(ctx, outfit); err != nil {
		return nil, err
	}
	return outfit, nil
}

func (s *WardrobeService) WornOn(ctx context.Context, date string) (*DatedOutfits, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", appErr.ErrInvalid)
	}
	key := day.Format(dateLayout)
	items, err := s.outfits.List(ctx, model.OutfitFilter{WornOn: key})
	if err != nil {
		return nil, err
	}
	return &DatedOutfits{Date: key, Count: len(items), Outfits: items}, nil
}

// NotWornRecently lists outfits not worn within the last days days,
// including outfits never worn.
func (s *WardrobeService) NotWornRecently(ctx context.Context, days int) (*NotWornOutfits, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", appErr.ErrInvalid)
	}
	cutoff := s.daysAgo(days)
	items, err := s.outfits.List(ctx, model.OutfitFilter{WornBefore: cutoff})
	if err != nil {
		return nil, err
	}
	return &NotWornOutfits{Days: days, CutoffDate: cutoff, Count: len(items), Outfits: items}, nil
}

// Suggest picks up to ten outfits, least recently worn first.
func (s *WardrobeService) Suggest(ctx context.Context, q SuggestQuery) (*OutfitList, error) {
	if q.Days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", appErr.ErrInvalid)
	}
	filter := model.OutfitFilter{
		Category:         prototype.NormalizeLabel(q.Category),
		Occasion:         prototype.NormalizeLabel(q.Occasion),
		LeastRecentFirst: true,
		Limit:            suggestionLimit,
	}
	if q.AvoidRecent {
		filter.WornBefore = s.daysAgo(q.Days)
	}
	items, err := s.outfits.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OutfitList{Count: len(items), Outfits: items}, nil
}

func (s *WardrobeService) Stats(ctx context.Context) (*WardrobeStats, error) {
	items, err := s.outfits.List(ctx, model.OutfitFilter{})
	if err != nil {
		return nil, err
	}
	stats := &WardrobeStats{TotalOutfits: len(items), Categories: map[string]int{}}
	recent := s.daysAgo(recentlyWornDays)
	for _, item := range items {
		stats.Categories[item.Category]++
		switch {
		case item.LastWornDate == "":
			stats.NeverWorn++
		case item.LastWornDate >= recent:
			stats.RecentlyWorn7Days++
		}
	}
	return stats, nil
}

func (s *WardrobeService) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *WardrobeService) daysAgo(days int) string {
	return s.today().AddDate(0, 0, -days).Format(dateLayout)
}
