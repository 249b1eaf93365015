package model

// Outfit is a saved wardrobe item. LastWornDate is YYYY-MM-DD, empty when
// the outfit was never worn.
type Outfit struct {
	ID           string   `json:"id"`
	ImageURL     string   `json:"image_url"`
	ObjectKey    string   `json:"object_key"`
	Category     string   `json:"category"`
	Color        string   `json:"color"`
	Occasion     string   `json:"occasion"`
	Notes        string   `json:"notes"`
	Confidence   *float64 `json:"confidence"`
	LastWornDate string   `json:"last_worn_date"`
	Ctime        int64    `json:"ctime"`
	Mtime        int64    `json:"mtime"`
}

// OutfitFilter narrows an outfit listing. Empty fields do not filter.
type OutfitFilter struct {
	Category string
	Occasion string
	WornOn   string
	// WornBefore keeps outfits last worn strictly before this date, and
	// outfits never worn.
	WornBefore       string
	LeastRecentFirst bool
	Limit            int
}
