// Package rules holds the static comfort tables that turn a garment label and
// weather conditions into advice. Every lookup is keyed by a normalized
// string and has an explicit default; returned slices are copies.
package rules

import (
	"strings"
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusBad  Status = "bad"
)

type Verdict struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Conditions is the weather input to the rule tables. Forecast fields are
// only consulted when HasForecast is set.
type Conditions struct {
	Temp          float64
	Rain          float64
	MinTemp       float64
	MaxTemp       float64
	DailyRainProb float64
	HasForecast   bool
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func in(m map[string]struct{}, key string) bool {
	_, ok := m[key]
	return ok
}

var (
	warmOutfits          = set("jacket", "coat", "sweater", "hoodie")
	heavyOutfits         = set("jeans", "jacket", "coat", "sweater", "hoodie")
	rainSensitiveOutfits = set("sandals", "heels", "saree", "lehenga", "dress", "skirt")
	coldUnfriendly       = set("t-shirt", "dress", "kurti", "shirt")
	openWear             = set("shorts", "sandals")
	tooWarm              = set("jacket", "coat", "sweater")
	hotFriendly          = set("t-shirt", "cotton shirt", "dress")
	extremeHeatAvoid     = set("jeans", "jacket", "coat")
)

// OutfitVerdict checks the garment against the day's forecast first and then
// against the current temperature band.
func OutfitVerdict(outfit string, c Conditions) Verdict {
	outfit = normalize(outfit)
	if c.HasForecast {
		if c.MaxTemp >= 37 && in(heavyOutfits, outfit) {
			return Verdict{StatusBad, "Extreme heat expected today, wear loose cotton clothes"}
		}
		if c.MinTemp <= 5 && !in(warmOutfits, outfit) {
			return Verdict{StatusBad, "Extreme cold expected today, carry thermal wear and a heavy jacket"}
		}
		if c.DailyRainProb >= 50 && in(rainSensitiveOutfits, outfit) {
			return Verdict{StatusBad, "Rain expected today, this outfit does not handle wet weather"}
		}
	}
	t := c.Temp
	switch {
	case t <= 5:
		if !in(warmOutfits, outfit) {
			return Verdict{StatusBad, "Extreme cold, thermal wear and heavy jacket required"}
		}
		return Verdict{StatusOK, "Suitable for extreme cold"}
	case t <= 12:
		if in(coldUnfriendly, outfit) {
			return Verdict{StatusBad, "Cold weather, add jacket or sweater"}
		}
		return Verdict{StatusOK, "Suitable for cold weather"}
	case t <= 18:
		if in(openWear, outfit) {
			return Verdict{StatusBad, "Cool weather, avoid open footwear"}
		}
		return Verdict{StatusOK, "Suitable for cool weather"}
	case t <= 24:
		if c.Rain >= 10 && outfit == "sandals" {
			return Verdict{StatusBad, "Rainy, avoid sandals"}
		}
		return Verdict{StatusOK, "Comfortable weather for this outfit"}
	case t <= 30:
		if in(tooWarm, outfit) {
			return Verdict{StatusBad, "Too warm, avoid heavy clothing"}
		}
		return Verdict{StatusOK, "Suitable for warm weather"}
	case t <= 36:
		if !in(hotFriendly, outfit) {
			return Verdict{StatusBad, "Hot weather, wear light cotton clothes"}
		}
		return Verdict{StatusOK, "Suitable for hot weather"}
	default:
		if in(extremeHeatAvoid, outfit) {
			return Verdict{StatusBad, "Extreme heat, wear loose cotton clothes"}
		}
		return Verdict{StatusOK, "Suitable but stay hydrated"}
	}
}

type MaterialVerdict struct {
	Verdict
	Reason string `json:"reason"`
}

type materialBand struct {
	below  float64
	status Status
	text   string
	reason string
}

// materialTable lists bands in ascending order; the first band whose
// upper bound exceeds the temperature wins. The last band must be open.
var materialTable = map[string][]materialBand{
	"cotton": {
		{20, StatusBad, "Not ideal", "Cotton does not retain heat in cool weather"},
		{25, StatusWarn, "Slightly cool", "Cotton may feel cool in breeze; consider layering"},
		{inf, StatusOK, "Excellent choice for hot weather", "Cotton is breathable and absorbs sweat"},
	},
	"wool": {
		{15, StatusOK, "Excellent for cold weather", "Wool provides strong insulation"},
		{20, StatusOK, "Ideal", "Retains warmth in cool weather"},
		{25, StatusWarn, "May feel warm", "Suitable but may cause overheating in mild weather"},
		{inf, StatusBad, "Too warm for hot weather", "Wool traps heat; avoid in hot temperatures"},
	},
	"polyester": {
		{15, StatusOK, "Suitable for cold weather", "Provides better insulation than cotton"},
		{25, StatusOK, "Acceptable choice", "Good insulation without excessive warmth"},
		{inf, StatusWarn, "Can feel uncomfortable in heat", "Polyester traps heat and sweat"},
	},
	"acrylic": {
		{20, StatusOK, "Ideal", "Retains warmth in cool weather"},
		{25, StatusOK, "Good choice", "Comfortable with light layering"},
		{inf, StatusWarn, "May feel warm", "Better for cool to mild temperatures"},
	},
	"silk": {
		{20, StatusBad, "Not suitable for cold", "Provides minimal insulation"},
		{25, StatusOK, "Comfortable", "Lightweight and smooth fabric"},
		{inf, StatusWarn, "Depends on humidity", "Lightweight but not ideal for sweat absorption"},
	},
	"nylon": {
		{10, StatusOK, "Ideal for extreme cold", "Wind-resistant synthetic material"},
		{25, StatusOK, "Good for cool and wind", "Wind-resistant and decent insulation"},
		{inf, StatusBad, "Uncomfortable in heat", "Poor breathability; traps body heat"},
	},
	"linen": {
		{20, StatusWarn, "Cool", "Minimal insulation; needs layering"},
		{25, StatusOK, "Comfortable", "Breathable and lightweight"},
		{inf, StatusOK, "Excellent for hot weather", "Highly breathable and moisture-wicking"},
	},
}

const inf = 1e308

const DefaultMaterial = "cotton"

func Materials() []string {
	return sortedKeys(materialTable)
}

func MaterialAnalysis(material string, temp float64) MaterialVerdict {
	bands, ok := materialTable[normalize(material)]
	if !ok {
		return MaterialVerdict{
			Verdict: Verdict{StatusWarn, "Material not recognized"},
			Reason:  "No specific rules available for this material",
		}
	}
	for _, b := range bands {
		if temp < b.below {
			return MaterialVerdict{Verdict: Verdict{b.status, b.text}, Reason: b.reason}
		}
	}
	last := bands[len(bands)-1]
	return MaterialVerdict{Verdict: Verdict{last.status, last.text}, Reason: last.reason}
}

// CombineVerdicts folds the outfit and material verdicts; bad beats warn
// beats ok.
func CombineVerdicts(outfit, material Verdict) Verdict {
	if outfit.Status == StatusBad || material.Status == StatusBad {
		var reasons []string
		if outfit.Status == StatusBad {
			reasons = append(reasons, "outfit type not ideal for this weather")
		}
		if material.Status == StatusBad {
			reasons = append(reasons, "material not suitable for this temperature")
		}
		return Verdict{StatusBad, "Not recommended: " + strings.Join(reasons, " and ")}
	}
	if outfit.Status == StatusWarn || material.Status == StatusWarn {
		var reasons []string
		if outfit.Status == StatusWarn {
			reasons = append(reasons, "outfit type has mixed compatibility")
		}
		if material.Status == StatusWarn {
			reasons = append(reasons, "material comfort may vary")
		}
		return Verdict{StatusWarn, "Proceed with caution: " + strings.Join(reasons, " and ")}
	}
	return Verdict{StatusOK, "Excellent choice: outfit and material are well-suited for this weather"}
}
