package service

import (
	"context"
	"strings"

	"github.com/xxxsen/outfitcast/internal/classifier"
	"github.com/xxxsen/outfitcast/internal/rules"
	"github.com/xxxsen/outfitcast/internal/weather"
)

type OutfitQuery struct {
	City     string
	Lat      *float64
	Lon      *float64
	Material string
	Occasion string
}

type OutfitAnalysis struct {
	OutfitType            string         `json:"outfit_type"`
	Material              string         `json:"material"`
	Confidence            float64        `json:"confidence"`
	ConfidenceMessage     string         `json:"confidence_message"`
	Temperature           float64        `json:"temperature"`
	RainProbability       float64        `json:"rain_probability"`
	RainAdvice            []string       `json:"rain_advice"`
	WeatherBreakdown      weather.Report `json:"weather_breakdown"`
	OutfitVerdict         rules.Verdict  `json:"outfit_verdict"`
	MaterialVerdict       rules.Verdict  `json:"material_verdict"`
	MaterialReason        string         `json:"material_reason"`
	FinalVerdict          rules.Verdict  `json:"final_verdict"`
	SuggestedAlternatives []string       `json:"suggested_alternatives"`
	Accessories           []string       `json:"accessories"`
}

type OutfitService struct {
	classify    *ClassifyService
	weather     weather.Provider
	defaultCity string
}

func NewOutfitService(classify *ClassifyService, provider weather.Provider, defaultCity string) *OutfitService {
	return &OutfitService{classify: classify, weather: provider, defaultCity: defaultCity}
}

func resolveQuery(city string, lat, lon *float64, defaultCity string) weather.Query {
	q := weather.Query{City: strings.TrimSpace(city), Lat: lat, Lon: lon}
	if q.Empty() {
		q.City = defaultCity
	}
	return q
}

func conditions(r weather.Report) rules.Conditions {
	return rules.Conditions{
		Temp:          r.Temp,
		Rain:          r.Rain,
		MinTemp:       r.MinTemp,
		MaxTemp:       r.MaxTemp,
		DailyRainProb: r.DailyRainProb,
		HasForecast:   r.HasForecast,
	}
}

// Analyze classifies the photo and scores it against the weather. Only a
// decode failure is returned; weather problems fall back to defaults.
func (s *OutfitService) Analyze(ctx context.Context, data []byte, q OutfitQuery) (*OutfitAnalysis, error) {
	res, err := s.classify.Classify(ctx, data)
	if err != nil {
		return nil, err
	}
	material := strings.ToLower(strings.TrimSpace(q.Material))
	if material == "" {
		material = rules.DefaultMaterial
	}
	report := s.weather.Get(ctx, resolveQuery(q.City, q.Lat, q.Lon, s.defaultCity))
	cond := conditions(report)

	outfitVerdict := rules.OutfitVerdict(res.Label, cond)
	materialVerdict := rules.MaterialAnalysis(material, report.Temp)
	return &OutfitAnalysis{
		OutfitType:            res.Label,
		Material:              material,
		Confidence:            res.Confidence,
		ConfidenceMessage:     classifier.ConfidenceMessage(res.Confidence),
		Temperature:           report.Temp,
		RainProbability:       report.Rain,
		RainAdvice:            rules.RainAccessories(report.Rain),
		WeatherBreakdown:      report,
		OutfitVerdict:         outfitVerdict,
		MaterialVerdict:       materialVerdict.Verdict,
		MaterialReason:        materialVerdict.Reason,
		FinalVerdict:          rules.CombineVerdicts(outfitVerdict, materialVerdict.Verdict),
		SuggestedAlternatives: rules.Alternatives(res.Label, report.Temp),
		Accessories:           rules.Accessories(res.Label, report.Temp, report.Rain, q.Occasion),
	}, nil
}
