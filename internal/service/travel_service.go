package service

import (
	"context"
	"math"

	"github.com/xxxsen/outfitcast/internal/rules"
	"github.com/xxxsen/outfitcast/internal/weather"
)

type TravelPlan struct {
	City                  string        `json:"city"`
	Latitude              *float64      `json:"latitude"`
	Longitude             *float64      `json:"longitude"`
	Temperature           float64       `json:"temperature"`
	RainProbability       float64       `json:"rain_probability"`
	PackingRecommendation rules.Packing `json:"packing_recommendation"`
}

type TravelService struct {
	weather     weather.Provider
	defaultCity string
}

func NewTravelService(provider weather.Provider, defaultCity string) *TravelService {
	return &TravelService{weather: provider, defaultCity: defaultCity}
}

func (s *TravelService) Pack(ctx context.Context, city string, lat, lon *float64) *TravelPlan {
	q := resolveQuery(city, lat, lon, s.defaultCity)
	report := s.weather.Get(ctx, q)
	return &TravelPlan{
		City:                  q.City,
		Latitude:              lat,
		Longitude:             lon,
		Temperature:           math.Round(report.Temp*10) / 10,
		RainProbability:       report.Rain,
		PackingRecommendation: rules.PackingList(report.Temp, report.Rain),
	}
}
