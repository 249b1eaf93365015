// Package weather is the OpenWeather collaborator. It never fails the
// caller: missing credentials, network errors and bad responses all degrade
// to Default.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/config"
)

const (
	DefaultTemp        = 20.0
	unknownDescription = "Unknown"
	forecastSlots      = 8 // 3h slots, 24h
)

// Query selects a location by city name or by coordinates. Coordinates win
// when both are set.
type Query struct {
	City string
	Lat  *float64
	Lon  *float64
}

func (q Query) hasCoords() bool {
	return q.Lat != nil && q.Lon != nil
}

func (q Query) Empty() bool {
	return !q.hasCoords() && strings.TrimSpace(q.City) == ""
}

func (q Query) key() string {
	if q.hasCoords() {
		return fmt.Sprintf("coord:%.3f,%.3f", *q.Lat, *q.Lon)
	}
	return "city:" + strings.ToLower(strings.TrimSpace(q.City))
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.hasCoords() {
		v.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	} else {
		v.Set("q", strings.TrimSpace(q.City))
	}
	v.Set("units", "metric")
	return v
}

type Report struct {
	Temp          float64  `json:"temperature"`
	Rain          float64  `json:"rain"`
	MinTemp       float64  `json:"min_temp"`
	MaxTemp       float64  `json:"max_temp"`
	DailyRainProb float64  `json:"daily_rain_prob"`
	HasForecast   bool     `json:"has_forecast"`
	Humidity      *float64 `json:"humidity"`
	HumidityDesc  string   `json:"humidity_desc,omitempty"`
	Clouds        *float64 `json:"clouds"`
	Description   string   `json:"description"`
	SunExposure   string   `json:"sun_exposure"`
}

func Default() Report {
	return Report{
		Temp:        DefaultTemp,
		MinTemp:     DefaultTemp,
		MaxTemp:     DefaultTemp,
		Description: unknownDescription,
		SunExposure: unknownDescription,
	}
}

type Provider interface {
	Get(ctx context.Context, q Query) Report
}

type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	cache    *expirable.LRU[string, Report]
	warnOnce sync.Once
}

func New(cfg config.WeatherConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cache:   expirable.NewLRU[string, Report](cfg.CacheSize, nil, time.Duration(cfg.CacheTTLSeconds)*time.Second),
	}
}

func (c *Client) Get(ctx context.Context, q Query) Report {
	logger := logutil.GetLogger(ctx).With(zap.String("query", q.key()))
	if c.apiKey == "" {
		c.warnOnce.Do(func() {
			logger.Warn("weather api key missing, using default weather",
				zap.Error(fmt.Errorf("%w: set weather.api_key or OPENWEATHER_API_KEY", config.ErrConfiguration)))
		})
		return Default()
	}
	if q.Empty() {
		logger.Warn("weather query empty, using default weather")
		return Default()
	}
	key := q.key()
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}
	report, err := c.current(ctx, q)
	if err != nil {
		logger.Warn("fetch current weather failed, using default weather", zap.Error(err))
		return Default()
	}
	report.MinTemp, report.MaxTemp = report.Temp, report.Temp
	if err := c.forecast(ctx, q, &report); err != nil {
		logger.Warn("fetch weather forecast failed", zap.Error(err))
	}
	c.cache.Add(key, report)
	return report
}

type currentResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

func (c *Client) current(ctx context.Context, q Query) (Report, error) {
	var resp currentResponse
	if err := c.getJSON(ctx, "/data/2.5/weather", q, &resp); err != nil {
		return Report{}, err
	}
	report := Report{
		Temp:     DefaultTemp,
		Rain:     resp.Rain.OneHour,
		Humidity: resp.Main.Humidity,
		Clouds:   resp.Clouds.All,
	}
	if resp.Main.Temp != nil {
		report.Temp = *resp.Main.Temp
	}
	parts := make([]string, 0, len(resp.Weather))
	for _, w := range resp.Weather {
		if w.Description != "" {
			parts = append(parts, w.Description)
		}
	}
	report.Description = strings.Join(parts, " ")
	if report.Description == "" && len(resp.Weather) > 0 {
		report.Description = resp.Weather[0].Main
	}
	if report.Description == "" {
		report.Description = unknownDescription
	}
	report.HumidityDesc = HumidityDescription(report.Humidity)
	report.SunExposure = SunExposure(report.Clouds, report.Temp)
	return report, nil
}

func (c *Client) forecast(ctx context.Context, q Query, report *Report) error {
	var resp forecastResponse
	if err := c.getJSON(ctx, "/data/2.5/forecast", q, &resp); err != nil {
		return err
	}
	slots := resp.List
	if len(slots) > forecastSlots {
		slots = slots[:forecastSlots]
	}
	if len(slots) == 0 {
		return fmt.Errorf("forecast has no entries")
	}
	minTemp, maxTemp, pop := math.Inf(1), math.Inf(-1), 0.0
	for _, s := range slots {
		minTemp = math.Min(minTemp, s.Main.TempMin)
		maxTemp = math.Max(maxTemp, s.Main.TempMax)
		pop = math.Max(pop, s.Pop)
	}
	report.MinTemp = minTemp
	report.MaxTemp = maxTemp
	report.DailyRainProb = math.Round(pop * 100)
	report.HasForecast = true
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q Query, dst interface{}) error {
	values := q.values()
	values.Set("appid", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("weather request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func HumidityDescription(humidity *float64) string {
	if humidity == nil {
		return ""
	}
	switch h := *humidity; {
	case h <= 40:
		return "Low humidity"
	case h <= 70:
		return "Moderate humidity"
	default:
		return "High humidity"
	}
}

func SunExposure(clouds *float64, temp float64) string {
	if clouds == nil {
		return unknownDescription
	}
	switch c := *clouds; {
	case c < 30 && temp >= 25:
		return "Strong sun exposure"
	case c < 50 && temp >= 20:
		return "Moderate sun exposure"
	default:
		return "Low sun exposure"
	}
}
