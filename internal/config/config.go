package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

// ErrConfiguration marks a missing or malformed setting that an operator must fix.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Model       ModelConfig      `json:"model"`
	Weather     WeatherConfig    `json:"weather"`
	Retrain     RetrainConfig    `json:"retrain"`
	Fetch       FetchConfig      `json:"fetch"`
	RateLimitMS int64            `json:"rate_limit_ms"`
	CORSOrigins []string         `json:"cors_origins"`
	UploadLimit int64            `json:"upload_limit"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ModelConfig struct {
	CorpusDir        string `json:"corpus_dir"`
	SnapshotPath     string `json:"snapshot_path"`
	ImageSize        int    `json:"image_size"`
	HistogramBins    int    `json:"histogram_bins"`
	CoarseBins       int    `json:"coarse_bins"`
	FeatureCacheSize int    `json:"feature_cache_size"`
	MaxPixels        int64  `json:"max_pixels"`
}

type WeatherConfig struct {
	APIKey          string `json:"api_key"`
	BaseURL         string `json:"base_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	CacheSize       int    `json:"cache_size"`
	DefaultCity     string `json:"default_city"`
}

type RetrainConfig struct {
	Cron string `json:"cron"`
}

type FetchConfig struct {
	TimeoutSeconds int   `json:"timeout_seconds"`
	MaxBytes       int64 `json:"max_bytes"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("convert yaml config: %w", err)
		}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("OUTFITCAST_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("OUTFITCAST_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if strings.EqualFold(cfg.FileStore.Type, "s3") {
		data, _ := cfg.FileStore.Data.(map[string]interface{})
		if data == nil {
			data = map[string]interface{}{}
		}
		if v := os.Getenv("OUTFITCAST_S3_SECRET_ID"); v != "" {
			data["secret_id"] = v
		}
		if v := os.Getenv("OUTFITCAST_S3_SECRET_KEY"); v != "" {
			data["secret_key"] = v
		}
		cfg.FileStore.Data = data
	}
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("%w: port is required", ErrConfiguration)
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret is required (or set OUTFITCAST_JWT_SECRET)", ErrConfiguration)
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("%w: database.dsn or database.host is required (or set OUTFITCAST_DB_DSN)", ErrConfiguration)
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if err := cfg.Model.normalize(); err != nil {
		return err
	}
	cfg.Weather.normalize()
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 10
	}
	if cfg.Fetch.MaxBytes <= 0 {
		cfg.Fetch.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.UploadLimit <= 0 {
		cfg.UploadLimit = 10 * 1024 * 1024
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	cfg.FileStore.Type = strings.ToLower(strings.TrimSpace(cfg.FileStore.Type))
	switch cfg.FileStore.Type {
	case "local":
		data, _ := cfg.FileStore.Data.(map[string]interface{})
		if dir, _ := data["dir"].(string); dir == "" {
			return fmt.Errorf("%w: file_store.data.dir is required for local store", ErrConfiguration)
		}
	case "s3":
		data, _ := cfg.FileStore.Data.(map[string]interface{})
		for _, key := range []string{"endpoint", "bucket", "secret_id", "secret_key"} {
			if v, _ := data[key].(string); v == "" {
				return fmt.Errorf("%w: file_store.data.%s is required for s3 store (secrets may come from OUTFITCAST_S3_SECRET_ID / OUTFITCAST_S3_SECRET_KEY)", ErrConfiguration, key)
			}
		}
	default:
		return fmt.Errorf("%w: file_store.type must be local or s3", ErrConfiguration)
	}
	return nil
}

func (m *ModelConfig) normalize() error {
	if m.CorpusDir == "" {
		return fmt.Errorf("%w: model.corpus_dir is required", ErrConfiguration)
	}
	if m.SnapshotPath == "" {
		return fmt.Errorf("%w: model.snapshot_path is required", ErrConfiguration)
	}
	if m.ImageSize <= 0 {
		m.ImageSize = 224
	}
	if m.HistogramBins <= 0 {
		m.HistogramBins = 32
	}
	if m.CoarseBins <= 0 {
		m.CoarseBins = 8
	}
	if m.FeatureCacheSize <= 0 {
		m.FeatureCacheSize = 512
	}
	return nil
}

func (w *WeatherConfig) normalize() {
	if w.BaseURL == "" {
		w.BaseURL = "https://api.openweathermap.org"
	}
	if w.TimeoutSeconds <= 0 {
		w.TimeoutSeconds = 5
	}
	if w.CacheTTLSeconds <= 0 {
		w.CacheTTLSeconds = 600
	}
	if w.CacheSize <= 0 {
		w.CacheSize = 256
	}
	if w.DefaultCity == "" {
		w.DefaultCity = "Delhi"
	}
}
