package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/config"
	"github.com/xxxsen/outfitcast/internal/pkg/jwt"
	"github.com/xxxsen/outfitcast/internal/vision"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "outfitcast",
		Short: "outfitcast clothing classifier and weather advisor",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run outfitcast server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return runServer(cfg, app)
		},
	}

	retrainCmd := &cobra.Command{
		Use:   "retrain",
		Short: "rebuild prototypes from the corpus and verified uploads, then save the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			status, err := app.training.Retrain(cmd.Context())
			if err != nil {
				return fmt.Errorf("retrain: %w", err)
			}
			return printJSON(status)
		},
	}

	extractCmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "print the descriptor of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vcfg := vision.DefaultConfig()
			if configPath != "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				vcfg = visionConfig(cfg.Model)
			}
			ext, err := vision.NewExtractor(vcfg)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			vec, err := ext.Extract(data)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"fingerprint": ext.Fingerprint(),
				"dim":         ext.Dim(),
				"descriptor":  vec,
			})
		},
	}

	var subject string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an admin token for the model endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(subject, jwt.RoleAdmin, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(runCmd, retrainCmd, extractCmd, tokenCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func visionConfig(m config.ModelConfig) vision.Config {
	return vision.Config{Size: m.ImageSize, HistogramBins: m.HistogramBins, CoarseBins: m.CoarseBins, MaxPixels: m.MaxPixels}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
