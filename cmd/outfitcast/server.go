package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/config"
	"github.com/xxxsen/outfitcast/internal/corpus"
	"github.com/xxxsen/outfitcast/internal/db"
	"github.com/xxxsen/outfitcast/internal/filestore"
	"github.com/xxxsen/outfitcast/internal/handler"
	"github.com/xxxsen/outfitcast/internal/imagefetch"
	"github.com/xxxsen/outfitcast/internal/job"
	"github.com/xxxsen/outfitcast/internal/middleware"
	"github.com/xxxsen/outfitcast/internal/prototype"
	"github.com/xxxsen/outfitcast/internal/repo"
	"github.com/xxxsen/outfitcast/internal/schedule"
	"github.com/xxxsen/outfitcast/internal/service"
	"github.com/xxxsen/outfitcast/internal/vision"
	"github.com/xxxsen/outfitcast/internal/weather"
)

const extractorCacheTTL = time.Hour

type app struct {
	db       *sql.DB
	store    *prototype.Store
	files    filestore.Store
	classify *service.ClassifyService
	outfits  *service.OutfitService
	travel   *service.TravelService
	feedback *service.FeedbackService
	training *service.TrainingService
	metrics  *service.MetricsService
	wardrobe *service.WardrobeService
}

func newApp(cfg *config.Config) (*app, error) {
	ctx := context.Background()
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	base, err := vision.NewExtractor(visionConfig(cfg.Model))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	extractor := vision.WrapLRU(base, cfg.Model.FeatureCacheSize, extractorCacheTTL)
	dir := corpus.New(cfg.Model.CorpusDir)
	store := prototype.NewStore(extractor, dir, cfg.Model.SnapshotPath)
	set, err := store.LoadOrBuild(ctx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("load prototypes: %w", err)
	}
	if set.Len() == 0 {
		logutil.GetLogger(ctx).Warn("no prototypes available, predictions will be unknown until the corpus is populated",
			zap.String("corpus_dir", cfg.Model.CorpusDir))
	}

	uploadRepo := repo.NewUploadRepo(sqlDB)
	feedbackRepo := repo.NewFeedbackRepo(sqlDB)
	featureRepo := repo.NewSampleFeatureRepo(sqlDB)
	fetcher := imagefetch.New(cfg.Fetch)
	provider := weather.New(cfg.Weather)

	classify := service.NewClassifyService(store, files, uploadRepo)
	return &app{
		db:       sqlDB,
		store:    store,
		files:    files,
		classify: classify,
		outfits:  service.NewOutfitService(classify, provider, cfg.Weather.DefaultCity),
		travel:   service.NewTravelService(provider, cfg.Weather.DefaultCity),
		feedback: service.NewFeedbackService(feedbackRepo, uploadRepo, files, dir, store),
		training: service.NewTrainingService(store, uploadRepo, featureRepo, fetcher),
		metrics:  service.NewMetricsService(uploadRepo, feedbackRepo, store),
		wardrobe: service.NewWardrobeService(repo.NewOutfitRepo(sqlDB), uploadRepo),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func runServer(cfg *config.Config, a *app) error {
	logger := logutil.GetLogger(context.Background())
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Strings("categories", a.store.Categories()),
	)

	deps := handler.RouterDeps{
		Outfits:   handler.NewOutfitHandler(a.classify, a.outfits, cfg.UploadLimit),
		Uploads:   handler.NewUploadHandler(a.classify, cfg.UploadLimit),
		Feedback:  handler.NewFeedbackHandler(a.feedback),
		Travel:    handler.NewTravelHandler(a.travel),
		Model:     handler.NewModelHandler(a.training, a.metrics),
		Files:     handler.NewFileHandler(a.files),
		Wardrobe:  handler.NewWardrobeHandler(a.wardrobe),
		JWTSecret: []byte(cfg.JWTSecret),
		RateLimit: time.Duration(cfg.RateLimitMS) * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if _, err := scheduler.AddJob(job.NewRetrainJob(a.training), cfg.Retrain.Cron); err != nil {
		return fmt.Errorf("schedule retrain: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
