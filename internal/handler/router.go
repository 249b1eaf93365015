package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/middleware"
)

type RouterDeps struct {
	Outfits   *OutfitHandler
	Uploads   *UploadHandler
	Feedback  *FeedbackHandler
	Travel    *TravelHandler
	Model     *ModelHandler
	Files     *FileHandler
	Wardrobe  *WardrobeHandler
	JWTSecret []byte
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/categories", deps.Outfits.Categories)
	api.GET("/metrics", deps.Model.Metrics)
	api.GET("/travel/pack", deps.Travel.Pack)
	api.GET("/files/*key", deps.Files.Get)
	api.GET("/wardrobe/outfits", deps.Wardrobe.List)
	api.GET("/wardrobe/outfits/:id", deps.Wardrobe.Get)
	api.GET("/wardrobe/worn/:date", deps.Wardrobe.WornOn)
	api.GET("/wardrobe/not-worn-recently", deps.Wardrobe.NotWornRecently)
	api.GET("/wardrobe/suggestions", deps.Wardrobe.Suggest)
	api.GET("/wardrobe/stats", deps.Wardrobe.Stats)

	limited := api.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimit))
	limited.POST("/outfits/predict", deps.Outfits.Predict)
	limited.POST("/outfits/weather", deps.Outfits.Weather)
	limited.POST("/uploads", deps.Uploads.Upload)
	limited.POST("/feedback", deps.Feedback.Submit)
	limited.POST("/wardrobe/outfits", deps.Wardrobe.Save)
	limited.PUT("/wardrobe/outfits/:id", deps.Wardrobe.Update)
	limited.DELETE("/wardrobe/outfits/:id", deps.Wardrobe.Delete)
	limited.POST("/wardrobe/outfits/:id/wear", deps.Wardrobe.Wear)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(deps.JWTSecret))
	admin.POST("/model/retrain", deps.Model.Retrain)
	admin.POST("/model/reload", deps.Model.Reload)
	admin.POST("/uploads/:id/verify", deps.Model.Verify)
}
