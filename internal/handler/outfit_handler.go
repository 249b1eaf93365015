package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/service"
)

type OutfitHandler struct {
	classify    *service.ClassifyService
	outfits     *service.OutfitService
	uploadLimit int64
}

func NewOutfitHandler(classify *service.ClassifyService, outfits *service.OutfitService, uploadLimit int64) *OutfitHandler {
	return &OutfitHandler{classify: classify, outfits: outfits, uploadLimit: uploadLimit}
}

func (h *OutfitHandler) Predict(c *gin.Context) {
	data, _, err := readFormImage(c, h.uploadLimit)
	if err != nil {
		respondFileError(c, err, h.uploadLimit)
		return
	}
	pred, err := h.classify.Predict(c.Request.Context(), data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, pred)
}

func (h *OutfitHandler) Weather(c *gin.Context) {
	data, _, err := readFormImage(c, h.uploadLimit)
	if err != nil {
		respondFileError(c, err, h.uploadLimit)
		return
	}
	analysis, err := h.outfits.Analyze(c.Request.Context(), data, service.OutfitQuery{
		City:     c.PostForm("city"),
		Lat:      optionalFloat(c.PostForm("lat")),
		Lon:      optionalFloat(c.PostForm("lon")),
		Material: c.PostForm("material"),
		Occasion: c.PostForm("occasion"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, analysis)
}

func (h *OutfitHandler) Categories(c *gin.Context) {
	response.Success(c, gin.H{"categories": h.classify.Categories()})
}
