package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/pkg/errcode"
	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/service"
)

type ModelHandler struct {
	training *service.TrainingService
	metrics  *service.MetricsService
}

func NewModelHandler(training *service.TrainingService, metrics *service.MetricsService) *ModelHandler {
	return &ModelHandler{training: training, metrics: metrics}
}

func (h *ModelHandler) Retrain(c *gin.Context) {
	status, err := h.training.Retrain(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *ModelHandler) Reload(c *gin.Context) {
	status, err := h.training.Reload(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *ModelHandler) Verify(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, errcode.ErrInvalid, "upload id is required")
		return
	}
	if err := h.training.Verify(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"upload_id": id, "is_verified": true})
}

func (h *ModelHandler) Metrics(c *gin.Context) {
	m, err := h.metrics.Get(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, m)
}
