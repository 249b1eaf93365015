package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/service"
)

type TravelHandler struct {
	travel *service.TravelService
}

func NewTravelHandler(travel *service.TravelService) *TravelHandler {
	return &TravelHandler{travel: travel}
}

func (h *TravelHandler) Pack(c *gin.Context) {
	plan := h.travel.Pack(c.Request.Context(),
		c.Query("city"),
		optionalFloat(c.Query("lat")),
		optionalFloat(c.Query("lon")),
	)
	response.Success(c, plan)
}
