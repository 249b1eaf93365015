package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/pkg/errcode"
	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/service"
)

const (
	defaultNotWornDays = 30
	defaultAvoidDays   = 7
)

type WardrobeHandler struct {
	wardrobe *service.WardrobeService
}

func NewWardrobeHandler(wardrobe *service.WardrobeService) *WardrobeHandler {
	return &WardrobeHandler{wardrobe: wardrobe}
}

func (h *WardrobeHandler) Save(c *gin.Context) {
	var req service.OutfitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	outfit, err := h.wardrobe.Save(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, outfit)
}

func (h *WardrobeHandler) List(c *gin.Context) {
	list, err := h.wardrobe.List(c.Request.Context(), c.Query("category"), c.Query("occasion"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, list)
}

func (h *WardrobeHandler) Get(c *gin.Context) {
	outfit, err := h.wardrobe.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, outfit)
}

func (h *WardrobeHandler) Update(c *gin.Context) {
	var req service.OutfitPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	outfit, err := h.wardrobe.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, outfit)
}

func (h *WardrobeHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.wardrobe.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

func (h *WardrobeHandler) Wear(c *gin.Context) {
	outfit, err := h.wardrobe.Wear(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, outfit)
}

func (h *WardrobeHandler) WornOn(c *gin.Context) {
	dated, err := h.wardrobe.WornOn(c.Request.Context(), c.Param("date"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dated)
}

func (h *WardrobeHandler) NotWornRecently(c *gin.Context) {
	days, ok := intQuery(c, "days", defaultNotWornDays)
	if !ok {
		response.Error(c, errcode.ErrInvalid, "days must be an integer")
		return
	}
	result, err := h.wardrobe.NotWornRecently(c.Request.Context(), days)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *WardrobeHandler) Suggest(c *gin.Context) {
	days, ok := intQuery(c, "days", defaultAvoidDays)
	if !ok {
		response.Error(c, errcode.ErrInvalid, "days must be an integer")
		return
	}
	avoid := true
	if raw := strings.TrimSpace(c.Query("avoid_recent")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "avoid_recent must be a boolean")
			return
		}
		avoid = v
	}
	list, err := h.wardrobe.Suggest(c.Request.Context(), service.SuggestQuery{
		Category:    c.Query("category"),
		Occasion:    c.Query("occasion"),
		AvoidRecent: avoid,
		Days:        days,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, list)
}

func (h *WardrobeHandler) Stats(c *gin.Context) {
	stats, err := h.wardrobe.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

// intQuery reads an integer query value, falling back to def when blank.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
