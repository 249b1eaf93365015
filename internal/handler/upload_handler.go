package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/service"
)

type UploadHandler struct {
	classify    *service.ClassifyService
	uploadLimit int64
}

func NewUploadHandler(classify *service.ClassifyService, uploadLimit int64) *UploadHandler {
	return &UploadHandler{classify: classify, uploadLimit: uploadLimit}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	data, filename, err := readFormImage(c, h.uploadLimit)
	if err != nil {
		respondFileError(c, err, h.uploadLimit)
		return
	}
	result, err := h.classify.Upload(c.Request.Context(), service.UploadInput{
		Data:     data,
		Filename: filename,
		Folder:   c.PostForm("folder"),
		BaseURL:  requestBaseURL(c),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
