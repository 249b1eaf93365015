package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/outfitcast/internal/config"
	"github.com/xxxsen/outfitcast/internal/filestore"
	"github.com/xxxsen/outfitcast/internal/middleware"
	"github.com/xxxsen/outfitcast/internal/pkg/errcode"
	appErr "github.com/xxxsen/outfitcast/internal/pkg/errors"
	"github.com/xxxsen/outfitcast/internal/pkg/response"
	"github.com/xxxsen/outfitcast/internal/prototype"
	"github.com/xxxsen/outfitcast/internal/service"
	"github.com/xxxsen/outfitcast/internal/vision"
)

var errFileTooLarge = errors.New("file too large")

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, vision.ErrImageDecode):
		response.Error(c, errcode.ErrInvalidImage, "image could not be decoded")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, filestore.ErrInvalidKey):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, config.ErrConfiguration):
		response.Error(c, errcode.ErrStorageConfig, err.Error())
	case errors.Is(err, service.ErrStoreImage):
		response.Error(c, errcode.ErrUploadFailed, "failed to store image")
	case errors.Is(err, prototype.ErrNoPrototypes):
		response.Error(c, errcode.ErrNoPrototypes, "no usable training samples, model unchanged")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

// readFormImage reads the multipart "file" field, refusing bodies over limit.
func readFormImage(c *gin.Context, limit int64) ([]byte, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && header.Size > limit {
		return nil, "", errFileTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	var r io.Reader = file
	if limit > 0 {
		r = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", errFileTooLarge
	}
	return data, header.Filename, nil
}

// respondFileError reports a failed readFormImage.
func respondFileError(c *gin.Context, err error, limit int64) {
	if errors.Is(err, errFileTooLarge) {
		response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatLimit(limit))
		return
	}
	response.Error(c, errcode.ErrInvalidFile, "file is required")
}

// optionalFloat parses a query or form value; blank or malformed is nil.
func optionalFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func requestBaseURL(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		if c.Request.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}

// formatLimit renders a byte limit in whole MiB, rounding partial MiB up.
func formatLimit(limit int64) string {
	const mib = 1024 * 1024
	if limit <= 0 {
		return "0MB"
	}
	return strconv.FormatInt((limit+mib-1)/mib, 10) + "MB"
}
