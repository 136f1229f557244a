package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/middleware"
	"github.com/propertyhub/api/internal/service"
	"github.com/propertyhub/api/pkg/response"
)

const (
	maxPhotoSize = 20 * 1024 * 1024  // 20MB
	maxVideoSize = 500 * 1024 * 1024 // 500MB
)

type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Asset handles POST /api/uploads/asset
func (h *UploadHandler) Asset(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	kind, ok := service.KindOf(contentType)
	if !ok {
		return response.ValidationError(c, "Invalid file type. Supported: JPEG, PNG, WEBP, HEIC, MP4, MOV, WEBM", map[string]interface{}{
			"contentType": contentType,
		})
	}

	limit := int64(maxPhotoSize)
	if kind == service.AssetVideo {
		limit = maxVideoSize
	}
	if file.Size > limit {
		return response.ValidationError(c, "File too large", map[string]interface{}{
			"maxSize":  limit,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	asset, err := h.service.Upload(c.Context(), middleware.GetSellerID(c), f, contentType, file.Size)
	if err != nil {
		return response.ServiceError(c, "Upload failed")
	}

	return response.Created(c, asset)
}

// DeleteAsset handles DELETE /api/uploads/asset?key=...
func (h *UploadHandler) DeleteAsset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return response.ValidationError(c, "key is required", nil)
	}

	if err := h.service.Delete(c.Context(), middleware.GetSellerID(c), key); err != nil {
		if errors.Is(err, service.ErrAssetNotOwned) {
			return response.NotFound(c, "Asset not found")
		}
		return response.ServiceError(c, "Delete failed")
	}

	return response.NoContent(c)
}
