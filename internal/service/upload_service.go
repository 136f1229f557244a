package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/propertyhub/api/internal/client"
)

// AssetKind groups uploads by what the reconstruction service expects
type AssetKind string

const (
	AssetPhoto AssetKind = "photo"
	AssetVideo AssetKind = "video"
)

// UploadedAsset describes a stored source asset
type UploadedAsset struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	Kind        AssetKind `json:"kind"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
}

// UploadService stores listing photos and walkthrough videos
type UploadService struct {
	storage client.AssetStorage
	logger  *slog.Logger
}

// NewUploadService creates an upload service. storage may be nil, in which
// case uploads return placeholder URLs.
func NewUploadService(storage client.AssetStorage, logger *slog.Logger) *UploadService {
	return &UploadService{
		storage: storage,
		logger:  logger.With(slog.String("component", "upload_service")),
	}
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// KindOf maps a content type to an asset kind
func KindOf(contentType string) (AssetKind, bool) {
	if _, ok := extensions[contentType]; !ok {
		return "", false
	}
	if strings.HasPrefix(contentType, "video/") {
		return AssetVideo, true
	}
	return AssetPhoto, true
}

// Upload stores one asset under the seller's prefix
func (s *UploadService) Upload(ctx context.Context, sellerID string, body io.Reader, contentType string, size int64) (*UploadedAsset, error) {
	kind, ok := KindOf(contentType)
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	key := path.Join("listings", sellerID, string(kind)+"s", uuid.New().String()+extensions[contentType])
	asset := &UploadedAsset{
		Key:         key,
		Kind:        kind,
		ContentType: contentType,
		Size:        size,
	}

	if s.storage == nil || !s.storage.IsConfigured() {
		asset.URL = "https://assets.propertyhub.local/" + key
		s.logger.Warn("storage not configured, returning placeholder URL", slog.String("key", key))
		return asset, nil
	}

	url, err := s.storage.Upload(ctx, key, body, contentType)
	if err != nil {
		return nil, err
	}
	asset.URL = url

	s.logger.Info("asset uploaded", slog.String("key", key), slog.Int64("size", size))
	return asset, nil
}

// Delete removes an asset previously uploaded by sellerID
func (s *UploadService) Delete(ctx context.Context, sellerID, key string) error {
	prefix := path.Join("listings", sellerID) + "/"
	if sellerID == "" || path.Clean(key) != key || !strings.HasPrefix(key, prefix) {
		return ErrAssetNotOwned
	}

	if s.storage == nil || !s.storage.IsConfigured() {
		s.logger.Warn("storage not configured, nothing to delete", slog.String("key", key))
		return nil
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("asset deleted", slog.String("key", key))
	return nil
}
