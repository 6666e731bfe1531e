package service

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"beam/internal/middleware"
	"beam/internal/models"
	"beam/internal/observability"
	"beam/internal/storage"
)

const DefaultImageMaxUploadSizeMB = 10

// UploadImageInput is one file from the editor's upload endpoint.
type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates editor images and hands them to the configured storage provider.
type ImageService struct {
	provider           storage.Provider
	maxUploadSizeBytes int64
}

// NewImageService returns an ImageService. A nil provider rejects every upload with UPSTREAM_FAILURE.
func NewImageService(provider storage.Provider, maxUploadSizeMB int) *ImageService {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultImageMaxUploadSizeMB
	}
	return &ImageService{
		provider:           provider,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Enabled reports whether a storage provider is configured.
func (s *ImageService) Enabled() bool {
	return s != nil && s.provider != nil
}

// Upload checks size and type, then stores the image. The result carries the width and density the
// editor needs for its markup.
func (s *ImageService) Upload(ctx context.Context, caller models.Caller, in UploadImageInput) (*storage.Result, error) {
	var result *storage.Result
	err := procedure(ctx, "image_upload", caller, func(ctx context.Context) error {
		if len(in.Content) == 0 {
			return models.NewValidationError("No file uploaded")
		}
		if int64(len(in.Content)) > s.maxUploadSizeBytes {
			return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
		}

		detectedType := http.DetectContentType(in.Content)
		if !isAllowedImageMIME(detectedType) {
			return models.NewValidationError("Invalid image type")
		}
		meta, err := storage.Inspect(in.Content)
		if err != nil {
			return models.NewValidationError("Invalid image file")
		}
		sourceMimeType := decodedFormatToMime(meta.Format)
		if sourceMimeType == "" {
			return models.NewValidationError("Unsupported image format")
		}
		if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
			return models.NewValidationError("Image content type mismatch")
		}

		if !s.Enabled() {
			observability.ImageUploads.WithLabelValues("none", models.CodeUpstreamFailure).Inc()
			return models.NewUpstreamError("Image uploads are not configured", storage.ErrNotConfigured)
		}

		res, err := s.provider.Upload(ctx, storage.Object{
			Filename:    cleanFilename(in.Filename, meta.Format),
			ContentType: sourceMimeType,
			Data:        in.Content,
		})
		if err != nil {
			observability.ImageUploads.WithLabelValues(s.provider.Name(), models.CodeUpstreamFailure).Inc()
			middleware.Logger.WarnContext(ctx, "image upload failed",
				"provider", s.provider.Name(),
				"filename", in.Filename,
				"error", err,
			)
			return models.NewUpstreamError("Image upload failed", err)
		}
		observability.ImageUploads.WithLabelValues(s.provider.Name(), observability.Result("")).Inc()
		result = res
		return nil
	})
	return result, err
}

// cleanFilename drops any client-side directories and falls back to a name derived from the format.
func cleanFilename(name, format string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image." + format
	}
	return name
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
