// Package storage uploads images to the configured object store.
//
// The backend is a strategy chosen once at startup from STORAGE_PROVIDER; callers only ever see
// Provider.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"beam/internal/config"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned by New when no provider credentials are present.
var ErrNotConfigured = errors.New("image storage is not configured")

// Object is a file handed to a Provider.
type Object struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result describes a stored image. DPI is zero when the file carries no density metadata.
type Result struct {
	URL              string  `json:"url"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	OriginalFilename string  `json:"originalFilename"`
	DPI              float64 `json:"dpi,omitempty"`
}

// Provider stores an image and reports where it can be fetched. Results carry the stored
// filename and the image's dimensions and density, backfilled from the bytes when the backend
// does not report them.
type Provider interface {
	Name() string
	Upload(ctx context.Context, obj Object) (*Result, error)
}

// New returns the Provider selected by cfg.StorageProvider.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg == nil || !cfg.StorageConfigured() {
		return nil, ErrNotConfigured
	}
	switch cfg.StorageProvider {
	case config.StorageS3:
		return NewS3Provider(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	case config.StorageCloudinary:
		return NewCloudinaryProvider(CloudinaryOptions{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

// objectKey builds a collision-free key that keeps the original extension.
func objectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return prefix + uuid.NewString() + ext
}

// withMetadata fills dimensions and density from the uploaded bytes when the backend does not report them.
func withMetadata(res *Result, obj Object) *Result {
	res.OriginalFilename = obj.Filename
	meta, err := Inspect(obj.Data)
	if err != nil {
		return res
	}
	if res.Width == 0 {
		res.Width = meta.Width
	}
	if res.Height == 0 {
		res.Height = meta.Height
	}
	if res.DPI == 0 {
		res.DPI = meta.DPI
	}
	return res
}
