package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// CloudinaryOptions configures the Cloudinary provider.
type CloudinaryOptions struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryProvider stores images in a Cloudinary media library.
type CloudinaryProvider struct {
	client cloudinaryAPI
	folder string
}

// NewCloudinaryProvider builds a provider from API credentials.
func NewCloudinaryProvider(opts CloudinaryOptions) (*CloudinaryProvider, error) {
	cld, err := cloudinary.NewFromParams(opts.CloudName, opts.APIKey, opts.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return newCloudinaryProviderWithClient(&cld.Upload, opts.Folder), nil
}

func newCloudinaryProviderWithClient(client cloudinaryAPI, folder string) *CloudinaryProvider {
	return &CloudinaryProvider{client: client, folder: folder}
}

func (p *CloudinaryProvider) Name() string { return "cloudinary" }

// Upload sends the bytes to Cloudinary. Cloudinary reports dimensions but not density.
func (p *CloudinaryProvider) Upload(ctx context.Context, obj Object) (*Result, error) {
	base := strings.TrimSuffix(path.Base(obj.Filename), path.Ext(obj.Filename))
	res, err := p.client.Upload(ctx, bytes.NewReader(obj.Data), uploader.UploadParams{
		Folder:   p.folder,
		PublicID: sanitizePublicID(base) + "-" + uuid.NewString()[:8],
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return nil, errors.New("cloudinary upload: empty response")
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return withMetadata(&Result{
		URL:    res.SecureURL,
		Width:  res.Width,
		Height: res.Height,
	}, obj), nil
}

func sanitizePublicID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}
