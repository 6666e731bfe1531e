package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"beam/internal/models"
	"beam/internal/storage"
	"beam/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageServiceUploadReportsWidthAndDensity(t *testing.T) {
	t.Parallel()

	stub := &testutil.StorageStub{}
	svc := NewImageService(stub, 1)

	res, err := svc.Upload(context.Background(), author, UploadImageInput{
		Filename:    "C:\\Users\\me\\cat.png",
		ContentType: "image/png",
		Content:     testutil.PNGWithDPI(t, 640, 480, 144),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cat.png", res.URL)
	assert.Equal(t, 640, res.Width)
	assert.Equal(t, 480, res.Height)
	assert.InDelta(t, 144, res.DPI, 0.5)
	assert.Equal(t, "cat.png", res.OriginalFilename)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "cat.png", calls[0].Filename)
	assert.Equal(t, "image/png", calls[0].ContentType)
}

func TestImageServiceRejectsBadInput(t *testing.T) {
	t.Parallel()

	stub := &testutil.StorageStub{}
	svc := NewImageService(stub, 1)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadImageInput
	}{
		{name: "empty", in: UploadImageInput{Filename: "a.png"}},
		{name: "too large", in: UploadImageInput{Filename: "a.png", Content: bytes.Repeat([]byte{0}, 1024*1024+1)}},
		{name: "not an image", in: UploadImageInput{Filename: "a.txt", Content: []byte("hello world")}},
		{name: "type mismatch", in: UploadImageInput{Filename: "a.jpg", ContentType: "image/jpeg", Content: testutil.TinyPNG(t, 4, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, author, tt.in)
			assertCode(t, err, models.CodeValidation)
		})
	}
	assert.Empty(t, stub.Calls())
}

func TestImageServiceProviderFailureIsUpstream(t *testing.T) {
	t.Parallel()

	stub := &testutil.StorageStub{
		UploadFn: func(context.Context, storage.Object) (*storage.Result, error) {
			return nil, errors.New("503 from bucket")
		},
	}
	_, err := NewImageService(stub, 0).Upload(context.Background(), author, UploadImageInput{
		Filename: "dog.jpg",
		Content:  testutil.JPEGWithDPI(t, 10, 10, 72),
	})
	assertCode(t, err, models.CodeUpstreamFailure)

	_, err = NewImageService(nil, 0).Upload(context.Background(), author, UploadImageInput{
		Filename: "dog.png",
		Content:  testutil.TinyPNG(t, 10, 10),
	})
	assertCode(t, err, models.CodeUpstreamFailure)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func TestImageServiceRequiresCaller(t *testing.T) {
	t.Parallel()
	_, err := NewImageService(&testutil.StorageStub{}, 0).Upload(context.Background(), models.Caller{}, UploadImageInput{})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestImageServiceReturnsProviderResultAsIs(t *testing.T) {
	t.Parallel()

	want := &storage.Result{URL: "https://cdn.example.com/raw.png", Width: 9}
	stub := &testutil.StorageStub{
		UploadFn: func(context.Context, storage.Object) (*storage.Result, error) {
			return want, nil
		},
	}
	got, err := NewImageService(stub, 1).Upload(context.Background(), author, UploadImageInput{
		Filename: "raw.png",
		Content:  testutil.TinyPNG(t, 4, 4),
	})
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Zero(t, got.Height, "metadata backfill belongs to the storage provider")
}
