// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	"beam/internal/storage"
)

// TB is the subset of testing.TB the fixtures need.
type TB interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGWithDPI returns a PNG carrying a pHYs chunk for the given density.
func PNGWithDPI(t TB, w, h int, dpi float64) []byte {
	t.Helper()
	raw := TinyPNG(t, w, h)
	ppm := uint32(math.Round(dpi / 0.0254))

	body := make([]byte, 9)
	binary.BigEndian.PutUint32(body[0:4], ppm)
	binary.BigEndian.PutUint32(body[4:8], ppm)
	body[8] = 1

	chunk := bytes.NewBuffer(nil)
	_ = binary.Write(chunk, binary.BigEndian, uint32(len(body)))
	chunk.WriteString("pHYs")
	chunk.Write(body)
	crc := crc32.NewIEEE()
	crc.Write([]byte("pHYs"))
	crc.Write(body)
	_ = binary.Write(chunk, binary.BigEndian, crc.Sum32())

	// signature (8) + IHDR chunk (4 len + 4 type + 13 data + 4 crc)
	const ihdrEnd = 8 + 25
	out := make([]byte, 0, len(raw)+chunk.Len())
	out = append(out, raw[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, raw[ihdrEnd:]...)
}

// JPEGWithDPI returns a JPEG with a JFIF APP0 segment declaring dots per inch.
func JPEGWithDPI(t TB, w, h int, dpi uint16) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	raw := buf.Bytes()

	app0 := []byte{0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x01, 0, 0, 0, 0, 0x00, 0x00}
	binary.BigEndian.PutUint16(app0[12:14], dpi)
	binary.BigEndian.PutUint16(app0[14:16], dpi)

	out := make([]byte, 0, len(raw)+len(app0))
	out = append(out, raw[:2]...)
	out = append(out, app0...)
	return append(out, raw[2:]...)
}

// StorageStub is a storage.Provider whose behaviour is set per test.
type StorageStub struct {
	UploadFn func(ctx context.Context, obj storage.Object) (*storage.Result, error)

	mu    sync.Mutex
	calls []storage.Object
}

func (s *StorageStub) Name() string { return "stub" }

// Upload records the call and delegates to UploadFn, or echoes a CDN URL when unset.
func (s *StorageStub) Upload(ctx context.Context, obj storage.Object) (*storage.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, obj)
	s.mu.Unlock()
	if s.UploadFn != nil {
		return s.UploadFn(ctx, obj)
	}
	meta, _ := storage.Inspect(obj.Data)
	return &storage.Result{
		URL:              "https://cdn.example.com/" + obj.Filename,
		Width:            meta.Width,
		Height:           meta.Height,
		OriginalFilename: obj.Filename,
		DPI:              meta.DPI,
	}, nil
}

// Calls returns the objects uploaded so far.
func (s *StorageStub) Calls() []storage.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.Object(nil), s.calls...)
}
