package editor

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"beam/internal/storage"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Uploader is the storage backend used for dropped or pasted images.
type Uploader interface {
	Upload(ctx context.Context, obj storage.Object) (*storage.Result, error)
}

// Notifier shows transient messages to the person editing.
type Notifier interface {
	Error(message string)
}

// ImageUploader runs the placeholder lifecycle for inline image uploads.
//
// Placeholders go in synchronously; uploads then run concurrently and each one swaps its
// placeholder for markup as it completes, in whatever order they finish.
type ImageUploader struct {
	store         Uploader
	notify        Notifier
	maxConcurrent int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewImageUploader returns an ImageUploader running at most maxConcurrent uploads per batch.
func NewImageUploader(store Uploader, notify Notifier, maxConcurrent int) *ImageUploader {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &ImageUploader{
		store:         store,
		notify:        notify,
		maxConcurrent: maxConcurrent,
		inflight:      make(map[string]struct{}),
	}
}

// Batch tracks the uploads started by one drop or paste.
type Batch struct {
	Placeholders []string
	pool         *pool.Pool
	once         sync.Once
}

// Wait blocks until every upload in the batch has settled. It is safe to call more than once.
func (b *Batch) Wait() {
	b.once.Do(func() {
		if b.pool != nil {
			b.pool.Wait()
		}
	})
}

// Placeholder is the markdown shown while name uploads.
func Placeholder(name string) string {
	return fmt.Sprintf("![Uploading %s...]()", name)
}

// ImageMarkup is the tag that replaces a finished upload. High-density images are shown at half
// their pixel width so they render at their intended physical size.
func ImageMarkup(res *storage.Result, name string) string {
	width := res.Width
	if res.DPI >= storage.HighDensityDPI {
		width /= 2
	}
	if width <= 0 {
		return fmt.Sprintf(`<img alt="%s" src="%s">`, html.EscapeString(name), html.EscapeString(res.URL))
	}
	return fmt.Sprintf(`<img width="%d" alt="%s" src="%s">`, width, html.EscapeString(name), html.EscapeString(res.URL))
}

// Start replaces the caret line with one placeholder per file and begins uploading.
// A placeholder already in flight gets a nonce in its link slot so replacements never collide.
func (u *ImageUploader) Start(ctx context.Context, s Surface, files []storage.Object) *Batch {
	batch := &Batch{}
	if len(files) == 0 {
		return batch
	}

	u.mu.Lock()
	for _, f := range files {
		ph := Placeholder(f.Filename)
		if _, taken := u.inflight[ph]; taken {
			ph = fmt.Sprintf("![Uploading %s...](%s)", f.Filename, uuid.NewString())
		}
		u.inflight[ph] = struct{}{}
		batch.Placeholders = append(batch.Placeholders, ph)
	}
	s.ReplaceLine(s.Caret().Line, strings.Join(batch.Placeholders, "\n"))
	u.mu.Unlock()

	batch.pool = pool.New().WithMaxGoroutines(u.maxConcurrent)
	for i, f := range files {
		ph := batch.Placeholders[i]
		f := f
		batch.pool.Go(func() {
			u.upload(ctx, s, f, ph)
		})
	}
	return batch
}

func (u *ImageUploader) upload(ctx context.Context, s Surface, f storage.Object, placeholder string) {
	defer u.release(placeholder)

	res, err := u.store.Upload(ctx, f)
	if err == nil && res == nil {
		err = fmt.Errorf("no result for %s", f.Filename)
	}

	if ctx.Err() != nil || !s.Attached() {
		return
	}
	if err != nil {
		u.replace(s, placeholder, "")
		if u.notify != nil {
			u.notify.Error("Error uploading image: " + err.Error())
		}
		return
	}
	u.replace(s, placeholder, ImageMarkup(res, f.Filename))
}

func (u *ImageUploader) replace(s Surface, placeholder, with string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	text := s.Value()
	// the user may have deleted the placeholder while it uploaded
	if !strings.Contains(text, placeholder) {
		return
	}
	s.SetValue(strings.Replace(text, placeholder, with, 1))
}

func (u *ImageUploader) release(placeholder string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.inflight, placeholder)
}
