// Package service holds the procedure layer: ownership, moderation and visibility rules on top of
// the repositories, with markdown rendering on every write.
package service

import (
	"context"
	"errors"

	"beam/internal/middleware"
	"beam/internal/models"
	"beam/internal/observability"
	"beam/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Renderer turns markdown into sanitized HTML.
type Renderer interface {
	Render(src string) string
}

// PostAnnouncer receives best-effort post lifecycle notifications. Implementations must not block.
type PostAnnouncer interface {
	PostCreated(post models.Post, authorName string)
	PostDeleted(postID, actorID uint)
	PostVisibilityChanged(postID, actorID uint, hidden bool)
}

type noopAnnouncer struct{}

func (noopAnnouncer) PostCreated(models.Post, string)        {}
func (noopAnnouncer) PostDeleted(uint, uint)                 {}
func (noopAnnouncer) PostVisibilityChanged(uint, uint, bool) {}

// procedure wraps one service call: the caller check runs first, then fn inside a span, and the
// outcome is counted under op.
func procedure(ctx context.Context, op string, caller models.Caller, fn func(ctx context.Context) error) (err error) {
	span, ctx := observability.NewSpan(ctx, "service."+op,
		attribute.Int64("caller.id", int64(caller.ID)),
		attribute.Bool("caller.admin", caller.IsAdmin),
	)
	defer func() {
		observability.PostOperations.WithLabelValues(op, resultLabel(err)).Inc()
		span.End(&err)
	}()

	if caller.ID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return fn(ctx)
}

func resultLabel(err error) string {
	if err == nil {
		return observability.Result("")
	}
	if code := models.ErrorCode(err); code != "" {
		return code
	}
	return models.CodeInternal
}

// canSee reports whether caller may observe a post with the given owner and flag.
func canSee(caller models.Caller, authorID uint, hidden bool) bool {
	return !hidden || caller.IsAdmin || caller.ID == authorID
}

// visiblePost loads the post meta and hides it from callers who may not see it.
func visiblePost(ctx context.Context, posts repository.PostRepository, caller models.Caller, id uint) (*repository.PostMeta, error) {
	meta, err := posts.GetMeta(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, internal(ctx, err)
	}
	if !canSee(caller, meta.AuthorID, meta.Hidden) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return meta, nil
}

// internal logs a store failure and wraps it so handlers answer 500 without leaking the cause.
func internal(ctx context.Context, err error) error {
	middleware.Logger.ErrorContext(ctx, "store operation failed", "error", err)
	return models.NewInternalError(err)
}
