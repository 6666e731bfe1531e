// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"beam/internal/cache"
	"beam/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedFilter narrows feed and count queries. Both use the same filter so the count matches the pages.
type FeedFilter struct {
	AuthorID      *uint
	IncludeHidden bool
}

func (f FeedFilter) scope(db *gorm.DB) *gorm.DB {
	if !f.IncludeHidden {
		db = db.Where("posts.hidden = ?", false)
	}
	if f.AuthorID != nil {
		db = db.Where("posts.author_id = ?", *f.AuthorID)
	}
	return db
}

// PostMeta is the minimal projection used for ownership and visibility checks.
type PostMeta struct {
	ID       uint
	AuthorID uint
	Hidden   bool
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Feed(ctx context.Context, filter FeedFilter, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context, filter FeedFilter) (int64, error)
	GetDetail(ctx context.Context, id uint) (*models.Post, error)
	GetMeta(ctx context.Context, id uint) (*PostMeta, error)
	Search(ctx context.Context, query string, limit int) ([]models.PostSummary, error)
	Create(ctx context.Context, post *models.Post) error
	UpdateContent(ctx context.Context, id uint, title, content, contentHTML string) error
	Delete(ctx context.Context, id uint) error
	SetHidden(ctx context.Context, id uint, hidden bool) error
	Like(ctx context.Context, postID, userID uint) error
	Unlike(ctx context.Context, postID, userID uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

const feedColumns = "posts.id, posts.title, posts.content_html, posts.hidden, posts.author_id, posts.created_at, posts.updated_at, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

func orderedLikes(db *gorm.DB) *gorm.DB {
	return db.Order("likes.created_at ASC").Order("likes.user_id ASC")
}

func orderedComments(db *gorm.DB) *gorm.DB {
	return db.Order("comments.created_at ASC").Order("comments.id ASC")
}

func (r *postRepository) Feed(ctx context.Context, filter FeedFilter, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Scopes(filter.scope).
		Select(feedColumns).
		Preload("Author").
		Preload("Likes", orderedLikes).
		Preload("Likes.User").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count(ctx context.Context, filter FeedFilter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter.scope).Count(&count).Error
	return count, err
}

// GetDetail loads a post with its author, likers and comments. The record is cached regardless
// of visibility; callers decide who may see it.
func (r *postRepository) GetDetail(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count").
			Preload("Author").
			Preload("Likes", orderedLikes).
			Preload("Likes.User").
			Preload("Comments", orderedComments).
			Preload("Comments.Author").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetMeta(ctx context.Context, id uint) (*PostMeta, error) {
	var meta PostMeta
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("id, author_id, hidden").
		Where("id = ?", id).
		Take(&meta).Error
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Search matches title or body. Postgres uses its full-text index; other drivers fall back to a
// case-insensitive substring match. Hidden posts are never returned.
func (r *postRepository) Search(ctx context.Context, query string, limit int) ([]models.PostSummary, error) {
	results := []models.PostSummary{}
	q := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.id, posts.title").
		Where("posts.hidden = ?", false)

	if isPostgres(r.db) {
		q = q.Where("to_tsvector('english', coalesce(posts.title, '') || ' ' || coalesce(posts.content, '')) @@ plainto_tsquery('english', ?)", query)
	} else {
		pattern := containsPattern(query)
		q = q.Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	err := q.Order("posts.created_at DESC").Order("posts.id DESC").Limit(limit).Scan(&results).Error
	return results, err
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) UpdateContent(ctx context.Context, id uint, title, content, contentHTML string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":        title,
			"content":      content,
			"content_html": contentHTML,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// SetHidden flips the moderation flag without touching updated_at.
func (r *postRepository) SetHidden(ctx context.Context, id uint, hidden bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("hidden", hidden)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// Like inserts the (post, user) pair. A second like fails on the composite primary key.
func (r *postRepository) Like(ctx context.Context, postID, userID uint) error {
	like := models.Like{PostID: postID, UserID: userID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&like).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, postID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}
