package repository

import (
	"context"

	"beam/internal/cache"
	"beam/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentMeta is the projection used for ownership checks.
type CommentMeta struct {
	ID       uint
	AuthorID uint
	PostID   uint
}

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetMeta(ctx context.Context, id uint) (*CommentMeta, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content, contentHTML string) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
	if err == nil {
		cache.InvalidatePost(ctx, comment.PostID)
	}
	return err
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) GetMeta(ctx context.Context, id uint) (*CommentMeta, error) {
	var meta CommentMeta
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("id, author_id, post_id").
		Where("id = ?", id).
		Take(&meta).Error
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *commentRepository) ListByPost(
	ctx context.Context,
	postID uint,
) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Scopes(orderedComments).
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content, contentHTML string) error {
	meta, err := r.GetMeta(ctx, id)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "content_html": contentHTML})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, meta.PostID)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	meta, err := r.GetMeta(ctx, id)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidatePost(ctx, meta.PostID)
	return nil
}
