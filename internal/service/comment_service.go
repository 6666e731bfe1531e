package service

import (
	"context"
	"errors"

	"beam/internal/markdown"
	"beam/internal/models"
	"beam/internal/repository"
	"beam/internal/validation"

	"gorm.io/gorm"
)

// CommentService applies the post rules to comments: visible parent on write, author-only edits.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	renderer Renderer
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	renderer Renderer,
) *CommentService {
	if renderer == nil {
		renderer = markdown.New()
	}
	return &CommentService{
		comments: comments,
		posts:    posts,
		renderer: renderer,
	}
}

// Add comments on a post the caller can see.
func (s *CommentService) Add(ctx context.Context, caller models.Caller, postID uint, content string) (*models.Comment, error) {
	var comment *models.Comment
	err := procedure(ctx, "comment_add", caller, func(ctx context.Context) error {
		if err := validation.ValidateComment(content); err != nil {
			return err
		}
		if _, err := visiblePost(ctx, s.posts, caller, postID); err != nil {
			return err
		}

		c := &models.Comment{
			Content:     content,
			ContentHTML: s.renderer.Render(content),
			AuthorID:    caller.ID,
			PostID:      postID,
		}
		err := s.comments.Create(ctx, c)
		if repository.IsForeignKeyViolation(err) {
			return models.NewNotFoundError("Post", postID)
		}
		if err != nil {
			return internal(ctx, err)
		}
		comment = c
		return nil
	})
	return comment, err
}

// List returns the comments of a post the caller can see, oldest first.
func (s *CommentService) List(ctx context.Context, caller models.Caller, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := procedure(ctx, "comment_list", caller, func(ctx context.Context) error {
		if _, err := visiblePost(ctx, s.posts, caller, postID); err != nil {
			return err
		}
		found, err := s.comments.ListByPost(ctx, postID)
		if err != nil {
			return internal(ctx, err)
		}
		if found == nil {
			found = []*models.Comment{}
		}
		comments = found
		return nil
	})
	return comments, err
}

// Edit re-renders the caller's comment.
func (s *CommentService) Edit(ctx context.Context, caller models.Caller, id uint, content string) (*models.Comment, error) {
	var comment *models.Comment
	err := procedure(ctx, "comment_edit", caller, func(ctx context.Context) error {
		if err := validation.ValidateComment(content); err != nil {
			return err
		}
		if err := s.requireAuthor(ctx, caller, id, "You can only edit your own comments"); err != nil {
			return err
		}

		err := s.comments.UpdateContent(ctx, id, content, s.renderer.Render(content))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		if err != nil {
			return internal(ctx, err)
		}

		c, err := s.comments.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		if err != nil {
			return internal(ctx, err)
		}
		comment = c
		return nil
	})
	return comment, err
}

// Delete removes the caller's comment and returns its id.
func (s *CommentService) Delete(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	err := procedure(ctx, "comment_delete", caller, func(ctx context.Context) error {
		if err := s.requireAuthor(ctx, caller, id, "You can only delete your own comments"); err != nil {
			return err
		}
		err := s.comments.Delete(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewConflictError("Comment was already deleted", err)
		}
		if err != nil {
			return internal(ctx, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *CommentService) requireAuthor(ctx context.Context, caller models.Caller, id uint, message string) error {
	meta, err := s.comments.GetMeta(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewForbiddenError(message)
	}
	if err != nil {
		return internal(ctx, err)
	}
	if meta.AuthorID != caller.ID {
		return models.NewForbiddenError(message)
	}
	return nil
}
