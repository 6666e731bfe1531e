package service

import (
	"context"
	"errors"
	"strings"

	"beam/internal/markdown"
	"beam/internal/middleware"
	"beam/internal/models"
	"beam/internal/repository"
	"beam/internal/validation"

	"gorm.io/gorm"
)

// SearchLimit caps search results.
const SearchLimit = 10

// PostService enforces ownership, moderation and visibility for posts.
type PostService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	renderer  Renderer
	announcer PostAnnouncer
}

// FeedInput selects a feed page. Take 0 means the default page size.
type FeedInput struct {
	Take     int
	Skip     int
	AuthorID *uint
}

// FeedResult is one page plus the total under the same filter.
type FeedResult struct {
	Posts     []*models.Post `json:"posts"`
	PostCount int64          `json:"postCount"`
}

// PostInput carries the author-editable fields.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewPostService wires a PostService. A nil renderer uses the default markdown pipeline and a nil
// announcer drops notifications.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	renderer Renderer,
	announcer PostAnnouncer,
) *PostService {
	if renderer == nil {
		renderer = markdown.New()
	}
	if announcer == nil {
		announcer = noopAnnouncer{}
	}
	return &PostService{
		posts:     posts,
		users:     users,
		renderer:  renderer,
		announcer: announcer,
	}
}

// Feed returns visible posts newest first. Admins also see hidden posts.
func (s *PostService) Feed(ctx context.Context, caller models.Caller, in FeedInput) (*FeedResult, error) {
	var result *FeedResult
	err := procedure(ctx, "feed", caller, func(ctx context.Context) error {
		take, err := validation.ValidatePage(in.Take, in.Skip)
		if err != nil {
			return err
		}
		filter := repository.FeedFilter{AuthorID: in.AuthorID, IncludeHidden: caller.IsAdmin}

		posts, err := s.posts.Feed(ctx, filter, take, in.Skip)
		if err != nil {
			return internal(ctx, err)
		}
		count, err := s.posts.Count(ctx, filter)
		if err != nil {
			return internal(ctx, err)
		}
		if posts == nil {
			posts = []*models.Post{}
		}
		result = &FeedResult{Posts: posts, PostCount: count}
		return nil
	})
	return result, err
}

// Detail returns the full post. Hidden posts answer NotFound to anyone but the author or an admin.
func (s *PostService) Detail(ctx context.Context, caller models.Caller, id uint) (*models.Post, error) {
	var post *models.Post
	err := procedure(ctx, "detail", caller, func(ctx context.Context) error {
		p, err := s.posts.GetDetail(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		if err != nil {
			return internal(ctx, err)
		}
		if !canSee(caller, p.AuthorID, p.Hidden) {
			return models.NewNotFoundError("Post", id)
		}
		post = p
		return nil
	})
	return post, err
}

// Search matches title and body of visible posts, regardless of the caller's role.
func (s *PostService) Search(ctx context.Context, caller models.Caller, query string) ([]models.PostSummary, error) {
	var results []models.PostSummary
	err := procedure(ctx, "search", caller, func(ctx context.Context) error {
		if err := validation.ValidateSearchQuery(query); err != nil {
			return err
		}
		found, err := s.posts.Search(ctx, strings.TrimSpace(query), SearchLimit)
		if err != nil {
			return internal(ctx, err)
		}
		results = found
		return nil
	})
	return results, err
}

// Add stores a new post owned by the caller and announces it. Announcement failures never reach
// the caller.
func (s *PostService) Add(ctx context.Context, caller models.Caller, in PostInput) (*models.Post, error) {
	var post *models.Post
	err := procedure(ctx, "add", caller, func(ctx context.Context) error {
		if err := validatePost(in); err != nil {
			return err
		}
		p := &models.Post{
			Title:       in.Title,
			Content:     in.Content,
			ContentHTML: s.renderer.Render(in.Content),
			AuthorID:    caller.ID,
		}
		if err := s.posts.Create(ctx, p); err != nil {
			return internal(ctx, err)
		}

		if author := s.author(ctx, caller.ID); author != nil {
			p.Author = *author
		}
		p.Likes = []models.Like{}
		s.announcer.PostCreated(*p, p.Author.Name)
		post = p
		return nil
	})
	return post, err
}

// Edit re-renders and overwrites title and content. Only the author may edit; a missing id is
// reported as Forbidden too.
func (s *PostService) Edit(ctx context.Context, caller models.Caller, id uint, in PostInput) (*models.Post, error) {
	var post *models.Post
	err := procedure(ctx, "edit", caller, func(ctx context.Context) error {
		if err := validatePost(in); err != nil {
			return err
		}
		if err := s.requireAuthor(ctx, caller, id, "You can only edit your own posts"); err != nil {
			return err
		}

		err := s.posts.UpdateContent(ctx, id, in.Title, in.Content, s.renderer.Render(in.Content))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		if err != nil {
			return internal(ctx, err)
		}

		p, err := s.posts.GetDetail(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		if err != nil {
			return internal(ctx, err)
		}
		post = p
		return nil
	})
	return post, err
}

// Delete removes the caller's post. Comments and likes go with it.
func (s *PostService) Delete(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	err := procedure(ctx, "delete", caller, func(ctx context.Context) error {
		if err := s.requireAuthor(ctx, caller, id, "You can only delete your own posts"); err != nil {
			return err
		}
		err := s.posts.Delete(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewConflictError("Post was already deleted", err)
		}
		if err != nil {
			return internal(ctx, err)
		}
		s.announcer.PostDeleted(id, caller.ID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Like records the caller's like. Liking twice is a conflict.
func (s *PostService) Like(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	err := procedure(ctx, "like", caller, func(ctx context.Context) error {
		if _, err := visiblePost(ctx, s.posts, caller, id); err != nil {
			return err
		}
		err := s.posts.Like(ctx, id, caller.ID)
		switch {
		case err == nil:
			return nil
		case repository.IsDuplicateKey(err):
			return models.NewConflictError("You already liked this post", err)
		case repository.IsForeignKeyViolation(err):
			return models.NewNotFoundError("Post", id)
		default:
			return internal(ctx, err)
		}
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Unlike removes the caller's like. Removing a like that does not exist is a conflict.
func (s *PostService) Unlike(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	err := procedure(ctx, "unlike", caller, func(ctx context.Context) error {
		err := s.posts.Unlike(ctx, id, caller.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewConflictError("You have not liked this post", err)
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

// Hide takes a post out of listings for everyone but its author and admins.
func (s *PostService) Hide(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	return s.setHidden(ctx, "hide", caller, id, true)
}

// Unhide restores a hidden post.
func (s *PostService) Unhide(ctx context.Context, caller models.Caller, id uint) (uint, error) {
	return s.setHidden(ctx, "unhide", caller, id, false)
}

func (s *PostService) setHidden(ctx context.Context, op string, caller models.Caller, id uint, hidden bool) (uint, error) {
	err := procedure(ctx, op, caller, func(ctx context.Context) error {
		if !caller.IsAdmin {
			return models.NewForbiddenError("Admin access required")
		}
		err := s.posts.SetHidden(ctx, id, hidden)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		if err != nil {
			return internal(ctx, err)
		}
		s.announcer.PostVisibilityChanged(id, caller.ID, hidden)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// requireAuthor fetches only the author reference and compares it with the caller.
func (s *PostService) requireAuthor(ctx context.Context, caller models.Caller, id uint, message string) error {
	meta, err := s.posts.GetMeta(ctx, id)
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

// author looks up the display name for announcements. Failures only cost the name.
func (s *PostService) author(ctx context.Context, id uint) *models.User {
	if s.users == nil {
		return nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "author lookup failed", "user_id", id, "error", err)
		return nil
	}
	return u
}

func validatePost(in PostInput) error {
	if err := validation.ValidateTitle(in.Title); err != nil {
		return err
	}
	return validation.ValidateContent(in.Content)
}
