package server

import (
	"context"

	"beam/internal/models"
	"beam/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GetFeed handles GET /api/posts?take=&skip=&authorId=
// @Summary Post feed
// @Description Newest posts first. Hidden posts are included only for admins.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param take query int false "Page size (1-50)"
// @Param skip query int false "Offset"
// @Param authorId query int false "Only posts by this author"
// @Success 200 {object} service.FeedResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c)
	in := service.FeedInput{Take: page.Take, Skip: page.Skip}

	if raw := c.Query("authorId"); raw != "" {
		authorID := c.QueryInt("authorId", 0)
		if authorID <= 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid author ID"))
		}
		id := uint(authorID)
		in.AuthorID = &id
	}

	feed, err := s.postService.Feed(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(feed)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Description Title and content match over posts that are not hidden.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Success 200 {array} models.PostSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	results, err := s.postService.Search(c.UserContext(), callerFrom(c), c.Query("q"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(results)
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail
// @Description Full post with rendered HTML, author, likers and comments.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Detail(c.UserContext(), callerFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Title and markdown content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Add(c.UserContext(), callerFrom(c), service.PostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit post
// @Description Author only. The HTML is re-rendered from the new content.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postRequest true "Title and markdown content"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Edit(c.UserContext(), callerFrom(c), id, service.PostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} idResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return s.postAction(c, s.postService.Delete)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} idResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.postAction(c, s.postService.Like)
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Unlike post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} idResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.postAction(c, s.postService.Unlike)
}

// HidePost handles POST /api/posts/:id/hide
// @Summary Hide post
// @Description Admin only.
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} idResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/hide [post]
func (s *Server) HidePost(c *fiber.Ctx) error {
	return s.postAction(c, s.postService.Hide)
}

// UnhidePost handles POST /api/posts/:id/unhide
// @Summary Unhide post
// @Description Admin only.
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} idResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/unhide [post]
func (s *Server) UnhidePost(c *fiber.Ctx) error {
	return s.postAction(c, s.postService.Unhide)
}

type idAction func(ctx context.Context, caller models.Caller, id uint) (uint, error)

// postAction runs an id-in, id-out operation and answers {"id": ...}.
func (s *Server) postAction(c *fiber.Ctx, action idAction) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	affected, err := action(c.UserContext(), callerFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(idResponse{ID: affected})
}
