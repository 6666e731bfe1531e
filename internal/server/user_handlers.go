package server

import (
	"beam/internal/editor"

	"github.com/gofiber/fiber/v2"
)

const emojiSuggestionLimit = 8

// GetMyProfile handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), callerFrom(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.UserSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.Profile(c.UserContext(), callerFrom(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}

// GetMentions handles GET /api/users/mentions?q=... for @ autocomplete.
// @Summary Mention suggestions
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name prefix, a leading @ is ignored"
// @Success 200 {array} models.UserSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/mentions [get]
func (s *Server) GetMentions(c *fiber.Ctx) error {
	users, err := s.userService.MentionList(c.UserContext(), callerFrom(c), c.Query("q"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetEmoji handles GET /api/emoji?q=... for : autocomplete.
// @Summary Emoji suggestions
// @Tags editor
// @Produce json
// @Security BearerAuth
// @Param q query string false "Shortcode fragment"
// @Success 200 {array} editor.EmojiSuggestion
// @Failure 401 {object} models.ErrorResponse
// @Router /emoji [get]
func (s *Server) GetEmoji(c *fiber.Ctx) error {
	suggestions := editor.SuggestEmoji(c.Query("q"), emojiSuggestionLimit)
	if suggestions == nil {
		suggestions = []editor.EmojiSuggestion{}
	}
	return c.JSON(suggestions)
}
