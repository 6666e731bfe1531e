package models

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("duplicate key")
	err := NewConflictError("You already liked this post", cause)

	assert.Equal(t, "You already liked this post: duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeConflict, ErrorCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "", ErrorCode(cause))
}

func TestNotFoundMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Post with ID 42 not found", NewNotFoundError("Post", 42).Message)
}

func TestRespondWithErrorHidesInternalDetails(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("pq: secret table")))
	})
	app.Get("/upstream", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusBadGateway, NewUpstreamError("Image upload failed", errors.New("timeout")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "secret table")
	assert.Contains(t, string(body), CodeInternal)

	resp, err = app.Test(httptest.NewRequest("GET", "/upstream", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), `"details":"timeout"`)
}
