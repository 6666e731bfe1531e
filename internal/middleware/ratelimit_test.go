package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimitEnabled(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		assert.False(t, RateLimitEnabled(env), env)
	}
	assert.True(t, RateLimitEnabled("production"))
	assert.True(t, RateLimitEnabled("staging"))
}

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "posts:create", "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", i+1)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "posts:create", "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = CheckRateLimit(ctx, rdb, "posts:create", "user:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "limits are per caller")

	assert.Greater(t, mr.TTL("rl:posts:create:user:1"), time.Duration(0))
	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "posts:create", "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "window resets")

	_, err = CheckRateLimit(ctx, nil, "posts:create", "user:1", 3, time.Minute)
	assert.Error(t, err)
}

func TestCheckRateLimitRepairsMissingExpiry(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	// a counter left behind without a TTL
	require.NoError(t, mr.Set("rl:upload:user:1", "10"))
	require.Zero(t, mr.TTL("rl:upload:user:1"))

	allowed, err := CheckRateLimit(ctx, rdb, "upload", "user:1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, mr.TTL("rl:upload:user:1"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "upload", "user:1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimitKeepsWindowAcrossHits(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	_, err := CheckRateLimit(ctx, rdb, "search", "ip:1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = CheckRateLimit(ctx, rdb, "search", "ip:1.2.3.4", 5, time.Minute)
	require.NoError(t, err)

	ttl := mr.TTL("rl:search:ip:1.2.3.4")
	assert.LessOrEqual(t, ttl, 20*time.Second, "later hits do not extend the window")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRateLimiterMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	hit := func(app *fiber.App, path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("bypass in test env", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "test").Limit("test", 1, time.Minute), ok)
		assert.Equal(t, http.StatusOK, hit(app, "/test"))
		assert.Equal(t, http.StatusOK, hit(app, "/test"))
	})

	t.Run("fail open with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "production").Limit("test", 1, time.Minute), ok)
		assert.Equal(t, http.StatusOK, hit(app, "/test"))
	})

	t.Run("fail closed with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		app.Get("/sensitive", NewRateLimiter(nil, "production").WithPolicy(FailClosed).Limit("sensitive", 1, time.Minute), ok)
		assert.Equal(t, http.StatusServiceUnavailable, hit(app, "/sensitive"))
	})

	t.Run("limits per user", func(t *testing.T) {
		_, rdb := newRedis(t)
		app := fiber.New()
		app.Get("/posts", func(c *fiber.Ctx) error {
			c.Locals(LocalUserID, uint(7))
			return c.Next()
		}, NewRateLimiter(rdb, "production").Limit("posts:create", 2, time.Minute), ok)

		assert.Equal(t, http.StatusOK, hit(app, "/posts"))
		assert.Equal(t, http.StatusOK, hit(app, "/posts"))
		assert.Equal(t, http.StatusTooManyRequests, hit(app, "/posts"))
	})
}
