package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"beam/internal/config"
	"beam/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTIssuer: "beam-api", JWTAudience: "beam-client"}
}

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "beam-api",
		"aud": "beam-client",
		"exp": time.Now().Add(exp).Unix(),
	}
}

func TestParseToken(t *testing.T) {
	cfg := testConfig()

	id, err := ParseToken(cfg, signToken(t, validClaims(42, time.Hour), jwt.SigningMethodHS256, []byte(testSecret)))
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	wrongIssuer := validClaims(42, time.Hour)
	wrongIssuer["iss"] = "someone-else"
	_, err = ParseToken(cfg, signToken(t, wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Error(t, err)

	wrongAudience := validClaims(42, time.Hour)
	wrongAudience["aud"] = "other-client"
	_, err = ParseToken(cfg, signToken(t, wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Error(t, err)

	noneToken := signToken(t, validClaims(42, time.Hour), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
	_, err = ParseToken(cfg, noneToken)
	assert.Error(t, err, "unsigned tokens are rejected")

	badSub := validClaims(0, time.Hour)
	badSub["sub"] = "not-a-number"
	_, err = ParseToken(cfg, signToken(t, badSub, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	users := map[uint]*models.Caller{
		123: {ID: 123},
		9:   {ID: 9, IsAdmin: true},
	}
	resolverCalls := 0
	resolve := func(_ context.Context, userID uint) (*models.Caller, error) {
		resolverCalls++
		if userID == 500 {
			return nil, errors.New("db down")
		}
		return users[userID], nil
	}

	app := fiber.New()
	app.Get("/test", AuthRequired(testConfig(), resolve), func(c *fiber.Ctx) error {
		caller, _ := CallerFrom(c)
		return c.JSON(fiber.Map{"userID": c.Locals(LocalUserID), "isAdmin": caller.IsAdmin})
	})

	token := func(id uint, exp time.Duration) string {
		return "Bearer " + signToken(t, validClaims(id, exp), jwt.SigningMethodHS256, []byte(testSecret))
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
		expectedAdmin  bool
		resolves       bool
	}{
		{"happy path", token(123, time.Hour), http.StatusOK, 123, false, true},
		{"admin flag", token(9, time.Hour), http.StatusOK, 9, true, true},
		{"missing header", "", http.StatusUnauthorized, 0, false, false},
		{"invalid format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0, false, false},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized, 0, false, false},
		{"expired token", token(123, -time.Hour), http.StatusUnauthorized, 0, false, false},
		{"unknown user", token(77, time.Hour), http.StatusUnauthorized, 0, false, true},
		{"resolver failure", token(500, time.Hour), http.StatusInternalServerError, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := resolverCalls
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.resolves, resolverCalls > before, "caller lookup only happens for valid tokens")

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
				assert.Equal(t, tt.expectedAdmin, body["isAdmin"])
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	withCaller := func(caller *models.Caller) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if caller != nil {
				c.Locals(LocalCaller, *caller)
			}
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }

	tests := []struct {
		name   string
		caller *models.Caller
		status int
	}{
		{"admin", &models.Caller{ID: 1, IsAdmin: true}, http.StatusNoContent},
		{"member", &models.Caller{ID: 2}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/admin", withCaller(tt.caller), AdminRequired(), ok)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	token, err := IssueToken(cfg, 7, time.Hour)
	require.NoError(t, err)
	id, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	expired, err := IssueToken(cfg, 7, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(cfg, expired)
	assert.Error(t, err)
}
