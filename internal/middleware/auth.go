// Package middleware provides the HTTP middleware chain: caller authentication, structured request
// logging, tracing, metrics and Redis-backed rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beam/internal/config"
	"beam/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID = "userID"
	LocalCaller = "caller"
)

// CallerResolver loads the identity behind a token subject. A nil caller means the user is unknown.
type CallerResolver func(ctx context.Context, userID uint) (*models.Caller, error)

var (
	errMissingToken = errors.New("Authorization required")
	errBadToken     = errors.New("Invalid or expired token")
)

// ParseToken validates an HMAC-signed JWT against cfg and returns its numeric subject.
func ParseToken(cfg *config.Config, tokenString string) (uint, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errBadToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("missing subject: %w", errBadToken)
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("invalid user ID in token: %w", errBadToken)
	}
	return uint(userID), nil
}

// IssueToken signs an HS256 token for userID using the configured issuer and audience.
func IssueToken(cfg *config.Config, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if cfg.JWTAudience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.JWTAudience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired resolves the caller for every request it guards. No handler behind it runs, and no
// store is touched, unless the token is valid and names an existing user.
func AuthRequired(cfg *config.Config, resolve CallerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(errMissingToken.Error()))
		}

		userID, err := ParseToken(cfg, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(errBadToken.Error()))
		}

		ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
		caller, err := resolve(ctx, userID)
		if err != nil {
			Logger.ErrorContext(ctx, "failed to resolve caller", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if caller == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Unknown user"))
		}

		c.Locals(LocalUserID, caller.ID)
		c.Locals(LocalCaller, *caller)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AdminRequired rejects callers without the admin capability. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(errMissingToken.Error()))
		}
		if !caller.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// CallerFrom returns the caller stored by AuthRequired.
func CallerFrom(c *fiber.Ctx) (models.Caller, bool) {
	caller, ok := c.Locals(LocalCaller).(models.Caller)
	return caller, ok
}
