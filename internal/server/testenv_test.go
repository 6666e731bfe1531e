package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beam/internal/cache"
	"beam/internal/config"
	"beam/internal/database"
	"beam/internal/middleware"
	"beam/internal/models"
	"beam/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv is a fully wired server on an in-memory SQLite database, without Redis.
type testEnv struct {
	cfg *config.Config
	db  *gorm.DB
	srv *Server
	app *fiber.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cache.SetClient(nil)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		JWTIssuer:      "beam-test",
		AllowedOrigins: "http://localhost:5173",
	}
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.dispatcher.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testEnv{cfg: cfg, db: db, srv: srv, app: srv.App()}
}

// user inserts a user and returns it with a bearer token for it.
func (e *testEnv) user(t *testing.T, name string, isAdmin bool) (models.User, string) {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", IsAdmin: isAdmin}
	require.NoError(t, repository.NewUserRepository(e.db).Create(context.Background(), &u))
	token, err := middleware.IssueToken(e.cfg, u.ID, time.Hour)
	require.NoError(t, err)
	return u, token
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
