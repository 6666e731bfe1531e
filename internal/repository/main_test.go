package repository

import (
	"context"
	"testing"
	"time"

	"beam/internal/cache"
	"beam/internal/database"
	"beam/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, author uint, title string, hidden bool, at time.Time) models.Post {
	t.Helper()
	p := models.Post{
		Title:       title,
		Content:     "body of " + title,
		ContentHTML: "<p>body of " + title + "</p>",
		AuthorID:    author,
		CreatedAt:   at,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), &p))
	if hidden {
		require.NoError(t, NewPostRepository(db).SetHidden(context.Background(), p.ID, true))
		p.Hidden = true
	}
	return p
}
