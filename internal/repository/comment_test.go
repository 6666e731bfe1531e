package repository

import (
	"context"
	"testing"
	"time"

	"beam/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCommentRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice.ID, "host", false, time.Now())

	c := &models.Comment{Content: "hello", ContentHTML: "<p>hello</p>", AuthorID: alice.ID, PostID: post.ID}
	require.NoError(t, repo.Create(ctx, c))
	require.NotZero(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Author.Name)

	meta, err := repo.GetMeta(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CommentMeta{ID: c.ID, AuthorID: alice.ID, PostID: post.ID}, *meta)

	require.NoError(t, repo.UpdateContent(ctx, c.ID, "edited", "<p>edited</p>"))
	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Content)
	assert.Equal(t, "<p>edited</p>", list[0].ContentHTML)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateContent(ctx, c.ID, "x", "x"), gorm.ErrRecordNotFound)
}

func TestCommentRepository_RejectsUnknownPost(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	alice := createUser(t, db, "alice")

	err := repo.Create(context.Background(), &models.Comment{Content: "x", ContentHTML: "x", AuthorID: alice.ID, PostID: 404})
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}
