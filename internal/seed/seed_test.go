package seed

import (
	"context"
	"testing"
	"time"

	"beam/internal/database"
	"beam/internal/markdown"
	"beam/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedOnSQLite(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	opts := Options{
		NumUsers:           5,
		NumPosts:           12,
		MaxCommentsPerPost: 3,
		MaxLikesPerPost:    10,
		HiddenRatio:        0.5,
		MaxDays:            10,
		RandomSeed:         42,
	}
	summary, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Users)
	assert.Equal(t, 12, summary.Posts)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 12)
	for _, p := range posts {
		assert.Equal(t, markdown.Render(p.Content), p.ContentHTML, "post %d", p.ID)
		assert.NotEmpty(t, p.Title)
	}

	var likes, comments int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.EqualValues(t, summary.Likes, likes)
	assert.EqualValues(t, summary.Comments, comments)

	// a second run with cleaning starts from an empty database
	opts.ShouldClean = true
	_, err = Seed(context.Background(), db, opts)
	require.NoError(t, err)
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 5, users)
}

func TestBuildPost_TimestampsAndRendering(t *testing.T) {
	opts := Options{DryRun: true, MaxDays: 30, RandomSeed: 7}
	f := NewFactory(nil, opts)
	user := &models.User{ID: 1}

	for i := 0; i < 20; i++ {
		p := f.BuildPost(user)
		assert.Equal(t, user.ID, p.AuthorID)
		assert.NotEmpty(t, p.ContentHTML)
		assert.NotContains(t, p.ContentHTML, "<script")
		if time.Since(p.CreatedAt) > (time.Duration(opts.MaxDays)+1)*24*time.Hour {
			t.Fatalf("created_at too old: %v", p.CreatedAt)
		}
	}

	hidden := f.BuildPost(user, func(p *models.Post) {
		p.Hidden = true
		p.Content = "**override**"
	})
	assert.True(t, hidden.Hidden)
	assert.Contains(t, hidden.ContentHTML, "<strong>override</strong>")
}

func TestDryRunTouchesNoDatabase(t *testing.T) {
	summary, err := Seed(context.Background(), nil, Options{
		NumUsers:           3,
		NumPosts:           4,
		MaxCommentsPerPost: 2,
		MaxLikesPerPost:    2,
		DryRun:             true,
		RandomSeed:         1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Users)
	assert.Equal(t, 4, summary.Posts)
}

func TestSeedRejectsNoUsers(t *testing.T) {
	_, err := Seed(context.Background(), nil, Options{NumPosts: 3})
	assert.Error(t, err)
}
