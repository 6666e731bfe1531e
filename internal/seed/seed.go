package seed

import (
	"context"
	"fmt"
	"math/rand"

	"beam/internal/middleware"
	"beam/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers           int
	NumPosts           int
	MaxCommentsPerPost int
	MaxLikesPerPost    int
	// HiddenRatio is the share of posts seeded as hidden, between 0 and 1.
	HiddenRatio float64
	MaxDays     int
	ShouldClean bool
	DryRun      bool
	RandomSeed  int64
}

// DefaultOptions returns the preset used by cmd/seed.
func DefaultOptions() Options {
	return Options{
		NumUsers:           25,
		NumPosts:           120,
		MaxCommentsPerPost: 6,
		MaxLikesPerPost:    15,
		HiddenRatio:        0.05,
		MaxDays:            90,
	}
}

// Summary counts what a Seed run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

// Seed populates the database with users, posts, comments and likes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed needs at least one user, got %d", opts.NumUsers)
	}
	log := middleware.Logger
	log.InfoContext(ctx, "starting database seeding", "users", opts.NumUsers, "posts", opts.NumPosts, "dry_run", opts.DryRun)

	if !opts.DryRun {
		db = db.WithContext(ctx)
	}

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(func(u *models.User) {
			u.Email = fmt.Sprintf("user%d.%s", i, u.Email)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.InfoContext(ctx, "users created", "count", summary.Users)

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[f.faker.Number(0, len(users)-1)]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)
	log.InfoContext(ctx, "posts created", "count", summary.Posts)

	// #nosec G404: acceptable for seeding
	r := rand.New(rand.NewSource(f.faker.Int64()))
	for _, post := range posts {
		comments := r.Intn(opts.MaxCommentsPerPost + 1)
		for i := 0; i < comments; i++ {
			if _, err := f.CreateComment(users[r.Intn(len(users))], post); err != nil {
				return nil, fmt.Errorf("failed to create comment on post %d: %w", post.ID, err)
			}
			summary.Comments++
		}

		likers := r.Perm(len(users))
		n := r.Intn(min(opts.MaxLikesPerPost, len(users)) + 1)
		for _, idx := range likers[:n] {
			if err := f.CreateLike(users[idx], post); err != nil {
				return nil, fmt.Errorf("failed to like post %d: %w", post.ID, err)
			}
			summary.Likes++
		}
	}

	log.InfoContext(ctx, "database seeding completed",
		"users", summary.Users,
		"posts", summary.Posts,
		"comments", summary.Comments,
		"likes", summary.Likes,
	)
	return summary, nil
}

// clearData removes all rows in dependency order. It works on both Postgres and SQLite.
func clearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
