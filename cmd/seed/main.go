// Command seed fills a development database with fake users, posts, comments and likes.
package main

import (
	"context"
	"flag"
	"os"

	"beam/internal/bootstrap"
	"beam/internal/config"
	"beam/internal/middleware"
	"beam/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxCommentsPerPost, "Maximum comments per post")
	maxLikes := flag.Int("likes", defaults.MaxLikesPerPost, "Maximum likes per post")
	hidden := flag.Float64("hidden", defaults.HiddenRatio, "Share of posts seeded as hidden")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	if cfg.IsProduction() {
		middleware.Logger.Error("refusing to seed a production database")
		os.Exit(1)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		middleware.Logger.Error("failed to initialize runtime", "error", err)
		os.Exit(1)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.MaxCommentsPerPost = *maxComments
	opts.MaxLikesPerPost = *maxLikes
	opts.HiddenRatio = *hidden
	opts.ShouldClean = *shouldClean
	opts.DryRun = *dryRun
	opts.RandomSeed = *randomSeed

	if _, err := seed.Seed(ctx, db, opts); err != nil {
		middleware.Logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}
