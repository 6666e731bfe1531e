// Command admin manages moderator capabilities and mints API tokens for Beam users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"beam/internal/cache"
	"beam/internal/config"
	"beam/internal/database"
	"beam/internal/middleware"
	"beam/internal/models"
	"beam/internal/repository"
	"beam/internal/service"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  admin promote <user_id>            - Grant the admin capability")
	fmt.Println("  admin demote <user_id>             - Revoke the admin capability")
	fmt.Println("  admin list-admins                  - List all admins")
	fmt.Println("  admin token [-ttl 24h] <user_id>   - Print a signed API token for a user")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	if err := run(context.Background(), cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	// promote/demote must reach the profile cache the API reads from
	cache.InitRedis(cfg.RedisURL)
	defer func() { _ = cache.Close() }()

	users := service.NewUserService(repository.NewUserRepository(db))

	switch command {
	case "promote", "demote":
		id, err := parseUserID(args)
		if err != nil {
			return err
		}
		user, err := users.SetAdmin(ctx, id, command == "promote")
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s (ID: %d) admin=%t\n", user.Name, user.ID, user.IsAdmin)

	case "list-admins":
		admins, err := users.ListAdmins(ctx)
		if err != nil {
			return err
		}
		printAdmins(admins)

	case "token":
		fs := flag.NewFlagSet("token", flag.ContinueOnError)
		ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
		if err := fs.Parse(args); err != nil {
			return err
		}
		id, err := parseUserID(fs.Args())
		if err != nil {
			return err
		}
		caller, err := users.ResolveCaller(ctx, id)
		if err != nil {
			return err
		}
		if caller == nil {
			return models.NewNotFoundError("User", id)
		}
		token, err := middleware.IssueToken(cfg, id, *ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Println(token)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func parseUserID(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing <user_id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return uint(id), nil
}

func printAdmins(admins []models.User) {
	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
