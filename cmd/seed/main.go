package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/repository/postgres"
)

// Seeds an admin account for deployments that don't want to rely on
// first-registration bootstrapping.
func main() {
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Environment)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	users := postgres.NewUserRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	hashed, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	account := &models.User{
		Username:       *username,
		HashedPassword: hashed,
		IsAdmin:        true,
	}
	if err := users.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Info("admin account already exists", "username", *username)
			return
		}
		log.Fatalf("Failed to create admin: %v", err)
	}

	logger.Info("admin account created", slog.Int64("user_id", account.ID), slog.String("username", *username))
}
