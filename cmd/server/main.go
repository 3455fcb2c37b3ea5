package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/handler"
	"github.com/HaronZ/cdrrmo-file-manager/internal/middleware"
	"github.com/HaronZ/cdrrmo-file-manager/internal/repository/postgres"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/events"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/notification"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/preferences"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/stats"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/storage"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/user"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"storage_root", cfg.StorageRoot,
	)

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
	logger.Info("database connected")

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	versionRepo := postgres.NewFileVersionRepository(repoConfig)
	notificationRepo := postgres.NewNotificationRepository(repoConfig)
	activityRepo := postgres.NewActivityLogRepository(repoConfig)
	prefsRepo := postgres.NewUserPreferencesRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Async delivery of activity-log entries and notifications
	recorder := events.NewRecorder(logger, notificationRepo, activityRepo)
	go recorder.Run(ctx)

	// Services
	tokens := auth.NewTokenManager(cfg.SecretKey)
	storageService, err := storage.NewService(cfg, logger, fileRepo, versionRepo, txManager, recorder)
	if err != nil {
		log.Fatalf("Failed to create storage service: %v", err)
	}

	departments, err := config.LoadDepartments(cfg.DepartmentsFile)
	if err != nil {
		log.Fatalf("Failed to load departments: %v", err)
	}
	if err := storageService.EnsureLayout(departments); err != nil {
		log.Fatalf("Failed to prepare storage layout: %v", err)
	}
	logger.Info("storage layout ready", "departments", departments.Folders)

	userService := user.NewService(logger, userRepo, tokens)
	notificationService := notification.NewService(logger, notificationRepo, fileRepo)
	preferencesService := preferences.NewService(logger, prefsRepo)
	statsService := stats.NewService(logger, fileRepo, userRepo, activityRepo, storageService)

	// Daily reminder scan for tasks coming due
	go notificationService.RunDueTaskScanner(ctx, 24*time.Hour)

	// Handlers
	fileHandler := handler.NewFileHandler(logger, storageService, cfg.MaxFileSize)
	userHandler := handler.NewUserHandler(logger, userService)
	notificationHandler := handler.NewNotificationHandler(logger, notificationService)
	preferencesHandler := handler.NewPreferencesHandler(logger, preferencesService)
	statsHandler := handler.NewStatsHandler(logger, statsService)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth and user routes
	mux.HandleFunc("POST /api/users", userHandler.Register)
	mux.HandleFunc("POST /api/users/token", userHandler.Login)
	mux.HandleFunc("GET /api/users/count", userHandler.Count)
	mux.HandleFunc("GET /api/users/me", userHandler.Me)
	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userHandler.Delete)

	// File routes
	mux.HandleFunc("POST /api/files/upload", fileHandler.Upload)
	mux.HandleFunc("GET /api/files", fileHandler.List)
	mux.HandleFunc("GET /api/files/search", fileHandler.Search)
	mux.HandleFunc("POST /api/files/search/advanced", fileHandler.AdvancedSearch)
	mux.HandleFunc("GET /api/files/mine", fileHandler.Mine)
	mux.HandleFunc("GET /api/files/assigned", fileHandler.AssignedToMe)
	mux.HandleFunc("GET /api/files/assigned/all", fileHandler.AllAssigned)
	mux.HandleFunc("POST /api/files/sync", fileHandler.Sync)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.Details)
	mux.HandleFunc("GET /api/files/{id}/download", fileHandler.Download)
	mux.HandleFunc("GET /api/files/{id}/preview", fileHandler.Preview)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.Delete)
	mux.HandleFunc("PUT /api/files/{id}/status", fileHandler.UpdateStatus)
	mux.HandleFunc("PUT /api/files/{id}/assign", fileHandler.Assign)
	mux.HandleFunc("PUT /api/files/{id}/rename", fileHandler.Rename)
	mux.HandleFunc("PUT /api/files/{id}/move", fileHandler.Move)

	// Version routes
	mux.HandleFunc("GET /api/files/{id}/versions", fileHandler.Versions)
	mux.HandleFunc("GET /api/files/{id}/versions/{versionID}/download", fileHandler.DownloadVersion)
	mux.HandleFunc("POST /api/files/{id}/versions/{versionID}/restore", fileHandler.RestoreVersion)

	// Batch routes
	mux.HandleFunc("POST /api/files/batch/delete", fileHandler.BatchDelete)
	mux.HandleFunc("POST /api/files/batch/move", fileHandler.BatchMove)
	mux.HandleFunc("POST /api/files/batch/assign", fileHandler.BatchAssign)
	mux.HandleFunc("POST /api/files/batch/download", fileHandler.BatchDownload)

	// Directory routes
	mux.HandleFunc("POST /api/directories", fileHandler.CreateDirectory)
	mux.HandleFunc("DELETE /api/directories", fileHandler.DeleteDirectory)
	mux.HandleFunc("GET /api/directories/download", fileHandler.DownloadDirectory)

	// Notification routes
	mux.HandleFunc("GET /api/notifications", notificationHandler.List)
	mux.HandleFunc("GET /api/notifications/unread-count", notificationHandler.UnreadCount)
	mux.HandleFunc("PUT /api/notifications/read-all", notificationHandler.MarkAllRead)
	mux.HandleFunc("PUT /api/notifications/{id}/read", notificationHandler.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", notificationHandler.Delete)
	mux.HandleFunc("DELETE /api/notifications", notificationHandler.DeleteAll)

	// Preferences routes
	mux.HandleFunc("GET /api/preferences", preferencesHandler.Get)
	mux.HandleFunc("PUT /api/preferences", preferencesHandler.Update)

	// Admin dashboard routes
	mux.HandleFunc("GET /api/stats/dashboard", statsHandler.Dashboard)
	mux.HandleFunc("GET /api/activity", statsHandler.Activity)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(tokens)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // disabled so large zip downloads are not cut off
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
