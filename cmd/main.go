package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	"github.com/taskforge/taskforge-backend/internal/db"
	serverhttp "github.com/taskforge/taskforge-backend/internal/http"
	httpH "github.com/taskforge/taskforge-backend/internal/http/handlers"
	httpMW "github.com/taskforge/taskforge-backend/internal/http/middleware"
	"github.com/taskforge/taskforge-backend/internal/platform/envutil"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	projectRepo := repos.NewProjectRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	attachmentRepo := repos.NewAttachmentRepo(thePG, log)
	fileVersionRepo := repos.NewFileVersionRepo(thePG, log)
	retentionPolicyRepo := repos.NewRetentionPolicyRepo(thePG, log)

	// Clients
	log.Info("Setting up clients...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	var retentionQueue services.RetentionQueue
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		q, err := services.NewRedisRetentionQueue(log)
		if err != nil {
			log.Warn("Could not init retention queue, sweeps fall back to full scans", "error", err)
		} else {
			retentionQueue = q
			defer retentionQueue.Close()
		}
	}

	// Services
	log.Info("Setting up services...")
	policyRegistry := services.NewPolicyRegistry(thePG, log, retentionPolicyRepo)
	policyResolver := services.NewPolicyResolver(log, taskRepo, projectRepo, retentionPolicyRepo)
	retentionEnforcer := services.NewRetentionEnforcer(thePG, log, bucketService, policyResolver, attachmentRepo, fileVersionRepo)
	versionStore := services.NewVersionStore(thePG, log, bucketService, attachmentRepo, fileVersionRepo, retentionEnforcer, retentionQueue)
	attachmentService := services.NewAttachmentService(thePG, log, bucketService, attachmentRepo, fileVersionRepo, taskRepo, projectRepo)

	// Handlers
	log.Info("Setting up handlers...")
	healthHandler := httpH.NewHealthHandler()
	attachmentHandler := httpH.NewAttachmentHandler(log, bucketService, attachmentService, versionStore, fileVersionRepo)
	policyHandler := httpH.NewPolicyHandler(log, policyRegistry)
	adminHandler := httpH.NewAdminHandler(log, attachmentService, retentionEnforcer, retentionQueue)

	// Middleware
	authMiddleware, err := httpMW.NewAuthMiddleware(log)
	if err != nil {
		log.Error("Could not init AuthMiddleware", "error", err)
		os.Exit(1)
	}

	// Router
	log.Info("Setting up router...")
	server := serverhttp.NewServer(serverhttp.RouterConfig{
		AuthMiddleware:    authMiddleware,
		AttachmentHandler: attachmentHandler,
		PolicyHandler:     policyHandler,
		AdminHandler:      adminHandler,
		HealthHandler:     healthHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
