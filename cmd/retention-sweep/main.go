package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	"github.com/taskforge/taskforge-backend/internal/db"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/envutil"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

// Out-of-band retention sweep. By default drains the dirty queue and
// enforces only attachments touched since the last run; -all walks
// every attachment instead.
func main() {
	var all bool
	var limit int
	flag.BoolVar(&all, "all", false, "sweep every attachment instead of draining the dirty queue")
	flag.IntVar(&limit, "limit", 1024, "max attachments to drain from the dirty queue")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "production"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	taskRepo := repos.NewTaskRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	attachmentRepo := repos.NewAttachmentRepo(thePG, log)
	fileVersionRepo := repos.NewFileVersionRepo(thePG, log)
	retentionPolicyRepo := repos.NewRetentionPolicyRepo(thePG, log)

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}

	resolver := services.NewPolicyResolver(log, taskRepo, projectRepo, retentionPolicyRepo)
	enforcer := services.NewRetentionEnforcer(thePG, log, bucketService, resolver, attachmentRepo, fileVersionRepo)

	ctx := context.Background()
	var ids []uuid.UUID
	if all {
		ids, err = attachmentRepo.ListIDs(dbctx.Context{Ctx: ctx})
		if err != nil {
			log.Error("list attachments failed", "error", err)
			os.Exit(1)
		}
	} else {
		if strings.TrimSpace(os.Getenv("REDIS_ADDR")) == "" {
			fmt.Println("no REDIS_ADDR configured; run with -all to sweep every attachment")
			os.Exit(1)
		}
		queue, err := services.NewRedisRetentionQueue(log)
		if err != nil {
			log.Error("retention queue init failed", "error", err)
			os.Exit(1)
		}
		defer queue.Close()
		ids, err = queue.Drain(ctx, limit)
		if err != nil {
			log.Error("drain retention queue failed", "error", err)
			os.Exit(1)
		}
	}

	res := enforcer.EnforceMany(ctx, ids)
	fmt.Printf("swept %d attachments: %d succeeded, %d failed\n", res.Attachments, res.Succeeded, res.Failed)
	if res.Failed > 0 {
		if res.LastError != "" {
			fmt.Printf("last error: %s\n", res.LastError)
		}
		os.Exit(1)
	}
}
