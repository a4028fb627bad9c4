package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	"github.com/taskforge/taskforge-backend/internal/platform/ctxutil"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

const sweepConcurrency = 4

// SweepResult aggregates a batch enforcement run. Per-attachment
// failures are isolated and counted, never surfaced as one batch-
// ending error.
type SweepResult struct {
	Attachments int    `json:"attachments"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	LastError   string `json:"last_error,omitempty"`
}

// RetentionEnforcer trims a version chain to its effective policy.
// Enforce is idempotent and serialized per attachment against
// concurrent appends and rollbacks via the attachment row lock.
type RetentionEnforcer interface {
	Enforce(dbc dbctx.Context, attachmentID uuid.UUID) error
	EnforceMany(ctx context.Context, attachmentIDs []uuid.UUID) SweepResult
}

type retentionEnforcer struct {
	db          *gorm.DB
	log         *logger.Logger
	bucket      gcp.BucketService
	resolver    PolicyResolver
	attachments repos.AttachmentRepo
	versions    repos.FileVersionRepo
}

func NewRetentionEnforcer(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	resolver PolicyResolver,
	attachments repos.AttachmentRepo,
	versions repos.FileVersionRepo,
) RetentionEnforcer {
	serviceLog := baseLog.With("service", "RetentionEnforcer")
	return &retentionEnforcer{
		db:          db,
		log:         serviceLog,
		bucket:      bucket,
		resolver:    resolver,
		attachments: attachments,
		versions:    versions,
	}
}

func (s *retentionEnforcer) Enforce(dbc dbctx.Context, attachmentID uuid.UUID) error {
	return withTx(s.db, dbc, func(txc dbctx.Context) error {
		att, err := s.attachments.GetByIDForUpdate(txc, attachmentID)
		if err != nil {
			return err
		}
		if att == nil {
			// Attachment gone; nothing to enforce.
			return nil
		}

		policy, err := s.resolver.Resolve(txc, att)
		if err != nil {
			return err
		}
		if policy == nil {
			return nil
		}

		versions, err := s.versions.GetByAttachmentID(txc, attachmentID)
		if err != nil {
			return err
		}
		// The sole version is always the latest and is protected.
		if len(versions) < 2 {
			return nil
		}

		candidates := selectPurgeCandidates(versions, policy.MaxVersions, policy.KeepDays, time.Now())
		if len(candidates) == 0 {
			return nil
		}

		// Content deletes are best-effort: a failed object delete is
		// logged and the metadata row is removed regardless, trading a
		// potential storage leak for a purge-accurate version listing.
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, v := range candidates {
			if s.bucket != nil && v.StorageKey != "" {
				if err := s.bucket.DeleteObject(ctxutil.Default(txc.Ctx), v.StorageKey); err != nil {
					s.log.Warn("purge: content delete failed, removing metadata anyway",
						"attachment_id", attachmentID,
						"version_number", v.VersionNumber,
						"storage_key", v.StorageKey,
						"error", err,
					)
				}
			}
			ids = append(ids, v.ID)
		}

		if err := s.versions.FullDeleteByIDs(txc, ids); err != nil {
			return err
		}
		if err := s.attachments.SetVersionCount(txc, attachmentID, len(versions)-len(ids)); err != nil {
			return err
		}

		s.log.Info("retention purge applied",
			"attachment_id", attachmentID,
			"policy_id", policy.ID,
			"purged", len(ids),
			"retained", len(versions)-len(ids),
		)
		return nil
	})
}

func (s *retentionEnforcer) EnforceMany(ctx context.Context, attachmentIDs []uuid.UUID) SweepResult {
	res := SweepResult{Attachments: len(attachmentIDs)}
	if len(attachmentIDs) == 0 {
		return res
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, id := range attachmentIDs {
		id := id
		g.Go(func() error {
			err := s.Enforce(dbctx.Context{Ctx: gctx}, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.LastError = err.Error()
				s.log.Error("sweep: enforcement failed", "attachment_id", id, "error", err)
			} else {
				res.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}
