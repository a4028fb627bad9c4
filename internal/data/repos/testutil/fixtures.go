package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/taskforge/taskforge-backend/internal/domain"
)

func SeedTeam(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Team {
	tb.Helper()
	team := &types.Team{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(team).Error; err != nil {
		tb.Fatalf("seed team: %v", err)
	}
	return team
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, teamID *uuid.UUID) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:     uuid.New(),
		TeamID: teamID,
		Name:   "project",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedTask(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID) *types.Task {
	tb.Helper()
	task := &types.Task{
		ID:        uuid.New(),
		ProjectID: projectID,
		Title:     "task",
	}
	if err := tx.WithContext(ctx).Create(task).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return task
}

func SeedAttachment(tb testing.TB, ctx context.Context, tx *gorm.DB, taskID, projectID *uuid.UUID) *types.Attachment {
	tb.Helper()
	att := &types.Attachment{
		ID:        uuid.New(),
		TaskID:    taskID,
		ProjectID: projectID,
		FileName:  "report.pdf",
		MimeType:  "application/pdf",
	}
	if err := tx.WithContext(ctx).Create(att).Error; err != nil {
		tb.Fatalf("seed attachment: %v", err)
	}
	return att
}

func SeedFileVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, attachmentID uuid.UUID, number int, createdAt time.Time) *types.FileVersion {
	tb.Helper()
	v := &types.FileVersion{
		ID:            uuid.New(),
		AttachmentID:  attachmentID,
		VersionNumber: number,
		FileName:      "report.pdf",
		StorageKey:    "attachments/" + attachmentID.String() + "/" + uuid.NewString(),
		MimeType:      "application/pdf",
		SizeBytes:     128,
		CreatedAt:     createdAt,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed file version: %v", err)
	}
	return v
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrInt(v int) *int { return &v }
