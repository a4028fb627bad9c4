package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/taskforge/taskforge-backend/internal/domain"
)

func seedVersionAt(t *testing.T, e *env, attID uuid.UUID, number int, age time.Duration) *types.FileVersion {
	t.Helper()
	key := NewAttachmentStorageKey(attID)
	e.bucket.objects[key] = []byte("content")
	v := &types.FileVersion{
		ID:            uuid.New(),
		AttachmentID:  attID,
		VersionNumber: number,
		FileName:      fmt.Sprintf("v%d.bin", number),
		StorageKey:    key,
		CreatedAt:     time.Now().Add(-age),
	}
	if _, err := e.versions.Create(testDbc(), v); err != nil {
		t.Fatalf("seed version %d: %v", number, err)
	}
	att, _ := e.attachments.GetByID(testDbc(), attID)
	if number > att.LatestVersionNumber {
		if err := e.attachments.UpdateSummary(testDbc(), attID, number, att.VersionCount+1, v.FileName, v.MimeType, v.SizeBytes); err != nil {
			t.Fatalf("update summary: %v", err)
		}
	}
	return v
}

const day = 24 * time.Hour

func TestEnforceAgePurge(t *testing.T) {
	e := newEnv(t)
	proj := e.seedProject(nil)
	att := e.seedAttachment(nil, uuidPtr(proj.ID))
	if _, err := e.registry.Create(testDbc(), CreatePolicyInput{
		Scope:     types.PolicyScopeProject,
		ProjectID: uuidPtr(proj.ID),
		KeepDays:  intPtr(30),
	}); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	old := seedVersionAt(t, e, att.ID, 1, 40*day)
	seedVersionAt(t, e, att.ID, 2, 5*day)
	seedVersionAt(t, e, att.ID, 3, 0)

	if err := e.enforcer.Enforce(testDbc(), att.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}

	got, err := e.versions.GetByAttachmentID(testDbc(), att.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assertNumbers(t, got, 2, 3)

	deleted := e.bucket.deletedKeys()
	if len(deleted) != 1 || deleted[0] != old.StorageKey {
		t.Fatalf("deleted keys = %v, want [%s]", deleted, old.StorageKey)
	}

	stored, _ := e.attachments.GetByID(testDbc(), att.ID)
	if stored.VersionCount != 2 {
		t.Fatalf("version_count = %d, want 2", stored.VersionCount)
	}
	// The latest pointer is untouched by a purge.
	if stored.LatestVersionNumber != 3 {
		t.Fatalf("latest_version_number = %d, want 3", stored.LatestVersionNumber)
	}
}

func TestEnforceNoPolicyIsNoop(t *testing.T) {
	e := newEnv(t)
	proj := e.seedProject(nil)
	att := e.seedAttachment(nil, uuidPtr(proj.ID))
	seedVersionAt(t, e, att.ID, 1, 400*day)
	seedVersionAt(t, e, att.ID, 2, 0)

	if err := e.enforcer.Enforce(testDbc(), att.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}
	got, _ := e.versions.GetByAttachmentID(testDbc(), att.ID)
	assertNumbers(t, got, 1, 2)
}

func TestEnforceMissingAttachmentIsNoop(t *testing.T) {
	e := newEnv(t)
	if err := e.enforcer.Enforce(testDbc(), uuid.New()); err != nil {
		t.Fatalf("enforce on missing attachment: %v", err)
	}
}

func TestEnforceContentDeleteFailureStillPurgesMetadata(t *testing.T) {
	e := newEnv(t)
	proj := e.seedProject(nil)
	att := e.seedAttachment(nil, uuidPtr(proj.ID))
	if _, err := e.registry.Create(testDbc(), CreatePolicyInput{
		Scope:       types.PolicyScopeProject,
		ProjectID:   uuidPtr(proj.ID),
		MaxVersions: intPtr(1),
	}); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	doomed := seedVersionAt(t, e, att.ID, 1, day)
	seedVersionAt(t, e, att.ID, 2, 0)
	e.bucket.failDelete[doomed.StorageKey] = fmt.Errorf("backend down")

	if err := e.enforcer.Enforce(testDbc(), att.ID); err != nil {
		t.Fatalf("enforce: %v", err)
	}
	got, _ := e.versions.GetByAttachmentID(testDbc(), att.ID)
	assertNumbers(t, got, 2)
}

func TestEnforceIdempotent(t *testing.T) {
	e := newEnv(t)
	proj := e.seedProject(nil)
	att := e.seedAttachment(nil, uuidPtr(proj.ID))
	if _, err := e.registry.Create(testDbc(), CreatePolicyInput{
		Scope:       types.PolicyScopeProject,
		ProjectID:   uuidPtr(proj.ID),
		MaxVersions: intPtr(2),
	}); err != nil {
		t.Fatalf("create policy: %v", err)
	}
	for i := 1; i <= 4; i++ {
		seedVersionAt(t, e, att.ID, i, time.Duration(4-i)*day)
	}

	if err := e.enforcer.Enforce(testDbc(), att.ID); err != nil {
		t.Fatalf("first enforce: %v", err)
	}
	if err := e.enforcer.Enforce(testDbc(), att.ID); err != nil {
		t.Fatalf("second enforce: %v", err)
	}
	got, _ := e.versions.GetByAttachmentID(testDbc(), att.ID)
	assertNumbers(t, got, 3, 4)
	if len(e.bucket.deletedKeys()) != 2 {
		t.Fatalf("deleted keys = %v, want exactly two", e.bucket.deletedKeys())
	}
}

func TestEnforceMany(t *testing.T) {
	e := newEnv(t)
	proj := e.seedProject(nil)
	if _, err := e.registry.Create(testDbc(), CreatePolicyInput{
		Scope:       types.PolicyScopeProject,
		ProjectID:   uuidPtr(proj.ID),
		MaxVersions: intPtr(1),
	}); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		att := e.seedAttachment(nil, uuidPtr(proj.ID))
		seedVersionAt(t, e, att.ID, 1, day)
		seedVersionAt(t, e, att.ID, 2, 0)
		ids = append(ids, att.ID)
	}
	// Vanished attachments count as successes, not failures.
	ids = append(ids, uuid.New())

	res := e.enforcer.EnforceMany(context.Background(), ids)
	if res.Attachments != 6 || res.Succeeded != 6 || res.Failed != 0 {
		t.Fatalf("sweep result = %+v", res)
	}

	for _, id := range ids[:5] {
		got, _ := e.versions.GetByAttachmentID(testDbc(), id)
		assertNumbers(t, got, 2)
	}
}

func TestEnforceManyEmpty(t *testing.T) {
	e := newEnv(t)
	res := e.enforcer.EnforceMany(context.Background(), nil)
	if res.Attachments != 0 || res.Succeeded != 0 || res.Failed != 0 {
		t.Fatalf("sweep result = %+v", res)
	}
}
