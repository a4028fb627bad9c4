package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

func testDbc() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	attachments map[uuid.UUID]*types.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: map[uuid.UUID]*types.Attachment{}}
}

func (f *fakeAttachmentRepo) Create(dbc dbctx.Context, att *types.Attachment) (*types.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *att
	f.attachments[att.ID] = &cp
	return att, nil
}

func (f *fakeAttachmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.attachments[id]
	if !ok {
		return nil, nil
	}
	cp := *att
	return &cp, nil
}

func (f *fakeAttachmentRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error) {
	return f.GetByID(dbc, id)
}

func (f *fakeAttachmentRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(f.attachments))
	for id := range f.attachments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (f *fakeAttachmentRepo) UpdateSummary(dbc dbctx.Context, id uuid.UUID, latest, count int, fileName, mimeType string, sizeBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.attachments[id]
	if !ok {
		return fmt.Errorf("attachment %s not found", id)
	}
	att.LatestVersionNumber = latest
	att.VersionCount = count
	att.FileName = fileName
	att.MimeType = mimeType
	att.SizeBytes = sizeBytes
	return nil
}

func (f *fakeAttachmentRepo) SetVersionCount(dbc dbctx.Context, id uuid.UUID, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.attachments[id]
	if !ok {
		return fmt.Errorf("attachment %s not found", id)
	}
	att.VersionCount = count
	return nil
}

func (f *fakeAttachmentRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.attachments, id)
	}
	return nil
}

func (f *fakeAttachmentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	return f.SoftDeleteByIDs(dbc, ids)
}

type fakeFileVersionRepo struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*types.FileVersion
}

func newFakeFileVersionRepo() *fakeFileVersionRepo {
	return &fakeFileVersionRepo{versions: map[uuid.UUID]*types.FileVersion{}}
}

func (f *fakeFileVersionRepo) Create(dbc dbctx.Context, v *types.FileVersion) (*types.FileVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.versions {
		if existing.AttachmentID == v.AttachmentID && existing.VersionNumber == v.VersionNumber {
			return nil, fmt.Errorf("duplicate version number %d for attachment %s", v.VersionNumber, v.AttachmentID)
		}
	}
	cp := *v
	f.versions[v.ID] = &cp
	return v, nil
}

func (f *fakeFileVersionRepo) GetByAttachmentID(dbc dbctx.Context, attachmentID uuid.UUID) ([]*types.FileVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.FileVersion
	for _, v := range f.versions {
		if v.AttachmentID == attachmentID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (f *fakeFileVersionRepo) GetByAttachmentAndNumber(dbc dbctx.Context, attachmentID uuid.UUID, versionNumber int) (*types.FileVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.AttachmentID == attachmentID && v.VersionNumber == versionNumber {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeFileVersionRepo) MaxVersionNumber(dbc dbctx.Context, attachmentID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, v := range f.versions {
		if v.AttachmentID == attachmentID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (f *fakeFileVersionRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.versions, id)
	}
	return nil
}

func (f *fakeFileVersionRepo) FullDeleteByAttachmentIDs(dbc dbctx.Context, attachmentIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, v := range f.versions {
		for _, attID := range attachmentIDs {
			if v.AttachmentID == attID {
				delete(f.versions, id)
			}
		}
	}
	return nil
}

type fakeRetentionPolicyRepo struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*types.RetentionPolicy

	// beforeCreate runs between a caller's existence check and the
	// insert, standing in for a concurrent writer.
	beforeCreate func()
}

func newFakeRetentionPolicyRepo() *fakeRetentionPolicyRepo {
	return &fakeRetentionPolicyRepo{policies: map[uuid.UUID]*types.RetentionPolicy{}}
}

func (f *fakeRetentionPolicyRepo) insert(p *types.RetentionPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.policies[p.ID] = &cp
}

func sameTarget(a, b *types.RetentionPolicy) bool {
	if a.Scope != b.Scope {
		return false
	}
	switch a.Scope {
	case types.PolicyScopeTeam:
		return a.TeamID != nil && b.TeamID != nil && *a.TeamID == *b.TeamID
	case types.PolicyScopeProject:
		return a.ProjectID != nil && b.ProjectID != nil && *a.ProjectID == *b.ProjectID
	default:
		return true
	}
}

func (f *fakeRetentionPolicyRepo) Create(dbc dbctx.Context, p *types.RetentionPolicy) (*types.RetentionPolicy, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.policies {
		if sameTarget(existing, p) {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	cp := *p
	f.policies[p.ID] = &cp
	return p, nil
}

func (f *fakeRetentionPolicyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRetentionPolicyRepo) GetGlobal(dbc dbctx.Context) (*types.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		if p.Scope == types.PolicyScopeGlobal {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRetentionPolicyRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) (*types.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		if p.Scope == types.PolicyScopeTeam && p.TeamID != nil && *p.TeamID == teamID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRetentionPolicyRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.policies {
		if p.Scope == types.PolicyScopeProject && p.ProjectID != nil && *p.ProjectID == projectID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRetentionPolicyRepo) UpdateLimits(dbc dbctx.Context, id uuid.UUID, maxVersions, keepDays *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[id]
	if !ok {
		return fmt.Errorf("policy %s not found", id)
	}
	p.MaxVersions = maxVersions
	p.KeepDays = keepDays
	return nil
}

func (f *fakeRetentionPolicyRepo) List(dbc dbctx.Context) ([]*types.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.RetentionPolicy, 0, len(f.policies))
	for _, p := range f.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeRetentionPolicyRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.policies, id)
	}
	return nil
}

type fakeTaskRepo struct {
	tasks map[uuid.UUID]*types.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[uuid.UUID]*types.Task{}}
}

func (f *fakeTaskRepo) Create(dbc dbctx.Context, task *types.Task) (*types.Task, error) {
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return task, nil
}

func (f *fakeTaskRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.tasks, id)
	}
	return nil
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*types.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[uuid.UUID]*types.Project{}}
}

func (f *fakeProjectRepo) Create(dbc dbctx.Context, project *types.Project) (*types.Project, error) {
	f.projects[project.ID] = project
	return project, nil
}

func (f *fakeProjectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	return project, nil
}

func (f *fakeProjectRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.projects, id)
	}
	return nil
}

// fakeBucket records object operations; per-key errors simulate backend
// outages.
type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	copies     [][2]string
	failDelete map[string]error
	failCopy   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		objects:    map[string][]byte{},
		failDelete: map[string]error{},
	}
}

func (f *fakeBucket) UploadObject(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBucket) DownloadObject(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeBucket) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failDelete[key]; ok {
		return err
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBucket) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCopy != nil {
		return f.failCopy
	}
	data, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %q not found", srcKey)
	}
	f.objects[dstKey] = append([]byte(nil), data...)
	f.copies = append(f.copies, [2]string{srcKey, dstKey})
	return nil
}

func (f *fakeBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBucket) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := f.ListKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		_ = f.DeleteObject(ctx, k)
	}
	return nil
}

func (f *fakeBucket) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeRetentionQueue struct {
	mu     sync.Mutex
	marked []uuid.UUID
}

func (f *fakeRetentionQueue) Mark(ctx context.Context, attachmentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, attachmentID)
	return nil
}

func (f *fakeRetentionQueue) Drain(ctx context.Context, max int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if max > len(f.marked) {
		max = len(f.marked)
	}
	out := append([]uuid.UUID(nil), f.marked[:max]...)
	f.marked = f.marked[max:]
	return out, nil
}

func (f *fakeRetentionQueue) Close() error { return nil }

// failingEnforcer stands in where enforcement must not affect outcomes.
type failingEnforcer struct {
	calls int
}

func (e *failingEnforcer) Enforce(dbc dbctx.Context, attachmentID uuid.UUID) error {
	e.calls++
	return fmt.Errorf("enforcement unavailable")
}

func (e *failingEnforcer) EnforceMany(ctx context.Context, ids []uuid.UUID) SweepResult {
	return SweepResult{Attachments: len(ids), Failed: len(ids)}
}

// env bundles the fakes plus fully wired services for unit tests. No
// gorm DB is attached, so withTx runs callbacks directly.
type env struct {
	attachments *fakeAttachmentRepo
	versions    *fakeFileVersionRepo
	policies    *fakeRetentionPolicyRepo
	tasks       *fakeTaskRepo
	projects    *fakeProjectRepo
	bucket      *fakeBucket
	queue       *fakeRetentionQueue

	resolver PolicyResolver
	enforcer RetentionEnforcer
	registry PolicyRegistry
	store    VersionStore
	service  AttachmentService
}

func newEnv(tb testing.TB) *env {
	tb.Helper()
	log := testLogger(tb)

	e := &env{
		attachments: newFakeAttachmentRepo(),
		versions:    newFakeFileVersionRepo(),
		policies:    newFakeRetentionPolicyRepo(),
		tasks:       newFakeTaskRepo(),
		projects:    newFakeProjectRepo(),
		bucket:      newFakeBucket(),
		queue:       &fakeRetentionQueue{},
	}
	e.resolver = NewPolicyResolver(log, e.tasks, e.projects, e.policies)
	e.enforcer = NewRetentionEnforcer(nil, log, e.bucket, e.resolver, e.attachments, e.versions)
	e.registry = NewPolicyRegistry(nil, log, e.policies)
	e.store = NewVersionStore(nil, log, e.bucket, e.attachments, e.versions, e.enforcer, e.queue)
	e.service = NewAttachmentService(nil, log, e.bucket, e.attachments, e.versions, e.tasks, e.projects)
	return e
}

func (e *env) seedProject(teamID *uuid.UUID) *types.Project {
	p := &types.Project{ID: uuid.New(), TeamID: teamID, Name: "project"}
	e.projects.projects[p.ID] = p
	return p
}

func (e *env) seedTask(projectID uuid.UUID) *types.Task {
	t := &types.Task{ID: uuid.New(), ProjectID: projectID, Title: "task"}
	e.tasks.tasks[t.ID] = t
	return t
}

func (e *env) seedAttachment(taskID, projectID *uuid.UUID) *types.Attachment {
	att := &types.Attachment{
		ID:        uuid.New(),
		TaskID:    taskID,
		ProjectID: projectID,
		FileName:  "design.pdf",
		MimeType:  "application/pdf",
	}
	e.attachments.attachments[att.ID] = att
	return att
}

func intPtr(n int) *int { return &n }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
