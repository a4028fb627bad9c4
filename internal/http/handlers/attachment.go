package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	"github.com/taskforge/taskforge-backend/internal/http/response"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

type AttachmentHandler struct {
	log         *logger.Logger
	bucket      gcp.BucketService
	attachments services.AttachmentService
	store       services.VersionStore
	versions    repos.FileVersionRepo
}

func NewAttachmentHandler(
	log *logger.Logger,
	bucket gcp.BucketService,
	attachments services.AttachmentService,
	store services.VersionStore,
	versions repos.FileVersionRepo,
) *AttachmentHandler {
	return &AttachmentHandler{
		log:         log.With("handler", "AttachmentHandler"),
		bucket:      bucket,
		attachments: attachments,
		store:       store,
		versions:    versions,
	}
}

type createAttachmentRequest struct {
	TaskID    *uuid.UUID     `json:"task_id"`
	ProjectID *uuid.UUID     `json:"project_id"`
	FileName  string         `json:"file_name"`
	MimeType  string         `json:"mime_type"`
	Metadata  datatypes.JSON `json:"metadata"`
}

// POST /api/attachments
func (h *AttachmentHandler) Create(c *gin.Context) {
	var req createAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	att, err := h.attachments.Create(dbctx.Context{Ctx: c.Request.Context()}, services.CreateAttachmentInput{
		TaskID:    req.TaskID,
		ProjectID: req.ProjectID,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Metadata:  req.Metadata,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, att)
}

// GET /api/attachments/:id
func (h *AttachmentHandler) Get(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}
	att, err := h.attachments.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, att)
}

// DELETE /api/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}
	if err := h.attachments.Delete(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// POST /api/attachments/:id/versions
//
// Multipart upload: the bytes land in the bucket under a fresh key
// first, then the version row is appended. A failed append removes the
// freshly written object.
func (h *AttachmentHandler) UploadVersion(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_file", err)
		return
	}
	defer f.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := services.NewAttachmentStorageKey(id)
	if err := h.bucket.UploadObject(c.Request.Context(), key, f); err != nil {
		response.RespondError(c, http.StatusBadGateway, "upload_failed", err)
		return
	}

	v, err := h.store.AppendVersion(dbctx.Context{Ctx: c.Request.Context()}, id, services.ContentDescriptor{
		FileName:   fileHeader.Filename,
		StorageKey: key,
		MimeType:   mimeType,
		SizeBytes:  fileHeader.Size,
	})
	if err != nil {
		if dErr := h.bucket.DeleteObject(c.Request.Context(), key); dErr != nil {
			h.log.Warn("orphan object cleanup failed", "storage_key", key, "error", dErr)
		}
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, v)
}

// GET /api/attachments/:id/versions
func (h *AttachmentHandler) ListVersions(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}
	chain, err := h.store.ListVersions(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": chain})
}

// GET /api/attachments/:id/versions/:number/download
func (h *AttachmentHandler) DownloadVersion(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		response.RespondError(c, http.StatusBadRequest, "bad_version_number", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	v, err := h.versions.GetByAttachmentAndNumber(dbc, id, number)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if v == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}

	rc, err := h.bucket.DownloadObject(c.Request.Context(), v.StorageKey)
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "download_failed", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+v.FileName+`"`)
	c.DataFromReader(http.StatusOK, v.SizeBytes, v.MimeType, rc, nil)
}

type rollbackRequest struct {
	VersionNumber int `json:"version_number"`
}

// POST /api/attachments/:id/rollback
func (h *AttachmentHandler) Rollback(c *gin.Context) {
	id, ok := h.attachmentID(c)
	if !ok {
		return
	}
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	v, err := h.store.RollbackTo(dbctx.Context{Ctx: c.Request.Context()}, id, req.VersionNumber)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, v)
}

func (h *AttachmentHandler) attachmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_attachment_id", err)
		return uuid.Nil, false
	}
	return id, true
}
