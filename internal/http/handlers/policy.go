package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/http/response"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

type PolicyHandler struct {
	log      *logger.Logger
	registry services.PolicyRegistry
}

func NewPolicyHandler(log *logger.Logger, registry services.PolicyRegistry) *PolicyHandler {
	return &PolicyHandler{
		log:      log.With("handler", "PolicyHandler"),
		registry: registry,
	}
}

type createPolicyRequest struct {
	Scope       string     `json:"scope"`
	TeamID      *uuid.UUID `json:"team_id"`
	ProjectID   *uuid.UUID `json:"project_id"`
	MaxVersions *int       `json:"max_versions"`
	KeepDays    *int       `json:"keep_days"`
}

type updatePolicyRequest struct {
	MaxVersions *int `json:"max_versions"`
	KeepDays    *int `json:"keep_days"`
}

// POST /api/retention/policies
func (h *PolicyHandler) Create(c *gin.Context) {
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	p, err := h.registry.Create(dbctx.Context{Ctx: c.Request.Context()}, services.CreatePolicyInput{
		Scope:       types.PolicyScope(req.Scope),
		TeamID:      req.TeamID,
		ProjectID:   req.ProjectID,
		MaxVersions: req.MaxVersions,
		KeepDays:    req.KeepDays,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, p)
}

// PATCH /api/retention/policies/:id
func (h *PolicyHandler) Update(c *gin.Context) {
	id, ok := h.policyID(c)
	if !ok {
		return
	}
	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	p, err := h.registry.Update(dbctx.Context{Ctx: c.Request.Context()}, id, services.UpdatePolicyInput{
		MaxVersions: req.MaxVersions,
		KeepDays:    req.KeepDays,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, p)
}

// DELETE /api/retention/policies/:id
func (h *PolicyHandler) Delete(c *gin.Context) {
	id, ok := h.policyID(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// GET /api/retention/policies
func (h *PolicyHandler) List(c *gin.Context) {
	all, err := h.registry.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"policies": all})
}

func (h *PolicyHandler) policyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_policy_id", err)
		return uuid.Nil, false
	}
	return id, true
}
