package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/http/response"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

const defaultSweepLimit = 256

type AdminHandler struct {
	log         *logger.Logger
	attachments services.AttachmentService
	enforcer    services.RetentionEnforcer
	queue       services.RetentionQueue
}

func NewAdminHandler(
	log *logger.Logger,
	attachments services.AttachmentService,
	enforcer services.RetentionEnforcer,
	queue services.RetentionQueue,
) *AdminHandler {
	return &AdminHandler{
		log:         log.With("handler", "AdminHandler"),
		attachments: attachments,
		enforcer:    enforcer,
		queue:       queue,
	}
}

// POST /api/admin/retention/sweep
//
// Drains the dirty queue when one is wired, otherwise sweeps every
// attachment. ?all=true forces the full sweep either way.
func (h *AdminHandler) Sweep(c *gin.Context) {
	ctx := c.Request.Context()
	dbc := dbctx.Context{Ctx: ctx}

	limit := defaultSweepLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, http.StatusBadRequest, "bad_limit", err)
			return
		}
		limit = n
	}
	all := c.Query("all") == "true"

	var ids []uuid.UUID
	var err error
	if !all && h.queue != nil {
		ids, err = h.queue.Drain(ctx, limit)
	} else {
		ids, err = h.attachments.ListIDs(dbc)
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sweep_candidates_failed", err)
		return
	}

	res := h.enforcer.EnforceMany(ctx, ids)
	h.log.Info("retention sweep finished",
		"attachments", res.Attachments,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	response.RespondOK(c, res)
}
