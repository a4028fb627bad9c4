package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/taskforge/taskforge-backend/internal/http/handlers"
	httpMW "github.com/taskforge/taskforge-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthMiddleware *httpMW.AuthMiddleware

	AttachmentHandler *httpH.AttachmentHandler
	PolicyHandler     *httpH.PolicyHandler
	AdminHandler      *httpH.AdminHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Attachments and their version chains
		if cfg.AttachmentHandler != nil {
			protected.POST("/attachments", cfg.AttachmentHandler.Create)
			protected.GET("/attachments/:id", cfg.AttachmentHandler.Get)
			protected.DELETE("/attachments/:id", cfg.AttachmentHandler.Delete)
			protected.POST("/attachments/:id/versions", cfg.AttachmentHandler.UploadVersion)
			protected.GET("/attachments/:id/versions", cfg.AttachmentHandler.ListVersions)
			protected.GET("/attachments/:id/versions/:number/download", cfg.AttachmentHandler.DownloadVersion)
			protected.POST("/attachments/:id/rollback", cfg.AttachmentHandler.Rollback)
		}

		// Retention policies
		if cfg.PolicyHandler != nil {
			protected.GET("/retention/policies", cfg.PolicyHandler.List)
			protected.POST("/retention/policies", cfg.PolicyHandler.Create)
			protected.PATCH("/retention/policies/:id", cfg.PolicyHandler.Update)
			protected.DELETE("/retention/policies/:id", cfg.PolicyHandler.Delete)
		}

		// Admin
		if cfg.AdminHandler != nil {
			admin := protected.Group("/admin")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireRole("admin"))
			}
			admin.POST("/retention/sweep", cfg.AdminHandler.Sweep)
		}
	}

	return r
}
