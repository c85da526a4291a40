// Package http wires the billing HTTP surface onto a gin engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tollgate/internal/infrastructure/config"
	"tollgate/internal/interfaces/http/handlers"
	"tollgate/internal/interfaces/http/middleware"
	"tollgate/internal/shared/logger"
	"tollgate/internal/shared/utils"
)

type Router struct {
	engine       *gin.Engine
	orgHandler   *handlers.OrganizationHandler
	planHandler  *handlers.PlanHandler
	adminHandler *handlers.AdminHandler
	logger       logger.Interface
}

func NewRouter(
	orgHandler *handlers.OrganizationHandler,
	planHandler *handlers.PlanHandler,
	adminHandler *handlers.AdminHandler,
	log logger.Interface,
) *Router {
	return &Router{
		engine:       gin.New(),
		orgHandler:   orgHandler,
		planHandler:  planHandler,
		adminHandler: adminHandler,
		logger:       log,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes(cfg *config.Config) {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.engine.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "ok", nil)
	})

	api := r.engine.Group("/api")
	{
		organizations := api.Group("/organizations")
		{
			organizations.GET("/:id", r.orgHandler.Get)
			organizations.GET("/:id/quota", r.orgHandler.GetQuota)
			organizations.GET("/:id/can-operate", r.orgHandler.CanOperate)
			organizations.PUT("/:id/plan", r.orgHandler.ChangePlan)
			organizations.POST("/:id/usage", r.orgHandler.RecordUsage)
			organizations.GET("/:id/invoices", r.orgHandler.ListInvoices)
		}

		api.GET("/plans", r.planHandler.List)

		admin := api.Group("/admin")
		{
			admin.POST("/reconciliation/run", r.adminHandler.RunReconciliation)
		}
	}
}

// GetEngine returns the underlying gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
