package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/shared/logger"
	"tollgate/internal/shared/utils"
)

// AdminHandler exposes operational endpoints. Reconciliation normally runs
// on the daily schedule; the manual trigger exists for catch-up after an
// outage and is safe to repeat because every pass is idempotent.
type AdminHandler struct {
	reconcileUC *usecases.RunDailyReconciliationUseCase
	logger      logger.Interface
}

func NewAdminHandler(reconcileUC *usecases.RunDailyReconciliationUseCase, log logger.Interface) *AdminHandler {
	return &AdminHandler{
		reconcileUC: reconcileUC,
		logger:      log,
	}
}

func (h *AdminHandler) RunReconciliation(c *gin.Context) {
	summary := h.reconcileUC.Execute(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "reconciliation completed", summary)
}
