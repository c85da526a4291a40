package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tollgate/internal/application/billing/dto"
	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/shared/errors"
	"tollgate/internal/shared/logger"
	"tollgate/internal/shared/utils"
)

// OrganizationHandler serves the per-organization billing surface: quota
// checks, operability, plan changes, usage recording and invoice history.
type OrganizationHandler struct {
	checkQuotaUC  *usecases.CheckQuotaUseCase
	trialExpiryUC *usecases.TrialExpiryUseCase
	changePlanUC  *usecases.ChangePlanUseCase
	recordUsageUC *usecases.RecordUsageUseCase
	getOrgUC      *usecases.GetOrganizationUseCase
	listInvUC     *usecases.ListInvoicesUseCase
	logger        logger.Interface
}

func NewOrganizationHandler(
	checkQuotaUC *usecases.CheckQuotaUseCase,
	trialExpiryUC *usecases.TrialExpiryUseCase,
	changePlanUC *usecases.ChangePlanUseCase,
	recordUsageUC *usecases.RecordUsageUseCase,
	getOrgUC *usecases.GetOrganizationUseCase,
	listInvUC *usecases.ListInvoicesUseCase,
	log logger.Interface,
) *OrganizationHandler {
	return &OrganizationHandler{
		checkQuotaUC:  checkQuotaUC,
		trialExpiryUC: trialExpiryUC,
		changePlanUC:  changePlanUC,
		recordUsageUC: recordUsageUC,
		getOrgUC:      getOrgUC,
		listInvUC:     listInvUC,
		logger:        log,
	}
}

func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	org, err := h.getOrgUC.Execute(c.Request.Context(), orgID)
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.NewOrganizationSnapshotResponse(org))
}

func (h *OrganizationHandler) GetQuota(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	result, err := h.checkQuotaUC.Execute(c.Request.Context(), orgID)
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.NewQuotaResponse(result))
}

func (h *OrganizationHandler) CanOperate(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	canOperate, err := h.trialExpiryUC.CanOperate(c.Request.Context(), orgID)
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.CanOperateResponse{
		OrganizationID: orgID,
		CanOperate:     canOperate,
	})
}

func (h *OrganizationHandler) ChangePlan(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for change plan", "error", err)
		utils.HandleAppError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	org, err := h.changePlanUC.Execute(c.Request.Context(), usecases.ChangePlanCommand{
		OrganizationID: orgID,
		NewPlanID:      req.PlanID,
	})
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "plan change accepted", dto.NewOrganizationSnapshotResponse(org))
}

func (h *OrganizationHandler) RecordUsage(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for record usage", "error", err)
		utils.HandleAppError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	result, err := h.recordUsageUC.Execute(c.Request.Context(), usecases.RecordUsageCommand{
		OrganizationID: orgID,
		Count:          req.Count,
		RecordedAt:     req.RecordedAt,
	})
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "", dto.NewQuotaResponse(result))
}

func (h *OrganizationHandler) ListInvoices(c *gin.Context) {
	orgID, ok := h.orgID(c)
	if !ok {
		return
	}

	invoices, err := h.listInvUC.Execute(c.Request.Context(), orgID)
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.NewInvoiceResponseList(invoices))
}

func (h *OrganizationHandler) orgID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.HandleAppError(c, errors.NewValidationError("invalid organization ID"))
		return 0, false
	}
	return uint(id), true
}
