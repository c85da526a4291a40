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

// PlanHandler serves the pricing catalog.
type PlanHandler struct {
	listPlansUC *usecases.ListActivePlansUseCase
	logger      logger.Interface
}

func NewPlanHandler(listPlansUC *usecases.ListActivePlansUseCase, log logger.Interface) *PlanHandler {
	return &PlanHandler{
		listPlansUC: listPlansUC,
		logger:      log,
	}
}

// List returns active plans for a market version. Defaults to market
// version 1 when the query parameter is absent.
func (h *PlanHandler) List(c *gin.Context) {
	marketVersion := 1
	if raw := c.Query("market_version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.HandleAppError(c, errors.NewValidationError("invalid market version"))
			return
		}
		marketVersion = parsed
	}

	plans, err := h.listPlansUC.Execute(c.Request.Context(), marketVersion)
	if err != nil {
		utils.HandleAppError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.NewPlanResponseList(plans))
}
