package handlers

import (
	"net/http"

	"settlement-service/internal/middleware"
	"settlement-service/internal/models"
	"settlement-service/internal/services"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPendingDisbursements(c *gin.Context) {
	pending, err := h.Disbursements.ListPendingDisbursements(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(pending, "Pending disbursements fetched"))
}

func (h *Handler) ProcessDisbursement(c *gin.Context) {
	var req services.DisbursementDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.AgentID = c.Param("agentId")
	req.AdminID = c.GetString(middleware.ContextUserID)

	withdrawal, err := h.Disbursements.ProcessDisbursement(c.Request.Context(), req)
	if err != nil {
		if withdrawal != nil && withdrawal.Status == models.WithdrawalProcessing {
			c.JSON(http.StatusAccepted, common.NewSuccessResponse(withdrawal, "Disbursement is processing").Accepted())
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(withdrawal, "Disbursement initiated"))
}

func (h *Handler) ProcessBulkDisbursement(c *gin.Context) {
	var req services.BulkDisbursementDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.AdminID = c.GetString(middleware.ContextUserID)

	report, err := h.Disbursements.ProcessBulkDisbursement(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(report, "Bulk disbursement processed"))
}

func (h *Handler) UpdatePlatformFee(c *gin.Context) {
	var req services.UpdatePlatformFeeDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.UpdatedBy = c.GetString(middleware.ContextUserID)

	res, err := h.Settings.UpdatePlatformFee(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RunReconciliation(c *gin.Context) {
	report := h.Reconciliation.RunSweep(c.Request.Context())
	c.JSON(http.StatusOK, common.NewSuccessResponse(report, "Reconciliation sweep finished"))
}
