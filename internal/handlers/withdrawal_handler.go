package handlers

import (
	"net/http"

	"settlement-service/internal/middleware"
	"settlement-service/internal/models"
	"settlement-service/internal/services"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RequestWithdrawalOTP(c *gin.Context) {
	var req services.WithdrawalOTPDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.OwnerID = c.GetString(middleware.ContextUserID)

	result, err := h.Withdrawals.RequestOTP(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(result, "OTP sent to your email"))
}

func (h *Handler) Withdraw(c *gin.Context) {
	var req services.WithdrawDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.OwnerID = c.GetString(middleware.ContextUserID)

	withdrawal, err := h.Withdrawals.Withdraw(c.Request.Context(), req)
	if err != nil {
		// Once a withdrawal exists its debit is committed; report its state.
		if withdrawal != nil {
			if withdrawal.Status == models.WithdrawalFailed {
				res := common.ErrorToResponse(err)
				c.JSON(res.Status, common.NewErrorResponse("Withdrawal failed and your wallet has been refunded", withdrawal, res.Status))
				return
			}
			c.JSON(http.StatusAccepted, common.NewSuccessResponse(withdrawal, "Withdrawal is processing").Accepted())
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(withdrawal, "Withdrawal initiated"))
}

func (h *Handler) CancelWithdrawal(c *gin.Context) {
	if err := h.Withdrawals.CancelWithdrawal(c.Request.Context(), c.GetString(middleware.ContextUserID)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Withdrawal cancelled"))
}

func (h *Handler) SetPin(c *gin.Context) {
	var req services.SetPinDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.OwnerID = c.GetString(middleware.ContextUserID)

	if err := h.Security.SetPin(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Transaction PIN saved"))
}

func (h *Handler) RequestPinReset(c *gin.Context) {
	if err := h.Security.RequestPinReset(c.Request.Context(), c.GetString(middleware.ContextUserID)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Reset code sent to your email"))
}

func (h *Handler) ResetPin(c *gin.Context) {
	var req services.ResetPinDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.OwnerID = c.GetString(middleware.ContextUserID)

	if err := h.Security.ResetPin(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Transaction PIN reset"))
}
