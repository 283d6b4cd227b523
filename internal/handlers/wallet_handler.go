package handlers

import (
	"net/http"

	"settlement-service/internal/middleware"
	"settlement-service/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetWallet(c *gin.Context) {
	res, err := h.Wallets.GetWalletSummary(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListEarnings(c *gin.Context) {
	page, limit := pagination(c)
	res, err := h.Wallets.ListEarnings(c.Request.Context(), services.ListDTO{
		OwnerID: c.GetString(middleware.ContextUserID),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	page, limit := pagination(c)
	res, err := h.Wallets.ListWithdrawals(c.Request.Context(), services.ListDTO{
		OwnerID: c.GetString(middleware.ContextUserID),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdatePayoutAccount(c *gin.Context) {
	var req services.UpdatePayoutAccountDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.OwnerID = c.GetString(middleware.ContextUserID)
	if req.Email == "" {
		req.Email = c.GetString(middleware.ContextEmail)
	}

	res, err := h.Wallets.UpdatePayoutAccount(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListBanks(c *gin.Context) {
	res, err := h.Wallets.ListBanks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
