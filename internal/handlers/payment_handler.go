package handlers

import (
	"net/http"

	"settlement-service/internal/middleware"
	"settlement-service/internal/models"
	"settlement-service/internal/services"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
)

type InitializePaymentRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	result, err := h.Settlement.InitializeFeePayment(c.Request.Context(), services.InitializePaymentDTO{
		ViewingID:   c.Param("id"),
		RequesterID: c.GetString(middleware.ContextUserID),
		Email:       req.Email,
		Name:        req.Name,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(result, "Payment initialized"))
}

type VerifyPaymentRequest struct {
	TxRef string `json:"tx_ref" binding:"required"`
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.Settlement.VerifyFeePayment(c.Request.Context(), req.TxRef)
	if err != nil {
		h.fail(c, err)
		return
	}

	message := "Payment verified"
	switch {
	case result.AlreadyPaid:
		message = "Payment already verified"
	case result.Status != models.PaymentPaid:
		message = "Payment is still pending"
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(result, message))
}
