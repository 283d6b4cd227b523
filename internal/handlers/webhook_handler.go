package handlers

import (
	"context"
	"io"
	"net/http"

	"settlement-service/internal/services"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader = "verif-hash"
	maxWebhookBody  = 1 << 20
)

func (h *Handler) TransferWebhook(c *gin.Context) {
	h.webhook(c, h.Webhooks.HandleTransferEvent)
}

func (h *Handler) ChargeWebhook(c *gin.Context) {
	h.webhook(c, h.Webhooks.HandleChargeEvent)
}

func (h *Handler) webhook(c *gin.Context, handle func(context.Context, services.WebhookDTO) error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	err = handle(c.Request.Context(), services.WebhookDTO{
		Signature: c.GetHeader(signatureHeader),
		Body:      body,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Webhook received"))
}
