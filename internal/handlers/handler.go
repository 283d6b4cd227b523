package handlers

import (
	"net/http"
	"strconv"

	"settlement-service/internal/middleware"
	"settlement-service/internal/services"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Settlement     *services.SettlementService
	Wallets        *services.WalletService
	Withdrawals    *services.WithdrawalService
	Security       *services.SecurityService
	Disbursements  *services.DisbursementService
	Webhooks       *services.WebhookService
	Settings       *services.SettingsService
	Reconciliation *services.ReconciliationService
	Log            *logrus.Entry
}

// RegisterRoutes mounts the public, agent, admin and webhook routes.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.Authenticator) {
	r.GET("/banks", h.ListBanks)

	viewings := r.Group("/viewings")
	viewings.POST("/:id/payment/initialize", auth.OptionalAuth(), h.InitializePayment)
	viewings.POST("/payment/verify", h.VerifyPayment)

	agents := r.Group("/agents/me", auth.RequireAuth())
	agents.GET("/wallet", h.GetWallet)
	agents.PUT("/wallet/payout-account", h.UpdatePayoutAccount)
	agents.GET("/earnings", h.ListEarnings)
	agents.GET("/withdrawals", h.ListWithdrawals)
	agents.POST("/withdraw/request-otp", h.RequestWithdrawalOTP)
	agents.POST("/withdraw", h.Withdraw)
	agents.POST("/withdraw/cancel", h.CancelWithdrawal)
	agents.POST("/transaction-pin", h.SetPin)
	agents.POST("/transaction-pin/request-reset", h.RequestPinReset)
	agents.POST("/transaction-pin/reset", h.ResetPin)

	admin := r.Group("/admin", auth.RequireAuth(), middleware.RequireRoles("admin"))
	admin.GET("/disbursements/pending", h.ListPendingDisbursements)
	admin.POST("/disbursements/process/:agentId", h.ProcessDisbursement)
	admin.POST("/disbursements/process-bulk", h.ProcessBulkDisbursement)
	admin.PUT("/settings/platform-fee", h.UpdatePlatformFee)
	admin.POST("/reconciliation/run", h.RunReconciliation)

	webhooks := r.Group("/webhooks/flutterwave")
	webhooks.POST("/transfer", h.TransferWebhook)
	webhooks.POST("/charge", h.ChargeWebhook)
}

// fail writes err as an error response. Server-side failures are logged
// since their detail never reaches the caller.
func (h *Handler) fail(c *gin.Context, err error) {
	res := common.ErrorToResponse(err)
	if res.Status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
	}
	c.JSON(res.Status, res)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid request body", gin.H{"error": err.Error()}, http.StatusBadRequest))
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
