package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeEmailDelivery = "email-delivery"
)

// Email templates
const (
	TemplatePaymentReceipt      = "payment_receipt"
	TemplatePaymentReceived     = "payment_received"
	TemplateWithdrawalOTP       = "withdrawal_otp"
	TemplatePinReset            = "pin_reset"
	TemplateWithdrawalCompleted = "withdrawal_completed"
	TemplateWithdrawalFailed    = "withdrawal_failed"
	TemplateDisbursement        = "disbursement"
)

type EmailPayload struct {
	To          string                 `json:"to"`
	Template    string                 `json:"template"`
	Data        map[string]interface{} `json:"data"`
	RequestedAt time.Time              `json:"requestedAt"`
}

func NewEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailDelivery, data), nil
}
