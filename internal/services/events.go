package services

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicPaymentSettled        = "payment.settled"
	TopicWithdrawalCompleted   = "withdrawal.completed"
	TopicWithdrawalFailed      = "withdrawal.failed"
	TopicDisbursementProcessed = "disbursement.processed"
)

type PaymentSettledEvent struct {
	Reference      string          `json:"reference"`
	ViewingId      string          `json:"viewingId"`
	HouseId        string          `json:"houseId"`
	AgentId        string          `json:"agentId"`
	GrossAmount    decimal.Decimal `json:"grossAmount"`
	PlatformFee    decimal.Decimal `json:"platformFee"`
	PlatformAmount decimal.Decimal `json:"platformAmount"`
	NetAmount      decimal.Decimal `json:"netAmount"`
	SplitUsed      bool            `json:"splitUsed"`
	SettledAt      time.Time       `json:"settledAt"`
}

type WithdrawalEvent struct {
	Reference     string          `json:"reference"`
	OwnerId       string          `json:"ownerId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	InitiatedBy   string          `json:"initiatedBy"`
	FailureReason string          `json:"failureReason,omitempty"`
	Refunded      bool            `json:"refunded"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
