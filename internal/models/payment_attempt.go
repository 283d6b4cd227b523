package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentAttempt tracks one viewing-fee charge. Reference joins the
// synchronous verify path and the webhook path.
type PaymentAttempt struct {
	ID                      uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference               string          `gorm:"column:reference;size:64;not null;uniqueIndex:idx_attempt_reference" json:"reference"`
	ViewingId               string          `gorm:"column:viewing_id;size:64;not null;index:idx_attempt_viewing" json:"viewing_id"`
	HouseId                 string          `gorm:"column:house_id;size:64" json:"house_id"`
	AgentId                 string          `gorm:"column:agent_id;size:64;not null;index:idx_attempt_agent" json:"agent_id"`
	PayerId                 string          `gorm:"column:payer_id;size:64" json:"payer_id"`
	PayerEmail              string          `gorm:"column:payer_email;size:255" json:"payer_email"`
	Amount                  decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Currency                string          `gorm:"column:currency;size:10;not null;default:NGN" json:"currency"`
	Status                  PaymentStatus   `gorm:"column:status;size:20;not null;index:idx_attempt_status" json:"status"`
	SplitUsed               bool            `gorm:"column:split_used;not null;default:false" json:"split_used"`
	SubaccountId            string          `gorm:"column:subaccount_id;size:100" json:"subaccount_id,omitempty"`
	NetAmount               decimal.Decimal `gorm:"column:net_amount;type:decimal(20,2);not null;default:0" json:"net_amount"`
	NeedsManualDisbursement bool            `gorm:"column:needs_manual_disbursement;not null;default:false" json:"needs_manual_disbursement"`
	Disbursed               bool            `gorm:"column:disbursed;not null;default:false" json:"disbursed"`
	GatewayTransactionId    string          `gorm:"column:gateway_transaction_id;size:64" json:"gateway_transaction_id,omitempty"`
	FailureReason           string          `gorm:"column:failure_reason;size:255" json:"failure_reason,omitempty"`
	PaidAt                  *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
