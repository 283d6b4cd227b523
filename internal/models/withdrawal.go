package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Withdrawal struct {
	ID            uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerId       string           `gorm:"column:owner_id;size:64;not null;index:idx_withdrawal_owner" json:"owner_id"`
	Amount        decimal.Decimal  `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	ManualPortion decimal.Decimal  `gorm:"column:manual_portion;type:decimal(20,2);not null;default:0" json:"manual_portion"`
	Reference     string           `gorm:"column:reference;size:64;not null;uniqueIndex:idx_withdrawal_reference" json:"reference"`
	TransferId    string           `gorm:"column:transfer_id;size:64" json:"transfer_id"`
	AccountNumber string           `gorm:"column:account_number;size:50" json:"account_number"`
	AccountName   string           `gorm:"column:account_name;size:255" json:"account_name"`
	BankName      string           `gorm:"column:bank_name;size:150" json:"bank_name"`
	BankCode      string           `gorm:"column:bank_code;size:20" json:"bank_code"`
	Status        WithdrawalStatus `gorm:"column:status;size:20;not null;index:idx_withdrawal_status" json:"status"`
	FailureReason string           `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`
	InitiatedBy   string           `gorm:"column:initiated_by;size:20;not null;default:agent" json:"initiated_by"`
	InitiatorId   string           `gorm:"column:initiator_id;size:64" json:"initiator_id,omitempty"`
	Reason        string           `gorm:"column:reason;size:255" json:"reason,omitempty"`
	Refunded      bool             `gorm:"column:refunded;not null;default:false" json:"refunded"`
	CompletedAt   *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
