package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID                   uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerId              string          `gorm:"column:owner_id;size:64;not null;uniqueIndex:idx_wallet_owner" json:"owner_id"`
	PayoutEmail          string          `gorm:"column:payout_email;size:255" json:"payout_email"`
	VirtualAccountNo     string          `gorm:"column:virtual_account_no;size:50" json:"virtual_account_no"`
	VirtualAccountRef    string          `gorm:"column:virtual_account_ref;size:100" json:"virtual_account_ref"`
	BankCode             string          `gorm:"column:bank_code;size:20" json:"bank_code"`
	BankName             string          `gorm:"column:bank_name;size:150" json:"bank_name"`
	AccountName          string          `gorm:"column:account_name;size:255" json:"account_name"`
	SubaccountId         string          `gorm:"column:subaccount_id;size:100" json:"subaccount_id"`
	Balance              decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0" json:"balance"`
	ManualPendingBalance decimal.Decimal `gorm:"column:manual_pending_balance;type:decimal(20,2);not null;default:0" json:"manual_pending_balance"`
	Currency             string          `gorm:"column:currency;size:10;not null;default:NGN" json:"currency"`
	Status               WalletStatus    `gorm:"column:status;size:20;not null;default:active" json:"status"`
	NeedsReconciliation  bool            `gorm:"column:needs_reconciliation;not null;default:false" json:"needs_reconciliation"`
	ActiveWithdrawalRef  string          `gorm:"column:active_withdrawal_ref;size:64;not null;default:''" json:"-"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// HasPayoutAccount reports whether transfers and split payments can target
// this wallet.
func (w Wallet) HasPayoutAccount() bool {
	return w.VirtualAccountNo != "" && w.BankCode != ""
}
