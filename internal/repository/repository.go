package repository

import (
	"context"
	"errors"

	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientFunds is returned by conditional debits whose balance guard
// did not hold.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger groups the repositories that make up the durable ledger. A Ledger
// built from a transaction handle only ever touches that transaction.
type Ledger struct {
	DB           *gorm.DB
	Wallets      *WalletRepository
	Earnings     *EarningRepository
	Withdrawals  *WithdrawalRepository
	Attempts     *PaymentAttemptRepository
	Credentials  *CredentialRepository
	Settings     *SettingRepository
	CallbackLogs *CallbackLogRepository
	Banks        *BankRepository
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		DB:           db,
		Wallets:      NewWalletRepository(db),
		Earnings:     NewEarningRepository(db),
		Withdrawals:  NewWithdrawalRepository(db),
		Attempts:     NewPaymentAttemptRepository(db),
		Credentials:  NewCredentialRepository(db),
		Settings:     NewSettingRepository(db),
		CallbackLogs: NewCallbackLogRepository(db),
		Banks:        NewBankRepository(db),
	}
}

// Transaction runs fn inside a database transaction. fn must only use the
// Ledger it is given.
func (l *Ledger) Transaction(ctx context.Context, fn func(tx *Ledger) error) error {
	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewLedger(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound
	}
	return err
}

// money keeps arithmetic in DECIMAL on both MySQL and SQLite.
func money(expr string, amount decimal.Decimal) interface{} {
	return gorm.Expr(expr+" CAST(? AS DECIMAL(20,2))", amount.StringFixed(2))
}

