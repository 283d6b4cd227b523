package repository

import (
	"context"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletRepository struct {
	DB *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{DB: db}
}

func (r *WalletRepository) FindByOwner(ctx context.Context, ownerID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		return nil, notFound(err)
	}
	return &wallet, nil
}

// Ensure returns the owner's wallet, creating an empty active one on first use.
func (r *WalletRepository) Ensure(ctx context.Context, ownerID, payoutEmail string) (*models.Wallet, error) {
	wallet := models.Wallet{
		OwnerId:              ownerID,
		PayoutEmail:          payoutEmail,
		Balance:              decimal.Zero,
		ManualPendingBalance: decimal.Zero,
		Currency:             "NGN",
		Status:               models.WalletActive,
	}
	err := r.DB.WithContext(ctx).
		Where(models.Wallet{OwnerId: ownerID}).
		Attrs(wallet).
		FirstOrCreate(&wallet).Error
	if err != nil {
		// Lost a creation race on the unique owner index.
		if existing, findErr := r.FindByOwner(ctx, ownerID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) Credit(ctx context.Context, ownerID string, amount decimal.Decimal) error {
	return r.update(ctx, r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID), map[string]interface{}{
		"balance": money("balance +", amount),
	})
}

// CreditForManualDisbursement credits funds that landed in the platform
// account and still have to be paid out by an administrator.
func (r *WalletRepository) CreditForManualDisbursement(ctx context.Context, ownerID string, amount decimal.Decimal) error {
	return r.update(ctx, r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID), map[string]interface{}{
		"balance":                money("balance +", amount),
		"manual_pending_balance": money("manual_pending_balance +", amount),
	})
}

// Reserve debits amount and takes the wallet's single withdrawal slot in one
// conditional write. manualPortion is the part of amount drawn from funds
// awaiting manual disbursement; it must be covered by the manual-pending
// balance and is deducted from it too.
func (r *WalletRepository) Reserve(ctx context.Context, ownerID string, amount, manualPortion decimal.Decimal, reference string) error {
	query := r.DB.WithContext(ctx).Model(&models.Wallet{}).
		Where("owner_id = ? AND active_withdrawal_ref = ''", ownerID).
		Where("balance >= CAST(? AS DECIMAL(20,2))", amount.StringFixed(2))
	updates := map[string]interface{}{
		"balance":               money("balance -", amount),
		"active_withdrawal_ref": reference,
	}
	if manualPortion.IsPositive() {
		query = query.Where("manual_pending_balance >= CAST(? AS DECIMAL(20,2))", manualPortion.StringFixed(2))
		updates["manual_pending_balance"] = money("manual_pending_balance -", manualPortion)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	wallet, err := r.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if wallet.ActiveWithdrawalRef != "" {
		return common.ErrWithdrawalInProgress
	}
	return ErrInsufficientFunds
}

// Release frees the withdrawal slot if it is still held by reference.
func (r *WalletRepository) Release(ctx context.Context, ownerID, reference string) error {
	return r.DB.WithContext(ctx).Model(&models.Wallet{}).
		Where("owner_id = ? AND active_withdrawal_ref = ?", ownerID, reference).
		Update("active_withdrawal_ref", "").Error
}

// Refund returns a failed withdrawal's amount, restoring manualPortion to the
// manual-pending balance it was drawn from.
func (r *WalletRepository) Refund(ctx context.Context, ownerID string, amount, manualPortion decimal.Decimal) error {
	updates := map[string]interface{}{
		"balance": money("balance +", amount),
	}
	if manualPortion.IsPositive() {
		updates["manual_pending_balance"] = money("manual_pending_balance +", manualPortion)
	}
	return r.update(ctx, r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID), updates)
}

// SyncBalance overwrites the cached balance with an authoritative value and
// clears the reconciliation flag.
func (r *WalletRepository) SyncBalance(ctx context.Context, ownerID string, balance decimal.Decimal) error {
	return r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID).Updates(map[string]interface{}{
		"balance":              balance,
		"needs_reconciliation": false,
	}).Error
}

func (r *WalletRepository) FlagReconciliation(ctx context.Context, ownerID string) error {
	return r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID).
		Update("needs_reconciliation", true).Error
}

func (r *WalletRepository) SetSubaccount(ctx context.Context, ownerID, subaccountID string) error {
	return r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID).
		Update("subaccount_id", subaccountID).Error
}

type PayoutAccount struct {
	AccountNumber string
	AccountRef    string
	BankCode      string
	BankName      string
	AccountName   string
}

// SetPayoutAccount replaces the destination account. Any subaccount bound to
// the previous account is dropped.
func (r *WalletRepository) SetPayoutAccount(ctx context.Context, ownerID string, account PayoutAccount) error {
	return r.DB.WithContext(ctx).Model(&models.Wallet{}).Where("owner_id = ?", ownerID).Updates(map[string]interface{}{
		"virtual_account_no":  account.AccountNumber,
		"virtual_account_ref": account.AccountRef,
		"bank_code":           account.BankCode,
		"bank_name":           account.BankName,
		"account_name":        account.AccountName,
		"subaccount_id":       "",
	}).Error
}

func (r *WalletRepository) ListNeedingReconciliation(ctx context.Context, limit int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.DB.WithContext(ctx).Where("needs_reconciliation = ?", true).Order("updated_at asc").Limit(limit).Find(&wallets).Error
	return wallets, err
}

func (r *WalletRepository) ListWithManualPending(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.DB.WithContext(ctx).Where("manual_pending_balance > 0").Order("manual_pending_balance desc").Find(&wallets).Error
	return wallets, err
}

func (r *WalletRepository) update(ctx context.Context, query *gorm.DB, updates map[string]interface{}) error {
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}
