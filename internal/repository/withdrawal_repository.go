package repository

import (
	"context"
	"time"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	DB *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{DB: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.DB.WithContext(ctx).Create(withdrawal).Error
}

func (r *WithdrawalRepository) FindByReference(ctx context.Context, reference string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.DB.WithContext(ctx).Where("reference = ?", reference).First(&withdrawal).Error; err != nil {
		return nil, notFound(err)
	}
	return &withdrawal, nil
}

// Transition moves a withdrawal from one status to another. It reports false
// when the row was no longer in the expected status.
func (r *WithdrawalRepository) Transition(ctx context.Context, reference string, from, to models.WithdrawalStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("reference = ? AND status = ?", reference, from).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

// ClaimRefund flips the refunded flag on a failed withdrawal exactly once.
func (r *WithdrawalRepository) ClaimRefund(ctx context.Context, reference string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("reference = ? AND status = ? AND refunded = ?", reference, models.WithdrawalFailed, false).
		Update("refunded", true)
	return result.RowsAffected == 1, result.Error
}

func (r *WithdrawalRepository) SetTransferId(ctx context.Context, reference, transferID string) error {
	return r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("reference = ?", reference).
		Update("transfer_id", transferID).Error
}

func (r *WithdrawalRepository) ListByOwner(ctx context.Context, ownerID string, page common.Page) ([]models.Withdrawal, int64, error) {
	var (
		withdrawals []models.Withdrawal
		total       int64
	)
	query := r.DB.WithContext(ctx).Model(&models.Withdrawal{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.Size).Find(&withdrawals).Error
	return withdrawals, total, err
}

// ListStaleProcessing returns processing withdrawals created before cutoff.
func (r *WithdrawalRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.WithdrawalProcessing, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&withdrawals).Error
	return withdrawals, err
}

// SumSplitFundedInFlight totals the non-terminal withdrawals' amounts that
// were not drawn from manual-pending funds.
func (r *WithdrawalRepository) SumSplitFundedInFlight(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
		Select("COALESCE(SUM(amount - manual_portion), 0)").
		Where("owner_id = ? AND status IN ?", ownerID, models.NonTerminalWithdrawalStatuses).
		Row().Scan(&total)
	return total, err
}

func (r *WithdrawalRepository) SumByOwnerAndStatus(ctx context.Context, ownerID string, statuses ...models.WithdrawalStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.WithContext(ctx).Model(&models.Withdrawal{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("owner_id = ? AND status IN ?", ownerID, statuses).
		Row().Scan(&total)
	return total, err
}
