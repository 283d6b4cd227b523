package repository

import (
	"context"
	"time"

	"settlement-service/internal/models"

	"gorm.io/gorm"
)

type PaymentAttemptRepository struct {
	DB *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{DB: db}
}

func (r *PaymentAttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *PaymentAttemptRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.DB.WithContext(ctx).Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

func (r *PaymentAttemptRepository) FindPaidByViewing(ctx context.Context, viewingID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.DB.WithContext(ctx).
		Where("viewing_id = ? AND status = ?", viewingID, models.PaymentPaid).
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// MarkPending records that the hosted checkout was created.
func (r *PaymentAttemptRepository) MarkPending(ctx context.Context, reference string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("reference = ? AND status = ?", reference, models.PaymentUnpaid).
		Update("status", models.PaymentPending)
	return result.RowsAffected == 1, result.Error
}

// ClaimPaid is the settlement guard: only the caller that moves the attempt
// into paid gets true.
func (r *PaymentAttemptRepository) ClaimPaid(ctx context.Context, reference string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": models.PaymentPaid}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("reference = ? AND status IN ?", reference, models.ClaimableForSettlement()).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

// MarkFailed moves an unsettled attempt to failed. Paid attempts are untouched.
func (r *PaymentAttemptRepository) MarkFailed(ctx context.Context, reference, reason string) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("reference = ? AND status IN ?", reference, []models.PaymentStatus{models.PaymentUnpaid, models.PaymentPending}).
		Updates(map[string]interface{}{
			"status":         models.PaymentFailed,
			"failure_reason": reason,
		})
	return result.RowsAffected == 1, result.Error
}

func (r *PaymentAttemptRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentPending, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// ListUndisbursed returns settled attempts awaiting manual payout, oldest first.
func (r *PaymentAttemptRepository) ListUndisbursed(ctx context.Context, agentID string) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.DB.WithContext(ctx).
		Where("agent_id = ? AND status = ? AND needs_manual_disbursement = ? AND disbursed = ?", agentID, models.PaymentPaid, true, false).
		Order("paid_at asc, id asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *PaymentAttemptRepository) MarkDisbursed(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id IN ?", ids).
		Update("disbursed", true).Error
}

type undisbursedCount struct {
	AgentId string
	Total   int64
}

// CountUndisbursedByAgent returns agentID -> number of unsplit attempts not
// yet paid out.
func (r *PaymentAttemptRepository) CountUndisbursedByAgent(ctx context.Context) (map[string]int64, error) {
	var rows []undisbursedCount
	err := r.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Select("agent_id, COUNT(*) AS total").
		Where("status = ? AND needs_manual_disbursement = ? AND disbursed = ?", models.PaymentPaid, true, false).
		Group("agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.AgentId] = row.Total
	}
	return counts, nil
}
