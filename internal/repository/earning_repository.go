package repository

import (
	"context"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EarningRepository struct {
	DB *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{DB: db}
}

// Create inserts an earning. The unique reference index rejects a second
// earning for the same payment.
func (r *EarningRepository) Create(ctx context.Context, earning *models.Earning) error {
	return r.DB.WithContext(ctx).Create(earning).Error
}

func (r *EarningRepository) FindByReference(ctx context.Context, reference string) (*models.Earning, error) {
	var earning models.Earning
	if err := r.DB.WithContext(ctx).Where("reference = ?", reference).First(&earning).Error; err != nil {
		return nil, notFound(err)
	}
	return &earning, nil
}

func (r *EarningRepository) CountByReference(ctx context.Context, reference string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Earning{}).Where("reference = ?", reference).Count(&count).Error
	return count, err
}

func (r *EarningRepository) ListByOwner(ctx context.Context, ownerID string, page common.Page) ([]models.Earning, int64, error) {
	var (
		earnings []models.Earning
		total    int64
	)
	query := r.DB.WithContext(ctx).Model(&models.Earning{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.Size).Find(&earnings).Error
	return earnings, total, err
}

func (r *EarningRepository) SumByOwner(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.WithContext(ctx).Model(&models.Earning{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("owner_id = ?", ownerID).
		Row().Scan(&total)
	return total, err
}
