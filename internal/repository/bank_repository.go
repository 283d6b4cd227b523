package repository

import (
	"context"

	"settlement-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankRepository struct {
	DB *gorm.DB
}

func NewBankRepository(db *gorm.DB) *BankRepository {
	return &BankRepository{DB: db}
}

func (r *BankRepository) FindByCode(ctx context.Context, code string) (*models.Bank, error) {
	var bank models.Bank
	if err := r.DB.WithContext(ctx).Where("code = ? AND status = ?", code, 1).First(&bank).Error; err != nil {
		return nil, notFound(err)
	}
	return &bank, nil
}

func (r *BankRepository) List(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	err := r.DB.WithContext(ctx).Where("status = ?", 1).Order("name asc").Find(&banks).Error
	return banks, err
}

// Upsert inserts banks and refreshes the name of codes already present.
func (r *BankRepository) Upsert(ctx context.Context, banks []models.Bank) error {
	if len(banks) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "slug", "updated_at"}),
	}).CreateInBatches(banks, 100).Error
}
