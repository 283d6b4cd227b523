package repository

import (
	"context"

	"settlement-service/internal/models"

	"gorm.io/gorm"
)

type CallbackLogRepository struct {
	DB *gorm.DB
}

func NewCallbackLogRepository(db *gorm.DB) *CallbackLogRepository {
	return &CallbackLogRepository{DB: db}
}

func (r *CallbackLogRepository) Create(ctx context.Context, log *models.CallbackLog) error {
	return r.DB.WithContext(ctx).Create(log).Error
}

func (r *CallbackLogRepository) ListByReference(ctx context.Context, reference string) ([]models.CallbackLog, error) {
	var logs []models.CallbackLog
	err := r.DB.WithContext(ctx).Where("reference = ?", reference).Order("id asc").Find(&logs).Error
	return logs, err
}
