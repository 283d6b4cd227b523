package repository

import (
	"context"

	"settlement-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	DB *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{DB: db}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var setting models.PlatformSetting
	if err := r.DB.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return "", notFound(err)
	}
	return setting.Value, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value, updatedBy string) error {
	setting := models.PlatformSetting{Key: key, Value: value, UpdatedBy: updatedBy}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&setting).Error
}
