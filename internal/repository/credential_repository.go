package repository

import (
	"context"
	"time"

	"settlement-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepository struct {
	DB *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{DB: db}
}

func (r *CredentialRepository) FindByOwner(ctx context.Context, ownerID string) (*models.SecurityCredential, error) {
	var credential models.SecurityCredential
	if err := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID).First(&credential).Error; err != nil {
		return nil, notFound(err)
	}
	return &credential, nil
}

// SetPin stores a new PIN hash and clears the attempt counter, lock and any
// outstanding reset code.
func (r *CredentialRepository) SetPin(ctx context.Context, ownerID, pinHash string) error {
	credential := models.SecurityCredential{OwnerId: ownerID, PinHash: pinHash}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"pin_hash":              pinHash,
			"failed_attempts":       0,
			"locked_until":          nil,
			"reset_code_hash":       "",
			"reset_code_expires_at": nil,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now().UTC(),
		}),
	}).Create(&credential).Error
}

// CompareAndSwap applies updates only if the row is still at version. It
// reports false when another writer got there first.
func (r *CredentialRepository) CompareAndSwap(ctx context.Context, ownerID string, version int64, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"version": gorm.Expr("version + 1")}
	for k, v := range updates {
		values[k] = v
	}
	result := r.DB.WithContext(ctx).Model(&models.SecurityCredential{}).
		Where("owner_id = ? AND version = ?", ownerID, version).
		Updates(values)
	return result.RowsAffected == 1, result.Error
}

func (r *CredentialRepository) SetResetCode(ctx context.Context, ownerID, codeHash string, expiresAt time.Time) error {
	result := r.DB.WithContext(ctx).Model(&models.SecurityCredential{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"reset_code_hash":       codeHash,
			"reset_code_expires_at": expiresAt,
			"version":               gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound)
	}
	return nil
}
