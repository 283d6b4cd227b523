package services

import (
	"context"
	"errors"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type SettingsService struct {
	Helper     *HelperService
	DefaultFee decimal.Decimal
}

func NewSettingsService(helper *HelperService, defaultFee float64) *SettingsService {
	return &SettingsService{Helper: helper, DefaultFee: decimal.NewFromFloat(defaultFee)}
}

// PlatformFeePercentage returns the current platform share (0-100). An unset
// or unreadable value falls back to the configured default.
func (s *SettingsService) PlatformFeePercentage(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.Helper.Ledger.Settings.Get(ctx, models.SettingPlatformFeePercentage)
	if errors.Is(err, common.ErrNotFound) {
		return s.DefaultFee, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	fee, err := decimal.NewFromString(raw)
	if err != nil || fee.IsNegative() || fee.GreaterThan(hundred) {
		s.Helper.Log.WithField("value", raw).Warn("invalid platform fee setting, using default")
		return s.DefaultFee, nil
	}
	return fee, nil
}

type UpdatePlatformFeeDTO struct {
	Percentage decimal.Decimal `json:"percentage"`
	UpdatedBy  string          `json:"-"`
}

func (s *SettingsService) UpdatePlatformFee(ctx context.Context, data UpdatePlatformFeeDTO) (common.Response, error) {
	if data.Percentage.IsNegative() || data.Percentage.GreaterThan(hundred) {
		return common.Response{}, common.NewValidationError("percentage must be between 0 and 100")
	}

	value := data.Percentage.Round(2)
	if err := s.Helper.Ledger.Settings.Set(ctx, models.SettingPlatformFeePercentage, value.String(), data.UpdatedBy); err != nil {
		return common.Response{}, err
	}

	s.Helper.Log.WithFields(map[string]interface{}{
		"percentage": value.String(),
		"updated_by": data.UpdatedBy,
	}).Info("platform fee updated")

	return common.NewSuccessResponse(map[string]interface{}{"percentage": value}, "Platform fee updated"), nil
}
