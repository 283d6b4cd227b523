package models

import "time"

const SettingPlatformFeePercentage = "platform_fee_percentage"

type PlatformSetting struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"column:setting_key;size:100;not null;uniqueIndex:idx_setting_key" json:"key"`
	Value     string    `gorm:"column:value;size:255;not null" json:"value"`
	UpdatedBy string    `gorm:"column:updated_by;size:64" json:"updated_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PlatformSetting) TableName() string {
	return "platform_settings"
}
