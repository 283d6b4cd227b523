package models

import "time"

// SecurityCredential holds the transaction PIN for one owner. Version is
// bumped on every write so attempt counting can compare-and-swap.
type SecurityCredential struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerId            string     `gorm:"column:owner_id;size:64;not null;uniqueIndex:idx_credential_owner" json:"owner_id"`
	PinHash            string     `gorm:"column:pin_hash;size:255" json:"-"`
	FailedAttempts     int        `gorm:"column:failed_attempts;not null;default:0" json:"failed_attempts"`
	LockedUntil        *time.Time `gorm:"column:locked_until" json:"locked_until,omitempty"`
	ResetCodeHash      string     `gorm:"column:reset_code_hash;size:255" json:"-"`
	ResetCodeExpiresAt *time.Time `gorm:"column:reset_code_expires_at" json:"-"`
	Version            int64      `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SecurityCredential) TableName() string {
	return "security_credentials"
}

func (c SecurityCredential) IsLocked(now time.Time) bool {
	return c.LockedUntil != nil && now.Before(*c.LockedUntil)
}
