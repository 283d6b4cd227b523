package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earning is append-only. Reference is the payment reference that produced it.
type Earning struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerId        string          `gorm:"column:owner_id;size:64;not null;index:idx_earning_owner" json:"owner_id"`
	Reference      string          `gorm:"column:reference;size:64;not null;uniqueIndex:idx_earning_reference" json:"reference"`
	GrossAmount    decimal.Decimal `gorm:"column:gross_amount;type:decimal(20,2);not null" json:"gross_amount"`
	PlatformFee    decimal.Decimal `gorm:"column:platform_fee;type:decimal(5,2);not null" json:"platform_fee"`
	PlatformAmount decimal.Decimal `gorm:"column:platform_amount;type:decimal(20,2);not null" json:"platform_amount"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Type           EarningType     `gorm:"column:type;size:20;not null" json:"type"`
	ViewingId      string          `gorm:"column:viewing_id;size:64" json:"viewing_id"`
	HouseId        string          `gorm:"column:house_id;size:64" json:"house_id"`
	Description    string          `gorm:"column:description;size:255" json:"description"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Earning) TableName() string {
	return "earnings"
}
