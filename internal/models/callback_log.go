package models

import (
	"time"
)

// CallbackLog records every gateway payload this service received or
// fetched, along with what was done with it.
type CallbackLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Request     string    `gorm:"column:request;type:longtext" json:"request"`
	Response    string    `gorm:"column:response;type:longtext" json:"response"`
	Status      int       `gorm:"column:status;default:0" json:"status"` // HTTP status returned for the payload
	RequestType string    `gorm:"column:request_type;size:100" json:"request_type"`
	Reference   string    `gorm:"column:reference;size:64;index:idx_callback_reference" json:"reference"`
	Provider    string    `gorm:"column:provider;size:50" json:"provider"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CallbackLog) TableName() string {
	return "callback_logs"
}
