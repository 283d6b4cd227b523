package services

import (
	"context"

	"github.com/shopspring/decimal"
)

type Viewing struct {
	ID         string          `json:"id"`
	HouseID    string          `json:"houseId"`
	AgentID    string          `json:"agentId"`
	PayerID    string          `json:"payerId"`
	PayerEmail string          `json:"payerEmail"`
	PayerName  string          `json:"payerName"`
	Title      string          `json:"title"`
	Fee        decimal.Decimal `json:"fee"`
	Paid       bool            `json:"paid"`
}

// ViewingDirectory is the listing service's view of scheduled viewings.
type ViewingDirectory interface {
	GetViewing(ctx context.Context, id string) (*Viewing, error)
	MarkViewingPaid(ctx context.Context, id, reference string) error
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
}

type Notifier interface {
	SendEmail(ctx context.Context, to, template string, data map[string]interface{}) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}
