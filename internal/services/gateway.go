package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	RedirectURL string
	Email       string
	Name        string
	Title       string
	Meta        map[string]string
	// SubaccountID routes the agent share at charge time. PlatformShare is
	// the fraction (0-1) the platform keeps.
	SubaccountID  string
	PlatformShare decimal.Decimal
}

type ChargeVerification struct {
	Reference     string
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	Message       string
	Raw           map[string]interface{}
}

func (v ChargeVerification) Successful() bool {
	return strings.EqualFold(v.Status, "successful")
}

func (v ChargeVerification) Pending() bool {
	return strings.EqualFold(v.Status, "pending")
}

type SubaccountRequest struct {
	AccountNumber string
	BankCode      string
	BusinessName  string
	Email         string
	PlatformShare decimal.Decimal
}

type TransferRequest struct {
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	AccountNumber string
	BankCode      string
	Beneficiary   string
	Narration     string
}

type TransferStatus string

const (
	TransferNew        TransferStatus = "NEW"
	TransferPending    TransferStatus = "PENDING"
	TransferSuccessful TransferStatus = "SUCCESSFUL"
	TransferFailed     TransferStatus = "FAILED"
	TransferReversed   TransferStatus = "REVERSED"
)

func (s TransferStatus) Terminal() bool {
	return s == TransferSuccessful || s == TransferFailed || s == TransferReversed
}

type TransferResult struct {
	TransferID string
	Reference  string
	Status     TransferStatus
	Message    string
}

// PaymentGateway is the processor surface this service depends on. Errors
// are *common.GatewayError.
type PaymentGateway interface {
	InitializeCharge(ctx context.Context, req ChargeRequest) (string, error)
	VerifyCharge(ctx context.Context, reference string) (*ChargeVerification, error)
	FindSubaccount(ctx context.Context, accountNumber, bankCode string) (string, error)
	CreateSubaccount(ctx context.Context, req SubaccountRequest) (string, error)
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetTransfer(ctx context.Context, transferID string) (*TransferResult, error)
	VirtualAccountBalance(ctx context.Context, accountRef string) (decimal.Decimal, error)
}
