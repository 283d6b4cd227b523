package services

import (
	"context"
	"errors"

	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type WalletService struct {
	Helper *HelperService
}

func NewWalletService(helper *HelperService) *WalletService {
	return &WalletService{Helper: helper}
}

type WalletSummary struct {
	OwnerId              string          `json:"ownerId"`
	Balance              decimal.Decimal `json:"balance"`
	ManualPendingBalance decimal.Decimal `json:"manualPendingBalance"`
	TotalEarned          decimal.Decimal `json:"totalEarned"`
	TotalWithdrawn       decimal.Decimal `json:"totalWithdrawn"`
	InFlight             decimal.Decimal `json:"inFlight"`
	Currency             string          `json:"currency"`
	Status               string          `json:"status"`
	HasPayoutAccount     bool            `json:"hasPayoutAccount"`
	SplitEnabled         bool            `json:"splitEnabled"`
	BankName             string          `json:"bankName"`
	AccountNumber        string          `json:"accountNumber"`
	AccountName          string          `json:"accountName"`
	WithdrawalInProgress bool            `json:"withdrawalInProgress"`
	PinSet               bool            `json:"pinSet"`
}

func (s *WalletService) GetWalletSummary(ctx context.Context, ownerID string) (common.Response, error) {
	wallet, err := s.Helper.Ledger.Wallets.Ensure(ctx, ownerID, "")
	if err != nil {
		return common.Response{}, err
	}

	earned, err := s.Helper.Ledger.Earnings.SumByOwner(ctx, ownerID)
	if err != nil {
		return common.Response{}, err
	}
	withdrawn, err := s.Helper.Ledger.Withdrawals.SumByOwnerAndStatus(ctx, ownerID, models.WithdrawalSuccessful)
	if err != nil {
		return common.Response{}, err
	}
	inFlight, err := s.Helper.Ledger.Withdrawals.SumByOwnerAndStatus(ctx, ownerID, models.NonTerminalWithdrawalStatuses...)
	if err != nil {
		return common.Response{}, err
	}

	pinSet := false
	credential, err := s.Helper.Ledger.Credentials.FindByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return common.Response{}, err
	}
	if credential != nil {
		pinSet = credential.PinHash != ""
	}

	summary := WalletSummary{
		OwnerId:              wallet.OwnerId,
		Balance:              wallet.Balance,
		ManualPendingBalance: wallet.ManualPendingBalance,
		TotalEarned:          earned,
		TotalWithdrawn:       withdrawn,
		InFlight:             inFlight,
		Currency:             wallet.Currency,
		Status:               string(wallet.Status),
		HasPayoutAccount:     wallet.HasPayoutAccount(),
		SplitEnabled:         wallet.SubaccountId != "",
		BankName:             wallet.BankName,
		AccountNumber:        maskAccount(wallet.VirtualAccountNo),
		AccountName:          wallet.AccountName,
		WithdrawalInProgress: wallet.ActiveWithdrawalRef != "",
		PinSet:               pinSet,
	}
	return common.NewSuccessResponse(summary, "Wallet fetched"), nil
}

type ListDTO struct {
	OwnerID string
	Page    int
	Limit   int
}

func (s *WalletService) ListEarnings(ctx context.Context, data ListDTO) (common.PaginationResult, error) {
	page := common.NewPage(data.Page, data.Limit)
	earnings, total, err := s.Helper.Ledger.Earnings.ListByOwner(ctx, data.OwnerID, page)
	if err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(earnings, total, page, "Earnings fetched"), nil
}

func (s *WalletService) ListWithdrawals(ctx context.Context, data ListDTO) (common.PaginationResult, error) {
	page := common.NewPage(data.Page, data.Limit)
	withdrawals, total, err := s.Helper.Ledger.Withdrawals.ListByOwner(ctx, data.OwnerID, page)
	if err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(withdrawals, total, page, "Withdrawals fetched"), nil
}

type UpdatePayoutAccountDTO struct {
	OwnerID       string `json:"-" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=10,max=20"`
	AccountName   string `json:"accountName" validate:"required,max=255"`
	BankCode      string `json:"bankCode" validate:"required,max=20"`
	AccountRef    string `json:"accountRef" validate:"max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
}

// UpdatePayoutAccount links the bank account transfers and split payments
// settle into. The previous subaccount is dropped so the next payment
// provisions one for the new account.
func (s *WalletService) UpdatePayoutAccount(ctx context.Context, data UpdatePayoutAccountDTO) (common.Response, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return common.Response{}, err
	}

	bank, err := s.Helper.Ledger.Banks.FindByCode(ctx, data.BankCode)
	if errors.Is(err, common.ErrNotFound) {
		return common.Response{}, common.NewValidationError("unsupported bank code %s", data.BankCode)
	}
	if err != nil {
		return common.Response{}, err
	}

	wallet, err := s.Helper.Ledger.Wallets.Ensure(ctx, data.OwnerID, data.Email)
	if err != nil {
		return common.Response{}, err
	}
	if wallet.ActiveWithdrawalRef != "" {
		return common.Response{}, common.ErrWithdrawalInProgress
	}

	err = s.Helper.Ledger.Transaction(ctx, func(tx *repository.Ledger) error {
		return tx.Wallets.SetPayoutAccount(ctx, data.OwnerID, repository.PayoutAccount{
			AccountNumber: data.AccountNumber,
			AccountRef:    data.AccountRef,
			BankCode:      bank.Code,
			BankName:      bank.Name,
			AccountName:   data.AccountName,
		})
	})
	if err != nil {
		return common.Response{}, err
	}

	s.Helper.Log.WithFields(logrus.Fields{
		"owner_id":  data.OwnerID,
		"bank_code": bank.Code,
	}).Info("payout account updated")

	return s.GetWalletSummary(ctx, data.OwnerID)
}

func (s *WalletService) ListBanks(ctx context.Context) (common.Response, error) {
	banks, err := s.Helper.Ledger.Banks.List(ctx)
	if err != nil {
		return common.Response{}, err
	}
	return common.NewSuccessResponse(banks, "Banks fetched"), nil
}

// BankSource lists the banks a payout gateway supports.
type BankSource interface {
	ListBanks(ctx context.Context, country string) ([]GatewayBank, error)
}

// SyncBanks refreshes the bank catalogue from the gateway.
func (s *WalletService) SyncBanks(ctx context.Context, source BankSource, country string) (int, error) {
	banks, err := source.ListBanks(ctx, country)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Bank, 0, len(banks))
	for _, b := range banks {
		rows = append(rows, models.Bank{
			Name:   b.Name,
			Slug:   common.Slugify(b.Name),
			Code:   b.Code,
			Status: 1,
		})
	}
	if err := s.Helper.Ledger.Banks.Upsert(ctx, rows); err != nil {
		return 0, err
	}
	s.Helper.Log.WithFields(logrus.Fields{"country": country, "count": len(rows)}).Info("bank catalogue synced")
	return len(rows), nil
}
