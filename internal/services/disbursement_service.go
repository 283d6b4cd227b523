package services

import (
	"context"
	"errors"

	"settlement-service/internal/models"
	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type DisbursementService struct {
	Helper      *HelperService
	Withdrawals *WithdrawalService
}

func NewDisbursementService(helper *HelperService, withdrawals *WithdrawalService) *DisbursementService {
	return &DisbursementService{Helper: helper, Withdrawals: withdrawals}
}

type PendingDisbursement struct {
	AgentId              string          `json:"agentId"`
	ManualPendingBalance decimal.Decimal `json:"manualPendingBalance"`
	Balance              decimal.Decimal `json:"balance"`
	UndisbursedPayments  int64           `json:"undisbursedPayments"`
	AccountNumber        string          `json:"accountNumber"`
	AccountName          string          `json:"accountName"`
	BankCode             string          `json:"bankCode"`
	BankName             string          `json:"bankName"`
	HasPayoutAccount     bool            `json:"hasPayoutAccount"`
	WithdrawalInProgress bool            `json:"withdrawalInProgress"`
}

// ListPendingDisbursements lists every agent holding funds that were settled
// without a split and still need an administrator payout.
func (s *DisbursementService) ListPendingDisbursements(ctx context.Context) ([]PendingDisbursement, error) {
	wallets, err := s.Helper.Ledger.Wallets.ListWithManualPending(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Helper.Ledger.Attempts.CountUndisbursedByAgent(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]PendingDisbursement, 0, len(wallets))
	for _, wallet := range wallets {
		pending = append(pending, PendingDisbursement{
			AgentId:              wallet.OwnerId,
			ManualPendingBalance: wallet.ManualPendingBalance,
			Balance:              wallet.Balance,
			UndisbursedPayments:  counts[wallet.OwnerId],
			AccountNumber:        wallet.VirtualAccountNo,
			AccountName:          wallet.AccountName,
			BankCode:             wallet.BankCode,
			BankName:             wallet.BankName,
			HasPayoutAccount:     wallet.HasPayoutAccount(),
			WithdrawalInProgress: wallet.ActiveWithdrawalRef != "",
		})
	}
	return pending, nil
}

type DisbursementDTO struct {
	AgentID string          `json:"agentId" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason" validate:"max=255"`
	AdminID string          `json:"-" validate:"required"`
}

// ProcessDisbursement pays out manual-pending funds to an agent without the
// PIN and OTP gate. The payout is recorded as an admin-initiated withdrawal.
func (s *DisbursementService) ProcessDisbursement(ctx context.Context, data DisbursementDTO) (*models.Withdrawal, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return nil, err
	}
	if !data.Amount.IsPositive() {
		return nil, common.NewValidationError("amount must be greater than zero")
	}
	if !data.Amount.Equal(data.Amount.Round(2)) {
		return nil, common.NewValidationError("amount cannot have more than two decimal places")
	}

	wallet, err := s.Helper.Ledger.Wallets.FindByOwner(ctx, data.AgentID)
	if err != nil {
		return nil, err
	}
	if data.Amount.GreaterThan(wallet.ManualPendingBalance) {
		return nil, common.NewValidationError("amount exceeds the pending manual balance of %s", wallet.ManualPendingBalance.StringFixed(2))
	}
	if data.Amount.GreaterThan(wallet.Balance) {
		return nil, common.NewValidationError("amount exceeds the wallet balance of %s", wallet.Balance.StringFixed(2))
	}
	if !wallet.HasPayoutAccount() {
		return nil, common.NewValidationError("agent has no payout bank account")
	}

	reason := data.Reason
	if reason == "" {
		reason = "Manual disbursement of viewing fees"
	}
	withdrawal := &models.Withdrawal{
		OwnerId:       data.AgentID,
		Amount:        data.Amount,
		Reference:     common.GenerateReference(common.PrefixDisbursement),
		AccountNumber: wallet.VirtualAccountNo,
		AccountName:   wallet.AccountName,
		BankName:      wallet.BankName,
		BankCode:      wallet.BankCode,
		Status:        models.WithdrawalProcessing,
		InitiatedBy:   models.InitiatedByAdmin,
		InitiatorId:   data.AdminID,
		Reason:        reason,
	}
	if err := s.Withdrawals.reserve(ctx, withdrawal, true); err != nil {
		if errors.Is(err, common.ErrWithdrawalInProgress) {
			return nil, err
		}
		var authErr *common.AuthorizationError
		if errors.As(err, &authErr) {
			return nil, common.NewValidationError("amount exceeds the agent's available manual balance")
		}
		return nil, err
	}

	s.Helper.Log.WithFields(logrus.Fields{
		"reference": withdrawal.Reference,
		"agent_id":  data.AgentID,
		"admin_id":  data.AdminID,
		"amount":    data.Amount.String(),
	}).Info("manual disbursement reserved")

	result, dispatchErr := s.Withdrawals.Dispatch(ctx, withdrawal, wallet.Currency)
	if result != nil {
		s.Helper.Publish(ctx, TopicDisbursementProcessed, data.AgentID, WithdrawalEvent{
			Reference:     result.Reference,
			OwnerId:       result.OwnerId,
			Amount:        result.Amount,
			Status:        string(result.Status),
			InitiatedBy:   result.InitiatedBy,
			FailureReason: result.FailureReason,
			Refunded:      result.Refunded,
			OccurredAt:    s.Helper.Now(),
		})
		if dispatchErr == nil {
			s.Helper.EmailUser(ctx, data.AgentID, worker.TemplateDisbursement, map[string]interface{}{
				"reference": result.Reference,
				"amount":    result.Amount.StringFixed(2),
				"bankName":  result.BankName,
				"account":   maskAccount(result.AccountNumber),
			})
		}
	}
	return result, dispatchErr
}

type BulkDisbursementItem struct {
	AgentID string          `json:"agentId"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

type BulkDisbursementDTO struct {
	Items   []BulkDisbursementItem `json:"items" validate:"required,min=1,max=100"`
	AdminID string                 `json:"-" validate:"required"`
}

type DisbursementOutcome struct {
	AgentId   string          `json:"agentId"`
	Amount    decimal.Decimal `json:"amount"`
	Success   bool            `json:"success"`
	Reference string          `json:"reference,omitempty"`
	Status    string          `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type BulkDisbursementReport struct {
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Results   []DisbursementOutcome `json:"results"`
}

// ProcessBulkDisbursement runs ProcessDisbursement for each item and reports
// per-agent outcomes. One agent's failure does not stop the rest.
func (s *DisbursementService) ProcessBulkDisbursement(ctx context.Context, data BulkDisbursementDTO) (*BulkDisbursementReport, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return nil, err
	}

	report := &BulkDisbursementReport{Total: len(data.Items)}
	for _, item := range data.Items {
		outcome := DisbursementOutcome{AgentId: item.AgentID, Amount: item.Amount}

		withdrawal, err := s.ProcessDisbursement(ctx, DisbursementDTO{
			AgentID: item.AgentID,
			Amount:  item.Amount,
			Reason:  item.Reason,
			AdminID: data.AdminID,
		})
		if withdrawal != nil {
			outcome.Reference = withdrawal.Reference
			outcome.Status = string(withdrawal.Status)
		}

		switch {
		case err != nil:
			outcome.Error = common.ErrorToResponse(err).Message
			if withdrawal != nil && withdrawal.Status == models.WithdrawalProcessing {
				// Funds are reserved and the transfer may still land.
				outcome.Success = true
			}
		case withdrawal.Status == models.WithdrawalFailed:
			outcome.Error = withdrawal.FailureReason
		default:
			outcome.Success = true
		}

		if outcome.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, outcome)
	}

	s.Helper.Log.WithFields(logrus.Fields{
		"admin_id":  data.AdminID,
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	}).Info("bulk disbursement processed")
	return report, nil
}
