package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-service/internal/logger"
	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type WithdrawalService struct {
	Helper    *HelperService
	Security  *SecurityService
	Gateway   PaymentGateway
	MinAmount decimal.Decimal
}

func NewWithdrawalService(helper *HelperService, security *SecurityService, gateway PaymentGateway, minAmount decimal.Decimal) *WithdrawalService {
	return &WithdrawalService{
		Helper:    helper,
		Security:  security,
		Gateway:   gateway,
		MinAmount: minAmount,
	}
}

type WithdrawalOTPDTO struct {
	OwnerID string          `json:"-" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Pin     string          `json:"pin" validate:"required,len=6,numeric"`
}

type WithdrawalOTPResult struct {
	Amount    decimal.Decimal `json:"amount"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type WithdrawDTO struct {
	OwnerID string          `json:"-" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Pin     string          `json:"pin" validate:"required,len=6,numeric"`
	Otp     string          `json:"otp" validate:"required,alphanum"`
}

// precheck validates a withdrawal of amount against the wallet. It runs
// before any credential is touched.
func (s *WithdrawalService) precheck(ctx context.Context, ownerID string, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, common.NewValidationError("amount must be greater than zero")
	}
	if amount.LessThan(s.MinAmount) {
		return nil, common.NewValidationError("minimum withdrawal amount is %s", s.MinAmount.StringFixed(2))
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, common.NewValidationError("amount cannot have more than two decimal places")
	}

	wallet, err := s.Helper.Ledger.Wallets.FindByOwner(ctx, ownerID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewAuthorizationError(common.ReasonInsufficientBalance, "Insufficient wallet balance")
	}
	if err != nil {
		return nil, err
	}
	if wallet.Status == models.WalletSuspended {
		return nil, common.NewAuthorizationError(common.ReasonForbidden, "Wallet is suspended")
	}
	if wallet.ActiveWithdrawalRef != "" {
		return nil, common.ErrWithdrawalInProgress
	}
	if wallet.Balance.LessThan(amount) {
		return nil, common.NewAuthorizationError(common.ReasonInsufficientBalance, "Insufficient wallet balance")
	}
	if !wallet.HasPayoutAccount() {
		return nil, common.NewValidationError("add a payout bank account before withdrawing")
	}
	return wallet, nil
}

// RequestOTP verifies the PIN and emails a fresh OTP bound to the amount.
func (s *WithdrawalService) RequestOTP(ctx context.Context, data WithdrawalOTPDTO) (*WithdrawalOTPResult, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return nil, err
	}
	if _, err := s.precheck(ctx, data.OwnerID, data.Amount); err != nil {
		return nil, err
	}
	if err := s.Security.VerifyPin(ctx, data.OwnerID, data.Pin); err != nil {
		return nil, err
	}

	challenge, err := s.Security.IssueChallenge(ctx, data.OwnerID, data.Amount)
	if err != nil {
		return nil, err
	}

	s.Helper.EmailUser(ctx, data.OwnerID, worker.TemplateWithdrawalOTP, map[string]interface{}{
		"otp":              challenge.OTP,
		"amount":           data.Amount.StringFixed(2),
		"expiresInSeconds": int(challenge.ExpiresAt.Sub(challenge.IssuedAt).Seconds()),
	})
	s.Helper.Log.WithFields(logrus.Fields{"owner_id": data.OwnerID, "amount": data.Amount.String()}).Info("withdrawal otp issued")

	return &WithdrawalOTPResult{Amount: data.Amount, ExpiresAt: challenge.ExpiresAt}, nil
}

// Withdraw confirms the PIN and OTP, debits the wallet and starts the bank
// transfer. The debit is committed before the gateway is called.
func (s *WithdrawalService) Withdraw(ctx context.Context, data WithdrawDTO) (*models.Withdrawal, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return nil, err
	}
	wallet, err := s.precheck(ctx, data.OwnerID, data.Amount)
	if err != nil {
		return nil, err
	}
	if err := s.Security.VerifyPin(ctx, data.OwnerID, data.Pin); err != nil {
		return nil, err
	}
	if err := s.Security.CheckChallenge(ctx, data.OwnerID, data.Amount, data.Otp); err != nil {
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		OwnerId:       data.OwnerID,
		Amount:        data.Amount,
		Reference:     common.GenerateReference(common.PrefixWithdrawal),
		AccountNumber: wallet.VirtualAccountNo,
		AccountName:   wallet.AccountName,
		BankName:      wallet.BankName,
		BankCode:      wallet.BankCode,
		Status:        models.WithdrawalProcessing,
		InitiatedBy:   models.InitiatedByAgent,
		InitiatorId:   data.OwnerID,
	}
	if err := s.reserve(ctx, withdrawal, false); err != nil {
		return nil, err
	}

	if err := s.Security.DiscardChallenge(ctx, data.OwnerID); err != nil {
		s.Helper.Log.WithError(err).WithField("owner_id", data.OwnerID).Warn("failed to discard used challenge")
	}

	return s.Dispatch(ctx, withdrawal, wallet.Currency)
}

// reserve debits the wallet, takes its withdrawal slot and records the
// withdrawal in one transaction. Administrator disbursements are drawn
// entirely from manual-pending funds; agent withdrawals consume them first.
func (s *WithdrawalService) reserve(ctx context.Context, withdrawal *models.Withdrawal, manual bool) error {
	err := s.Helper.Ledger.Transaction(ctx, func(tx *repository.Ledger) error {
		portion := withdrawal.Amount
		if !manual {
			wallet, err := tx.Wallets.FindByOwner(ctx, withdrawal.OwnerId)
			if err != nil {
				return err
			}
			portion = decimal.Max(decimal.Zero, decimal.Min(withdrawal.Amount, wallet.ManualPendingBalance))
		}
		if err := tx.Wallets.Reserve(ctx, withdrawal.OwnerId, withdrawal.Amount, portion, withdrawal.Reference); err != nil {
			return err
		}
		withdrawal.ManualPortion = portion
		return tx.Withdrawals.Create(ctx, withdrawal)
	})
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return common.NewAuthorizationError(common.ReasonInsufficientBalance, "Insufficient wallet balance")
	}
	return err
}

// Dispatch calls the gateway for a reserved withdrawal. A rejected transfer
// fails and refunds the withdrawal. An unknown outcome leaves it processing
// for the webhook or reconciliation sweep to resolve.
func (s *WithdrawalService) Dispatch(ctx context.Context, withdrawal *models.Withdrawal, currency string) (*models.Withdrawal, error) {
	log := s.Helper.Log.WithFields(logrus.Fields{
		"reference": withdrawal.Reference,
		"owner_id":  withdrawal.OwnerId,
		"amount":    withdrawal.Amount.String(),
	})

	narration := "Wallet withdrawal"
	if withdrawal.InitiatedBy == models.InitiatedByAdmin {
		narration = "Earnings disbursement"
	}
	if currency == "" {
		currency = "NGN"
	}

	result, err := s.Gateway.InitiateTransfer(ctx, TransferRequest{
		Reference:     withdrawal.Reference,
		Amount:        withdrawal.Amount,
		Currency:      currency,
		AccountNumber: withdrawal.AccountNumber,
		BankCode:      withdrawal.BankCode,
		Beneficiary:   withdrawal.AccountName,
		Narration:     narration,
	})
	if err != nil {
		if common.IsGatewayRejection(err) {
			log.WithError(err).Warn("transfer rejected by gateway")
			failed, completeErr := s.CompleteTransfer(ctx, withdrawal.Reference, TransferFailed, "", err.Error())
			if completeErr != nil {
				return withdrawal, completeErr
			}
			return failed, err
		}
		log.WithError(err).Warn("transfer outcome unknown, left processing")
		return withdrawal, err
	}

	if result.TransferID != "" {
		if err := s.Helper.Ledger.Withdrawals.SetTransferId(ctx, withdrawal.Reference, result.TransferID); err != nil {
			log.WithError(err).Error("failed to record transfer id")
		}
		withdrawal.TransferId = result.TransferID
	}
	log.WithFields(logrus.Fields{"transfer_id": result.TransferID, "status": result.Status}).Info("transfer initiated")

	if result.Status.Terminal() {
		return s.CompleteTransfer(ctx, withdrawal.Reference, result.Status, result.TransferID, result.Message)
	}
	return withdrawal, nil
}

// CompleteTransfer applies a gateway transfer outcome. Repeated or late
// outcomes for a terminal withdrawal are no-ops; a failure refunds the
// wallet at most once.
func (s *WithdrawalService) CompleteTransfer(ctx context.Context, reference string, status TransferStatus, transferID, reason string) (*models.Withdrawal, error) {
	withdrawal, err := s.Helper.Ledger.Withdrawals.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	log := s.Helper.Log.WithFields(logrus.Fields{
		"reference": reference,
		"owner_id":  withdrawal.OwnerId,
		"event":     status,
	})

	if !status.Terminal() {
		return withdrawal, nil
	}

	target := models.WithdrawalSuccessful
	if status != TransferSuccessful {
		target = models.WithdrawalFailed
	}

	if withdrawal.Status.IsTerminal() {
		if withdrawal.Status == models.WithdrawalSuccessful && status == TransferReversed {
			logger.Audit(log, logrus.Fields{"amount": withdrawal.Amount.String()}, "transfer reversed after success; manual review required")
		} else {
			log.WithField("status", withdrawal.Status).Info("duplicate transfer outcome ignored")
		}
		return withdrawal, nil
	}
	if !withdrawal.Status.CanTransitionTo(target) {
		return withdrawal, common.ErrInvalidTransition
	}

	now := s.Helper.Now()
	extra := map[string]interface{}{"completed_at": now}
	if target == models.WithdrawalFailed {
		if reason == "" {
			reason = "transfer " + string(status)
		}
		extra["failure_reason"] = reason
	}
	if transferID != "" && withdrawal.TransferId == "" {
		extra["transfer_id"] = transferID
	}

	applied := false
	refunded := false
	err = s.Helper.Ledger.Transaction(ctx, func(tx *repository.Ledger) error {
		ok, err := tx.Withdrawals.Transition(ctx, reference, withdrawal.Status, target, extra)
		if err != nil || !ok {
			return err
		}
		applied = true

		if err := tx.Wallets.Release(ctx, withdrawal.OwnerId, reference); err != nil {
			return err
		}

		if target == models.WithdrawalFailed {
			claimed, err := tx.Withdrawals.ClaimRefund(ctx, reference)
			if err != nil {
				return err
			}
			if claimed {
				if err := tx.Wallets.Refund(ctx, withdrawal.OwnerId, withdrawal.Amount, withdrawal.ManualPortion); err != nil {
					return err
				}
				refunded = true
			}
			return nil
		}

		if withdrawal.ManualPortion.IsPositive() {
			return markDisbursed(ctx, tx, withdrawal.OwnerId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Helper.Ledger.Withdrawals.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.WithField("status", updated.Status).Info("withdrawal changed concurrently, outcome ignored")
		return updated, nil
	}

	log.WithFields(logrus.Fields{"status": updated.Status, "refunded": refunded}).Info("withdrawal completed")
	s.announce(ctx, updated)
	return updated, nil
}

// markDisbursed flags the agent's oldest unsplit payments as paid out while
// their net amounts fit inside what has left the manual-pending balance.
func markDisbursed(ctx context.Context, tx *repository.Ledger, agentID string) error {
	attempts, err := tx.Attempts.ListUndisbursed(ctx, agentID)
	if err != nil {
		return err
	}
	wallet, err := tx.Wallets.FindByOwner(ctx, agentID)
	if err != nil {
		return err
	}

	remaining := wallet.ManualPendingBalance.Neg()
	for _, attempt := range attempts {
		remaining = remaining.Add(attempt.NetAmount)
	}
	var ids []uint
	for _, attempt := range attempts {
		if attempt.NetAmount.GreaterThan(remaining) {
			break
		}
		remaining = remaining.Sub(attempt.NetAmount)
		ids = append(ids, attempt.ID)
	}
	return tx.Attempts.MarkDisbursed(ctx, ids)
}

func (s *WithdrawalService) announce(ctx context.Context, withdrawal *models.Withdrawal) {
	topic := TopicWithdrawalCompleted
	template := worker.TemplateWithdrawalCompleted
	if withdrawal.Status == models.WithdrawalFailed {
		topic = TopicWithdrawalFailed
		template = worker.TemplateWithdrawalFailed
	}

	s.Helper.Publish(ctx, topic, withdrawal.OwnerId, WithdrawalEvent{
		Reference:     withdrawal.Reference,
		OwnerId:       withdrawal.OwnerId,
		Amount:        withdrawal.Amount,
		Status:        string(withdrawal.Status),
		InitiatedBy:   withdrawal.InitiatedBy,
		FailureReason: withdrawal.FailureReason,
		Refunded:      withdrawal.Refunded,
		OccurredAt:    s.Helper.Now(),
	})
	s.Helper.EmailUser(ctx, withdrawal.OwnerId, template, map[string]interface{}{
		"reference": withdrawal.Reference,
		"amount":    withdrawal.Amount.StringFixed(2),
		"bankName":  withdrawal.BankName,
		"account":   maskAccount(withdrawal.AccountNumber),
		"reason":    withdrawal.FailureReason,
	})
}

// CancelWithdrawal abandons an unconfirmed withdrawal. Nothing has been
// debited at this point, so only the challenge is discarded.
func (s *WithdrawalService) CancelWithdrawal(ctx context.Context, ownerID string) error {
	if err := s.Security.DiscardChallenge(ctx, ownerID); err != nil {
		return fmt.Errorf("discard challenge: %w", err)
	}
	s.Helper.Log.WithField("owner_id", ownerID).Info("withdrawal cancelled before confirmation")
	return nil
}

func maskAccount(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "******" + number[len(number)-4:]
}
