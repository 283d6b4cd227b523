package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"settlement-service/internal/logger"
	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SettlementService struct {
	Helper      *HelperService
	Gateway     PaymentGateway
	Viewings    ViewingDirectory
	Settings    *SettingsService
	Subaccounts *SubaccountService
	CallbackURL string
}

func NewSettlementService(helper *HelperService, gateway PaymentGateway, viewings ViewingDirectory, settings *SettingsService, subaccounts *SubaccountService, callbackURL string) *SettlementService {
	return &SettlementService{
		Helper:      helper,
		Gateway:     gateway,
		Viewings:    viewings,
		Settings:    settings,
		Subaccounts: subaccounts,
		CallbackURL: callbackURL,
	}
}

type InitializePaymentDTO struct {
	ViewingID   string `json:"-" validate:"required"`
	RequesterID string `json:"-"`
	Email       string `json:"email" validate:"omitempty,email"`
	Name        string `json:"name"`
}

type InitializePaymentResult struct {
	Reference string          `json:"reference"`
	Link      string          `json:"link"`
	Amount    decimal.Decimal `json:"amount"`
	SplitUsed bool            `json:"splitUsed"`
}

// InitializeFeePayment opens a hosted checkout for a viewing fee. Split
// provisioning problems never block the payment; the charge then goes through
// unsplit and is settled for manual disbursement.
func (s *SettlementService) InitializeFeePayment(ctx context.Context, data InitializePaymentDTO) (*InitializePaymentResult, error) {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return nil, err
	}

	viewing, err := s.Viewings.GetViewing(ctx, data.ViewingID)
	if err != nil {
		return nil, err
	}
	if !viewing.Fee.IsPositive() {
		return nil, common.NewValidationError("viewing has no fee to pay")
	}
	if viewing.Paid {
		return nil, common.ErrAlreadyPaid
	}
	if _, err := s.Helper.Ledger.Attempts.FindPaidByViewing(ctx, viewing.ID); err == nil {
		return nil, common.ErrAlreadyPaid
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if data.RequesterID != "" && viewing.PayerID != "" && data.RequesterID != viewing.PayerID {
		return nil, common.NewAuthorizationError(common.ReasonForbidden, "You can only pay for your own viewing")
	}

	email := viewing.PayerEmail
	if email == "" {
		email = data.Email
	}
	if email == "" {
		return nil, common.NewValidationError("payer email is required")
	}
	name := viewing.PayerName
	if name == "" {
		name = data.Name
	}

	wallet, err := s.Helper.Ledger.Wallets.Ensure(ctx, viewing.AgentID, "")
	if err != nil {
		return nil, err
	}

	feePct, err := s.Settings.PlatformFeePercentage(ctx)
	if err != nil {
		return nil, err
	}

	log := s.Helper.Log.WithFields(logrus.Fields{"viewing_id": viewing.ID, "agent_id": viewing.AgentID})

	var subaccountID string
	if wallet.HasPayoutAccount() {
		subaccountID, err = s.Subaccounts.EnsureSubaccount(ctx, viewing.AgentID, hundred.Sub(feePct))
		if err != nil {
			log.WithError(err).Warn("split subaccount unavailable, charging without split")
			subaccountID = ""
		}
	}

	reference := common.GenerateReference(common.PrefixViewingPayment)
	attempt := models.PaymentAttempt{
		Reference:    reference,
		ViewingId:    viewing.ID,
		HouseId:      viewing.HouseID,
		AgentId:      viewing.AgentID,
		PayerId:      data.RequesterID,
		PayerEmail:   email,
		Amount:       viewing.Fee.Round(2),
		Currency:     "NGN",
		Status:       models.PaymentUnpaid,
		SplitUsed:    subaccountID != "",
		SubaccountId: subaccountID,
		NetAmount:    decimal.Zero,
	}
	if err := s.Helper.Ledger.Attempts.Create(ctx, &attempt); err != nil {
		return nil, err
	}

	title := viewing.Title
	if title == "" {
		title = "Viewing fee"
	}
	link, err := s.Gateway.InitializeCharge(ctx, ChargeRequest{
		Reference:   reference,
		Amount:      attempt.Amount,
		Currency:    attempt.Currency,
		RedirectURL: s.CallbackURL,
		Email:       email,
		Name:        name,
		Title:       title,
		Meta: map[string]string{
			"viewingId": viewing.ID,
			"houseId":   viewing.HouseID,
			"agentId":   viewing.AgentID,
		},
		SubaccountID:  subaccountID,
		PlatformShare: feePct.Div(hundred),
	})
	if err != nil {
		if _, markErr := s.Helper.Ledger.Attempts.MarkFailed(ctx, reference, "checkout initialization failed"); markErr != nil {
			log.WithError(markErr).Error("failed to mark attempt failed")
		}
		return nil, err
	}

	if _, err := s.Helper.Ledger.Attempts.MarkPending(ctx, reference); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"reference": reference, "split": attempt.SplitUsed}).Info("viewing fee checkout initialized")

	return &InitializePaymentResult{
		Reference: reference,
		Link:      link,
		Amount:    attempt.Amount,
		SplitUsed: attempt.SplitUsed,
	}, nil
}

type SettlementResult struct {
	Reference   string               `json:"reference"`
	Status      models.PaymentStatus `json:"status"`
	ViewingId   string               `json:"viewingId"`
	GrossAmount decimal.Decimal      `json:"grossAmount"`
	PlatformFee decimal.Decimal      `json:"platformFee"`
	NetAmount   decimal.Decimal      `json:"netAmount"`
	SplitUsed   bool                 `json:"splitUsed"`
	AlreadyPaid bool                 `json:"alreadyPaid"`
}

// VerifyFeePayment confirms a charge with the gateway and settles it. It is
// safe to call any number of times, concurrently, from the payer redirect,
// the charge webhook and the reconciliation sweep.
func (s *SettlementService) VerifyFeePayment(ctx context.Context, reference string) (*SettlementResult, error) {
	if reference == "" {
		return nil, common.NewValidationError("tx_ref is required")
	}

	attempt, err := s.Helper.Ledger.Attempts.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.PaymentPaid {
		return s.settledResult(ctx, attempt, true)
	}

	log := s.Helper.Log.WithField("reference", reference)

	verification, err := s.Gateway.VerifyCharge(ctx, reference)
	if err != nil {
		s.Helper.LogCallback(ctx, "Verification", reference, nil, err.Error(), http.StatusBadGateway)
		return nil, err
	}
	s.Helper.LogCallback(ctx, "Verification", reference, nil, verification.Raw, http.StatusOK)

	if verification.Pending() {
		return &SettlementResult{
			Reference:   reference,
			Status:      attempt.Status,
			ViewingId:   attempt.ViewingId,
			GrossAmount: attempt.Amount,
			SplitUsed:   attempt.SplitUsed,
		}, nil
	}

	if !verification.Successful() {
		reason := verification.Message
		if reason == "" {
			reason = "payment " + verification.Status
		}
		if _, err := s.Helper.Ledger.Attempts.MarkFailed(ctx, reference, reason); err != nil {
			return nil, err
		}
		log.WithField("gateway_status", verification.Status).Info("viewing fee payment not successful")
		return nil, common.ErrPaymentNotSuccessful
	}

	if verification.Amount.LessThan(attempt.Amount) || (verification.Currency != "" && verification.Currency != attempt.Currency) {
		logger.Audit(log, logrus.Fields{
			"expected": attempt.Amount.String(),
			"paid":     verification.Amount.String(),
			"currency": verification.Currency,
		}, "charge amount does not match payment attempt")
		if _, err := s.Helper.Ledger.Attempts.MarkFailed(ctx, reference, "amount mismatch"); err != nil {
			return nil, err
		}
		return nil, common.ErrPaymentNotSuccessful
	}

	return s.settle(ctx, attempt, verification)
}

// settle is the single crediting routine. The conditional claim decides the
// winner; everyone else reports the payment as already settled.
func (s *SettlementService) settle(ctx context.Context, attempt *models.PaymentAttempt, verification *ChargeVerification) (*SettlementResult, error) {
	feePct, err := s.Settings.PlatformFeePercentage(ctx)
	if err != nil {
		return nil, err
	}
	platformAmount := attempt.Amount.Mul(feePct).Div(hundred).Round(2)
	net := attempt.Amount.Sub(platformAmount)
	now := s.Helper.Now()

	log := s.Helper.Log.WithFields(logrus.Fields{"reference": attempt.Reference, "agent_id": attempt.AgentId})

	claimed := false
	err = s.Helper.Ledger.Transaction(ctx, func(tx *repository.Ledger) error {
		ok, err := tx.Attempts.ClaimPaid(ctx, attempt.Reference, map[string]interface{}{
			"paid_at":                   now,
			"gateway_transaction_id":    verification.TransactionID,
			"net_amount":                net,
			"needs_manual_disbursement": !attempt.SplitUsed,
			"failure_reason":            "",
		})
		if err != nil || !ok {
			return err
		}
		claimed = true

		if _, err := tx.Wallets.Ensure(ctx, attempt.AgentId, ""); err != nil {
			return err
		}

		earning := models.Earning{
			OwnerId:        attempt.AgentId,
			Reference:      attempt.Reference,
			GrossAmount:    attempt.Amount,
			PlatformFee:    feePct,
			PlatformAmount: platformAmount,
			Amount:         net,
			Type:           models.EarningViewingFee,
			ViewingId:      attempt.ViewingId,
			HouseId:        attempt.HouseId,
			Description:    fmt.Sprintf("Viewing fee for viewing %s", attempt.ViewingId),
		}
		if err := tx.Earnings.Create(ctx, &earning); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &common.IntegrityViolation{Message: "second earning for reference " + attempt.Reference}
			}
			return err
		}

		if attempt.SplitUsed {
			return tx.Wallets.Credit(ctx, attempt.AgentId, net)
		}
		return tx.Wallets.CreditForManualDisbursement(ctx, attempt.AgentId, net)
	})
	if err != nil {
		var integrityErr *common.IntegrityViolation
		if errors.As(err, &integrityErr) {
			logger.Audit(log, nil, integrityErr.Error())
		}
		return nil, err
	}

	settled, err := s.Helper.Ledger.Attempts.FindByReference(ctx, attempt.Reference)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if settled.Status != models.PaymentPaid {
			// Checkout creation has not finished recording the attempt yet.
			log.WithField("status", settled.Status).Info("attempt not claimable yet, settlement deferred")
			return &SettlementResult{
				Reference:   settled.Reference,
				Status:      settled.Status,
				ViewingId:   settled.ViewingId,
				GrossAmount: settled.Amount,
				SplitUsed:   settled.SplitUsed,
			}, nil
		}
		log.Info("payment already settled by a concurrent caller")
		return s.settledResult(ctx, settled, true)
	}

	log.WithFields(logrus.Fields{"net": net.String(), "split": attempt.SplitUsed}).Info("viewing fee settled")

	if attempt.SplitUsed {
		if err := s.SyncSplitBalance(ctx, attempt.AgentId); err != nil {
			log.WithError(err).Warn("virtual account sync failed, wallet flagged for reconciliation")
		}
	}

	if err := s.Viewings.MarkViewingPaid(ctx, attempt.ViewingId, attempt.Reference); err != nil {
		log.WithError(err).Warn("failed to mark viewing paid")
	}

	s.Helper.Email(ctx, attempt.PayerEmail, worker.TemplatePaymentReceipt, map[string]interface{}{
		"reference": attempt.Reference,
		"amount":    attempt.Amount.StringFixed(2),
		"viewingId": attempt.ViewingId,
	})
	s.Helper.EmailUser(ctx, attempt.AgentId, worker.TemplatePaymentReceived, map[string]interface{}{
		"reference": attempt.Reference,
		"amount":    net.StringFixed(2),
		"viewingId": attempt.ViewingId,
	})
	s.Helper.Publish(ctx, TopicPaymentSettled, attempt.AgentId, PaymentSettledEvent{
		Reference:      attempt.Reference,
		ViewingId:      attempt.ViewingId,
		HouseId:        attempt.HouseId,
		AgentId:        attempt.AgentId,
		GrossAmount:    attempt.Amount,
		PlatformFee:    feePct,
		PlatformAmount: platformAmount,
		NetAmount:      net,
		SplitUsed:      attempt.SplitUsed,
		SettledAt:      now,
	})

	return &SettlementResult{
		Reference:   attempt.Reference,
		Status:      models.PaymentPaid,
		ViewingId:   attempt.ViewingId,
		GrossAmount: attempt.Amount,
		PlatformFee: feePct,
		NetAmount:   net,
		SplitUsed:   attempt.SplitUsed,
	}, nil
}

// SyncSplitBalance replaces the cached balance with the gateway's live
// virtual-account balance, net of split funds reserved by in-flight
// withdrawals, plus funds the platform holds for manual disbursement. On failure the
// wallet is flagged and the additive credit stands until the next sweep.
func (s *SettlementService) SyncSplitBalance(ctx context.Context, ownerID string) error {
	wallet, err := s.Helper.Ledger.Wallets.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	accountRef := wallet.VirtualAccountRef
	if accountRef == "" {
		accountRef = wallet.VirtualAccountNo
	}
	if accountRef == "" {
		return s.flag(ctx, ownerID, common.NewValidationError("wallet has no virtual account"))
	}

	live, err := s.Gateway.VirtualAccountBalance(ctx, accountRef)
	if err != nil {
		return s.flag(ctx, ownerID, err)
	}

	inFlight, err := s.Helper.Ledger.Withdrawals.SumSplitFundedInFlight(ctx, ownerID)
	if err != nil {
		return s.flag(ctx, ownerID, err)
	}

	balance := live.Sub(inFlight)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	balance = balance.Add(wallet.ManualPendingBalance)

	if err := s.Helper.Ledger.Wallets.SyncBalance(ctx, ownerID, balance); err != nil {
		return err
	}
	s.Helper.Log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"balance":  balance.String(),
	}).Info("wallet balance synced from virtual account")
	return nil
}

func (s *SettlementService) flag(ctx context.Context, ownerID string, cause error) error {
	if err := s.Helper.Ledger.Wallets.FlagReconciliation(ctx, ownerID); err != nil {
		s.Helper.Log.WithError(err).WithField("owner_id", ownerID).Error("failed to flag wallet for reconciliation")
	}
	return cause
}

func (s *SettlementService) settledResult(ctx context.Context, attempt *models.PaymentAttempt, alreadyPaid bool) (*SettlementResult, error) {
	result := &SettlementResult{
		Reference:   attempt.Reference,
		Status:      attempt.Status,
		ViewingId:   attempt.ViewingId,
		GrossAmount: attempt.Amount,
		NetAmount:   attempt.NetAmount,
		SplitUsed:   attempt.SplitUsed,
		AlreadyPaid: alreadyPaid,
	}
	earning, err := s.Helper.Ledger.Earnings.FindByReference(ctx, attempt.Reference)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if earning != nil {
		result.PlatformFee = earning.PlatformFee
		result.NetAmount = earning.Amount
	}
	return result, nil
}

// HandleFailedCharge records a charge the gateway reported as failed. Settled
// attempts are left alone.
func (s *SettlementService) HandleFailedCharge(ctx context.Context, reference, reason string) error {
	changed, err := s.Helper.Ledger.Attempts.MarkFailed(ctx, reference, reason)
	if err != nil {
		return err
	}
	if changed {
		s.Helper.Log.WithField("reference", reference).Info("payment attempt marked failed")
	}
	return nil
}
