package services

import (
	"context"
	"errors"
	"time"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReconciliationService re-drives state the push paths may have missed:
// payments whose payer never returned, wallets whose split balance could not
// be read, and withdrawals whose transfer outcome never arrived.
type ReconciliationService struct {
	Helper               *HelperService
	Gateway              PaymentGateway
	Settlement           *SettlementService
	Withdrawals          *WithdrawalService
	Schedule             string
	StalePaymentAfter    time.Duration
	StaleWithdrawalAfter time.Duration
	BatchSize            int
}

type ReconciliationOptions struct {
	Schedule             string
	StalePaymentAfter    time.Duration
	StaleWithdrawalAfter time.Duration
	BatchSize            int
}

func NewReconciliationService(helper *HelperService, gateway PaymentGateway, settlement *SettlementService, withdrawals *WithdrawalService, opts ReconciliationOptions) *ReconciliationService {
	s := &ReconciliationService{
		Helper:               helper,
		Gateway:              gateway,
		Settlement:           settlement,
		Withdrawals:          withdrawals,
		Schedule:             opts.Schedule,
		StalePaymentAfter:    opts.StalePaymentAfter,
		StaleWithdrawalAfter: opts.StaleWithdrawalAfter,
		BatchSize:            opts.BatchSize,
	}
	if s.Schedule == "" {
		s.Schedule = "*/10 * * * *"
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 100
	}
	return s
}

type SweepReport struct {
	PaymentsChecked     int `json:"paymentsChecked"`
	PaymentsSettled     int `json:"paymentsSettled"`
	PaymentsFailed      int `json:"paymentsFailed"`
	WalletsSynced       int `json:"walletsSynced"`
	WithdrawalsChecked  int `json:"withdrawalsChecked"`
	WithdrawalsResolved int `json:"withdrawalsResolved"`
	Errors              int `json:"errors"`
}

// RunSweep performs one reconciliation pass. Individual failures are logged
// and counted; they never stop the pass.
func (s *ReconciliationService) RunSweep(ctx context.Context) SweepReport {
	var report SweepReport
	now := s.Helper.Now()

	s.sweepPayments(ctx, now, &report)
	s.sweepWallets(ctx, &report)
	s.sweepWithdrawals(ctx, now, &report)

	s.Helper.Log.WithFields(logrus.Fields{
		"payments_checked":     report.PaymentsChecked,
		"payments_settled":     report.PaymentsSettled,
		"payments_failed":      report.PaymentsFailed,
		"wallets_synced":       report.WalletsSynced,
		"withdrawals_checked":  report.WithdrawalsChecked,
		"withdrawals_resolved": report.WithdrawalsResolved,
		"errors":               report.Errors,
	}).Info("reconciliation sweep finished")
	return report
}

func (s *ReconciliationService) sweepPayments(ctx context.Context, now time.Time, report *SweepReport) {
	attempts, err := s.Helper.Ledger.Attempts.ListStalePending(ctx, now.Add(-s.StalePaymentAfter), s.BatchSize)
	if err != nil {
		s.Helper.Log.WithError(err).Error("failed to list stale payment attempts")
		report.Errors++
		return
	}

	for _, attempt := range attempts {
		report.PaymentsChecked++
		result, err := s.Settlement.VerifyFeePayment(ctx, attempt.Reference)
		switch {
		case errors.Is(err, common.ErrPaymentNotSuccessful):
			report.PaymentsFailed++
		case err != nil:
			s.Helper.Log.WithError(err).WithField("reference", attempt.Reference).Warn("stale payment verification failed")
			report.Errors++
		case result != nil && result.Status == models.PaymentPaid && !result.AlreadyPaid:
			report.PaymentsSettled++
		}
	}
}

func (s *ReconciliationService) sweepWallets(ctx context.Context, report *SweepReport) {
	wallets, err := s.Helper.Ledger.Wallets.ListNeedingReconciliation(ctx, s.BatchSize)
	if err != nil {
		s.Helper.Log.WithError(err).Error("failed to list wallets needing reconciliation")
		report.Errors++
		return
	}

	for _, wallet := range wallets {
		if err := s.Settlement.SyncSplitBalance(ctx, wallet.OwnerId); err != nil {
			s.Helper.Log.WithError(err).WithField("owner_id", wallet.OwnerId).Warn("wallet balance sync failed")
			report.Errors++
			continue
		}
		report.WalletsSynced++
	}
}

func (s *ReconciliationService) sweepWithdrawals(ctx context.Context, now time.Time, report *SweepReport) {
	withdrawals, err := s.Helper.Ledger.Withdrawals.ListStaleProcessing(ctx, now.Add(-s.StaleWithdrawalAfter), s.BatchSize)
	if err != nil {
		s.Helper.Log.WithError(err).Error("failed to list stale withdrawals")
		report.Errors++
		return
	}

	for _, withdrawal := range withdrawals {
		// Without a transfer id the outcome is unknowable here; the webhook
		// is the only path that can settle it.
		if withdrawal.TransferId == "" {
			continue
		}
		report.WithdrawalsChecked++

		log := s.Helper.Log.WithFields(logrus.Fields{"reference": withdrawal.Reference, "transfer_id": withdrawal.TransferId})
		transfer, err := s.Gateway.GetTransfer(ctx, withdrawal.TransferId)
		if err != nil {
			log.WithError(err).Warn("transfer status lookup failed")
			report.Errors++
			continue
		}
		if !transfer.Status.Terminal() {
			continue
		}

		updated, err := s.Withdrawals.CompleteTransfer(ctx, withdrawal.Reference, transfer.Status, transfer.TransferID, transfer.Message)
		if err != nil {
			log.WithError(err).Warn("failed to resolve stale withdrawal")
			report.Errors++
			continue
		}
		if updated.Status.IsTerminal() {
			report.WithdrawalsResolved++
		}
	}
}

// StartScheduler runs RunSweep on Schedule. Overlapping runs are skipped.
func (s *ReconciliationService) StartScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(s.Schedule, func() {
		s.Helper.Log.Info("running scheduled reconciliation sweep")
		s.RunSweep(context.Background())
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	s.Helper.Log.WithField("schedule", s.Schedule).Info("reconciliation scheduler started")
	return c, nil
}
