package services

import (
	"testing"

	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settleUnsplit settles a viewing fee for an agent with no subaccount, so the
// net amount lands in manual pending.
func (e *testEnv) settleUnsplit(t *testing.T, viewingID, agent, fee string) string {
	t.Helper()
	e.addViewing(viewingID, agent, fee)
	init := e.initialize(t, viewingID)
	e.gateway.succeed(init.Reference, dec(fee))
	res, err := e.settlement.VerifyFeePayment(e.ctx, init.Reference)
	require.NoError(t, err)
	require.False(t, res.SplitUsed)
	return init.Reference
}

func (e *testEnv) linkPayoutAccount(t *testing.T, owner string) {
	t.Helper()
	require.NoError(t, e.ledger.Wallets.SetPayoutAccount(e.ctx, owner, repository.PayoutAccount{
		AccountNumber: "0123456789",
		BankCode:      "044",
		BankName:      "Access Bank",
		AccountName:   "Ada Agent",
	}))
}

func (e *testEnv) transfersSucceed() {
	e.gateway.transfer = func(req TransferRequest) (*TransferResult, error) {
		return &TransferResult{TransferID: "tr-" + req.Reference, Reference: req.Reference, Status: TransferSuccessful}, nil
	}
}

func TestListPendingDisbursements(t *testing.T) {
	e := newTestEnv(t)
	e.settleUnsplit(t, "v1", "agent-1", "5000")
	e.settleUnsplit(t, "v2", "agent-1", "2000")

	pending, err := e.disbursements.ListPendingDisbursements(e.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "agent-1", pending[0].AgentId)
	assert.True(t, pending[0].ManualPendingBalance.Equal(dec("6300")), pending[0].ManualPendingBalance.String())
	assert.EqualValues(t, 2, pending[0].UndisbursedPayments)
	assert.False(t, pending[0].HasPayoutAccount)
}

func TestProcessDisbursementSuccess(t *testing.T) {
	e := newTestEnv(t)
	first := e.settleUnsplit(t, "v1", "agent-1", "5000")
	second := e.settleUnsplit(t, "v2", "agent-1", "5000")
	e.linkPayoutAccount(t, "agent-1")
	e.transfersSucceed()

	w, err := e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("4500"), AdminID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalSuccessful, w.Status)
	assert.Equal(t, models.InitiatedByAdmin, w.InitiatedBy)
	assert.Equal(t, "admin-1", w.InitiatorId)
	assert.True(t, common.HasPrefix(w.Reference, common.PrefixDisbursement))

	wallet := e.wallet(t, "agent-1")
	assert.True(t, wallet.Balance.Equal(dec("4500")), wallet.Balance.String())
	assert.True(t, wallet.ManualPendingBalance.Equal(dec("4500")))
	assert.Empty(t, wallet.ActiveWithdrawalRef)

	attempt, err := e.ledger.Attempts.FindByReference(e.ctx, first)
	require.NoError(t, err)
	assert.True(t, attempt.Disbursed)
	attempt, err = e.ledger.Attempts.FindByReference(e.ctx, second)
	require.NoError(t, err)
	assert.False(t, attempt.Disbursed)

	assert.Equal(t, 1, e.events.count(TopicDisbursementProcessed))
	assert.Equal(t, 1, e.notifier.count(worker.TemplateDisbursement))
}

func TestProcessDisbursementLimits(t *testing.T) {
	e := newTestEnv(t)
	e.settleUnsplit(t, "v1", "agent-1", "5000")

	var validationErr *common.ValidationError

	_, err := e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("1000"), AdminID: "admin-1"})
	assert.ErrorAs(t, err, &validationErr, "no payout account")

	e.linkPayoutAccount(t, "agent-1")

	_, err = e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("4500.01"), AdminID: "admin-1"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("0"), AdminID: "admin-1"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("10.001"), AdminID: "admin-1"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "nobody", Amount: dec("10"), AdminID: "admin-1"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Empty(t, e.gateway.transfers)
}

func TestProcessDisbursementRejectedRestoresManualPending(t *testing.T) {
	e := newTestEnv(t)
	e.settleUnsplit(t, "v1", "agent-1", "5000")
	e.linkPayoutAccount(t, "agent-1")
	e.gateway.transfer = func(TransferRequest) (*TransferResult, error) {
		return nil, &common.GatewayError{Op: "initiate_transfer", StatusCode: 400, Rejected: true, Message: "Invalid account"}
	}

	w, err := e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("4500"), AdminID: "admin-1"})
	require.Error(t, err)
	require.NotNil(t, w)
	assert.Equal(t, models.WithdrawalFailed, w.Status)
	assert.True(t, w.Refunded)

	wallet := e.wallet(t, "agent-1")
	assert.True(t, wallet.Balance.Equal(dec("4500")))
	assert.True(t, wallet.ManualPendingBalance.Equal(dec("4500")))
	assert.Zero(t, e.notifier.count(worker.TemplateDisbursement))
}

func TestProcessDisbursementBlockedByWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	e.settleUnsplit(t, "v1", "agent-1", "5000")
	e.linkPayoutAccount(t, "agent-1")

	_, err := e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("1000"), AdminID: "admin-1"})
	require.NoError(t, err)

	_, err = e.disbursements.ProcessDisbursement(e.ctx, DisbursementDTO{AgentID: "agent-1", Amount: dec("1000"), AdminID: "admin-1"})
	assert.ErrorIs(t, err, common.ErrWithdrawalInProgress)
}

func TestProcessBulkDisbursement(t *testing.T) {
	e := newTestEnv(t)
	e.settleUnsplit(t, "v1", "agent-1", "5000")
	e.settleUnsplit(t, "v2", "agent-2", "3000")
	e.linkPayoutAccount(t, "agent-1")
	e.linkPayoutAccount(t, "agent-2")
	e.transfersSucceed()

	report, err := e.disbursements.ProcessBulkDisbursement(e.ctx, BulkDisbursementDTO{
		AdminID: "admin-1",
		Items: []BulkDisbursementItem{
			{AgentID: "agent-1", Amount: dec("4500")},
			{AgentID: "agent-2", Amount: dec("9999")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Success)
	assert.Equal(t, string(models.WithdrawalSuccessful), report.Results[0].Status)
	assert.False(t, report.Results[1].Success)
	assert.NotEmpty(t, report.Results[1].Error)

	assert.True(t, e.wallet(t, "agent-1").ManualPendingBalance.IsZero())
	assert.True(t, e.wallet(t, "agent-2").ManualPendingBalance.Equal(dec("2700")))
}

func TestProcessBulkDisbursementRequiresItems(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.disbursements.ProcessBulkDisbursement(e.ctx, BulkDisbursementDTO{AdminID: "admin-1"})
	var validationErr *common.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
