package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferWebhook(reference, status, message string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": "transfer.completed",
		"data": map[string]interface{}{
			"id":               12345,
			"reference":        reference,
			"status":           status,
			"complete_message": message,
		},
	})
	return body
}

func chargeWebhook(txRef, status string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": "charge.completed",
		"data": map[string]interface{}{
			"id":                 98765,
			"tx_ref":             txRef,
			"status":             status,
			"amount":             5000,
			"currency":           "NGN",
			"processor_response": "Declined by issuer",
		},
	})
	return body
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newTestEnv(t)

	for _, sig := range []string{"", "not-the-hash"} {
		err := e.webhooks.HandleTransferEvent(e.ctx, WebhookDTO{Signature: sig, Body: transferWebhook("WD-ABC", "SUCCESSFUL", "")})
		assert.ErrorIs(t, err, common.ErrInvalidSignature)
	}

	logs, err := e.ledger.CallbackLogs.ListByReference(e.ctx, "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, http.StatusUnauthorized, logs[0].Status)
	assert.Equal(t, callbackTransferWebhook, logs[0].RequestType)
}

func TestWebhookRejectsEverythingWithoutSecret(t *testing.T) {
	e := newTestEnv(t)
	e.webhooks.SecretHash = ""
	assert.False(t, e.webhooks.VerifySignature(""))
	assert.False(t, e.webhooks.VerifySignature(testSecretHash))
}

func TestWebhookMalformedPayload(t *testing.T) {
	e := newTestEnv(t)
	err := e.webhooks.HandleTransferEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: []byte("{not json")})
	var validationErr *common.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestTransferWebhookIgnoresWalletFunding(t *testing.T) {
	e := newTestEnv(t)
	ref := common.GenerateReference(common.PrefixWalletFunding)

	require.NoError(t, e.webhooks.HandleTransferEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: transferWebhook(ref, "SUCCESSFUL", "")}))

	logs, err := e.ledger.CallbackLogs.ListByReference(e.ctx, ref)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, http.StatusOK, logs[0].Status)
}

func TestTransferWebhookNonTerminalIsLogged(t *testing.T) {
	e := newTestEnv(t)
	e.seedWallet(t, "agent-1", "10000", "0")
	e.setPin(t, "agent-1")
	w, err := e.withdraw(t, "agent-1", "1000")
	require.NoError(t, err)

	require.NoError(t, e.webhooks.HandleTransferEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: transferWebhook(w.Reference, "PENDING", "")}))

	stored, err := e.ledger.Withdrawals.FindByReference(e.ctx, w.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalProcessing, stored.Status)
}

func TestTransferWebhookUnknownWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	ref := common.GenerateReference(common.PrefixWithdrawal)

	require.NoError(t, e.webhooks.HandleTransferEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: transferWebhook(ref, "FAILED", "")}))

	logs, err := e.ledger.CallbackLogs.ListByReference(e.ctx, ref)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Response, "not found")
}

func TestChargeWebhookSettlesPayment(t *testing.T) {
	e := newTestEnv(t)
	e.addViewing("v1", "agent-1", "5000")
	init := e.initialize(t, "v1")
	e.gateway.succeed(init.Reference, dec("5000"))

	require.NoError(t, e.webhooks.HandleChargeEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: chargeWebhook(init.Reference, "successful")}))

	attempt, err := e.ledger.Attempts.FindByReference(e.ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, attempt.Status)
	assert.True(t, e.wallet(t, "agent-1").Balance.Equal(dec("4500")))

	// A redelivered webhook is acknowledged without a second credit.
	require.NoError(t, e.webhooks.HandleChargeEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: chargeWebhook(init.Reference, "successful")}))
	assert.True(t, e.wallet(t, "agent-1").Balance.Equal(dec("4500")))

	count, err := e.ledger.Earnings.CountByReference(e.ctx, init.Reference)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestChargeWebhookClaimedButNotVerified(t *testing.T) {
	e := newTestEnv(t)
	e.addViewing("v1", "agent-1", "5000")
	init := e.initialize(t, "v1")

	// The gateway still reports the charge as pending, so nothing is credited.
	require.NoError(t, e.webhooks.HandleChargeEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: chargeWebhook(init.Reference, "successful")}))

	_, err := e.ledger.Wallets.FindByOwner(e.ctx, "agent-1")
	if err == nil {
		assert.True(t, e.wallet(t, "agent-1").Balance.IsZero())
	}
	count, err := e.ledger.Earnings.CountByReference(e.ctx, init.Reference)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChargeWebhookFailedMarksAttempt(t *testing.T) {
	e := newTestEnv(t)
	e.addViewing("v1", "agent-1", "5000")
	init := e.initialize(t, "v1")

	require.NoError(t, e.webhooks.HandleChargeEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: chargeWebhook(init.Reference, "failed")}))

	attempt, err := e.ledger.Attempts.FindByReference(e.ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, attempt.Status)
}

func TestChargeWebhookForeignReference(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.webhooks.HandleChargeEvent(e.ctx, WebhookDTO{Signature: testSecretHash, Body: chargeWebhook("ORDER-123", "successful")}))

	logs, err := e.ledger.CallbackLogs.ListByReference(e.ctx, "ORDER-123")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, callbackChargeWebhook, logs[0].RequestType)
}
