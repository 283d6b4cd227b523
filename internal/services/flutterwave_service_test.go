package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-service/internal/models"
	"settlement-service/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlutterwaveStub(t *testing.T, status int, body map[string]interface{}) *FlutterwaveService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return NewFlutterwaveService(srv.URL, "sk_test", 5*time.Second, quietLog())
}

func TestVerifyChargeSuccess(t *testing.T) {
	fw := newFlutterwaveStub(t, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"id": 288200108, "tx_ref": "VIEW-1", "status": "successful", "amount": 5000, "currency": "NGN",
		},
	})

	v, err := fw.VerifyCharge(context.Background(), "VIEW-1")
	require.NoError(t, err)
	assert.True(t, v.Successful())
	assert.Equal(t, "288200108", v.TransactionID)
	assert.True(t, v.Amount.Equal(dec("5000")))
}

func TestVerifyChargeUnknownReferenceIsNotPaid(t *testing.T) {
	fw := newFlutterwaveStub(t, http.StatusBadRequest, map[string]interface{}{
		"status": "error", "message": "No transaction was found for this id",
	})

	v, err := fw.VerifyCharge(context.Background(), "VIEW-1")
	require.NoError(t, err)
	assert.False(t, v.Successful())
	assert.False(t, v.Pending())
	assert.Equal(t, "No transaction was found for this id", v.Message)
}

func TestVerifyChargeAuthFailureIsGatewayError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity} {
		fw := newFlutterwaveStub(t, status, map[string]interface{}{
			"status": "error", "message": "Invalid authorization key",
		})

		v, err := fw.VerifyCharge(context.Background(), "VIEW-1")
		assert.Nil(t, v)
		var gwErr *common.GatewayError
		require.ErrorAs(t, err, &gwErr, "status %d", status)
		assert.False(t, common.IsGatewayRejection(err))
		assert.Equal(t, status, gwErr.StatusCode)
	}
}

func TestVerifyFeePaymentAuthFailureLeavesAttemptPending(t *testing.T) {
	e := newTestEnv(t)
	e.addViewing("v1", "agent-1", "5000")
	init := e.initialize(t, "v1")

	e.settlement.Gateway = newFlutterwaveStub(t, http.StatusUnauthorized, map[string]interface{}{
		"status": "error", "message": "Invalid authorization key",
	})

	_, err := e.settlement.VerifyFeePayment(e.ctx, init.Reference)
	var gwErr *common.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.NotErrorIs(t, err, common.ErrPaymentNotSuccessful)
	assert.Equal(t, http.StatusServiceUnavailable, common.ErrorToResponse(err).Status)

	attempt, err := e.ledger.Attempts.FindByReference(e.ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, attempt.Status)

	// The sweep can still pick it up once the key is fixed.
	e.advance(20 * time.Minute)
	stale, err := e.ledger.Attempts.ListStalePending(e.ctx, e.clock.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, init.Reference, stale[0].Reference)
}
