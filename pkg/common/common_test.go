package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference(PrefixWithdrawal)
	assert.True(t, strings.HasPrefix(ref, "WD-"))
	assert.Len(t, ref, len("WD-")+32)
	assert.NotEqual(t, ref, GenerateReference(PrefixWithdrawal))
	assert.True(t, HasPrefix(ref, PrefixWithdrawal))
	assert.False(t, HasPrefix(ref, PrefixWalletFunding))
}

func TestGenerateOTP(t *testing.T) {
	otp, err := GenerateOTP(6)
	require.NoError(t, err)
	if len(otp) != 6 {
		t.Errorf("Expected length 6, got %d", len(otp))
	}
	for _, char := range otp {
		if !strings.ContainsRune(otpCharacters, char) {
			t.Errorf("Invalid character found: %c", char)
		}
	}

	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	for _, char := range code {
		assert.True(t, char >= '0' && char <= '9')
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "access-bank-nigeria", Slugify("Access Bank (Nigeria)"))
	assert.Equal(t, "gtbank-plc", Slugify("  GTBank PLC "))
	assert.Equal(t, "", Slugify("--"))
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: DefaultPageSize}, NewPage(0, 0))
	assert.Equal(t, Page{Number: 3, Size: DefaultPageSize}, NewPage(3, 500))
	assert.Equal(t, Page{Number: 2, Size: 50}, NewPage(2, 50))
	assert.Equal(t, 50, NewPage(2, 50).Offset())
}

func TestPaginateResponse(t *testing.T) {
	data := []string{"item1", "item2"}

	res := PaginateResponse(data, 100, NewPage(1, 10), "")
	assert.Equal(t, "success", res.Message)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 10, res.LastPage)
	assert.Equal(t, 2, res.NextPage)
	assert.Zero(t, res.PrevPage)

	res = PaginateResponse(data, 100, NewPage(10, 10), "")
	assert.Zero(t, res.NextPage)
	assert.Equal(t, 9, res.PrevPage)

	res = PaginateResponse(data, 100, NewPage(5, 10), "")
	assert.Equal(t, 4, res.PrevPage)
	assert.Equal(t, 6, res.NextPage)

	res = PaginateResponse(nil, 101, NewPage(1, 10), "Earnings fetched")
	assert.Equal(t, 11, res.LastPage)
	assert.Equal(t, "Earnings fetched", res.Message)

	res = PaginateResponse(nil, 0, NewPage(1, 10), "")
	assert.Zero(t, res.LastPage)
	assert.Zero(t, res.NextPage)
}

func TestAcceptedResponse(t *testing.T) {
	res := NewSuccessResponse("x", "Disbursement is processing").Accepted()
	assert.Equal(t, 202, res.Status)
	assert.True(t, res.Success)
	assert.False(t, NewErrorResponse("nope", nil, 409).Success)
}

func TestErrorToResponse(t *testing.T) {
	lockedUntil := time.Now().Add(10 * time.Minute)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", NewValidationError("Minimum withdrawable amount is %d", 100), http.StatusBadRequest},
		{"invalid pin", NewAuthorizationError(ReasonInvalidPin, "Invalid transaction PIN"), http.StatusUnauthorized},
		{"locked", &AuthorizationError{Reason: ReasonLocked, Message: "locked", LockedUntil: &lockedUntil}, http.StatusLocked},
		{"insufficient", NewAuthorizationError(ReasonInsufficientBalance, "Insufficient balance"), http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("wallet: %w", ErrNotFound), http.StatusNotFound},
		{"gateway", &GatewayError{Op: "transfer", StatusCode: 502}, http.StatusServiceUnavailable},
		{"conflict", ErrWithdrawalInProgress, http.StatusConflict},
		{"integrity", &IntegrityViolation{Message: "negative balance"}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ErrorToResponse(tc.err)
			assert.Equal(t, tc.status, res.Status)
			assert.False(t, res.Success)
		})
	}

	gw := ErrorToResponse(&GatewayError{Op: "verify", Message: "secret key sk_live_xxx rejected"})
	assert.NotContains(t, gw.Message, "sk_live")
}

func TestIsGatewayRejection(t *testing.T) {
	assert.True(t, IsGatewayRejection(fmt.Errorf("wrapped: %w", &GatewayError{Op: "transfer", Rejected: true})))
	assert.False(t, IsGatewayRejection(&GatewayError{Op: "transfer", Err: context.DeadlineExceeded}))
	assert.False(t, IsGatewayRejection(errors.New("plain")))
}

func TestPostAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"bad account"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	headers := map[string]string{"Authorization": "Bearer key"}

	res, err := Post(context.Background(), srv.URL, map[string]string{"a": "b"}, headers)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "bad account", res.Body["message"])

	res, err = Get(context.Background(), srv.URL, headers)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "success", res.Body["status"])
}

func TestSetHTTPTimeout(t *testing.T) {
	original := httpClient.Timeout
	t.Cleanup(func() { httpClient.Timeout = original })

	SetHTTPTimeout(0)
	assert.Equal(t, original, httpClient.Timeout)

	SetHTTPTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, httpClient.Timeout)
}
