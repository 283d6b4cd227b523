package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrGatewayUnavailable   = errors.New("payment service unavailable, please try again later")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrAlreadyPaid          = errors.New("viewing fee has already been paid")
	ErrWithdrawalInProgress = errors.New("another withdrawal is already in progress")
)

// ValidationError is returned before any state is mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type AuthReason string

const (
	ReasonInvalidPin          AuthReason = "invalid_pin"
	ReasonLocked              AuthReason = "locked"
	ReasonPinNotSet           AuthReason = "pin_not_set"
	ReasonOtpInvalid          AuthReason = "otp_invalid"
	ReasonOtpExpired          AuthReason = "otp_expired"
	ReasonResetCodeInvalid    AuthReason = "reset_code_invalid"
	ReasonInsufficientBalance AuthReason = "insufficient_balance"
	ReasonForbidden           AuthReason = "forbidden"
)

// AuthorizationError carries a reason the caller can render: a wrong PIN is
// not the same screen as a lockout countdown.
type AuthorizationError struct {
	Reason       AuthReason
	Message      string
	AttemptsLeft int
	LockedUntil  *time.Time
}

func (e *AuthorizationError) Error() string { return e.Message }

func NewAuthorizationError(reason AuthReason, message string) *AuthorizationError {
	return &AuthorizationError{Reason: reason, Message: message}
}

// GatewayError wraps a failed call to the payment processor. Rejected is true
// only when the processor definitively refused the operation; timeouts and
// 5xx responses leave the outcome unknown.
type GatewayError struct {
	Op         string
	StatusCode int
	Rejected   bool
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s failed", e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = msg + ": " + e.Message
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayRejection reports whether err is a definite refusal from the gateway.
func IsGatewayRejection(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Rejected
}

// IntegrityViolation means a ledger invariant was about to be broken.
type IntegrityViolation struct {
	Message string
}

func (e *IntegrityViolation) Error() string { return "integrity violation: " + e.Message }

// ErrorToResponse maps a service error onto the HTTP status and the message
// shown to the caller. Gateway and unexpected errors never leak detail.
func ErrorToResponse(err error) Response {
	var (
		validationErr *ValidationError
		authErr       *AuthorizationError
		gatewayErr    *GatewayError
		integrityErr  *IntegrityViolation
	)

	switch {
	case errors.As(err, &validationErr):
		return NewErrorResponse(validationErr.Message, nil, http.StatusBadRequest)
	case errors.As(err, &authErr):
		data := map[string]interface{}{"reason": authErr.Reason}
		if authErr.AttemptsLeft > 0 {
			data["attemptsLeft"] = authErr.AttemptsLeft
		}
		if authErr.LockedUntil != nil {
			data["lockedUntil"] = authErr.LockedUntil
			data["retryAfterSeconds"] = int(time.Until(*authErr.LockedUntil).Seconds())
		}
		return NewErrorResponse(authErr.Message, data, authStatus(authErr.Reason))
	case errors.Is(err, ErrNotFound):
		return NewErrorResponse("Record not found", nil, http.StatusNotFound)
	case errors.Is(err, ErrInvalidSignature):
		return NewErrorResponse("Invalid signature", nil, http.StatusUnauthorized)
	case errors.Is(err, ErrPaymentNotSuccessful):
		return NewErrorResponse("Payment was not successful. You can retry the payment", nil, http.StatusPaymentRequired)
	case errors.Is(err, ErrAlreadyPaid):
		return NewErrorResponse(ErrAlreadyPaid.Error(), nil, http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		return NewErrorResponse(ErrInvalidTransition.Error(), nil, http.StatusConflict)
	case errors.Is(err, ErrWithdrawalInProgress):
		return NewErrorResponse(ErrWithdrawalInProgress.Error(), nil, http.StatusConflict)
	case errors.As(err, &gatewayErr), errors.Is(err, ErrGatewayUnavailable):
		return NewErrorResponse(ErrGatewayUnavailable.Error(), nil, http.StatusServiceUnavailable)
	case errors.As(err, &integrityErr):
		return NewErrorResponse("Something went wrong", nil, http.StatusInternalServerError)
	}
	return NewErrorResponse("Something went wrong", nil, http.StatusInternalServerError)
}

func authStatus(reason AuthReason) int {
	switch reason {
	case ReasonLocked:
		return http.StatusLocked
	case ReasonForbidden:
		return http.StatusForbidden
	case ReasonInsufficientBalance:
		return http.StatusUnprocessableEntity
	}
	return http.StatusUnauthorized
}
