package models

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalSuccessful WithdrawalStatus = "successful"
	WithdrawalFailed     WithdrawalStatus = "failed"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:    {WithdrawalProcessing, WithdrawalCancelled, WithdrawalFailed},
	WithdrawalProcessing: {WithdrawalSuccessful, WithdrawalFailed},
}

// CanTransitionTo reports whether the withdrawal state machine allows s -> next.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalSuccessful || s == WithdrawalFailed || s == WithdrawalCancelled
}

// NonTerminalWithdrawalStatuses are the statuses that hold the wallet's
// single in-flight withdrawal slot.
var NonTerminalWithdrawalStatuses = []WithdrawalStatus{WithdrawalPending, WithdrawalProcessing}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// A failed attempt can still be settled when the gateway later confirms the
// charge; paid is final.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:  {PaymentPending, PaymentFailed},
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPaid},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ClaimableForSettlement lists the statuses from which a verified charge may
// be claimed as paid.
func ClaimableForSettlement() []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{PaymentUnpaid, PaymentPending, PaymentFailed} {
		if s.CanTransitionTo(PaymentPaid) {
			from = append(from, s)
		}
	}
	return from
}

type WalletStatus string

const (
	WalletActive    WalletStatus = "active"
	WalletInactive  WalletStatus = "inactive"
	WalletSuspended WalletStatus = "suspended"
)

type EarningType string

const (
	EarningViewingFee EarningType = "viewing_fee"
	EarningBookingFee EarningType = "booking_fee"
	EarningCommission EarningType = "commission"
	EarningOther      EarningType = "other"
)

const (
	InitiatedByAgent = "agent"
	InitiatedByAdmin = "admin"
)
