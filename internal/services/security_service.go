package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	pinCASRetries = 5
	// Challenges outlive their OTP so a late submission reads as expired
	// rather than missing.
	challengeGrace = 5 * time.Minute
)

type SecurityService struct {
	Helper       *HelperService
	Challenges   ChallengeStore
	MaxAttempts  int
	LockDuration time.Duration
	OTPLength    int
	OTPTTL       time.Duration
	ResetTTL     time.Duration
	BcryptCost   int
}

type SecurityOptions struct {
	MaxAttempts  int
	LockDuration time.Duration
	OTPLength    int
	OTPTTL       time.Duration
	ResetTTL     time.Duration
	BcryptCost   int
}

func NewSecurityService(helper *HelperService, challenges ChallengeStore, opts SecurityOptions) *SecurityService {
	s := &SecurityService{
		Helper:       helper,
		Challenges:   challenges,
		MaxAttempts:  opts.MaxAttempts,
		LockDuration: opts.LockDuration,
		OTPLength:    opts.OTPLength,
		OTPTTL:       opts.OTPTTL,
		ResetTTL:     opts.ResetTTL,
		BcryptCost:   opts.BcryptCost,
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 3
	}
	if s.LockDuration <= 0 {
		s.LockDuration = 30 * time.Minute
	}
	if s.OTPLength <= 0 {
		s.OTPLength = 6
	}
	if s.OTPTTL <= 0 {
		s.OTPTTL = 90 * time.Second
	}
	if s.ResetTTL <= 0 {
		s.ResetTTL = 15 * time.Minute
	}
	if s.BcryptCost == 0 {
		s.BcryptCost = bcrypt.DefaultCost
	}
	return s
}

type SetPinDTO struct {
	OwnerID    string `json:"-" validate:"required"`
	Pin        string `json:"pin" validate:"required,len=6,numeric"`
	CurrentPin string `json:"currentPin" validate:"omitempty,len=6,numeric"`
}

// SetPin creates the transaction PIN, or changes it when the current PIN is
// supplied and verifies.
func (s *SecurityService) SetPin(ctx context.Context, data SetPinDTO) error {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return err
	}

	existing, err := s.Helper.Ledger.Credentials.FindByOwner(ctx, data.OwnerID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if existing != nil && existing.PinHash != "" {
		if data.CurrentPin == "" {
			return common.NewValidationError("currentPin is required to change your PIN")
		}
		if err := s.VerifyPin(ctx, data.OwnerID, data.CurrentPin); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Pin), s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Helper.Ledger.Credentials.SetPin(ctx, data.OwnerID, string(hash)); err != nil {
		return err
	}
	s.Helper.Log.WithField("owner_id", data.OwnerID).Info("transaction pin set")
	return nil
}

// VerifyPin checks pin against the stored hash. Misses are counted with a
// compare-and-swap so concurrent guesses cannot share a counter value; the
// miss that reaches MaxAttempts locks the credential.
func (s *SecurityService) VerifyPin(ctx context.Context, ownerID, pin string) error {
	log := s.Helper.Log.WithField("owner_id", ownerID)

	for i := 0; i < pinCASRetries; i++ {
		credential, err := s.Helper.Ledger.Credentials.FindByOwner(ctx, ownerID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && credential.PinHash == "") {
			return common.NewAuthorizationError(common.ReasonPinNotSet, "Set a transaction PIN before withdrawing")
		}
		if err != nil {
			return err
		}

		now := s.Helper.Now()
		if credential.IsLocked(now) {
			return s.lockedError(*credential.LockedUntil)
		}

		attempts := credential.FailedAttempts
		lockExpired := credential.LockedUntil != nil
		if lockExpired {
			attempts = 0
		}

		if bcrypt.CompareHashAndPassword([]byte(credential.PinHash), []byte(pin)) == nil {
			if credential.FailedAttempts == 0 && credential.LockedUntil == nil {
				return nil
			}
			ok, err := s.Helper.Ledger.Credentials.CompareAndSwap(ctx, ownerID, credential.Version, map[string]interface{}{
				"failed_attempts": 0,
				"locked_until":    nil,
			})
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			continue
		}

		attempts++
		updates := map[string]interface{}{"failed_attempts": attempts}
		var lockedUntil time.Time
		if attempts >= s.MaxAttempts {
			lockedUntil = now.Add(s.LockDuration)
			updates["locked_until"] = lockedUntil
		} else if lockExpired {
			updates["locked_until"] = nil
		}

		ok, err := s.Helper.Ledger.Credentials.CompareAndSwap(ctx, ownerID, credential.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if attempts >= s.MaxAttempts {
			log.WithField("locked_until", lockedUntil).Warn("transaction pin locked")
			return s.lockedError(lockedUntil)
		}
		authErr := common.NewAuthorizationError(common.ReasonInvalidPin, "Invalid transaction PIN")
		authErr.AttemptsLeft = s.MaxAttempts - attempts
		return authErr
	}

	return fmt.Errorf("pin verification for %s: too many concurrent attempts", ownerID)
}

func (s *SecurityService) lockedError(until time.Time) error {
	authErr := common.NewAuthorizationError(common.ReasonLocked,
		fmt.Sprintf("Too many incorrect PIN attempts. Try again after %s or reset your PIN", until.Format(time.RFC3339)))
	authErr.LockedUntil = &until
	return authErr
}

// RequestPinReset emails a one-time numeric reset code.
func (s *SecurityService) RequestPinReset(ctx context.Context, ownerID string) error {
	if _, err := s.Helper.Ledger.Credentials.FindByOwner(ctx, ownerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewAuthorizationError(common.ReasonPinNotSet, "No transaction PIN to reset")
		}
		return err
	}

	code, err := common.GenerateNumericCode(6)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.BcryptCost)
	if err != nil {
		return err
	}

	expiresAt := s.Helper.Now().Add(s.ResetTTL)
	if err := s.Helper.Ledger.Credentials.SetResetCode(ctx, ownerID, string(hash), expiresAt); err != nil {
		return err
	}

	s.Helper.EmailUser(ctx, ownerID, worker.TemplatePinReset, map[string]interface{}{
		"code":             code,
		"expiresInMinutes": int(s.ResetTTL.Minutes()),
	})
	s.Helper.Log.WithField("owner_id", ownerID).Info("pin reset code issued")
	return nil
}

type ResetPinDTO struct {
	OwnerID string `json:"-" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
	NewPin  string `json:"newPin" validate:"required,len=6,numeric"`
}

// ResetPin replaces the PIN using an emailed reset code and clears any
// lockout. A wrong code burns the outstanding code.
func (s *SecurityService) ResetPin(ctx context.Context, data ResetPinDTO) error {
	if err := s.Helper.ValidateStruct(data); err != nil {
		return err
	}

	credential, err := s.Helper.Ledger.Credentials.FindByOwner(ctx, data.OwnerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewAuthorizationError(common.ReasonResetCodeInvalid, "Invalid or expired reset code")
		}
		return err
	}

	now := s.Helper.Now()
	invalid := common.NewAuthorizationError(common.ReasonResetCodeInvalid, "Invalid or expired reset code")
	if credential.ResetCodeHash == "" || credential.ResetCodeExpiresAt == nil || now.After(*credential.ResetCodeExpiresAt) {
		return invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(credential.ResetCodeHash), []byte(data.Code)) != nil {
		if _, err := s.Helper.Ledger.Credentials.CompareAndSwap(ctx, data.OwnerID, credential.Version, map[string]interface{}{
			"reset_code_hash":       "",
			"reset_code_expires_at": nil,
		}); err != nil {
			return err
		}
		return invalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.NewPin), s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Helper.Ledger.Credentials.SetPin(ctx, data.OwnerID, string(hash)); err != nil {
		return err
	}
	s.Helper.Log.WithField("owner_id", data.OwnerID).Info("transaction pin reset")
	return nil
}

// IssueChallenge creates a fresh OTP for amount, replacing any earlier one.
func (s *SecurityService) IssueChallenge(ctx context.Context, ownerID string, amount decimal.Decimal) (*WithdrawalChallenge, error) {
	otp, err := common.GenerateOTP(s.OTPLength)
	if err != nil {
		return nil, err
	}

	now := s.Helper.Now()
	challenge := WithdrawalChallenge{
		OwnerID:   ownerID,
		Amount:    amount,
		OTP:       otp,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.OTPTTL),
	}
	if err := s.Challenges.Put(ctx, challenge, s.OTPTTL+challengeGrace); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// CheckChallenge validates a submitted OTP against the outstanding challenge.
// Expiry is judged here, at submission time.
func (s *SecurityService) CheckChallenge(ctx context.Context, ownerID string, amount decimal.Decimal, otp string) error {
	challenge, err := s.Challenges.Get(ctx, ownerID)
	if errors.Is(err, common.ErrNotFound) {
		return common.NewAuthorizationError(common.ReasonOtpInvalid, "No active OTP. Request a new one")
	}
	if err != nil {
		return err
	}

	if s.Helper.Now().After(challenge.ExpiresAt) {
		if err := s.Challenges.Delete(ctx, ownerID); err != nil {
			s.Helper.Log.WithError(err).WithField("owner_id", ownerID).Warn("failed to discard expired challenge")
		}
		return common.NewAuthorizationError(common.ReasonOtpExpired, "OTP has expired. Request a new one")
	}

	otpMatches := subtle.ConstantTimeCompare([]byte(strings.ToUpper(otp)), []byte(challenge.OTP)) == 1
	if !otpMatches || !challenge.Amount.Equal(amount) {
		s.Helper.Log.WithFields(logrus.Fields{"owner_id": ownerID, "amount_matches": challenge.Amount.Equal(amount)}).Warn("otp rejected")
		return common.NewAuthorizationError(common.ReasonOtpInvalid, "Invalid OTP for this withdrawal")
	}
	return nil
}

func (s *SecurityService) DiscardChallenge(ctx context.Context, ownerID string) error {
	return s.Challenges.Delete(ctx, ownerID)
}
