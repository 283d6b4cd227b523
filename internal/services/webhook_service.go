package services

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"settlement-service/pkg/common"

	"github.com/sirupsen/logrus"
)

const (
	callbackTransferWebhook = "transfer_webhook"
	callbackChargeWebhook   = "charge_webhook"
)

type WebhookService struct {
	Helper      *HelperService
	SecretHash  string
	Settlement  *SettlementService
	Withdrawals *WithdrawalService
}

func NewWebhookService(helper *HelperService, secretHash string, settlement *SettlementService, withdrawals *WithdrawalService) *WebhookService {
	return &WebhookService{
		Helper:      helper,
		SecretHash:  secretHash,
		Settlement:  settlement,
		Withdrawals: withdrawals,
	}
}

type WebhookData struct {
	ID                json.Number `json:"id"`
	Reference         string      `json:"reference"`
	TxRef             string      `json:"tx_ref"`
	Status            string      `json:"status"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	CompleteMessage   string      `json:"complete_message"`
	ProcessorResponse string      `json:"processor_response"`
}

type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookDTO is an inbound gateway notification. Body is kept verbatim for
// the callback log.
type WebhookDTO struct {
	Signature string
	Body      []byte
}

// VerifySignature compares the verif-hash header with the configured secret
// hash. An unset secret rejects everything.
func (s *WebhookService) VerifySignature(signature string) bool {
	if s.SecretHash == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(s.SecretHash))
}

func (s *WebhookService) parse(ctx context.Context, requestType string, dto WebhookDTO) (*WebhookPayload, error) {
	if !s.VerifySignature(dto.Signature) {
		s.Helper.Log.WithField("request_type", requestType).Warn("webhook rejected: invalid signature")
		s.Helper.LogCallback(ctx, requestType, "", dto.Body, "invalid signature", http.StatusUnauthorized)
		return nil, common.ErrInvalidSignature
	}

	var payload WebhookPayload
	if err := json.Unmarshal(dto.Body, &payload); err != nil {
		s.Helper.LogCallback(ctx, requestType, "", dto.Body, "malformed payload", http.StatusBadRequest)
		return nil, common.NewValidationError("malformed webhook payload")
	}
	return &payload, nil
}

// HandleTransferEvent applies a transfer status notification to the matching
// withdrawal. Unknown references and already-settled withdrawals are
// acknowledged without change.
func (s *WebhookService) HandleTransferEvent(ctx context.Context, dto WebhookDTO) error {
	payload, err := s.parse(ctx, callbackTransferWebhook, dto)
	if err != nil {
		return err
	}

	reference := payload.Data.Reference
	status := TransferStatus(strings.ToUpper(payload.Data.Status))
	log := s.Helper.Log.WithFields(logrus.Fields{
		"event":     payload.Event,
		"reference": reference,
		"status":    status,
	})

	if common.HasPrefix(reference, common.PrefixWalletFunding) {
		log.Info("wallet funding transfer notification logged")
		s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, "wallet funding transfer, no action", http.StatusOK)
		return nil
	}
	if !status.Terminal() {
		log.Info("non-terminal transfer notification logged")
		s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, "non-terminal status, no action", http.StatusOK)
		return nil
	}

	withdrawal, err := s.Withdrawals.CompleteTransfer(ctx, reference, status, payload.Data.ID.String(), payload.Data.CompleteMessage)
	switch {
	case errors.Is(err, common.ErrNotFound):
		log.Warn("transfer notification for unknown withdrawal")
		s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, "withdrawal not found", http.StatusOK)
		return nil
	case errors.Is(err, common.ErrInvalidTransition):
		log.Warn("transfer notification does not fit withdrawal state")
		s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, "invalid transition ignored", http.StatusOK)
		return nil
	case err != nil:
		log.WithError(err).Error("failed to apply transfer notification")
		s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, err.Error(), http.StatusInternalServerError)
		return err
	}

	s.Helper.LogCallback(ctx, callbackTransferWebhook, reference, dto.Body, map[string]interface{}{
		"status":   withdrawal.Status,
		"refunded": withdrawal.Refunded,
	}, http.StatusOK)
	return nil
}

// HandleChargeEvent settles a viewing fee through the same idempotent path
// as synchronous verification, so a lost redirect still credits the agent.
func (s *WebhookService) HandleChargeEvent(ctx context.Context, dto WebhookDTO) error {
	payload, err := s.parse(ctx, callbackChargeWebhook, dto)
	if err != nil {
		return err
	}

	reference := payload.Data.TxRef
	if reference == "" {
		reference = payload.Data.Reference
	}
	log := s.Helper.Log.WithFields(logrus.Fields{
		"event":     payload.Event,
		"reference": reference,
		"status":    payload.Data.Status,
	})

	if !common.HasPrefix(reference, common.PrefixViewingPayment) {
		log.Info("charge notification for foreign reference logged")
		s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, "not a viewing payment, no action", http.StatusOK)
		return nil
	}

	switch strings.ToLower(payload.Data.Status) {
	case "successful":
		result, err := s.Settlement.VerifyFeePayment(ctx, reference)
		switch {
		case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrPaymentNotSuccessful):
			log.WithError(err).Warn("charge notification did not settle")
			s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, err.Error(), http.StatusOK)
			return nil
		case err != nil:
			log.WithError(err).Error("failed to settle charge notification")
			s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, err.Error(), http.StatusInternalServerError)
			return err
		}
		s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, result, http.StatusOK)
		return nil

	case "failed":
		reason := payload.Data.ProcessorResponse
		if reason == "" {
			reason = "charge failed"
		}
		if err := s.Settlement.HandleFailedCharge(ctx, reference, reason); err != nil {
			s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, err.Error(), http.StatusInternalServerError)
			return err
		}
		s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, "marked failed", http.StatusOK)
		return nil
	}

	log.Info("charge notification logged")
	s.Helper.LogCallback(ctx, callbackChargeWebhook, reference, dto.Body, "no action", http.StatusOK)
	return nil
}
