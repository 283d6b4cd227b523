package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/pkg/common"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// HelperService bundles the plumbing every orchestrator needs: the ledger,
// logging, notifications, events and validation.
type HelperService struct {
	Ledger   *repository.Ledger
	Log      *logrus.Entry
	Notifier Notifier
	Events   EventPublisher
	Users    UserDirectory
	Validate *validator.Validate
	Now      func() time.Time
}

func NewHelperService(ledger *repository.Ledger, log *logrus.Entry, notifier Notifier, events EventPublisher, users UserDirectory) *HelperService {
	return &HelperService{
		Ledger:   ledger,
		Log:      log,
		Notifier: notifier,
		Events:   events,
		Users:    users,
		Validate: validator.New(),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// ValidateStruct runs struct tag validation and reports the first failure as
// a ValidationError.
func (h *HelperService) ValidateStruct(v interface{}) error {
	err := h.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return common.NewValidationError("%s is required", fe.Field())
		case "len":
			return common.NewValidationError("%s must be %s characters", fe.Field(), fe.Param())
		case "numeric", "alphanum":
			return common.NewValidationError("%s must be %s", fe.Field(), fe.Tag())
		}
		return common.NewValidationError("%s is invalid", fe.Field())
	}
	return common.NewValidationError("%s", err.Error())
}

// LogCallback stores a gateway payload and what was done with it. Failures
// to write the log never fail the caller.
func (h *HelperService) LogCallback(ctx context.Context, requestType, reference string, request, response interface{}, status int) {
	entry := models.CallbackLog{
		Request:     stringify(request),
		Response:    stringify(response),
		Status:      status,
		RequestType: requestType,
		Reference:   reference,
		Provider:    "flutterwave",
	}
	if err := h.Ledger.CallbackLogs.Create(ctx, &entry); err != nil {
		h.Log.WithError(err).WithField("reference", reference).Warn("failed to write callback log")
	}
}

// Publish emits a ledger event. Delivery is best-effort.
func (h *HelperService) Publish(ctx context.Context, topic, key string, event interface{}) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(ctx, topic, key, event); err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{"topic": topic, "key": key}).Warn("failed to publish event")
	}
}

// Email enqueues a templated email. Delivery is best-effort.
func (h *HelperService) Email(ctx context.Context, to, template string, data map[string]interface{}) {
	if h.Notifier == nil || to == "" {
		return
	}
	if err := h.Notifier.SendEmail(ctx, to, template, data); err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{"template": template, "to": to}).Warn("failed to enqueue email")
	}
}

// EmailUser resolves the user's address through the identity service and
// enqueues a templated email.
func (h *HelperService) EmailUser(ctx context.Context, userID, template string, data map[string]interface{}) {
	if h.Users == nil || userID == "" {
		return
	}
	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		h.Log.WithError(err).WithField("user_id", userID).Warn("failed to resolve user for email")
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["name"] = user.Name
	h.Email(ctx, user.Email, template, data)
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
