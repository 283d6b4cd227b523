package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FlutterwaveService implements PaymentGateway against the Flutterwave v3 API.
type FlutterwaveService struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
	Log       *logrus.Entry
}

func NewFlutterwaveService(baseURL, secretKey string, timeout time.Duration, log *logrus.Entry) *FlutterwaveService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FlutterwaveService{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Timeout:   timeout,
		Log:       log.WithField("provider", "flutterwave"),
	}
}

func (s *FlutterwaveService) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.SecretKey,
	}
}

// call performs one API request and classifies the outcome: transport errors,
// 5xx and 429 are retryable unknowns; other non-2xx or a non-success body is a
// definite rejection.
func (s *FlutterwaveService) call(ctx context.Context, op, method, path string, payload interface{}) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		resp *common.HTTPResponse
		err  error
	)
	endpoint := s.BaseURL + path
	if method == http.MethodPost {
		resp, err = common.Post(ctx, endpoint, payload, s.headers())
	} else {
		resp, err = common.Get(ctx, endpoint, s.headers())
	}
	if err != nil {
		s.Log.WithError(err).WithField("op", op).Warn("gateway request failed")
		return nil, &common.GatewayError{Op: op, Err: err}
	}

	message, _ := resp.Body["message"].(string)
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		s.Log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode}).Warn("gateway unavailable")
		return nil, &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: message}
	}
	if resp.Body == nil {
		return nil, &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "unreadable response"}
	}
	if status, _ := resp.Body["status"].(string); !resp.OK() || status != "success" {
		s.Log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode, "message": message}).Warn("gateway rejected request")
		return resp.Body, &common.GatewayError{Op: op, StatusCode: resp.StatusCode, Rejected: true, Message: message}
	}
	return resp.Body, nil
}

func (s *FlutterwaveService) InitializeCharge(ctx context.Context, req ChargeRequest) (string, error) {
	meta := map[string]interface{}{}
	for k, v := range req.Meta {
		meta[k] = v
	}

	payload := map[string]interface{}{
		"tx_ref":       req.Reference,
		"amount":       req.Amount.InexactFloat64(),
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]interface{}{
			"email": req.Email,
			"name":  req.Name,
		},
		"customizations": map[string]interface{}{
			"title": req.Title,
		},
		"meta": meta,
	}
	if req.SubaccountID != "" {
		payload["subaccounts"] = []map[string]interface{}{{
			"id":                      req.SubaccountID,
			"transaction_charge_type": "percentage",
			"transaction_charge":      req.PlatformShare.InexactFloat64(),
		}}
	}

	body, err := s.call(ctx, "initialize_charge", http.MethodPost, "/v3/payments", payload)
	if err != nil {
		return "", err
	}

	data, _ := body["data"].(map[string]interface{})
	link, _ := data["link"].(string)
	if link == "" {
		return "", &common.GatewayError{Op: "initialize_charge", Message: "payment link not found"}
	}
	return link, nil
}

func (s *FlutterwaveService) VerifyCharge(ctx context.Context, reference string) (*ChargeVerification, error) {
	path := "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	body, err := s.call(ctx, "verify_charge", http.MethodGet, path, nil)
	if err != nil {
		var gwErr *common.GatewayError
		if !errors.As(err, &gwErr) || !gwErr.Rejected {
			return nil, err
		}
		if !chargeNotPaid(gwErr.StatusCode) {
			// Credentials or request refused: nothing is known about the charge.
			return nil, &common.GatewayError{Op: gwErr.Op, StatusCode: gwErr.StatusCode, Message: gwErr.Message}
		}
		message, _ := body["message"].(string)
		return &ChargeVerification{Reference: reference, Status: "failed", Message: message, Raw: body}, nil
	}

	data, _ := body["data"].(map[string]interface{})
	verification := &ChargeVerification{
		Reference:     reference,
		TransactionID: stringValue(data["id"]),
		Status:        stringValue(data["status"]),
		Amount:        decimalValue(data["amount"]),
		Currency:      stringValue(data["currency"]),
		Message:       stringValue(data["processor_response"]),
		Raw:           body,
	}
	if ref := stringValue(data["tx_ref"]); ref != "" && ref != reference {
		return nil, &common.GatewayError{Op: "verify_charge", Message: fmt.Sprintf("reference mismatch: %s", ref)}
	}
	return verification, nil
}

// chargeNotPaid reports the verify responses that mean the charge was never
// paid: an unknown reference (400/404) or an error body on a 2xx.
func chargeNotPaid(statusCode int) bool {
	switch {
	case statusCode == http.StatusBadRequest, statusCode == http.StatusNotFound:
		return true
	case statusCode >= 200 && statusCode < 300:
		return true
	}
	return false
}

func (s *FlutterwaveService) FindSubaccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	query := url.Values{}
	query.Set("account_number", accountNumber)
	query.Set("account_bank", bankCode)

	body, err := s.call(ctx, "find_subaccount", http.MethodGet, "/v3/subaccounts?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	items, _ := body["data"].([]interface{})
	for _, item := range items {
		sub, _ := item.(map[string]interface{})
		if stringValue(sub["account_number"]) == accountNumber && stringValue(sub["account_bank"]) == bankCode {
			return stringValue(sub["subaccount_id"]), nil
		}
	}
	return "", nil
}

func (s *FlutterwaveService) CreateSubaccount(ctx context.Context, req SubaccountRequest) (string, error) {
	payload := map[string]interface{}{
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"business_name":  req.BusinessName,
		"business_email": req.Email,
		"country":        "NG",
		"split_type":     "percentage",
		"split_value":    req.PlatformShare.InexactFloat64(),
	}

	body, err := s.call(ctx, "create_subaccount", http.MethodPost, "/v3/subaccounts", payload)
	if err != nil {
		return "", err
	}

	data, _ := body["data"].(map[string]interface{})
	id := stringValue(data["subaccount_id"])
	if id == "" {
		return "", &common.GatewayError{Op: "create_subaccount", Message: "subaccount id missing"}
	}
	return id, nil
}

func (s *FlutterwaveService) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payload := map[string]interface{}{
		"account_bank":     req.BankCode,
		"account_number":   req.AccountNumber,
		"amount":           req.Amount.InexactFloat64(),
		"narration":        req.Narration,
		"currency":         req.Currency,
		"debit_currency":   req.Currency,
		"reference":        req.Reference,
		"beneficiary_name": req.Beneficiary,
	}

	body, err := s.call(ctx, "initiate_transfer", http.MethodPost, "/v3/transfers", payload)
	if err != nil {
		return nil, err
	}
	return transferResult(body), nil
}

func (s *FlutterwaveService) GetTransfer(ctx context.Context, transferID string) (*TransferResult, error) {
	body, err := s.call(ctx, "get_transfer", http.MethodGet, "/v3/transfers/"+url.PathEscape(transferID), nil)
	if err != nil {
		return nil, err
	}
	return transferResult(body), nil
}

func (s *FlutterwaveService) VirtualAccountBalance(ctx context.Context, accountRef string) (decimal.Decimal, error) {
	path := fmt.Sprintf("/v3/payout-subaccounts/%s/balances?currency=NGN", url.PathEscape(accountRef))
	body, err := s.call(ctx, "virtual_account_balance", http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, err
	}

	data, _ := body["data"].(map[string]interface{})
	if _, ok := data["available_balance"]; !ok {
		return decimal.Zero, &common.GatewayError{Op: "virtual_account_balance", Message: "balance missing"}
	}
	return decimalValue(data["available_balance"]), nil
}

func transferResult(body map[string]interface{}) *TransferResult {
	data, _ := body["data"].(map[string]interface{})
	return &TransferResult{
		TransferID: stringValue(data["id"]),
		Reference:  stringValue(data["reference"]),
		Status:     TransferStatus(strings.ToUpper(stringValue(data["status"]))),
		Message:    stringValue(data["complete_message"]),
	}
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func decimalValue(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

type GatewayBank struct {
	Code string
	Name string
}

// ListBanks returns the banks Flutterwave can pay out to in a country.
func (s *FlutterwaveService) ListBanks(ctx context.Context, country string) ([]GatewayBank, error) {
	body, err := s.call(ctx, "list_banks", http.MethodGet, "/v3/banks/"+url.PathEscape(country), nil)
	if err != nil {
		return nil, err
	}
	items, _ := body["data"].([]interface{})
	banks := make([]GatewayBank, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		code := stringValue(row["code"])
		if code == "" {
			continue
		}
		banks = append(banks, GatewayBank{Code: code, Name: stringValue(row["name"])})
	}
	return banks, nil
}
