package services

import (
	"context"
	"fmt"

	"settlement-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SubaccountService struct {
	Helper  *HelperService
	Gateway PaymentGateway
}

func NewSubaccountService(helper *HelperService, gateway PaymentGateway) *SubaccountService {
	return &SubaccountService{Helper: helper, Gateway: gateway}
}

// EnsureSubaccount returns the split subaccount for the agent's payout
// account, creating it at the gateway only when no subaccount exists for the
// same account number and bank code.
func (s *SubaccountService) EnsureSubaccount(ctx context.Context, agentID string, agentSharePercent decimal.Decimal) (string, error) {
	wallet, err := s.Helper.Ledger.Wallets.FindByOwner(ctx, agentID)
	if err != nil {
		return "", err
	}
	if wallet.SubaccountId != "" {
		return wallet.SubaccountId, nil
	}
	if !wallet.HasPayoutAccount() {
		return "", common.NewValidationError("agent has no payout account")
	}

	log := s.Helper.Log.WithFields(logrus.Fields{"agent_id": agentID, "bank_code": wallet.BankCode})

	subaccountID, err := s.Gateway.FindSubaccount(ctx, wallet.VirtualAccountNo, wallet.BankCode)
	if err != nil {
		return "", fmt.Errorf("lookup subaccount: %w", err)
	}

	if subaccountID == "" {
		platformShare := hundred.Sub(agentSharePercent).Div(hundred)
		name := wallet.AccountName
		if name == "" {
			name = "Agent " + agentID
		}
		subaccountID, err = s.Gateway.CreateSubaccount(ctx, SubaccountRequest{
			AccountNumber: wallet.VirtualAccountNo,
			BankCode:      wallet.BankCode,
			BusinessName:  name,
			Email:         wallet.PayoutEmail,
			PlatformShare: platformShare,
		})
		if err != nil {
			return "", fmt.Errorf("create subaccount: %w", err)
		}
		log.WithField("subaccount_id", subaccountID).Info("created split subaccount")
	} else {
		log.WithField("subaccount_id", subaccountID).Info("reusing existing split subaccount")
	}

	if err := s.Helper.Ledger.Wallets.SetSubaccount(ctx, agentID, subaccountID); err != nil {
		return "", err
	}
	return subaccountID, nil
}
