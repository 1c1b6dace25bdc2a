package adapters

import (
	"context"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

const codRefPrefix = "cod_"

// CashOnDelivery never settles immediately. ProcessPayment parks the attempt
// in requires_action; settlement happens later through the orchestrator's
// CollectCash once the courier has the money in hand.
type CashOnDelivery struct{}

// NewCashOnDelivery builds the cash adapter.
func NewCashOnDelivery() *CashOnDelivery {
	return &CashOnDelivery{}
}

// Provider identifies the adapter in logs and metrics.
func (a *CashOnDelivery) Provider() string {
	return "cash_on_delivery"
}

// Capabilities reports the optional operations.
func (a *CashOnDelivery) Capabilities() Capabilities {
	return Capabilities{Capture: true}
}

// ProcessPayment records the pending cash collection.
func (a *CashOnDelivery) ProcessPayment(ctx context.Context, params ProcessParams) (ProcessResult, error) {
	return ProcessResult{
		Status:      enums.SessionStatusRequiresAction,
		ProviderRef: codRefPrefix + params.IntentID,
		NextAction: &types.NextAction{
			Type:         enums.NextActionTypeNone,
			Instructions: "amount will be collected in cash on delivery",
		},
	}, nil
}

// CheckStatus reports the attempt as still awaiting collection.
func (a *CashOnDelivery) CheckStatus(ctx context.Context, providerRef string) (StatusResult, error) {
	return StatusResult{
		Status:      enums.SessionStatusRequiresAction,
		ProviderRef: providerRef,
	}, nil
}
