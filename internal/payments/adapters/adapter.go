package adapters

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

// ProcessParams carries everything an adapter needs for one payment attempt.
type ProcessParams struct {
	IntentID     string
	SessionID    string
	Amount       decimal.Decimal
	Currency     enums.Currency
	MethodKey    string
	MethodParams map[string]string
	ReturnURL    string
}

// ProcessResult is the adapter's verdict on a payment attempt. Status uses
// the session state machine vocabulary.
type ProcessResult struct {
	Status         enums.SessionStatus
	NextAction     *types.NextAction
	ProviderRef    string
	ReceiptURL     string
	FailureCode    string
	FailureMessage string
}

// StatusResult reports where a provider-side attempt currently stands.
type StatusResult struct {
	Status      enums.SessionStatus
	ProviderRef string
}

// Capabilities flags the optional operations an adapter supports beyond
// process/check.
type Capabilities struct {
	Capture       bool
	Refund        bool
	VerifyWebhook bool
}

// Adapter is one payment provider integration.
type Adapter interface {
	Provider() string
	Capabilities() Capabilities
	ProcessPayment(ctx context.Context, params ProcessParams) (ProcessResult, error)
	CheckStatus(ctx context.Context, providerRef string) (StatusResult, error)
}

// Refunder is implemented by adapters whose Capabilities report Refund.
type Refunder interface {
	Refund(ctx context.Context, providerRef string, amount decimal.Decimal) (string, error)
}
