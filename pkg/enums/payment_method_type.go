package enums

import "fmt"

// PaymentMethodType groups payment methods by the provider family behind them.
type PaymentMethodType string

const (
	PaymentMethodTypeCashOnDelivery PaymentMethodType = "cash_on_delivery"
	PaymentMethodTypeMobileMoney    PaymentMethodType = "mobile_money"
	PaymentMethodTypeCard           PaymentMethodType = "card"
	PaymentMethodTypeWallet         PaymentMethodType = "wallet"
	PaymentMethodTypeBankTransfer   PaymentMethodType = "bank_transfer"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeCashOnDelivery,
	PaymentMethodTypeMobileMoney,
	PaymentMethodTypeCard,
	PaymentMethodTypeWallet,
	PaymentMethodTypeBankTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethodType.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts the raw string to PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}
