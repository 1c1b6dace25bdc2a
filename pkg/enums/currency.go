package enums

import "fmt"

// Currency is an ISO-4217 code supported by the platform.
type Currency string

const (
	CurrencyZMW Currency = "ZMW"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyZMW,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts the raw string to Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
