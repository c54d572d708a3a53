// Package money converts the processor's minor-unit amounts to the
// decimal values exposed by events, reports, and the API.
package money

import "github.com/shopspring/decimal"

// FromCents converts a minor-unit amount to a decimal currency value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
