package auction

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 2 // prices are stored with 2 decimal places

// maxMoney is the exclusive upper bound of a price (10 digits, 2 of them decimal).
var maxMoney = decimal.New(1, 8)

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errAmountScale    = fmt.Errorf("amount must have at most %d decimal places", monetaryPrecision)
	errAmountTooLarge = fmt.Errorf("amount must be below %s", maxMoney.String())
)

// CheckMoney reports whether amount is representable as a stored price:
// non-negative, at most two decimal places, and below maxMoney.
// Amounts are never rounded silently; a value with more precision is rejected.
func CheckMoney(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errNegativeAmount
	}
	if !amount.Equal(amount.Truncate(monetaryPrecision)) {
		return errAmountScale
	}
	if amount.GreaterThanOrEqual(maxMoney) {
		return errAmountTooLarge
	}
	return nil
}

// FormatMoney renders amount with exactly two decimals behind the given currency symbol.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(monetaryPrecision)
}
