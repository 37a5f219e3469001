package mathutil

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimals of the payment token unless
// configured otherwise.
const DefaultPrecision = 8

// FormatAmount returns the decimal representation of an amount expressed in
// the smallest unit of a token with the given precision.
// (ie. FormatAmount(150, 2) = "1.50")
func FormatAmount(amount uint64, precision uint) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(precision))
	return d.StringFixed(int32(precision))
}

// ParseAmount is the inverse of FormatAmount. It fails if the string is not a
// positive number or has more decimals than precision.
func ParseAmount(amount string, precision uint) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}

	units := d.Shift(int32(precision))
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("amount has more than %d decimals", precision)
	}

	n := units.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("amount out of range")
	}
	return n.Uint64(), nil
}
