package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human amount into token base units, truncating
// anything below the token's precision.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromBaseUnits converts token base units into a human amount.
func FromBaseUnits(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}
