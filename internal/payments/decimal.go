package payments

import "github.com/shopspring/decimal"

var decimalZero = decimal.Zero

func intToDecimal(value int) decimal.Decimal {
	return decimal.NewFromInt(int64(value))
}

// toMinorUnits converts a major-unit amount to the integer minor units
// (cents) the provider expects.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
