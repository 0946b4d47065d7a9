package payment

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)

// Fee computes the processing fee for a subtotal that has already had all
// discounts applied. A zero subtotal never incurs a fee, whatever the method.
//
// Card-family methods charge a percentage: the quoted total becomes
// subtotal × (1 + pct/100), so dividing the quoted total by that factor
// recovers the subtotal (see BackOutFee). Transfers below the configured
// floor incur a small flat fee; at or above it they are free.
func Fee(subtotal decimal.Decimal, method Method, snap FeeSnapshot) decimal.Decimal {
	if subtotal.IsZero() || subtotal.IsNegative() {
		return decimal.Zero
	}

	switch {
	case isCardFamily(method):
		return subtotal.Mul(snap.CardFeePercent).Div(hundred).Round(2)
	case method == MethodTransfer:
		if subtotal.LessThan(snap.TransferFeeFloor) {
			return snap.TransferFlatFee
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

// BackOutFee recovers the pre-fee subtotal from a gross amount that already
// includes a card-family percentage fee.
func BackOutFee(gross decimal.Decimal, method Method, snap FeeSnapshot) decimal.Decimal {
	if !isCardFamily(method) || gross.IsZero() {
		return gross
	}
	factor := one.Add(snap.CardFeePercent.Div(hundred))
	return gross.DivRound(factor, 2)
}
