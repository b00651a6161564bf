package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GetCombinedValue expresses a base+quote holding in the target asset at
// price (quote per base unit).
//
//	Quote: base*price + quote
//	Base:  base + quote/price
func GetCombinedValue(target AssetType, base, quote, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("combined value: %w: %s", ErrInvalidPrice, price)
	}
	if base.IsNegative() || quote.IsNegative() {
		return decimal.Zero, fmt.Errorf("combined value: %w: negative amount (base %s, quote %s)",
			ErrInvalidArgument, base, quote)
	}

	switch target {
	case Quote:
		return base.Mul(price).Add(quote), nil
	case Base:
		return base.Add(quote.Div(price)), nil
	default:
		return decimal.Zero, fmt.Errorf("combined value: %w: target %s", ErrInvalidArgument, target)
	}
}

// QuoteValue is GetCombinedValue for the quote side, the unit every report
// in this module is expressed in.
func QuoteValue(base, quote, price decimal.Decimal) (decimal.Decimal, error) {
	return GetCombinedValue(Quote, base, quote, price)
}
