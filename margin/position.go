package margin

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/marginsim/market"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidConfiguration = errors.New("invalid margin configuration")
	ErrPositionClosed       = errors.New("position already closed")
)

// Direction says which asset is borrowed: quote for Long, base for Short.
type Direction int8

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}

// Settings are the per-run leverage parameters.
type Settings struct {
	LeverageRatio    decimal.Decimal
	LiquidationRatio decimal.Decimal
}

var one = decimal.NewFromInt(1)

func (s Settings) Validate() error {
	if s.LeverageRatio.LessThan(one) {
		return fmt.Errorf("%w: leverage ratio %s is below 1", ErrInvalidConfiguration, s.LeverageRatio)
	}
	if !s.LiquidationRatio.IsPositive() || !s.LiquidationRatio.LessThan(one) {
		return fmt.Errorf("%w: liquidation ratio %s is outside (0,1)", ErrInvalidConfiguration, s.LiquidationRatio)
	}
	return nil
}

// Position is one leveraged position. Everything except the close fields
// is fixed when the position is generated.
type Position struct {
	Direction       Direction
	OpenPrice       decimal.Decimal
	BaseCollateral  decimal.Decimal
	QuoteCollateral decimal.Decimal

	LeverageRatio    decimal.Decimal
	LiquidationRatio decimal.Decimal

	// BorrowedAmount is quote for Long and base for Short.
	BorrowedAmount decimal.Decimal
	// Exposure is what the borrowed amount bought: base for Long, quote for Short.
	Exposure        decimal.Decimal
	HeldBaseAtOpen  decimal.Decimal
	HeldQuoteAtOpen decimal.Decimal

	CandleOpenIndex  int
	CandleCloseIndex *int

	Closed      bool
	BaseProfit  decimal.Decimal
	QuoteProfit decimal.Decimal
}

// GeneratePosition sizes a position from the posted collateral.
//
//	V = baseCollateral*openPrice + quoteCollateral
//	Long:  borrowed = L*V (quote), exposure = borrowed/openPrice (base)
//	Short: borrowed = L*V/openPrice (base), exposure = L*V (quote)
func GeneratePosition(dir Direction, openPrice, baseCollateral, quoteCollateral decimal.Decimal, s Settings) (*Position, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !openPrice.IsPositive() {
		return nil, fmt.Errorf("%w: open price %s must be positive", ErrInvalidConfiguration, openPrice)
	}
	if baseCollateral.IsNegative() || quoteCollateral.IsNegative() {
		return nil, fmt.Errorf("%w: negative collateral (base %s, quote %s)",
			ErrInvalidConfiguration, baseCollateral, quoteCollateral)
	}

	v := baseCollateral.Mul(openPrice).Add(quoteCollateral)
	if !v.IsPositive() {
		return nil, fmt.Errorf("%w: collateral value must be positive", ErrInvalidConfiguration)
	}
	leveraged := s.LeverageRatio.Mul(v)

	p := &Position{
		Direction:        dir,
		OpenPrice:        openPrice,
		BaseCollateral:   baseCollateral,
		QuoteCollateral:  quoteCollateral,
		LeverageRatio:    s.LeverageRatio,
		LiquidationRatio: s.LiquidationRatio,
	}

	switch dir {
	case Long:
		p.BorrowedAmount = leveraged
		p.Exposure = leveraged.Div(openPrice)
		p.HeldBaseAtOpen = baseCollateral.Add(p.Exposure)
		p.HeldQuoteAtOpen = quoteCollateral
	case Short:
		p.BorrowedAmount = leveraged.Div(openPrice)
		p.Exposure = leveraged
		p.HeldBaseAtOpen = baseCollateral
		p.HeldQuoteAtOpen = quoteCollateral.Add(p.Exposure)
	default:
		return nil, fmt.Errorf("%w: unknown direction %s", ErrInvalidConfiguration, dir)
	}
	return p, nil
}

// CollateralValue is the quote value of the collateral at the open price.
func (p *Position) CollateralValue() decimal.Decimal {
	return p.BaseCollateral.Mul(p.OpenPrice).Add(p.QuoteCollateral)
}

// LiquidationThreshold is the equity below which the position is illiquid.
func (p *Position) LiquidationThreshold() decimal.Decimal {
	return p.LiquidationRatio.Mul(p.CollateralValue())
}

// PnL is the quote-denominated gain of the borrowed leg at price.
// It is exactly zero at the open price.
func (p *Position) PnL(price decimal.Decimal) decimal.Decimal {
	move := price.Sub(p.OpenPrice)
	if p.Direction == Short {
		return p.BorrowedAmount.Mul(move.Neg())
	}
	return p.BorrowedAmount.Mul(move).Div(p.OpenPrice)
}

// Equity is the quote value of collateral plus exposure minus debt at price.
func (p *Position) Equity(price decimal.Decimal) decimal.Decimal {
	return p.BaseCollateral.Mul(price).Add(p.QuoteCollateral).Add(p.PnL(price))
}

// IsLiquid reports whether equity at price is still at or above the
// liquidation threshold.
func (p *Position) IsLiquid(price decimal.Decimal) bool {
	return p.Equity(price).GreaterThanOrEqual(p.LiquidationThreshold())
}

// CalculateUnrealizedBalances returns the balances the account would hold if
// the position were settled at price, given the account's current balances.
// Long P/L is settled in base and Short P/L in quote; a shortfall on that
// side is covered from the other asset and anything left is written off.
// An illiquid position never loses more than its collateral is worth at
// price. The position itself is not modified.
func (p *Position) CalculateUnrealizedBalances(price, currentBase, currentQuote decimal.Decimal) (bool, decimal.Decimal, decimal.Decimal, error) {
	if p.Closed {
		return false, currentBase, currentQuote, ErrPositionClosed
	}
	if !price.IsPositive() {
		return false, currentBase, currentQuote, fmt.Errorf("unrealized balances: %w: %s", market.ErrInvalidPrice, price)
	}
	if currentBase.IsNegative() || currentQuote.IsNegative() {
		return false, currentBase, currentQuote, fmt.Errorf("unrealized balances: %w: negative balance (base %s, quote %s)",
			market.ErrInvalidArgument, currentBase, currentQuote)
	}

	pnl := p.PnL(price)
	collateralNow := p.BaseCollateral.Mul(price).Add(p.QuoteCollateral)
	liquid := collateralNow.Add(pnl).GreaterThanOrEqual(p.LiquidationThreshold())
	if !liquid && pnl.LessThan(collateralNow.Neg()) {
		pnl = collateralNow.Neg()
	}

	base, quote := currentBase, currentQuote
	if p.Direction == Long {
		base = base.Add(pnl.Div(price))
		if base.IsNegative() {
			quote = floor(quote.Add(base.Mul(price)))
			base = decimal.Zero
		}
	} else {
		quote = quote.Add(pnl)
		if quote.IsNegative() {
			base = floor(base.Add(quote.Div(price)))
			quote = decimal.Zero
		}
	}
	return liquid, base, quote, nil
}

// MarkClosed records the realized result. It can only happen once.
func (p *Position) MarkClosed(candleIndex int, baseProfit, quoteProfit decimal.Decimal) error {
	if p.Closed {
		return ErrPositionClosed
	}
	p.Closed = true
	p.CandleCloseIndex = &candleIndex
	p.BaseProfit = baseProfit
	p.QuoteProfit = quoteProfit
	return nil
}

// Clone returns a copy that shares no pointers with p.
func (p *Position) Clone() Position {
	c := *p
	if p.CandleCloseIndex != nil {
		idx := *p.CandleCloseIndex
		c.CandleCloseIndex = &idx
	}
	return c
}

func floor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
