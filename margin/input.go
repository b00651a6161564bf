package margin

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/marginsim/market"
	"github.com/shopspring/decimal"
)

var ErrInvalidTradeInput = errors.New("invalid trade input")

// AmountType selects how TradeInput.Amount is read.
type AmountType int8

const (
	// AmountAll posts every unit of both balances.
	AmountAll AmountType = iota
	// AmountPercentage posts Amount percent (0,100] of both balances.
	AmountPercentage
	// AmountAbsolute posts Amount units of Asset and nothing of the other.
	AmountAbsolute
)

func (a AmountType) String() string {
	switch a {
	case AmountAll:
		return "all"
	case AmountPercentage:
		return "percentage"
	case AmountAbsolute:
		return "absolute"
	default:
		return fmt.Sprintf("amount(%d)", int8(a))
	}
}

func ParseAmountType(s string) (AmountType, error) {
	switch s {
	case "", "all":
		return AmountAll, nil
	case "percentage":
		return AmountPercentage, nil
	case "absolute":
		return AmountAbsolute, nil
	}
	return 0, fmt.Errorf("%w: unknown amount type %q", ErrInvalidTradeInput, s)
}

// TradeInput overrides how much of the account is posted as collateral.
// A nil *TradeInput behaves like AmountAll.
type TradeInput struct {
	AmountType AmountType
	Amount     decimal.Decimal
	Asset      market.AssetType
}

var hundred = decimal.NewFromInt(100)

// Collateral picks the base and quote collateral out of the given balances.
func (in *TradeInput) Collateral(baseBalance, quoteBalance decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if in == nil || in.AmountType == AmountAll {
		return baseBalance, quoteBalance, nil
	}

	switch in.AmountType {
	case AmountPercentage:
		if !in.Amount.IsPositive() || in.Amount.GreaterThan(hundred) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: percentage %s outside (0,100]", ErrInvalidTradeInput, in.Amount)
		}
		frac := in.Amount.Div(hundred)
		return baseBalance.Mul(frac), quoteBalance.Mul(frac), nil

	case AmountAbsolute:
		if !in.Amount.IsPositive() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s must be positive", ErrInvalidTradeInput, in.Amount)
		}
		avail := quoteBalance
		if in.Asset == market.Base {
			avail = baseBalance
		}
		if in.Amount.GreaterThan(avail) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %s exceeds %s balance %s",
				ErrInvalidTradeInput, in.Amount, in.Asset, avail)
		}
		if in.Asset == market.Base {
			return in.Amount, decimal.Zero, nil
		}
		return decimal.Zero, in.Amount, nil
	}

	return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount type %s", ErrInvalidTradeInput, in.AmountType)
}

// GeneratePositionFromInput sizes collateral from the account balances and
// generates the position.
func GeneratePositionFromInput(dir Direction, openPrice decimal.Decimal, in *TradeInput, baseBalance, quoteBalance decimal.Decimal, s Settings) (*Position, error) {
	baseColl, quoteColl, err := in.Collateral(baseBalance, quoteBalance)
	if err != nil {
		return nil, err
	}
	return GeneratePosition(dir, openPrice, baseColl, quoteColl, s)
}
