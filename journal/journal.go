package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionRecord is written once, when a margin position is closed.
type PositionRecord struct {
	RunID       string
	PositionID  int
	Direction   string
	OpenCandle  int
	CloseCandle int
	OpenTime    time.Time
	CloseTime   time.Time

	OpenPrice       decimal.Decimal
	ClosePrice      decimal.Decimal
	BaseCollateral  decimal.Decimal
	QuoteCollateral decimal.Decimal
	Borrowed        decimal.Decimal

	BaseProfit  decimal.Decimal
	QuoteProfit decimal.Decimal
	Liquidated  bool
}

// BalanceSnapshot captures the account after a balance mutation.
type BalanceSnapshot struct {
	RunID  string
	Candle int
	Time   time.Time
	Price  decimal.Decimal
	Base   decimal.Decimal
	Quote  decimal.Decimal
	// Value is base+quote expressed in quote at Price.
	Value decimal.Decimal
}

// Journal receives one entry per closed position.
type Journal interface {
	// RecordClose stores the closed position together with the balances it
	// left behind. Either both are kept or neither is.
	RecordClose(PositionRecord, BalanceSnapshot) error
	Close() error
}
