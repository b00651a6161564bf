package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	testOpen  = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	testClose = time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
)

func samplePosition(runID string, id int) PositionRecord {
	return PositionRecord{
		RunID:           runID,
		PositionID:      id,
		Direction:       "long",
		OpenCandle:      3,
		CloseCandle:     9,
		OpenTime:        testOpen,
		CloseTime:       testClose,
		OpenPrice:       dec("1000"),
		ClosePrice:      dec("1100.25"),
		BaseCollateral:  dec("0.05"),
		QuoteCollateral: dec("50"),
		Borrowed:        dec("200"),
		BaseProfit:      dec("0.0227499999999999"),
		QuoteProfit:     dec("0"),
		Liquidated:      false,
	}
}

func sampleBalance(runID string, candle int) BalanceSnapshot {
	return BalanceSnapshot{
		RunID:  runID,
		Candle: candle,
		Time:   testClose,
		Price:  dec("1100.25"),
		Base:   dec("0.0727499999999999"),
		Quote:  dec("50"),
		Value:  dec("130.0431937499998899"),
	}
}
