package journal

import (
	"fmt"
	"strings"
)

// FormatPosition renders one position record as a short text block.
func FormatPosition(p PositionRecord) string {
	var b strings.Builder

	status := "closed"
	if p.Liquidated {
		status = "liquidated"
	}
	fmt.Fprintf(&b, "Position %d (%s, %s)\n", p.PositionID, p.Direction, status)
	fmt.Fprintf(&b, "  Run:        %s\n", p.RunID)
	fmt.Fprintf(&b, "  Opened:     candle %d at %s, price %s\n", p.OpenCandle, p.OpenTime.UTC().Format("2006-01-02 15:04:05"), p.OpenPrice)
	fmt.Fprintf(&b, "  Closed:     candle %d at %s, price %s\n", p.CloseCandle, p.CloseTime.UTC().Format("2006-01-02 15:04:05"), p.ClosePrice)
	fmt.Fprintf(&b, "  Collateral: base %s, quote %s\n", p.BaseCollateral, p.QuoteCollateral)
	fmt.Fprintf(&b, "  Borrowed:   %s\n", p.Borrowed)
	fmt.Fprintf(&b, "  Profit:     base %s, quote %s\n", p.BaseProfit.StringFixed(8), p.QuoteProfit.StringFixed(4))
	return b.String()
}

// FormatPositions renders a list of records, or a placeholder when empty.
func FormatPositions(ps []PositionRecord) string {
	if len(ps) == 0 {
		return "No positions found.\n"
	}
	blocks := make([]string, len(ps))
	for i, p := range ps {
		blocks[i] = FormatPosition(p)
	}
	return strings.Join(blocks, "\n")
}

// FormatBalances renders balance snapshots one per line.
func FormatBalances(bs []BalanceSnapshot) string {
	if len(bs) == 0 {
		return "No balances found.\n"
	}
	var b strings.Builder
	for _, s := range bs {
		fmt.Fprintf(&b, "candle %4d  price %s  base %s  quote %s  value %s\n",
			s.Candle, s.Price, s.Base.StringFixed(8), s.Quote.StringFixed(4), s.Value.StringFixed(4))
	}
	return b.String()
}
