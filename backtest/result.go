package backtest

import (
	"fmt"
	"io"
)

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Margin Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Candles:       %d\n", r.Candles)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account (quote value)")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Value:   %s\n", r.StartValue.StringFixed(4))
	fmt.Fprintf(w, "End Value:     %s\n", r.EndValue.StringFixed(4))
	fmt.Fprintf(w, "Profit/Loss:   %s\n", r.ProfitLoss.StringFixed(4))
	fmt.Fprintf(w, "End Base:      %s\n", r.EndBase.StringFixed(8))
	fmt.Fprintf(w, "End Quote:     %s\n", r.EndQuote.StringFixed(4))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Positions")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Liquidations:  %d\n", r.Liquidations)
	fmt.Fprintf(w, "Still Open:    %d\n", r.OpenPositions)
}
