package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marginsim",
	Short: "Margin position backtester for base/quote candle series",
	Long: `Marginsim replays a candle series against a two-asset account and a
scripted list of leveraged long and short positions.

It provides tools for:
  - Running config-driven margin backtests with forced liquidation
  - Generating and validating run configurations
  - Querying the position and balance journal of past runs`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
