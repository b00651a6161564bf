package cmd

import (
	"fmt"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/config"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/logging"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a margin backtest from a config file",
	Long: `Run a margin backtest using settings from a configuration file.

The config file specifies the starting balances, the leverage settings, the
candle series and the scripted open/close actions.

Example:
  marginsim run -f run.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runID         string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "run id for journaling (default: new ULID)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewWriter(cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	candles, err := cfg.Candles()
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}
	actions, err := cfg.Actions()
	if err != nil {
		return err
	}
	strat, err := backtest.NewScriptedStrategy(actions)
	if err != nil {
		return err
	}
	if last := strat.LastCandle(); last >= len(candles) {
		return fmt.Errorf("action at candle %d but only %d candles loaded", last, len(candles))
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer func() {
		if cerr := j.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	engine, err := sim.NewEngine(sim.Options{
		RunID:        runID,
		Candles:      candles,
		BaseBalance:  cfg.Account.BaseBalance,
		QuoteBalance: cfg.Account.QuoteBalance,
		Settings:     cfg.Settings(),
		Logger:       log.With(zap.String("account", cfg.Account.ID)),
		Journal:      j,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	runner := &backtest.Runner{
		Engine:   engine,
		Strategy: strat,
		Options:  backtest.RunnerOptions{CloseAtEnd: cfg.Simulation.CloseAtEnd},
	}
	res, err := runner.Run()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pair: %s/%s\n", cfg.Account.BaseAsset, cfg.Account.QuoteAsset)
	backtest.PrintResult(out, res)
	fmt.Fprintf(out, "Opened IDs:    %v\n", strat.Opened())

	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(out, "\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.PositionsFile, cfg.Journal.BalancesFile)
	case "sqlite":
		fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Journal.DBPath)
	}
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.PositionsFile, jc.BalancesFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}
