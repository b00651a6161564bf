package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/marginsim/id"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the margin journal",
	Long: `Query and display position and balance records from a SQLite journal.

Subcommands:
  position  - Details of one position of a run
  positions - All closed positions of a run
  balances  - Balance snapshots of a run

Examples:
  marginsim journal positions <run-id>
  marginsim journal position <run-id> 0`,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <run-id> <position-id>",
	Short: "Get details of a specific position",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalPosition,
}

var journalPositionsCmd = &cobra.Command{
	Use:   "positions <run-id>",
	Short: "List the closed positions of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPositions,
}

var journalBalancesCmd = &cobra.Command{
	Use:   "balances <run-id>",
	Short: "List the balance snapshots of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalBalances,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalPositionCmd)
	journalCmd.AddCommand(journalPositionsCmd)
	journalCmd.AddCommand(journalBalancesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./marginsim.sqlite", "path to SQLite journal DB")
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	positionID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("position id: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetPosition(args[0], positionID)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPosition(rec))
	return nil
}

func runJournalPositions(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListPositions(args[0])
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}

	printRunHeader(cmd.OutOrStdout(), args[0])
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPositions(recs))
	return nil
}

func runJournalBalances(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	bs, err := j.ListBalances(args[0])
	if err != nil {
		return fmt.Errorf("query balances: %w", err)
	}

	printRunHeader(cmd.OutOrStdout(), args[0])
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatBalances(bs))
	return nil
}

// printRunHeader prints when a run started if its id is a generated ULID.
func printRunHeader(w io.Writer, runID string) {
	started, err := id.Time(runID)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "Run %s started %s\n\n", runID, started.Format(time.RFC3339))
}
