package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSV, string, string) {
	t.Helper()

	dir := t.TempDir()
	positionsPath := filepath.Join(dir, "positions.csv")
	balancesPath := filepath.Join(dir, "balances.csv")

	j, err := NewCSV(positionsPath, balancesPath)
	require.NoError(t, err)
	return j, positionsPath, balancesPath
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, positionsPath, balancesPath := newTestCSV(t)
	assert.NoError(t, j.Close())

	assert.Equal(t, [][]string{positionHeader}, readRows(t, positionsPath))
	assert.Equal(t, [][]string{balanceHeader}, readRows(t, balancesPath))
}

func TestCSVJournalPositionRow(t *testing.T) {
	t.Parallel()

	j, positionsPath, _ := newTestCSV(t)

	rec := samplePosition("RUN1", 4)
	rec.Liquidated = true
	assert.NoError(t, j.RecordClose(rec, sampleBalance("RUN1", 9)))
	assert.NoError(t, j.Close())

	rows := readRows(t, positionsPath)
	require.Len(t, rows, 2)

	want := []string{
		"RUN1",
		"4",
		"long",
		"3",
		"9",
		testOpen.Format(time.RFC3339),
		testClose.Format(time.RFC3339),
		"1000",
		"1100.25",
		"0.05",
		"50",
		"200",
		"0.0227499999999999",
		"0",
		"true",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalBalanceRow(t *testing.T) {
	t.Parallel()

	j, _, balancesPath := newTestCSV(t)

	assert.NoError(t, j.RecordClose(samplePosition("RUN1", 0), sampleBalance("RUN1", 12)))
	assert.NoError(t, j.Close())

	rows := readRows(t, balancesPath)
	require.Len(t, rows, 2)

	want := []string{
		"RUN1",
		"12",
		testClose.Format(time.RFC3339),
		"1100.25",
		"0.0727499999999999",
		"50",
		"130.0431937499998899",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordClose(t *testing.T) {
	t.Parallel()

	j, positionsPath, balancesPath := newTestCSV(t)
	require.NoError(t, j.RecordClose(samplePosition("RUN1", 2), sampleBalance("RUN1", 9)))

	// rows are flushed before Close
	require.Len(t, readRows(t, positionsPath), 2)
	require.Len(t, readRows(t, balancesPath), 2)
	assert.NoError(t, j.Close())
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "p.csv"), filepath.Join(dir, "b.csv"))
	assert.Error(t, err)
}

func TestMemoryJournal(t *testing.T) {
	t.Parallel()

	var m Memory
	require.NoError(t, m.RecordClose(samplePosition("R", 0), sampleBalance("R", 0)))
	require.NoError(t, m.RecordClose(samplePosition("R", 1), sampleBalance("R", 1)))
	require.NoError(t, m.Close())

	assert.Len(t, m.Positions, 2)
	assert.Len(t, m.Balances, 2)
	assert.True(t, m.Closed)

	var j Journal = Nop{}
	assert.NoError(t, j.RecordClose(PositionRecord{}, BalanceSnapshot{}))
	assert.NoError(t, j.Close())
}
