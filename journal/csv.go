package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	positionHeader = []string{"run_id", "position_id", "direction", "open_candle", "close_candle",
		"open_time", "close_time", "open_price", "close_price", "base_collateral", "quote_collateral",
		"borrowed", "base_profit", "quote_profit", "liquidated"}
	balanceHeader = []string{"run_id", "candle", "time", "price", "base", "quote", "value"}
)

type CSV struct {
	positions *csv.Writer
	balances  *csv.Writer
	pf, bf    *os.File
}

func NewCSV(positionsPath, balancesPath string) (*CSV, error) {
	pf, err := os.Create(positionsPath)
	if err != nil {
		return nil, err
	}
	bf, err := os.Create(balancesPath)
	if err != nil {
		_ = pf.Close()
		return nil, err
	}

	j := &CSV{
		positions: csv.NewWriter(pf),
		balances:  csv.NewWriter(bf),
		pf:        pf,
		bf:        bf,
	}
	if err := j.write(j.positions, positionHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.balances, balanceHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func positionRow(p PositionRecord) []string {
	return []string{
		p.RunID,
		strconv.Itoa(p.PositionID),
		p.Direction,
		strconv.Itoa(p.OpenCandle),
		strconv.Itoa(p.CloseCandle),
		p.OpenTime.Format(time.RFC3339),
		p.CloseTime.Format(time.RFC3339),
		p.OpenPrice.String(),
		p.ClosePrice.String(),
		p.BaseCollateral.String(),
		p.QuoteCollateral.String(),
		p.Borrowed.String(),
		p.BaseProfit.String(),
		p.QuoteProfit.String(),
		strconv.FormatBool(p.Liquidated),
	}
}

func balanceRow(b BalanceSnapshot) []string {
	return []string{
		b.RunID,
		strconv.Itoa(b.Candle),
		b.Time.Format(time.RFC3339),
		b.Price.String(),
		b.Base.String(),
		b.Quote.String(),
		b.Value.String(),
	}
}

// RecordClose buffers both rows before flushing either file.
func (j *CSV) RecordClose(p PositionRecord, b BalanceSnapshot) error {
	if err := j.positions.Write(positionRow(p)); err != nil {
		return err
	}
	if err := j.balances.Write(balanceRow(b)); err != nil {
		return err
	}
	j.positions.Flush()
	if err := j.positions.Error(); err != nil {
		return err
	}
	j.balances.Flush()
	return j.balances.Error()
}

func (j *CSV) Close() error {
	j.positions.Flush()
	if err := j.positions.Error(); err != nil {
		return err
	}
	j.balances.Flush()
	if err := j.balances.Error(); err != nil {
		return err
	}

	if err := j.pf.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}
