package journal

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var ErrRecordNotFound = errors.New("journal record not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPosition(x execer, p PositionRecord) error {
	_, err := x.Exec(`
		INSERT INTO positions
		(run_id, position_id, direction, open_candle, close_candle, open_time, close_time,
		 open_price, close_price, base_collateral, quote_collateral, borrowed,
		 base_profit, quote_profit, liquidated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.PositionID, p.Direction, p.OpenCandle, p.CloseCandle, p.OpenTime, p.CloseTime,
		p.OpenPrice.String(), p.ClosePrice.String(), p.BaseCollateral.String(), p.QuoteCollateral.String(),
		p.Borrowed.String(), p.BaseProfit.String(), p.QuoteProfit.String(), p.Liquidated,
	)
	return err
}

func insertBalance(x execer, b BalanceSnapshot) error {
	_, err := x.Exec(`
		INSERT INTO balances
		(run_id, candle, time, price, base, quote, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.RunID, b.Candle, b.Time, b.Price.String(), b.Base.String(), b.Quote.String(), b.Value.String(),
	)
	return err
}

// RecordClose writes both rows in one transaction; on error neither is kept.
func (j *SQLite) RecordClose(p PositionRecord, b BalanceSnapshot) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	if err := insertPosition(tx, p); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("position: %w", err)
	}
	if err := insertBalance(tx, b); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("balance: %w", err)
	}
	return tx.Commit()
}

const positionColumns = `run_id, position_id, direction, open_candle, close_candle, open_time, close_time,
	open_price, close_price, base_collateral, quote_collateral, borrowed,
	base_profit, quote_profit, liquidated`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (PositionRecord, error) {
	var rec PositionRecord
	err := s.Scan(
		&rec.RunID, &rec.PositionID, &rec.Direction, &rec.OpenCandle, &rec.CloseCandle,
		&rec.OpenTime, &rec.CloseTime,
		&rec.OpenPrice, &rec.ClosePrice, &rec.BaseCollateral, &rec.QuoteCollateral, &rec.Borrowed,
		&rec.BaseProfit, &rec.QuoteProfit, &rec.Liquidated,
	)
	return rec, err
}

// GetPosition returns one closed position of a run.
func (j *SQLite) GetPosition(runID string, positionID int) (PositionRecord, error) {
	row := j.db.QueryRow(`SELECT `+positionColumns+` FROM positions WHERE run_id = ? AND position_id = ?`,
		runID, positionID)

	rec, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PositionRecord{}, fmt.Errorf("%w: position %d in run %q", ErrRecordNotFound, positionID, runID)
	}
	return rec, err
}

// ListPositions returns a run's closed positions in id order.
func (j *SQLite) ListPositions(runID string) ([]PositionRecord, error) {
	rows, err := j.db.Query(`SELECT `+positionColumns+` FROM positions WHERE run_id = ? ORDER BY position_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		rec, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBalances returns a run's balance snapshots in candle order.
func (j *SQLite) ListBalances(runID string) ([]BalanceSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, candle, time, price, base, quote, value
		FROM balances
		WHERE run_id = ?
		ORDER BY candle ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceSnapshot
	for rows.Next() {
		var b BalanceSnapshot
		if err := rows.Scan(&b.RunID, &b.Candle, &b.Time, &b.Price, &b.Base, &b.Quote, &b.Value); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
