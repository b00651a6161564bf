package backtest

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/marginsim/sim"
	"github.com/shopspring/decimal"
)

// Strategy is called once per candle, after liquidations for that candle
// have been enforced.
type Strategy interface {
	Name() string
	OnCandle(e *sim.Engine, idx int) error
}

// RunnerOptions controls how the backtest runner behaves.
type RunnerOptions struct {
	// CloseAtEnd closes whatever is still open on the last candle.
	CloseAtEnd bool
}

// Runner drives an engine across its candles with a strategy.
type Runner struct {
	Engine   *sim.Engine
	Strategy Strategy
	Options  RunnerOptions
}

// Run executes the backtest loop:
//  1. engine.Step(idx) (moves the clock, force-closes illiquid positions)
//  2. strategy.OnCandle(engine, idx)
func (r *Runner) Run() (Result, error) {
	if r.Engine == nil {
		return Result{}, errors.New("backtest: Engine is required")
	}
	if r.Strategy == nil {
		return Result{}, errors.New("backtest: Strategy is required")
	}

	if err := r.Engine.SetCandleIndex(0); err != nil {
		return Result{}, err
	}
	startValue, err := r.Engine.Value()
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:      r.Engine.RunID(),
		Strategy:   r.Strategy.Name(),
		Candles:    r.Engine.CandleCount(),
		StartValue: startValue,
	}

	for idx := 0; idx < r.Engine.CandleCount(); idx++ {
		liquidated, err := r.Engine.Step(idx)
		if err != nil {
			return res, fmt.Errorf("backtest: candle %d: %w", idx, err)
		}
		res.Liquidations += len(liquidated)

		if err := r.Strategy.OnCandle(r.Engine, idx); err != nil {
			return res, fmt.Errorf("backtest: strategy %s at candle %d: %w", r.Strategy.Name(), idx, err)
		}
	}

	if r.Options.CloseAtEnd {
		if err := r.Engine.CloseAll(); err != nil {
			return res, fmt.Errorf("backtest: close at end: %w", err)
		}
	}

	res.OpenPositions = len(r.Engine.OpenPositionIDs())
	res.EndBase, res.EndQuote = r.Engine.Balances()
	if res.EndValue, err = r.Engine.Value(); err != nil {
		return res, err
	}
	res.ProfitLoss = res.EndValue.Sub(res.StartValue)
	return res, nil
}

// Result is a lightweight summary of a backtest run. Values are combined
// quote values of the account balances.
type Result struct {
	RunID    string
	Strategy string
	Candles  int

	StartValue decimal.Decimal
	EndValue   decimal.Decimal
	ProfitLoss decimal.Decimal
	EndBase    decimal.Decimal
	EndQuote   decimal.Decimal

	Liquidations  int
	OpenPositions int
}
