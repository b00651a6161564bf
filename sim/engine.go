package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/marginsim/id"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/margin"
	"github.com/rustyeddy/marginsim/market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrCandleOutOfRange = errors.New("candle index out of range")
	ErrNoCandles        = errors.New("no candles")
	ErrNegativeBalance  = errors.New("negative starting balance")
)

// Options configure one simulation run.
type Options struct {
	RunID        string // generated when empty
	Candles      []market.Candle
	BaseBalance  decimal.Decimal
	QuoteBalance decimal.Decimal
	Settings     margin.Settings
	Logger       *zap.Logger
	Journal      journal.Journal
}

// Engine holds the account state of a single run: balances, the margin
// position table and its id counter. Engines never share state, so
// parallel runs each need their own.
type Engine struct {
	mu sync.Mutex

	runID    string
	candles  []market.Candle
	idx      int
	settings margin.Settings

	base  decimal.Decimal
	quote decimal.Decimal

	positions map[int]*margin.Position
	nextID    int

	log     *zap.Logger
	journal journal.Journal
}

func NewEngine(opts Options) (*Engine, error) {
	if len(opts.Candles) == 0 {
		return nil, ErrNoCandles
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.BaseBalance.IsNegative() || opts.QuoteBalance.IsNegative() {
		return nil, fmt.Errorf("%w: base %s, quote %s", ErrNegativeBalance, opts.BaseBalance, opts.QuoteBalance)
	}
	for i, c := range opts.Candles {
		if !c.Price().IsPositive() {
			return nil, fmt.Errorf("candle %d: %w: %s", i, market.ErrInvalidPrice, c.Price())
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = id.New()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	j := opts.Journal
	if j == nil {
		j = journal.Nop{}
	}

	return &Engine{
		runID:     runID,
		candles:   opts.Candles,
		settings:  opts.Settings,
		base:      opts.BaseBalance,
		quote:     opts.QuoteBalance,
		positions: make(map[int]*margin.Position),
		log:       log.With(zap.String("run", runID)),
		journal:   j,
	}, nil
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) CandleCount() int { return len(e.candles) }

// SetCandleIndex moves the simulation clock.
func (e *Engine) SetCandleIndex(i int) error {
	if i < 0 || i >= len(e.candles) {
		return fmt.Errorf("%w: %d of %d", ErrCandleOutOfRange, i, len(e.candles))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idx = i
	return nil
}

func (e *Engine) CurrentCandleIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idx
}

func (e *Engine) CurrentCandle() market.Candle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.candles[e.idx]
}

func (e *Engine) CurrentPrice() decimal.Decimal {
	return e.CurrentCandle().Price()
}

// Balances returns the account's base and quote balances.
func (e *Engine) Balances() (decimal.Decimal, decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.base, e.quote
}

// Value is the combined quote value of the balances at the current price.
// Open positions are not included; see UnrealizedBalances.
func (e *Engine) Value() (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return market.QuoteValue(e.base, e.quote, e.candles[e.idx].Price())
}

// Position returns a copy of a position record, open or closed.
func (e *Engine) Position(positionID int) (margin.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return margin.Position{}, fmt.Errorf("%w: %d", ErrPositionNotFound, positionID)
	}
	return pos.Clone(), nil
}

// OpenPositionIDs lists open positions in ascending id order.
func (e *Engine) OpenPositionIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openIDsLocked()
}

func (e *Engine) openIDsLocked() []int {
	ids := make([]int, 0, len(e.positions))
	for pid, pos := range e.positions {
		if !pos.Closed {
			ids = append(ids, pid)
		}
	}
	sort.Ints(ids)
	return ids
}

// OpenPosition opens a margin position at the current candle. Collateral
// is taken from the current balances as selected by in (nil posts all of
// both balances). Balances are not changed; the collateral stays in the
// account. Returns the new position id.
func (e *Engine) OpenPosition(dir margin.Direction, in *margin.TradeInput) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price := e.candles[e.idx].Price()
	pos, err := margin.GeneratePositionFromInput(dir, price, in, e.base, e.quote, e.settings)
	if err != nil {
		e.log.Error("open margin position failed",
			zap.Int("candle", e.idx),
			zap.Stringer("direction", dir),
			zap.Error(err),
		)
		return 0, fmt.Errorf("open %s position: %w", dir, err)
	}
	pos.CandleOpenIndex = e.idx

	positionID := e.nextID
	e.positions[positionID] = pos
	e.nextID++

	e.log.Info("opened margin position",
		zap.Int("candle", e.idx),
		zap.Int("position_id", positionID),
		zap.Stringer("direction", dir),
		zap.Stringer("price", price),
		zap.Stringer("borrowed", pos.BorrowedAmount),
	)
	return positionID, nil
}

// UnrealizedBalances previews what ClosePosition would leave in the
// account at the current price without closing anything.
func (e *Engine) UnrealizedBalances(positionID int) (bool, decimal.Decimal, decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return false, e.base, e.quote, fmt.Errorf("%w: %d", ErrPositionNotFound, positionID)
	}
	return pos.CalculateUnrealizedBalances(e.candles[e.idx].Price(), e.base, e.quote)
}

// ClosePosition settles a position at the current candle price and writes
// the result into the account balances. On any error the balances are
// left untouched.
func (e *Engine) ClosePosition(positionID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.closeLocked(positionID)
	return err
}

func (e *Engine) closeLocked(positionID int) (bool, error) {
	pos, ok := e.positions[positionID]
	if !ok {
		err := fmt.Errorf("close position: %w: %d", ErrPositionNotFound, positionID)
		e.log.Error("close margin position failed", zap.Int("candle", e.idx), zap.Error(err))
		return false, err
	}
	if pos.Closed {
		err := fmt.Errorf("close position %d: %w", positionID, margin.ErrPositionClosed)
		e.log.Error("close margin position failed", zap.Int("candle", e.idx), zap.Error(err))
		return false, err
	}

	candle := e.candles[e.idx]
	price := candle.Price()
	isLiquid, newBase, newQuote, err := pos.CalculateUnrealizedBalances(price, e.base, e.quote)
	if err != nil {
		e.log.Error("close margin position failed",
			zap.Int("candle", e.idx), zap.Int("position_id", positionID), zap.Error(err))
		return false, fmt.Errorf("close position %d: %w", positionID, err)
	}

	baseProfit := newBase.Sub(e.base)
	quoteProfit := newQuote.Sub(e.quote)
	value, err := market.QuoteValue(newBase, newQuote, price)
	if err != nil {
		return false, fmt.Errorf("close position %d: %w", positionID, err)
	}

	rec := journal.PositionRecord{
		RunID:           e.runID,
		PositionID:      positionID,
		Direction:       pos.Direction.String(),
		OpenCandle:      pos.CandleOpenIndex,
		CloseCandle:     e.idx,
		OpenTime:        e.candles[pos.CandleOpenIndex].Time,
		CloseTime:       candle.Time,
		OpenPrice:       pos.OpenPrice,
		ClosePrice:      price,
		BaseCollateral:  pos.BaseCollateral,
		QuoteCollateral: pos.QuoteCollateral,
		Borrowed:        pos.BorrowedAmount,
		BaseProfit:      baseProfit,
		QuoteProfit:     quoteProfit,
		Liquidated:      !isLiquid,
	}
	snap := journal.BalanceSnapshot{
		RunID:  e.runID,
		Candle: e.idx,
		Time:   candle.Time,
		Price:  price,
		Base:   newBase,
		Quote:  newQuote,
		Value:  value,
	}
	if err := e.journal.RecordClose(rec, snap); err != nil {
		e.log.Error("journal close failed", zap.Int("position_id", positionID), zap.Error(err))
		return false, fmt.Errorf("close position %d: journal: %w", positionID, err)
	}

	fields := []zap.Field{
		zap.Int("candle", e.idx),
		zap.Int("position_id", positionID),
		zap.Stringer("price", price),
		zap.String("base_profit", baseProfit.StringFixed(3)),
		zap.String("quote_profit", quoteProfit.StringFixed(3)),
	}
	if isLiquid {
		e.log.Info("closed liquid margin position", fields...)
	} else {
		e.log.Warn("closed illiquid margin position", fields...)
	}

	if err := pos.MarkClosed(e.idx, baseProfit, quoteProfit); err != nil {
		return false, err
	}
	e.base = newBase
	e.quote = newQuote
	return isLiquid, nil
}

// EnforceLiquidations force-closes every open position that is illiquid at
// the current price, lowest id first, and returns the closed ids.
func (e *Engine) EnforceLiquidations() ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var liquidated []int
	price := e.candles[e.idx].Price()
	for _, pid := range e.openIDsLocked() {
		if e.positions[pid].IsLiquid(price) {
			continue
		}
		if _, err := e.closeLocked(pid); err != nil {
			return liquidated, err
		}
		liquidated = append(liquidated, pid)
	}
	return liquidated, nil
}

// Step advances to candle i and liquidates what the new price requires.
func (e *Engine) Step(i int) ([]int, error) {
	if err := e.SetCandleIndex(i); err != nil {
		return nil, err
	}
	return e.EnforceLiquidations()
}

// CloseAll closes every open position at the current price in id order.
func (e *Engine) CloseAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pid := range e.openIDsLocked() {
		if _, err := e.closeLocked(pid); err != nil {
			return err
		}
	}
	return nil
}
