package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/logging"
	"github.com/rustyeddy/marginsim/margin"
	"github.com/rustyeddy/marginsim/market"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete simulation configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Margin     MarginConfig     `json:"margin" yaml:"margin"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains the starting balances of the pair
type AccountConfig struct {
	ID           string          `json:"id" yaml:"id"`
	BaseAsset    string          `json:"base_asset" yaml:"base_asset"`
	QuoteAsset   string          `json:"quote_asset" yaml:"quote_asset"`
	BaseBalance  decimal.Decimal `json:"base_balance" yaml:"base_balance"`
	QuoteBalance decimal.Decimal `json:"quote_balance" yaml:"quote_balance"`
}

// MarginConfig contains leverage parameters
type MarginConfig struct {
	LeverageRatio    decimal.Decimal `json:"leverage_ratio" yaml:"leverage_ratio"`
	LiquidationRatio decimal.Decimal `json:"liquidation_ratio" yaml:"liquidation_ratio"`
}

// SimulationConfig selects the candle series and the scripted actions.
// Either CandlesFile or Closes must be set.
type SimulationConfig struct {
	CandlesFile string            `json:"candles_file,omitempty" yaml:"candles_file,omitempty"`
	Start       string            `json:"start,omitempty" yaml:"start,omitempty"` // RFC3339, used with closes
	Closes      []decimal.Decimal `json:"closes,omitempty" yaml:"closes,omitempty"`
	Actions     []ActionConfig    `json:"actions" yaml:"actions"`
	CloseAtEnd  bool              `json:"close_at_end" yaml:"close_at_end"`
}

// ActionConfig is one scripted action
type ActionConfig struct {
	Candle     int             `json:"candle" yaml:"candle"`
	Kind       string          `json:"kind" yaml:"kind"`                                   // open_long, open_short, close
	AmountType string          `json:"amount_type,omitempty" yaml:"amount_type,omitempty"` // all, percentage, absolute
	Amount     decimal.Decimal `json:"amount,omitempty" yaml:"amount,omitempty"`
	Asset      string          `json:"asset,omitempty" yaml:"asset,omitempty"` // base or quote, absolute only
	Position   int             `json:"position,omitempty" yaml:"position,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	PositionsFile string `json:"positions_file,omitempty" yaml:"positions_file,omitempty"`
	BalancesFile  string `json:"balances_file,omitempty" yaml:"balances_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.BaseAsset == "" || c.Account.QuoteAsset == "" {
		return fmt.Errorf("account.base_asset and account.quote_asset are required")
	}
	if c.Account.BaseBalance.IsNegative() || c.Account.QuoteBalance.IsNegative() {
		return fmt.Errorf("account balances must not be negative")
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("margin: %w", err)
	}

	hasFile := c.Simulation.CandlesFile != ""
	hasCloses := len(c.Simulation.Closes) > 0
	if hasFile == hasCloses {
		return fmt.Errorf("simulation needs exactly one of candles_file or closes")
	}
	for i, p := range c.Simulation.Closes {
		if !p.IsPositive() {
			return fmt.Errorf("simulation.closes[%d] must be positive", i)
		}
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if _, err := c.Actions(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.PositionsFile == "" || c.Journal.BalancesFile == "" {
			return fmt.Errorf("journal positions_file and balances_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c *Config) Settings() margin.Settings {
	return margin.Settings{
		LeverageRatio:    c.Margin.LeverageRatio,
		LiquidationRatio: c.Margin.LiquidationRatio,
	}
}

// StartTime is the time of the first inline candle.
func (c *Config) StartTime() (time.Time, error) {
	if c.Simulation.Start == "" {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.RFC3339, c.Simulation.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation.start: %w", err)
	}
	return t, nil
}

// Candles loads the configured candle series.
func (c *Config) Candles() ([]market.Candle, error) {
	if c.Simulation.CandlesFile != "" {
		return market.LoadCandlesCSV(c.Simulation.CandlesFile)
	}
	start, err := c.StartTime()
	if err != nil {
		return nil, err
	}
	return market.CandlesFromCloses(start, c.Simulation.Closes)
}

// Actions converts the scripted actions into backtest actions.
func (c *Config) Actions() ([]backtest.Action, error) {
	out := make([]backtest.Action, 0, len(c.Simulation.Actions))
	for i, a := range c.Simulation.Actions {
		act, err := a.Action()
		if err != nil {
			return nil, fmt.Errorf("simulation.actions[%d]: %w", i, err)
		}
		out = append(out, act)
	}
	return out, nil
}

func (a ActionConfig) Action() (backtest.Action, error) {
	act := backtest.Action{
		Candle:   a.Candle,
		Kind:     backtest.ActionKind(a.Kind),
		Position: a.Position,
	}
	if a.Candle < 0 {
		return act, fmt.Errorf("candle must not be negative")
	}

	switch act.Kind {
	case backtest.Close:
		if a.Position < 0 {
			return act, fmt.Errorf("position must not be negative")
		}
		return act, nil
	case backtest.OpenLong, backtest.OpenShort:
	default:
		return act, fmt.Errorf("unknown kind %q", a.Kind)
	}

	at, err := margin.ParseAmountType(a.AmountType)
	if err != nil {
		return act, err
	}
	if at == margin.AmountAll {
		return act, nil
	}
	in := &margin.TradeInput{AmountType: at, Amount: a.Amount}
	if at == margin.AmountAbsolute {
		if in.Asset, err = market.ParseAssetType(a.Asset); err != nil {
			return act, err
		}
	}
	act.Input = in
	return act, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:           "SIM-001",
			BaseAsset:    "BTC",
			QuoteAsset:   "USDT",
			BaseBalance:  decimal.Zero,
			QuoteBalance: decimal.NewFromInt(100),
		},
		Margin: MarginConfig{
			LeverageRatio:    decimal.NewFromInt(2),
			LiquidationRatio: decimal.RequireFromString("0.1"),
		},
		Simulation: SimulationConfig{
			Closes: []decimal.Decimal{
				decimal.NewFromInt(1000),
				decimal.NewFromInt(1200),
				decimal.NewFromInt(800),
				decimal.NewFromInt(900),
				decimal.NewFromInt(1100),
			},
			Actions: []ActionConfig{
				{Candle: 0, Kind: string(backtest.OpenLong)},
				{Candle: 1, Kind: string(backtest.Close), Position: 0},
				{Candle: 2, Kind: string(backtest.OpenShort), AmountType: "percentage", Amount: decimal.NewFromInt(50)},
				{Candle: 4, Kind: string(backtest.Close), Position: 1},
			},
			CloseAtEnd: true,
		},
		Journal: JournalConfig{
			Type:          "csv",
			PositionsFile: "./positions.csv",
			BalancesFile:  "./balances.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}
