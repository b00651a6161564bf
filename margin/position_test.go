package margin

import (
	"fmt"
	"testing"

	"github.com/rustyeddy/marginsim/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func settings(leverage, liquidation string) Settings {
	return Settings{LeverageRatio: dec(leverage), LiquidationRatio: dec(liquidation)}
}

var tolerance = decimal.New(1, -8)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got.Round(4)), "got %s want %s", got, want)
}

type scenario struct {
	baseCollateral  string
	quoteCollateral string
	newPrice        string
	leverage        string
	expected        string
}

func runScenarios(t *testing.T, dir Direction, tests map[string]scenario) {
	t.Helper()

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pos, err := GeneratePosition(dir, dec("1000"), dec(tt.baseCollateral), dec(tt.quoteCollateral),
				settings(tt.leverage, "0.1"))
			require.NoError(t, err)

			isLiquid, base, quote, err := pos.CalculateUnrealizedBalances(
				dec(tt.newPrice), dec(tt.baseCollateral), dec(tt.quoteCollateral))
			require.NoError(t, err)

			combined, err := market.GetCombinedValue(market.Quote, base, quote, dec(tt.newPrice))
			require.NoError(t, err)

			assert.True(t, isLiquid)
			assertDecimal(t, tt.expected, combined)
			assert.False(t, base.IsNegative())
			assert.False(t, quote.IsNegative())
		})
	}
}

func TestCalculateUnrealizedBalances_Long(t *testing.T) {
	t.Parallel()

	runScenarios(t, Long, map[string]scenario{
		"profit_1x_quote":   {"0", "100", "1100", "1", "110"},
		"loss_1x_quote":     {"0", "100", "900", "1", "90"},
		"profit_2x_quote":   {"0", "100", "1100", "2", "120"},
		"loss_2x_quote":     {"0", "100", "900", "2", "80"},
		"profit_1x_base":    {"0.1", "0", "1100", "1", "120"},
		"loss_1x_base":      {"0.1", "0", "900", "1", "80"},
		"profit_2x_base":    {"0.1", "0", "1100", "2", "130"},
		"loss_2x_base":      {"0.1", "0", "900", "2", "70"},
		"profit_1x_mixed":   {"0.05", "50", "1100", "1", "115"},
		"loss_1x_mixed":     {"0.05", "50", "900", "1", "85"},
		"profit_2x_mixed":   {"0.05", "50", "1100", "2", "125"},
		"loss_2x_mixed":     {"0.05", "50", "900", "2", "75"},
		"unchanged_2x_base": {"0.1", "0", "1000", "2", "100"},
	})
}

func TestCalculateUnrealizedBalances_Short(t *testing.T) {
	t.Parallel()

	runScenarios(t, Short, map[string]scenario{
		"loss_1x_quote":      {"0", "100", "1100", "1", "90"},
		"profit_1x_quote":    {"0", "100", "900", "1", "110"},
		"loss_2x_quote":      {"0", "100", "1100", "2", "80"},
		"profit_2x_quote":    {"0", "100", "900", "2", "120"},
		"hedged_1x_base_up":  {"0.1", "0", "1100", "1", "100"},
		"hedged_1x_base_dn":  {"0.1", "0", "900", "1", "100"},
		"loss_2x_base":       {"0.1", "0", "1100", "2", "90"},
		"profit_2x_base":     {"0.1", "0", "900", "2", "110"},
		"loss_1x_mixed":      {"0.05", "50", "1100", "1", "95"},
		"profit_1x_mixed":    {"0.05", "50", "900", "1", "105"},
		"loss_2x_mixed":      {"0.05", "50", "1100", "2", "85"},
		"profit_2x_mixed":    {"0.05", "50", "900", "2", "115"},
		"hedged_1x_base_far": {"0.1", "0", "1500", "1", "100"},
	})
}

func TestGeneratePosition_Sizing(t *testing.T) {
	t.Parallel()

	long, err := GeneratePosition(Long, dec("1000"), dec("0.05"), dec("50"), settings("2", "0.1"))
	require.NoError(t, err)
	assertDecimal(t, "200", long.BorrowedAmount)
	assertDecimal(t, "0.2", long.Exposure)
	assertDecimal(t, "0.25", long.HeldBaseAtOpen)
	assertDecimal(t, "50", long.HeldQuoteAtOpen)
	assertDecimal(t, "100", long.CollateralValue())
	assertDecimal(t, "10", long.LiquidationThreshold())

	short, err := GeneratePosition(Short, dec("1000"), dec("0.05"), dec("50"), settings("2", "0.1"))
	require.NoError(t, err)
	assertDecimal(t, "0.2", short.BorrowedAmount)
	assertDecimal(t, "200", short.Exposure)
	assertDecimal(t, "0.05", short.HeldBaseAtOpen)
	assertDecimal(t, "250", short.HeldQuoteAtOpen)
}

func TestGeneratePosition_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price string
		base  string
		quote string
		s     Settings
	}{
		{"leverage_below_one", "1000", "0", "100", settings("0.99", "0.1")},
		{"liquidation_zero", "1000", "0", "100", settings("2", "0")},
		{"liquidation_one", "1000", "0", "100", settings("2", "1")},
		{"liquidation_negative", "1000", "0", "100", settings("2", "-0.5")},
		{"zero_price", "0", "0", "100", settings("2", "0.1")},
		{"negative_price", "-10", "0", "100", settings("2", "0.1")},
		{"negative_collateral", "1000", "-0.1", "100", settings("2", "0.1")},
		{"no_collateral", "1000", "0", "0", settings("2", "0.1")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pos, err := GeneratePosition(Long, dec(tt.price), dec(tt.base), dec(tt.quote), tt.s)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, pos)
		})
	}
}

func TestCalculateUnrealizedBalances_MatchesEquity(t *testing.T) {
	t.Parallel()

	collaterals := [][2]string{{"0", "100"}, {"0.1", "0"}, {"0.05", "50"}, {"0.37", "12.5"}}
	leverages := []string{"1", "1.5", "2", "3"}
	prices := []string{"950", "999.99", "1000", "1013.7", "1100"}

	for _, dir := range []Direction{Long, Short} {
		for _, c := range collaterals {
			for _, l := range leverages {
				for _, p := range prices {
					name := fmt.Sprintf("%s_%s_%s_x%s_at_%s", dir, c[0], c[1], l, p)
					pos, err := GeneratePosition(dir, dec("1000"), dec(c[0]), dec(c[1]), settings(l, "0.1"))
					require.NoError(t, err, name)

					price := dec(p)
					var want decimal.Decimal
					if dir == Long {
						want = pos.HeldBaseAtOpen.Mul(price).Add(pos.HeldQuoteAtOpen).Sub(pos.BorrowedAmount)
					} else {
						want = pos.HeldBaseAtOpen.Sub(pos.BorrowedAmount).Mul(price).Add(pos.HeldQuoteAtOpen)
					}

					isLiquid, base, quote, err := pos.CalculateUnrealizedBalances(price, dec(c[0]), dec(c[1]))
					require.NoError(t, err, name)
					require.True(t, isLiquid, name)

					got, err := market.QuoteValue(base, quote, price)
					require.NoError(t, err, name)
					assert.True(t, want.Sub(got).Abs().LessThan(tolerance), "%s: got %s want %s", name, got, want)
					assert.True(t, want.Sub(pos.Equity(price)).Abs().LessThan(tolerance), name)
				}
			}
		}
	}
}

func TestCalculateUnrealizedBalances_RoundTripAtOpenPrice(t *testing.T) {
	t.Parallel()

	// 3 does not divide evenly, so any drift would show up here.
	price := dec("3")
	base, quote := dec("1.2345"), dec("7.77")

	for _, dir := range []Direction{Long, Short} {
		pos, err := GeneratePosition(dir, price, base, quote, settings("2.5", "0.2"))
		require.NoError(t, err)

		isLiquid, gotBase, gotQuote, err := pos.CalculateUnrealizedBalances(price, base, quote)
		require.NoError(t, err)
		assert.True(t, isLiquid)
		assert.True(t, base.Equal(gotBase), "%s base %s", dir, gotBase)
		assert.True(t, quote.Equal(gotQuote), "%s quote %s", dir, gotQuote)
	}
}

func TestCalculateUnrealizedBalances_SettlementSide(t *testing.T) {
	t.Parallel()

	// Account holds more than the collateral; only the settling asset moves.
	long, err := GeneratePosition(Long, dec("1000"), dec("0.1"), dec("100"), settings("1", "0.1"))
	require.NoError(t, err)
	_, base, quote, err := long.CalculateUnrealizedBalances(dec("1250"), dec("0.3"), dec("500"))
	require.NoError(t, err)
	assertDecimal(t, "0.34", base) // +50 quote of P/L at 1250
	assertDecimal(t, "500", quote)

	short, err := GeneratePosition(Short, dec("1000"), dec("0.1"), dec("100"), settings("1", "0.1"))
	require.NoError(t, err)
	_, base, quote, err = short.CalculateUnrealizedBalances(dec("800"), dec("0.3"), dec("500"))
	require.NoError(t, err)
	assertDecimal(t, "0.3", base)
	assertDecimal(t, "540", quote)
}

func TestCalculateUnrealizedBalances_DeficitCoveredFromOtherAsset(t *testing.T) {
	t.Parallel()

	// Quote-only long: the base leg goes negative and is paid from quote.
	pos, err := GeneratePosition(Long, dec("1000"), dec("0"), dec("100"), settings("2", "0.1"))
	require.NoError(t, err)

	isLiquid, base, quote, err := pos.CalculateUnrealizedBalances(dec("800"), dec("0"), dec("100"))
	require.NoError(t, err)
	assert.True(t, isLiquid)
	assert.True(t, base.IsZero())
	assertDecimal(t, "60", quote)
}

func TestCalculateUnrealizedBalances_Liquidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dir       Direction
		base      string
		quote     string
		leverage  string
		liqRatio  string
		price     string
		wantBase  string
		wantQuote string
	}{
		// equity 40 < threshold 50
		{"long_below_threshold", Long, "0", "100", "2", "0.5", "700", "0", "40"},
		// equity -20, loss capped at collateral
		{"long_negative_equity", Long, "0", "100", "2", "0.1", "400", "0", "0"},
		{"long_base_collateral", Long, "0.1", "0", "3", "0.1", "760", "0.0053", "0"},
		// equity 0 < 10
		{"short_zero_equity", Short, "0", "100", "2", "0.1", "1500", "0", "0"},
		{"short_negative_equity", Short, "0", "100", "2", "0.1", "2000", "0", "0"},
		{"short_mixed_collateral", Short, "0.05", "50", "3", "0.25", "1350", "0.0093", "0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pos, err := GeneratePosition(tt.dir, dec("1000"), dec(tt.base), dec(tt.quote), settings(tt.leverage, tt.liqRatio))
			require.NoError(t, err)
			price := dec(tt.price)
			require.False(t, pos.IsLiquid(price))

			before, err := market.QuoteValue(dec(tt.base), dec(tt.quote), price)
			require.NoError(t, err)

			isLiquid, base, quote, err := pos.CalculateUnrealizedBalances(price, dec(tt.base), dec(tt.quote))
			require.NoError(t, err)
			assert.False(t, isLiquid)
			assert.False(t, base.IsNegative())
			assert.False(t, quote.IsNegative())
			assertDecimal(t, tt.wantBase, base)
			assertDecimal(t, tt.wantQuote, quote)

			after, err := market.QuoteValue(base, quote, price)
			require.NoError(t, err)
			assert.True(t, after.LessThanOrEqual(before))
		})
	}
}

func TestCalculateUnrealizedBalances_InvalidArguments(t *testing.T) {
	t.Parallel()

	pos, err := GeneratePosition(Short, dec("1000"), dec("0.1"), dec("0"), settings("1", "0.1"))
	require.NoError(t, err)

	_, _, _, err = pos.CalculateUnrealizedBalances(dec("0"), dec("0.1"), dec("0"))
	assert.ErrorIs(t, err, market.ErrInvalidArgument)

	_, _, _, err = pos.CalculateUnrealizedBalances(dec("-5"), dec("0.1"), dec("0"))
	assert.ErrorIs(t, err, market.ErrInvalidPrice)

	_, _, _, err = pos.CalculateUnrealizedBalances(dec("1000"), dec("-0.1"), dec("0"))
	assert.ErrorIs(t, err, market.ErrInvalidArgument)
}

func TestMarkClosed(t *testing.T) {
	t.Parallel()

	pos, err := GeneratePosition(Long, dec("1000"), dec("0"), dec("100"), settings("2", "0.1"))
	require.NoError(t, err)

	require.NoError(t, pos.MarkClosed(7, dec("0.01"), dec("0")))
	assert.True(t, pos.Closed)
	require.NotNil(t, pos.CandleCloseIndex)
	assert.Equal(t, 7, *pos.CandleCloseIndex)
	assertDecimal(t, "0.01", pos.BaseProfit)

	assert.ErrorIs(t, pos.MarkClosed(8, dec("1"), dec("1")), ErrPositionClosed)
	assert.Equal(t, 7, *pos.CandleCloseIndex)

	_, _, _, err = pos.CalculateUnrealizedBalances(dec("1100"), dec("0"), dec("100"))
	assert.ErrorIs(t, err, ErrPositionClosed)

	c := pos.Clone()
	*c.CandleCloseIndex = 99
	assert.Equal(t, 7, *pos.CandleCloseIndex)
}
