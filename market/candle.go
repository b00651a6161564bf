package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Price is the mark used for valuation: the candle close.
func (c Candle) Price() decimal.Decimal {
	return c.Close
}

var candleHeader = []string{"time", "open", "high", "low", "close", "volume"}

// LoadCandlesCSV reads a candle series from path.
func LoadCandlesCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	return ReadCandlesCSV(f)
}

// ReadCandlesCSV parses rows of time,open,high,low,close,volume with an
// RFC3339 time column. The header row is required.
func ReadCandlesCSV(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(candleHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read candle header: %w", err)
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(h), candleHeader[i]) {
			return nil, fmt.Errorf("candle header column %d: got %q want %q", i, h, candleHeader[i])
		}
	}

	var out []Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candle line %d: %w", line, err)
		}

		c, err := parseCandle(rec)
		if err != nil {
			return nil, fmt.Errorf("candle line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandle(rec []string) (Candle, error) {
	t, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return Candle{}, err
	}

	vals := make([]decimal.Decimal, 5)
	for i := range vals {
		vals[i], err = decimal.NewFromString(rec[i+1])
		if err != nil {
			return Candle{}, fmt.Errorf("%s: %w", candleHeader[i+1], err)
		}
	}

	c := Candle{
		Time:   t.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	if !c.Close.IsPositive() {
		return Candle{}, fmt.Errorf("%w: close %s", ErrInvalidPrice, c.Close)
	}
	return c, nil
}

// CandlesFromCloses builds a flat series where every candle opens, peaks
// and closes at the given price, one minute apart.
func CandlesFromCloses(start time.Time, closes []decimal.Decimal) ([]Candle, error) {
	out := make([]Candle, len(closes))
	for i, p := range closes {
		if !p.IsPositive() {
			return nil, fmt.Errorf("candle %d: %w: %s", i, ErrInvalidPrice, p)
		}
		out[i] = Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   p,
			High:   p,
			Low:    p,
			Close:  p,
			Volume: decimal.Zero,
		}
	}
	return out, nil
}
