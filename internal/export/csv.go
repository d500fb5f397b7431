// Package export reads candle files and writes backtest output: candle,
// trade and equity CSVs plus an SVG equity chart.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// candleColumns is the header written for candle files. Files are read by
// column name so extra Binance columns are ignored.
var candleColumns = []string{"open_time", "open_price", "high_price", "low_price", "close_price", "volume", "close_time"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

var ErrMissingColumn = errors.New("missing column")

// ReadCandlesFile reads a candle CSV from disk.
func ReadCandlesFile(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := ReadCandles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

// ReadCandles parses candle rows keyed by header name. A leading unnamed
// index column is allowed. Times may be RFC3339, "2006-01-02 15:04:05"
// or epoch milliseconds. The result is sorted by open time.
func ReadCandles(r io.Reader) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range candleColumns[:6] {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}
	closeIdx, hasClose := col["close_time"]

	var candles []models.Candle
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var c models.Candle
		if c.OpenTime, err = parseTime(field(rec, col["open_time"])); err != nil {
			return nil, fmt.Errorf("line %d open_time: %w", line, err)
		}
		for name, dst := range map[string]*float64{
			"open_price":  &c.Open,
			"high_price":  &c.High,
			"low_price":   &c.Low,
			"close_price": &c.Close,
			"volume":      &c.Volume,
		} {
			if *dst, err = strconv.ParseFloat(field(rec, col[name]), 64); err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, name, err)
			}
		}
		if hasClose {
			if v := field(rec, closeIdx); v != "" {
				if c.CloseTime, err = parseTime(v); err != nil {
					return nil, fmt.Errorf("line %d close_time: %w", line, err)
				}
			}
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	return candles, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time")
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}

// WriteCandles writes candles with a leading index column, the layout
// ReadCandles accepts.
func WriteCandles(w io.Writer, candles []models.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, candleColumns...)); err != nil {
		return err
	}
	for i, c := range candles {
		closeTime := ""
		if !c.CloseTime.IsZero() {
			closeTime = formatTime(c.CloseTime)
		}
		if err := cw.Write([]string{
			strconv.Itoa(i),
			formatTime(c.OpenTime),
			ftoa(c.Open), ftoa(c.High), ftoa(c.Low), ftoa(c.Close), ftoa(c.Volume),
			closeTime,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrades writes a result's trade log.
func WriteTrades(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "index", "side", "price", "quantity", "cash"}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			formatTime(t.Time), strconv.Itoa(t.Index), string(t.Side),
			ftoa(t.Price), ftoa(t.Quantity), ftoa(t.Cash),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquity writes one row per candle with price and portfolio value.
func WriteEquity(w io.Writer, res *models.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "price", "equity"}); err != nil {
		return err
	}
	for i, v := range res.Equity {
		var ts string
		if i < len(res.Timestamps) {
			ts = formatTime(res.Timestamps[i])
		}
		var price float64
		if i < len(res.Prices) {
			price = res.Prices[i]
		}
		if err := cw.Write([]string{ts, ftoa(price), ftoa(v)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path, including parent directories, and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func formatTime(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05.999") }
func ftoa(x float64) string        { return strconv.FormatFloat(x, 'f', -1, 64) }
