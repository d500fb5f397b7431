package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// MaxKlinesPerRequest is the server-side cap on one klines call.
const MaxKlinesPerRequest = 1000

var ErrEmptyKlines = errors.New("binance: no klines returned")

// Ping checks connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/api/v3/ping", nil, nil)
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var payload struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := c.get(ctx, "/api/v3/time", nil, &payload); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(payload.ServerTime).UTC(), nil
}

// KlineQuery selects a range of klines. A zero Limit with both bounds set
// fetches every candle between them.
type KlineQuery struct {
	Symbol    string
	Interval  string
	Limit     int
	StartTime time.Time
	EndTime   time.Time
}

func (q KlineQuery) params(limit int, start time.Time) url.Values {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	params.Set("limit", strconv.Itoa(limit))
	if !start.IsZero() {
		params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !q.EndTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}
	return params
}

// Klines returns the latest limit candles, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return c.History(ctx, KlineQuery{Symbol: symbol, Interval: interval, Limit: limit})
}

// History fetches klines for q, paginating past the per-request cap by
// advancing the start time beyond the last close time of each batch.
func (c *Client) History(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	if !models.ValidInterval(q.Interval) {
		return nil, fmt.Errorf("binance: unknown interval %q", q.Interval)
	}
	if q.Symbol == "" {
		return nil, errors.New("binance: symbol is required")
	}

	remaining := q.Limit
	if remaining <= 0 {
		if q.StartTime.IsZero() || q.EndTime.IsZero() {
			remaining = 500
		} else {
			n, err := models.CandlesInRange(q.Interval, q.StartTime, q.EndTime)
			if err != nil {
				return nil, err
			}
			remaining = n
		}
	}

	var (
		candles []models.Candle
		start   = q.StartTime
	)
	for remaining > 0 {
		batchLimit := remaining
		if batchLimit > MaxKlinesPerRequest {
			batchLimit = MaxKlinesPerRequest
		}

		var rows [][]json.RawMessage
		if err := c.get(ctx, "/api/v3/klines", q.params(batchLimit, start), &rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			candle, err := parseKline(row)
			if err != nil {
				return nil, err
			}
			candles = append(candles, candle)
		}
		remaining -= len(rows)

		// a short batch means the range is exhausted; without a start time
		// there is nothing to page from
		if len(rows) < batchLimit || start.IsZero() {
			break
		}
		start = candles[len(candles)-1].CloseTime.Add(time.Millisecond)
	}

	if len(candles) == 0 {
		return nil, ErrEmptyKlines
	}

	c.logger.Debug().Int("count", len(candles)).Str("symbol", q.Symbol).Str("interval", q.Interval).Msg("Fetched klines")
	return candles, nil
}

// parseKline decodes one kline row:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("binance: kline row has %d fields", len(row))
	}

	var (
		openTime, closeTime int64
		prices              [5]float64
	)
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.Candle{}, fmt.Errorf("kline open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeTime); err != nil {
		return models.Candle{}, fmt.Errorf("kline close time: %w", err)
	}
	for i := range prices {
		v, err := decimal(row[i+1])
		if err != nil {
			return models.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		prices[i] = v
	}

	return models.Candle{
		OpenTime:  time.UnixMilli(openTime).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: time.UnixMilli(closeTime).UTC(),
	}, nil
}

// decimal parses Binance's quoted decimal strings; bare numbers are accepted too.
func decimal(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// TickerPrice returns the latest traded price of symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	params := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/api/v3/ticker/price", params, &payload); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", payload.Price, err)
	}
	return price, nil
}

// Level is one price level of the order book
type Level struct {
	Price    float64
	Quantity float64
}

// OrderBook is a depth snapshot
type OrderBook struct {
	LastUpdateID int64
	Bids         []Level
	Asks         []Level
}

// OrderBook returns the top limit levels on each side.
func (c *Client) OrderBook(ctx context.Context, symbol string, limit int) (*OrderBook, error) {
	var payload struct {
		LastUpdateID int64       `json:"lastUpdateId"`
		Bids         [][2]string `json:"bids"`
		Asks         [][2]string `json:"asks"`
	}
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/api/v3/depth", params, &payload); err != nil {
		return nil, err
	}

	bids, err := parseLevels(payload.Bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(payload.Asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return &OrderBook{LastUpdateID: payload.LastUpdateID, Bids: bids, Asks: asks}, nil
}

func parseLevels(raw [][2]string) ([]Level, error) {
	levels := make([]Level, len(raw))
	for i, l := range raw {
		p, err := strconv.ParseFloat(l[0], 64)
		if err != nil {
			return nil, err
		}
		q, err := strconv.ParseFloat(l[1], 64)
		if err != nil {
			return nil, err
		}
		levels[i] = Level{Price: p, Quantity: q}
	}
	return levels, nil
}

// PublicTrade is one entry of the recent trades list
type PublicTrade struct {
	ID           int64     `json:"id"`
	Price        float64   `json:"price,string"`
	Quantity     float64   `json:"qty,string"`
	QuoteQty     float64   `json:"quoteQty,string"`
	Time         time.Time `json:"-"`
	RawTime      int64     `json:"time"`
	IsBuyerMaker bool      `json:"isBuyerMaker"`
}

// RecentTrades returns the latest public trades of symbol.
func (c *Client) RecentTrades(ctx context.Context, symbol string, limit int) ([]PublicTrade, error) {
	var trades []PublicTrade
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/api/v3/trades", params, &trades); err != nil {
		return nil, err
	}
	for i := range trades {
		trades[i].Time = time.UnixMilli(trades[i].RawTime).UTC()
	}
	return trades, nil
}
