package models

import "context"

// CandleClient is anything that can deliver historical klines
type CandleClient interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// PriceClient returns the latest traded price for a symbol
type PriceClient interface {
	TickerPrice(ctx context.Context, symbol string) (float64, error)
}
