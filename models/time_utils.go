package models

import (
	"fmt"
	"time"
)

// intervals maps Binance kline interval keywords to their duration.
// "1M" is approximated as 30 days.
var intervals = map[string]time.Duration{
	"1s":  time.Second,
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

// IntervalDuration returns the duration of a kline interval keyword.
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := intervals[interval]
	if !ok {
		return 0, fmt.Errorf("unknown interval %q", interval)
	}
	return d, nil
}

// ValidInterval reports whether interval is a known kline keyword.
func ValidInterval(interval string) bool {
	_, ok := intervals[interval]
	return ok
}

// PeriodsPerYear returns how many candles of the interval fit in a
// 365-day year, the convention for 24/7 crypto markets.
func PeriodsPerYear(interval string) (int, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return 0, err
	}
	n := int((365 * 24 * time.Hour) / d)
	if n < 1 {
		n = 1
	}
	return n, nil
}

// CandlesInRange estimates how many candles of the interval cover [from, to].
func CandlesInRange(interval string, from, to time.Time) (int, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return 0, err
	}
	if !to.After(from) {
		return 0, nil
	}
	return int(to.Sub(from)/d) + 1, nil
}
