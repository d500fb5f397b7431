package calculate

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wave produces a deterministic zig-zag price path with up and down moves.
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%5) - 0.3*float64(i)
	}
	return out
}

func assertSeriesMatch(t *testing.T, label string, got Series, want []float64, from int) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := 0; i < from; i++ {
		assert.False(t, Defined(got[i]), "%s: index %d should be undefined", label, i)
	}
	for i := from; i < len(want); i++ {
		assert.InDelta(t, want[i], got[i], 1e-9, "%s: index %d", label, i)
	}
}

func TestRollingMean(t *testing.T) {
	got := RollingMean([]float64{100, 102, 104, 103, 105}, 3)
	assertSeriesMatch(t, "SMA(3)", got, []float64{0, 0, 102, 103, 104}, 2)
}

func TestRollingMean_MatchesTalib(t *testing.T) {
	prices := wave(120)
	for _, w := range []int{2, 5, 20, 50} {
		assertSeriesMatch(t, "SMA", RollingMean(prices, w), talib.Sma(prices, w), w-1)
	}
}

func TestRollingExtremes_MatchTalib(t *testing.T) {
	prices := wave(90)
	for _, w := range []int{3, 10, 20} {
		assertSeriesMatch(t, "MAX", RollingMax(prices, w), talib.Max(prices, w), w-1)
		assertSeriesMatch(t, "MIN", RollingMin(prices, w), talib.Min(prices, w), w-1)
	}
}

func TestRSI_MatchesTalib(t *testing.T) {
	prices := wave(200)
	for _, w := range []int{5, 14} {
		assertSeriesMatch(t, "RSI", RSI(prices, w), talib.Rsi(prices, w), w)
	}
}

func TestRSI_NoLossesIsHundred(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + 2*float64(i)
	}

	rsi := RSI(prices, 14)
	assert.Equal(t, 14, rsi.FirstDefined())
	for i := 14; i < len(prices); i++ {
		assert.Equal(t, 100.0, rsi[i], "index %d", i)
	}
}

func TestRSI_ConstantPriceIsHundred(t *testing.T) {
	prices := []float64{50, 50, 50, 50, 50, 50}
	rsi := RSI(prices, 3)
	for i := 3; i < len(prices); i++ {
		assert.Equal(t, 100.0, rsi[i])
	}
}

func TestRSI_ShortHistory(t *testing.T) {
	rsi := RSI([]float64{1, 2, 3}, 14)
	assert.Equal(t, 3, rsi.FirstDefined())

	_, ok := LastRSI([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestMomentum_MatchesTalibRoc(t *testing.T) {
	prices := wave(60)
	roc := talib.Roc(prices, 10)
	want := make([]float64, len(roc))
	for i, v := range roc {
		want[i] = v / 100
	}
	assertSeriesMatch(t, "Momentum", Momentum(prices, 10), want, 10)
}

func TestMomentum_ZeroBase(t *testing.T) {
	m := Momentum([]float64{0, 1, 2}, 1)
	assert.False(t, Defined(m[1]))
	assert.InDelta(t, 1.0, m[2], 1e-12)
}

func TestEMA_MatchesTalib(t *testing.T) {
	prices := wave(80)
	assertSeriesMatch(t, "EMA", EMA(prices, 10), talib.Ema(prices, 10), 9)
}

func TestVolumeRatio(t *testing.T) {
	vol := []float64{10, 10, 10, 40, 0, 0, 0}
	got := VolumeRatio(vol, 3)

	assert.False(t, Defined(got[1]))
	assert.InDelta(t, 1.0, got[2], 1e-12)
	assert.InDelta(t, 2.0, got[3], 1e-12)
	assert.False(t, Defined(got[6]), "zero average must stay undefined")
}

func TestInvalidWindow(t *testing.T) {
	prices := []float64{1, 2, 3}
	for name, s := range map[string]Series{
		"mean":     RollingMean(prices, 0),
		"max":      RollingMax(prices, -1),
		"rsi":      RSI(prices, 0),
		"momentum": Momentum(prices, 0),
		"ema":      EMA(prices, 0),
	} {
		assert.Equal(t, len(prices), s.FirstDefined(), name)
	}
}

func TestSeriesHelpers(t *testing.T) {
	s := Series{1, 2, 3}

	shifted := s.Shift(1)
	assert.False(t, Defined(shifted[0]))
	assert.Equal(t, 2.0, shifted[2])

	assert.Equal(t, Series{2, 4, 6}, s.Scale(2))

	_, ok := s.At(5)
	assert.False(t, ok)

	lr := LogReturns([]float64{100, 110, 0})
	assert.InDelta(t, math.Log(1.1), lr[1], 1e-12)
	assert.False(t, Defined(lr[2]))
}
