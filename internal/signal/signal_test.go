package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/calculate"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

var nan = math.NaN()

func TestCrossBelow(t *testing.T) {
	tests := []struct {
		name   string
		series calculate.Series
		want   []bool
	}{
		{
			name:   "fires once on the edge",
			series: calculate.Series{40, 35, 25, 20, 28, 31, 29},
			want:   []bool{false, false, true, false, false, false, true},
		},
		{
			name:   "already below never fires",
			series: calculate.Series{20, 15, 10},
			want:   []bool{false, false, false},
		},
		{
			name:   "undefined previous value",
			series: calculate.Series{nan, 25, 20},
			want:   []bool{false, false, false},
		},
		{
			name:   "touching the threshold is not crossing",
			series: calculate.Series{35, 30, 29},
			want:   []bool{false, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossBelow(tt.series, 30))
		})
	}
}

func TestCrossAbove(t *testing.T) {
	got := CrossAbove(calculate.Series{nan, 65, 71, 75, 69, 70, 71}, 70)
	assert.Equal(t, []bool{false, false, true, false, false, false, true}, got)
}

func TestCrossSeries_StrictFlip(t *testing.T) {
	short := calculate.Series{nan, 9, 10, 11, 11, 9}
	long := calculate.Series{nan, 10, 10, 10, 10, 10}

	assert.Equal(t, []bool{false, false, false, true, false, false}, CrossAboveSeries(short, long))
	assert.Equal(t, []bool{false, false, false, false, false, true}, CrossBelowSeries(short, long))
}

func TestCrossSeries_EqualNeverFires(t *testing.T) {
	a := calculate.Series{5, 5, 5, 5}
	assert.Equal(t, []bool{false, false, false, false}, CrossAboveSeries(a, a))
	assert.Equal(t, []bool{false, false, false, false}, CrossBelowSeries(a, a))
}

func TestLevels(t *testing.T) {
	s := calculate.Series{nan, 0.06, 0.01, -0.02}
	assert.Equal(t, []bool{false, true, false, false}, Above(s, 0.05))
	assert.Equal(t, []bool{false, false, false, true}, Below(s, 0))
}

func TestAboveSeries(t *testing.T) {
	got := AboveSeries(calculate.Series{1, 5, 5, 7}, calculate.Series{nan, 4, 5, 6})
	assert.Equal(t, []bool{false, true, false, true}, got)
}

func TestBelowSeries(t *testing.T) {
	got := BelowSeries(calculate.Series{1, 3, 5, 5}, calculate.Series{nan, 4, 5, 6})
	assert.Equal(t, []bool{false, true, false, true}, got)
}

func TestEdge(t *testing.T) {
	tests := []struct {
		name string
		cond []bool
		want []bool
	}{
		{"true from the first bar", []bool{true, true, true}, []bool{true, false, false}},
		{"true after warm-up", []bool{false, false, true, true}, []bool{false, false, true, false}},
		{"re-arms after turning false", []bool{true, false, true}, []bool{true, false, true}},
		{"never true", []bool{false, false}, []bool{false, false}},
		{"empty", []bool{}, []bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Edge(tt.cond))
		})
	}
}

func TestEdge_UndefinedLevelCountsAsFalse(t *testing.T) {
	closes := calculate.Series{100, 102, 104, 106}
	level := calculate.Series{nan, nan, 101, 103}
	assert.Equal(t, []bool{false, false, true, false}, Edge(AboveSeries(closes, level)))
}

func TestMerge(t *testing.T) {
	got := Merge([]bool{true, false, true, false}, []bool{false, true, true, false})
	assert.Equal(t, Series{EnterLong, ExitLong, None, None}, got)
	assert.Equal(t, 1, got.Count(EnterLong))
	assert.Equal(t, "EXIT_LONG", got[1].String())
}

func TestVolumeSpike(t *testing.T) {
	candles := []models.Candle{
		{Open: 10, Close: 11, Volume: 100},
		{Open: 10, Close: 11, Volume: 300},
		{Open: 11, Close: 10, Volume: 300},
		{Open: 10, Close: 11, Volume: 150},
	}
	ma := calculate.Series{nan, 100, 100, 100}

	assert.Equal(t, []bool{false, true, false, false}, VolumeSpike(candles, ma, 2))
}
