package export

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

const (
	defaultWidth  = 900
	defaultHeight = 300
	marginX       = 80
	marginY       = 60

	equityColor    = "#59a6ff"
	benchmarkColor = "#8b949e"
	buyColor       = "#8bff9b"
	sellColor      = "#ff7a7a"
)

// ChartOptions sizes the chart. Zero values use 900x300.
type ChartOptions struct {
	Width     int
	Height    int
	Title     string
	Benchmark bool // overlay buy-and-hold of the same capital
}

// EquityChart renders a result's equity curve as SVG, with an optional
// buy-and-hold benchmark and a marker on the curve for every trade.
func EquityChart(res *models.Result, opts ChartOptions) []byte {
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	title := opts.Title
	if title == "" {
		title = res.Strategy
	}

	var bench []float64
	if opts.Benchmark {
		bench = benchmark(res)
	}

	miny, maxy := math.Inf(1), math.Inf(-1)
	for _, series := range [][]float64{res.Equity, bench} {
		for _, v := range series {
			miny = math.Min(miny, v)
			maxy = math.Max(maxy, v)
		}
	}

	plotW, plotH := float64(w-marginX), float64(h-marginY)
	n := len(res.Equity)
	sx := plotW / (float64(n-1) + 1e-9)
	sy := plotH / (maxy - miny + 1e-9)
	point := func(i int, v float64) (float64, float64) {
		return float64(i) * sx, plotH - (v-miny)*sy
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' viewBox='0 0 %d %d'>", w, h, w, h)
	b.WriteString("<rect width='100%' height='100%' fill='#0b0f17'/>")
	b.WriteString("<g transform='translate(40,20)'>")
	fmt.Fprintf(&b, "<line x1='0' y1='0' x2='0' y2='%d' stroke='#1f2837'/>", h-marginY)
	fmt.Fprintf(&b, "<line x1='0' y1='%d' x2='%d' y2='%d' stroke='#1f2837'/>", h-marginY, w-marginX, h-marginY)

	if n > 0 {
		if len(bench) > 0 {
			polyline(&b, bench, benchmarkColor, point)
		}
		polyline(&b, res.Equity, equityColor, point)

		for _, t := range res.Trades {
			if t.Index < 0 || t.Index >= n {
				continue
			}
			color := buyColor
			if t.Side == models.SideSell {
				color = sellColor
			}
			x, y := point(t.Index, res.Equity[t.Index])
			fmt.Fprintf(&b, "<circle cx='%.2f' cy='%.2f' r='3' fill='%s'/>", x, y, color)
		}
	}

	b.WriteString("</g>")
	fmt.Fprintf(&b, "<text x='16' y='18' fill='#e6edf3' font-family='Inter' font-size='14'>%s</text>", html.EscapeString(title))
	b.WriteString("</svg>")
	return b.Bytes()
}

func polyline(b *bytes.Buffer, values []float64, color string, point func(int, float64) (float64, float64)) {
	fmt.Fprintf(b, "<polyline fill='none' stroke='%s' stroke-width='1.5' points='", color)
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		x, y := point(i, v)
		fmt.Fprintf(b, "%.2f,%.2f", x, y)
	}
	b.WriteString("'/>")
}

// benchmark is the value of the initial capital fully invested at the first price.
func benchmark(res *models.Result) []float64 {
	if len(res.Prices) == 0 || res.Prices[0] <= 0 {
		return nil
	}
	qty := res.InitialCapital / res.Prices[0]
	out := make([]float64, len(res.Prices))
	for i, p := range res.Prices {
		out[i] = qty * p
	}
	return out
}
