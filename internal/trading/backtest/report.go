package backtest

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/mykytavoitishyn/stochastic-risk-assessment/internal/platform/format"
	"github.com/mykytavoitishyn/stochastic-risk-assessment/models"
)

// FormatMetrics renders a performance report for one strategy.
func FormatMetrics(m models.Metrics) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 50)

	sb.WriteString("\n" + rule + "\n")
	sb.WriteString(fmt.Sprintf("  %s - Performance Report\n", m.Strategy))
	sb.WriteString(rule + "\n")

	sb.WriteString("\nReturns:\n")
	sb.WriteString(fmt.Sprintf("  Initial Capital:    $%s\n", format.Money(m.InitialCapital)))
	sb.WriteString(fmt.Sprintf("  Final Value:        $%s\n", format.Money(m.FinalValue)))
	sb.WriteString(fmt.Sprintf("  Total Return:       %.2f%% (%.2fx)\n", m.TotalReturnPct, m.TotalReturnMultiple))
	sb.WriteString(fmt.Sprintf("  Annualized Return:  %.2f%%\n", m.AnnualizedReturnPct))

	sb.WriteString("\nRisk Metrics:\n")
	sb.WriteString(fmt.Sprintf("  Volatility (ann.):  %.2f%%\n", m.AnnualizedVolatilityPct))
	sb.WriteString(fmt.Sprintf("  Max Drawdown:       %.2f%%\n", m.MaxDrawdownPct))

	sb.WriteString("\nRisk-Adjusted:\n")
	sb.WriteString(fmt.Sprintf("  Sharpe Ratio:       %.3f\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("  Sortino Ratio:      %.3f\n", m.SortinoRatio))
	sb.WriteString(fmt.Sprintf("  Calmar Ratio:       %.3f\n", m.CalmarRatio))

	sb.WriteString("\nTrading Stats:\n")
	sb.WriteString(fmt.Sprintf("  Win Rate:           %.1f%%\n", m.WinRatePct))
	sb.WriteString(fmt.Sprintf("  Profit Factor:      %s\n", ratio(m.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("  Periods:            %d\n", m.NumPeriods))
	sb.WriteString(fmt.Sprintf("  Trades:             %d\n", m.NumTrades))

	return sb.String()
}

// FormatComparison renders one row per strategy, in the given order.
func FormatComparison(all []models.Metrics) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(w, "Strategy\tFinal Value\tReturn %\tAnn. Return %\tVol %\tMax DD %\tSharpe\tSortino\tCalmar\tTrades\t")
	for _, m := range all {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\t%.3f\t%.3f\t%d\t\n",
			m.Strategy, format.Money(m.FinalValue), m.TotalReturnPct, m.AnnualizedReturnPct,
			m.AnnualizedVolatilityPct, m.MaxDrawdownPct,
			m.SharpeRatio, m.SortinoRatio, m.CalmarRatio, m.NumTrades)
	}
	w.Flush()

	return sb.String()
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
