package backtest

import (
	"math"
	"time"
)

// Metrics is the standalone risk/return metric set from a bar-level equity
// curve and, optionally, a closed-trade ledger. Mirrors the original
// CustomMetrics.calculate_all output.
type Metrics struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	InitialCapital float64
	FinalEquity    float64

	TotalReturn      float64
	AnnualizedReturn float64

	MaxDrawdown    float64
	MaxDrawdownDur time.Duration
	Volatility     float64

	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	OmegaRatio       float64
	InformationRatio float64
	TreynorRatio     float64

	VaR95  float64
	VaR99  float64
	CVaR95 float64
	CVaR99 float64

	DownsideDeviation float64
	UlcerIndex        float64
	PainIndex         float64

	Skewness       float64
	ExcessKurtosis float64
	TailRatio      float64

	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	ProfitFactor   float64
	AvgWin         float64
	AvgLoss        float64
	LargestWin     float64
	LargestLoss    float64
	AvgHoldingTime time.Duration
	TradesPerDay   float64

	TotalFees     float64
	TotalSlippage float64
	TotalFunding  float64
	TotalCosts    float64
	CostPct       float64

	EquityCurve []EquityPoint
}

// RollingMetrics holds a rolling window's worth of derived series plus two
// scalar summaries, grounded on metrics.py's calculate_rolling.
type RollingMetrics struct {
	Window            int
	RollingReturn     []float64
	RollingVolatility []float64
	RollingSharpe     []float64
	SharpeStability   float64 // 1/(1+std(rollingSharpe))
	ReturnConsistency float64 // fraction of positive rolling returns
}

// BenchmarkComparison is the relative-performance block against a benchmark
// equity curve of identical length.
type BenchmarkComparison struct {
	Alpha             float64
	Beta              float64
	TrackingError     float64
	InformationRatio  float64
	UpCapture         float64
	DownCapture       float64
	LongestOutperform int
}

// MetricsCalculator computes Metrics from trades and an equity curve. It is
// configured with the run's Config so annualization (PeriodsPerYear) and the
// risk-free rate stay consistent with the engine that produced the data.
type MetricsCalculator struct {
	config       Config
	riskFreeRate float64
	trades       []Trade
	equityCurve  []EquityPoint
	returns      []float64 // per-bar simple returns
}

// NewMetricsCalculator creates a metrics calculator bound to a run's config.
func NewMetricsCalculator(config Config) *MetricsCalculator {
	return &MetricsCalculator{config: config}
}

// WithRiskFreeRate sets the per-period risk-free rate used by Sharpe/Omega/
// Treynor (default 0, appropriate for perpetual-futures backtests).
func (mc *MetricsCalculator) WithRiskFreeRate(rf float64) *MetricsCalculator {
	mc.riskFreeRate = rf
	return mc
}

// periodsPerYear returns the raw bar-count-per-year used to annualize
// Sharpe/Sortino/Volatility via a single sqrt() at each call site.
func (mc *MetricsCalculator) periodsPerYear() float64 {
	if mc.config.PeriodsPerYear > 0 {
		return mc.config.PeriodsPerYear
	}
	return 365 * 24
}

// Calculate computes the full metric set from trades and an equity curve.
func (mc *MetricsCalculator) Calculate(trades []Trade, equityCurve []EquityPoint) Metrics {
	mc.trades = trades
	mc.equityCurve = equityCurve
	mc.returns = barReturns(equityCurve)

	m := Metrics{
		InitialCapital: mc.config.InitialCapital,
		EquityCurve:    equityCurve,
	}

	if len(equityCurve) > 0 {
		m.StartTime = equityCurve[0].Timestamp
		m.EndTime = equityCurve[len(equityCurve)-1].Timestamp
		m.Duration = m.EndTime.Sub(m.StartTime)
		m.FinalEquity = equityCurve[len(equityCurve)-1].Equity
	}

	m.TotalReturn = mc.computeTotalReturn()
	m.AnnualizedReturn = mc.computeAnnualizedReturn(m.TotalReturn, m.Duration)

	m.MaxDrawdown, m.MaxDrawdownDur = mc.computeMaxDrawdown()
	m.Volatility = mc.computeVolatility()

	m.SharpeRatio = mc.computeSharpe()
	m.SortinoRatio, m.DownsideDeviation = mc.computeSortino()
	m.CalmarRatio = clamp(mc.computeCalmar(m.AnnualizedReturn, m.MaxDrawdown), -50, 50)
	m.OmegaRatio = mc.computeOmega()
	m.TreynorRatio = mc.computeTreynor()

	m.VaR95, m.CVaR95 = mc.computeVaRCVaR(0.95)
	m.VaR99, m.CVaR99 = mc.computeVaRCVaR(0.99)

	m.UlcerIndex, m.PainIndex = mc.computeUlcerPain()
	m.Skewness = mc.computeSkewness()
	m.ExcessKurtosis = mc.computeKurtosis()
	m.TailRatio = mc.computeTailRatio()

	mc.computeTradingStats(&m)
	mc.computeCosts(&m)

	return m
}

// CalculateRolling computes rolling return/volatility/Sharpe over window W
// bars, per spec.md §4.3.
func (mc *MetricsCalculator) CalculateRolling(window int) RollingMetrics {
	rm := RollingMetrics{Window: window}
	n := len(mc.returns)
	if window <= 0 || n < window {
		return rm
	}

	ppy := mc.periodsPerYear()
	positive := 0
	for i := window; i <= n; i++ {
		slice := mc.returns[i-window : i]

		prod := 1.0
		for _, r := range slice {
			prod *= 1 + r
		}
		rollRet := prod - 1
		rm.RollingReturn = append(rm.RollingReturn, rollRet)
		if rollRet > 0 {
			positive++
		}

		mean, std := meanStd(slice)
		rollVol := std * sqrt(ppy)
		rm.RollingVolatility = append(rm.RollingVolatility, rollVol)

		rollSharpe := 0.0
		if std > 0 {
			rollSharpe = (mean / std) * sqrt(ppy)
		}
		rm.RollingSharpe = append(rm.RollingSharpe, rollSharpe)
	}

	if len(rm.RollingReturn) > 0 {
		rm.ReturnConsistency = float64(positive) / float64(len(rm.RollingReturn))
	}
	if len(rm.RollingSharpe) > 1 {
		_, sharpeStd := meanStd(rm.RollingSharpe)
		rm.SharpeStability = 1 / (1 + sharpeStd)
	}

	return rm
}

// CompareToBenchmark aligns the strategy's per-bar returns against a
// benchmark equity curve of the same length and computes relative metrics.
func (mc *MetricsCalculator) CompareToBenchmark(benchmark []EquityPoint) BenchmarkComparison {
	var bc BenchmarkComparison

	n := len(mc.returns)
	benchReturns := barReturns(benchmark)
	if len(benchReturns) < n {
		n = len(benchReturns)
	}
	if n < 2 {
		return bc
	}

	s := mc.returns[:n]
	b := benchReturns[:n]

	meanS, _ := meanStd(s)
	meanB, varB := meanStd(b)
	varB = varB * varB

	cov := covariance(s, b, meanS, meanB)
	if varB > 1e-12 {
		bc.Beta = cov / varB
	}
	bc.Alpha = meanS - mc.riskFreeRate - bc.Beta*(meanB-mc.riskFreeRate)

	diffs := make([]float64, n)
	for i := range s {
		diffs[i] = s[i] - b[i]
	}
	_, trackingErr := meanStd(diffs)
	bc.TrackingError = trackingErr
	if trackingErr > 1e-12 {
		meanDiff, _ := meanStd(diffs)
		bc.InformationRatio = meanDiff / trackingErr
	}

	var upS, upB, downS, downB float64
	var upCount, downCount int
	streak, longest := 0, 0
	for i := range s {
		if b[i] > 0 {
			upS += s[i]
			upB += b[i]
			upCount++
		} else if b[i] < 0 {
			downS += s[i]
			downB += b[i]
			downCount++
		}
		if s[i] > b[i] {
			streak++
			if streak > longest {
				longest = streak
			}
		} else {
			streak = 0
		}
	}
	if upB != 0 && upCount > 0 {
		bc.UpCapture = upS / upB
	}
	if downB != 0 && downCount > 0 {
		bc.DownCapture = downS / downB
	}
	bc.LongestOutperform = longest

	return bc
}

// ---------------------- per-component calculations ----------------------

func barReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	std = sqrt(variance)
	return
}

func covariance(a, b []float64, meanA, meanB float64) float64 {
	if len(a) == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}
	return sum / float64(len(a))
}

func (mc *MetricsCalculator) computeTotalReturn() float64 {
	if len(mc.equityCurve) < 2 {
		return 0
	}
	initial := mc.equityCurve[0].Equity
	final := mc.equityCurve[len(mc.equityCurve)-1].Equity
	if initial == 0 {
		return 0
	}
	return (final - initial) / initial
}

func (mc *MetricsCalculator) computeAnnualizedReturn(totalReturn float64, duration time.Duration) float64 {
	years := duration.Hours() / (24 * 365)
	if years <= 0 {
		return 0
	}
	base := 1 + totalReturn
	if base <= 0 {
		return -1
	}
	return math.Pow(base, 1/years) - 1
}

func (mc *MetricsCalculator) computeMaxDrawdown() (float64, time.Duration) {
	if len(mc.equityCurve) == 0 {
		return 0, 0
	}

	maxDD := 0.0
	maxDDDur := time.Duration(0)
	peak := mc.equityCurve[0].Equity
	peakTime := mc.equityCurve[0].Timestamp

	for _, point := range mc.equityCurve {
		if point.Equity > peak {
			peak = point.Equity
			peakTime = point.Timestamp
		}
		if peak == 0 {
			continue
		}
		dd := (peak - point.Equity) / peak
		if dd > maxDD {
			maxDD = dd
			maxDDDur = point.Timestamp.Sub(peakTime)
		}
	}

	return clamp(maxDD, 0, 1), maxDDDur
}

func (mc *MetricsCalculator) computeVolatility() float64 {
	_, std := meanStd(mc.returns)
	return std * sqrt(mc.periodsPerYear())
}

func (mc *MetricsCalculator) computeSharpe() float64 {
	if len(mc.returns) < 2 {
		return 0
	}
	mean, std := meanStd(mc.returns)
	if std < 1e-9 {
		return 0
	}
	sharpe := ((mean - mc.riskFreeRate) / std) * sqrt(mc.periodsPerYear())
	return clamp(sharpe, -25, 25)
}

// computeSortino returns (ratio, downside deviation), the latter following
// the TradingView-parity formula sqrt(sum(min(0,r)^2)/N).
func (mc *MetricsCalculator) computeSortino() (float64, float64) {
	n := len(mc.returns)
	if n < 2 {
		return 0, 0
	}
	mean, _ := meanStd(mc.returns)

	sumSq := 0.0
	for _, r := range mc.returns {
		d := math.Min(0, r)
		sumSq += d * d
	}
	downsideDev := sqrt(sumSq / float64(n))
	if downsideDev < 1e-9 {
		return 0, downsideDev
	}
	sortino := ((mean - mc.riskFreeRate) / downsideDev) * sqrt(mc.periodsPerYear())
	return clamp(sortino, -25, 25), downsideDev
}

func (mc *MetricsCalculator) computeCalmar(annualizedReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualizedReturn / maxDrawdown
}

func (mc *MetricsCalculator) computeOmega() float64 {
	var gains, losses float64
	for _, r := range mc.returns {
		excess := r - mc.riskFreeRate
		if excess > 0 {
			gains += excess
		} else {
			losses -= excess
		}
	}
	if losses < 1e-12 {
		return 0
	}
	return gains / losses
}

func (mc *MetricsCalculator) computeTreynor() float64 {
	// Without a benchmark beta, Treynor reduces to mean excess return; a
	// caller wanting the benchmark-relative version should read Beta off
	// CompareToBenchmark and divide manually.
	if len(mc.returns) == 0 {
		return 0
	}
	mean, _ := meanStd(mc.returns)
	return mean - mc.riskFreeRate
}

func (mc *MetricsCalculator) computeVaRCVaR(confidence float64) (varVal, cvarVal float64) {
	n := len(mc.returns)
	if n == 0 {
		return 0, 0
	}
	sorted := make([]float64, n)
	copy(sorted, mc.returns)
	insertionSort(sorted)

	idx := int((1 - confidence) * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	varVal = -sorted[idx]

	if idx == 0 {
		cvarVal = -sorted[0]
		return
	}
	sum := 0.0
	for i := 0; i <= idx; i++ {
		sum += sorted[i]
	}
	cvarVal = -(sum / float64(idx+1))
	return
}

func insertionSort(xs []float64) {
	for i := 1; i < len(xs); i++ {
		key := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > key {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = key
	}
}

func (mc *MetricsCalculator) computeUlcerPain() (ulcer, pain float64) {
	if len(mc.equityCurve) == 0 {
		return 0, 0
	}
	peak := mc.equityCurve[0].Equity
	var sumSq, sum float64
	for _, p := range mc.equityCurve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - p.Equity) / peak
		}
		sumSq += dd * dd
		sum += dd
	}
	n := float64(len(mc.equityCurve))
	ulcer = sqrt(sumSq / n)
	pain = sum / n
	return
}

func (mc *MetricsCalculator) computeSkewness() float64 {
	n := len(mc.returns)
	if n < 3 {
		return 0
	}
	mean, std := meanStd(mc.returns)
	if std < 1e-12 {
		return 0
	}
	sum := 0.0
	for _, r := range mc.returns {
		sum += math.Pow((r-mean)/std, 3)
	}
	return sum / float64(n)
}

func (mc *MetricsCalculator) computeKurtosis() float64 {
	n := len(mc.returns)
	if n < 4 {
		return 0
	}
	mean, std := meanStd(mc.returns)
	if std < 1e-12 {
		return 0
	}
	sum := 0.0
	for _, r := range mc.returns {
		sum += math.Pow((r-mean)/std, 4)
	}
	return sum/float64(n) - 3
}

func (mc *MetricsCalculator) computeTailRatio() float64 {
	n := len(mc.returns)
	if n < 2 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, mc.returns)
	insertionSort(sorted)

	p5idx := int(0.05 * float64(n))
	p95idx := int(0.95 * float64(n))
	if p95idx >= n {
		p95idx = n - 1
	}
	p5 := sorted[p5idx]
	p95 := sorted[p95idx]
	if math.Abs(p5) < 1e-12 {
		return 0
	}
	return p95 / math.Abs(p5)
}

func (mc *MetricsCalculator) computeTradingStats(m *Metrics) {
	if len(mc.trades) == 0 {
		return
	}

	m.TotalTrades = len(mc.trades)

	var grossProfit, grossLoss float64
	var totalWin, totalLoss float64
	var holdingSum time.Duration

	for _, t := range mc.trades {
		holdingSum += time.Duration(t.DurationSeconds) * time.Second

		net := t.PnL
		// Profit factor is computed on gross P&L (net plus the costs that
		// were already deducted from it), per the original's convention.
		gross := t.PnL + t.Commission + t.Slippage + t.FundingFees + t.LiquidationPenalty

		if net > 0 {
			m.WinningTrades++
			grossProfit += gross
			totalWin += net
			if net > m.LargestWin {
				m.LargestWin = net
			}
		} else {
			m.LosingTrades++
			grossLoss += math.Abs(gross)
			totalLoss += math.Abs(net)
			if net < m.LargestLoss {
				m.LargestLoss = net
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.AvgHoldingTime = holdingSum / time.Duration(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = totalWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = totalLoss / float64(m.LosingTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = math.Min(grossProfit/grossLoss, 100)
	}
	if m.Duration.Hours() > 24 {
		days := m.Duration.Hours() / 24
		m.TradesPerDay = float64(m.TotalTrades) / days
	}
}

func (mc *MetricsCalculator) computeCosts(m *Metrics) {
	for _, t := range mc.trades {
		m.TotalFees += t.Commission
		m.TotalSlippage += t.Slippage
		m.TotalFunding += t.FundingFees
	}
	m.TotalCosts = m.TotalFees + m.TotalSlippage + m.TotalFunding

	grossProfit := 0.0
	for _, t := range mc.trades {
		gross := t.PnL + t.Commission + t.Slippage + t.FundingFees + t.LiquidationPenalty
		if gross > 0 {
			grossProfit += gross
		}
	}
	if grossProfit > 0 {
		m.CostPct = m.TotalCosts / grossProfit
	}
}

// ---------------------- report formatting (no fmt/strconv) ----------------------

// FormatReport creates a human-readable report.
func (m *Metrics) FormatReport() string {
	return formatMetricsReport(m)
}

func formatMetricsReport(m *Metrics) string {
	pct := func(v float64) string {
		return formatPct(v * 100)
	}

	report := "===== BACKTEST RESULTS =====\n"
	report += formatLine("Period", m.StartTime.Format("2006-01-02")+" to "+m.EndTime.Format("2006-01-02"))
	report += formatLine("Initial Capital", formatMoney(m.InitialCapital))
	report += formatLine("Final Equity", formatMoney(m.FinalEquity))
	report += "\n"

	report += "PERFORMANCE\n"
	report += formatLine("  Total Return", pct(m.TotalReturn))
	report += formatLine("  Annualized Return", pct(m.AnnualizedReturn))
	report += formatLine("  Max Drawdown", pct(m.MaxDrawdown))
	report += formatLine("  Sharpe Ratio", formatFloat(m.SharpeRatio))
	report += formatLine("  Sortino Ratio", formatFloat(m.SortinoRatio))
	report += formatLine("  Calmar Ratio", formatFloat(m.CalmarRatio))
	report += formatLine("  Omega Ratio", formatFloat(m.OmegaRatio))
	report += "\n"

	report += "TAIL RISK\n"
	report += formatLine("  VaR 95", pct(m.VaR95))
	report += formatLine("  CVaR 95", pct(m.CVaR95))
	report += formatLine("  VaR 99", pct(m.VaR99))
	report += formatLine("  CVaR 99", pct(m.CVaR99))
	report += formatLine("  Ulcer Index", formatFloat(m.UlcerIndex))
	report += formatLine("  Tail Ratio", formatFloat(m.TailRatio))
	report += "\n"

	report += "TRADING STATS\n"
	report += formatLine("  Total Trades", formatInt(m.TotalTrades))
	report += formatLine("  Win Rate", pct(m.WinRate))
	report += formatLine("  Profit Factor", formatFloat(m.ProfitFactor))
	report += formatLine("  Avg Win", formatMoney(m.AvgWin))
	report += formatLine("  Avg Loss", formatMoney(m.AvgLoss))
	report += formatLine("  Trades/Day", formatFloat(m.TradesPerDay))
	report += "\n"

	report += "COSTS BREAKDOWN\n"
	report += formatLine("  Total Fees", formatMoney(m.TotalFees))
	report += formatLine("  Total Slippage", formatMoney(m.TotalSlippage))
	report += formatLine("  Total Funding", formatMoney(m.TotalFunding))
	report += formatLine("  Total Costs", formatMoney(m.TotalCosts))

	return report
}

func formatLine(label, value string) string {
	return label + ": " + value + "\n"
}

func formatPct(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return sign + formatFloat(v) + "%"
}

func formatFloat(v float64) string {
	return floatToString(v, 2)
}

func formatMoney(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	} else if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + floatToString(v, 2)
}

func formatInt(v int) string {
	return intToString(v)
}

func floatToString(v float64, decimals int) string {
	negative := v < 0
	if negative {
		v = -v
	}

	scale := math.Pow(10, float64(decimals))
	scaled := int64(v*scale + 0.5)

	intPart := scaled / int64(scale)
	decPart := scaled % int64(scale)

	result := intToString(int(intPart)) + "."
	decStr := intToString(int(decPart))
	for len(decStr) < decimals {
		decStr = "0" + decStr
	}
	result += decStr

	if negative {
		result = "-" + result
	}
	return result
}

func intToString(n int) string {
	if n == 0 {
		return "0"
	}
	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}
