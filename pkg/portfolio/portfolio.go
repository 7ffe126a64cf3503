// Package portfolio runs a multi-asset backtest over a fixed or
// periodically-rebalanced allocation across symbols, on top of the
// single-symbol pkg/backtest engine's candle model.
package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/tradecore/engine/pkg/delta"
)

// RebalanceFrequency selects how often the portfolio checks for rebalancing.
type RebalanceFrequency string

const (
	RebalanceDaily     RebalanceFrequency = "daily"
	RebalanceWeekly    RebalanceFrequency = "weekly"
	RebalanceMonthly   RebalanceFrequency = "monthly"
	RebalanceQuarterly RebalanceFrequency = "quarterly"
	RebalanceThreshold RebalanceFrequency = "threshold"
	RebalanceNever     RebalanceFrequency = "never"
)

// AllocationMethod selects how initial (and, for CUSTOM, ongoing) target
// weights are derived.
type AllocationMethod string

const (
	AllocEqualWeight  AllocationMethod = "equal_weight"
	AllocMarketCap    AllocationMethod = "market_cap"
	AllocRiskParity   AllocationMethod = "risk_parity"
	AllocMinVariance  AllocationMethod = "min_variance"
	AllocMaxSharpe    AllocationMethod = "max_sharpe"
	AllocCvxportfolio AllocationMethod = "cvxportfolio"
	AllocMomentum     AllocationMethod = "momentum"
	AllocCustom       AllocationMethod = "custom"
)

// AssetAllocation is the target weighting for a portfolio run.
type AssetAllocation struct {
	Weights          map[string]float64
	Method           AllocationMethod
	MinWeight        float64
	MaxWeight        float64
	TargetVolatility float64 // 0 means unset
	RiskBudget       map[string]float64
	LookbackPeriod   int // bars, for momentum
}

// Normalize scales Weights to sum to 1, leaving them untouched if already zero.
func (a *AssetAllocation) Normalize() {
	total := 0.0
	for _, w := range a.Weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for k, w := range a.Weights {
		a.Weights[k] = w / total
	}
}

// RebalanceStrategy controls when and how the portfolio is rebalanced back
// to its target weights.
type RebalanceStrategy struct {
	Frequency      RebalanceFrequency
	Threshold      float64 // drift fraction that triggers a threshold rebalance
	RebalanceCost  float64 // fraction of traded notional
	MinTradeSize   float64 // USD; smaller drifts are left alone
	ExecutionDelay int     // bars; currently informational, not simulated
}

// DefaultRebalanceStrategy mirrors a monthly rebalance with TradingView-parity costs.
func DefaultRebalanceStrategy() RebalanceStrategy {
	return RebalanceStrategy{
		Frequency:     RebalanceMonthly,
		Threshold:     0.05,
		RebalanceCost: 0.001,
		MinTradeSize:  100.0,
	}
}

// RebalanceEvent records one executed rebalance.
type RebalanceEvent struct {
	BarIndex       int
	PortfolioValue float64
	TotalCost      float64
	Trades         []RebalanceTrade
	WeightsBefore  map[string]float64
	WeightsAfter   map[string]float64
}

// RebalanceTrade is one asset's adjustment within a RebalanceEvent.
type RebalanceTrade struct {
	Asset string
	Side  string // "buy" or "sell"
	Size  float64
	Value float64
	Cost  float64
}

// CorrelationAnalysis summarizes pairwise return correlation across assets.
type CorrelationAnalysis struct {
	Matrix              map[string]map[string]float64
	RollingCorrelations map[string][]float64 // keyed "assetA_assetB", first pair only
	AvgCorrelation      float64
	MaxCorrelation      float64
	MinCorrelation      float64
	MostCorrelatedPair  [2]string
	LeastCorrelatedPair [2]string
}

// Metrics summarizes portfolio-level risk and return.
type Metrics struct {
	TotalReturn          float64
	AnnualizedReturn     float64
	Volatility           float64
	MaxDrawdown          float64
	VaR95                float64
	CVaR95               float64
	SharpeRatio          float64
	SortinoRatio         float64
	CalmarRatio          float64
	DiversificationRatio float64
	ConcentrationRatio   float64 // Herfindahl index
	Turnover             float64
	AssetContributions   map[string]float64
}

// Result is the well-formed output of PortfolioBacktester.Run.
type Result struct {
	Assets             []string
	InitialCapital     float64
	AllocationMethod   AllocationMethod
	RebalanceFrequency RebalanceFrequency
	Metrics            Metrics
	InitialAllocation  AssetAllocation
	FinalWeights       map[string]float64
	Correlation        CorrelationAnalysis
	RebalanceEvents    []RebalanceEvent
	EquityCurve        []float64
	WeightHistory      []map[string]float64 // last 100 points
}

// PortfolioBacktester runs a multi-asset allocation backtest.
type PortfolioBacktester struct {
	Assets         []string
	InitialCapital float64
	Commission     float64

	capital   float64
	positions map[string]float64
	weights   map[string]float64

	equityCurve     []float64
	weightHistory   []map[string]float64
	rebalanceEvents []RebalanceEvent
}

// NewPortfolioBacktester creates a backtester over the given assets.
func NewPortfolioBacktester(assets []string, initialCapital, commission float64) *PortfolioBacktester {
	return &PortfolioBacktester{
		Assets:         assets,
		InitialCapital: initialCapital,
		Commission:     commission,
	}
}

func (p *PortfolioBacktester) reset() {
	p.capital = p.InitialCapital
	p.positions = make(map[string]float64, len(p.Assets))
	p.weights = make(map[string]float64, len(p.Assets))
	for _, a := range p.Assets {
		p.positions[a] = 0
		p.weights[a] = 0
	}
	p.equityCurve = nil
	p.weightHistory = nil
	p.rebalanceEvents = nil
}

// Run executes the portfolio backtest bar-by-bar over aligned candle series,
// one per asset, applying allocation and rebalance rules.
func (p *PortfolioBacktester) Run(data map[string][]delta.Candle, allocation AssetAllocation, rebalance RebalanceStrategy) (*Result, error) {
	p.reset()

	if err := p.validateData(data); err != nil {
		return nil, err
	}

	minLen := math.MaxInt32
	for _, a := range p.Assets {
		if n := len(data[a]); n < minLen {
			minLen = n
		}
	}

	if allocation.Method != AllocCustom {
		allocation = p.calculateAllocation(data, allocation)
	}
	allocation.Normalize()
	p.executeInitialAllocation(allocation, data)

	lastRebalance := 0
	interval := rebalanceIntervalBars(rebalance.Frequency)

	for i := 0; i < minLen; i++ {
		prices := make(map[string]float64, len(p.Assets))
		for _, a := range p.Assets {
			prices[a] = data[a][i].Close
		}

		value := p.portfolioValue(prices)
		p.equityCurve = append(p.equityCurve, value)

		p.updateWeights(prices, value)
		p.weightHistory = append(p.weightHistory, cloneWeights(p.weights))

		if p.shouldRebalance(i, lastRebalance, interval, rebalance, allocation) {
			p.rebalance(allocation, prices, i, rebalance)
			lastRebalance = i
		}
	}

	returns := calculateReturns(p.equityCurve)
	correlation := p.analyzeCorrelations(data)
	metrics := p.calculateMetrics(returns, data)

	history := p.weightHistory
	if len(history) > 100 {
		history = history[len(history)-100:]
	}

	return &Result{
		Assets:             append([]string{}, p.Assets...),
		InitialCapital:     p.InitialCapital,
		AllocationMethod:   allocation.Method,
		RebalanceFrequency: rebalance.Frequency,
		Metrics:            metrics,
		InitialAllocation:  allocation,
		FinalWeights:       cloneWeights(p.weights),
		Correlation:        correlation,
		RebalanceEvents:    p.rebalanceEvents,
		EquityCurve:        p.equityCurve,
		WeightHistory:      history,
	}, nil
}

func (p *PortfolioBacktester) validateData(data map[string][]delta.Candle) error {
	if len(data) == 0 {
		return fmt.Errorf("portfolio: no data supplied")
	}
	for _, a := range p.Assets {
		candles, ok := data[a]
		if !ok {
			return fmt.Errorf("portfolio: missing data for asset %s", a)
		}
		if len(candles) == 0 {
			return fmt.Errorf("portfolio: empty data for asset %s", a)
		}
	}
	return nil
}

// calculateAllocation derives target weights for every method except CUSTOM.
func (p *PortfolioBacktester) calculateAllocation(data map[string][]delta.Candle, allocation AssetAllocation) AssetAllocation {
	n := len(p.Assets)
	switch allocation.Method {
	case AllocEqualWeight, AllocMarketCap:
		allocation.Weights = equalWeights(p.Assets)

	case AllocRiskParity:
		vols := make(map[string]float64, n)
		for _, a := range p.Assets {
			rets := assetReturns(data[a])
			v := stddev(rets)
			if v <= 0 {
				v = 0.02
			}
			vols[a] = v
		}
		totalInvVol := 0.0
		for _, v := range vols {
			totalInvVol += 1 / v
		}
		allocation.Weights = make(map[string]float64, n)
		for a, v := range vols {
			allocation.Weights[a] = (1 / v) / totalInvVol
		}

	case AllocMinVariance:
		allocation = p.minVarianceAllocation(data, allocation)

	case AllocMaxSharpe:
		allocation = p.maxSharpeAllocation(data, allocation)

	case AllocCvxportfolio:
		// No QP solver is vendored; this always degrades to max-Sharpe, the
		// same fallback path the original takes when cvxpy is unavailable.
		allocation = p.maxSharpeAllocation(data, allocation)

	case AllocMomentum:
		lookback := allocation.LookbackPeriod
		if lookback <= 0 {
			lookback = 30
		}
		scores := make(map[string]float64, n)
		for _, a := range p.Assets {
			candles := data[a]
			if len(candles) > lookback {
				old := candles[len(candles)-1-lookback].Close
				cur := candles[len(candles)-1].Close
				if old > 0 {
					scores[a] = cur/old - 1
				}
			}
		}
		total := 0.0
		positive := make(map[string]float64, n)
		for a, s := range scores {
			if s > 0 {
				positive[a] = s
				total += s
			}
		}
		if total > 0 {
			allocation.Weights = make(map[string]float64, n)
			for a, s := range positive {
				allocation.Weights[a] = s / total
			}
		} else {
			allocation.Weights = equalWeights(p.Assets)
		}

	default:
		allocation.Weights = equalWeights(p.Assets)
	}

	return allocation
}

// minVarianceAllocation runs a small fixed-iteration projected-gradient
// descent toward the minimum-variance portfolio. This module never vendors
// a QP solver (no scipy/cvxpy equivalent in the Go ecosystem pack), so this
// numeric routine stands in for the original's SLSQP call.
func (p *PortfolioBacktester) minVarianceAllocation(data map[string][]delta.Candle, allocation AssetAllocation) AssetAllocation {
	returns, assets := p.buildReturnsMatrix(data)
	if returns == nil || len(assets) < 2 {
		allocation.Weights = equalWeights(p.Assets)
		return allocation
	}

	cov := covarianceMatrix(returns)
	lo, hi := boundsOrDefault(allocation)
	w := gradientDescent(len(assets), lo, hi, func(w []float64) []float64 {
		// gradient of w'Σw is 2Σw
		grad := make([]float64, len(w))
		for i := range grad {
			sum := 0.0
			for j := range w {
				sum += cov[i][j] * w[j]
			}
			grad[i] = 2 * sum
		}
		return grad
	})

	allocation.Weights = make(map[string]float64, len(assets))
	for i, a := range assets {
		allocation.Weights[a] = w[i]
	}
	return allocation
}

// maxSharpeAllocation runs the same projected-gradient routine against the
// negative-Sharpe objective.
func (p *PortfolioBacktester) maxSharpeAllocation(data map[string][]delta.Candle, allocation AssetAllocation) AssetAllocation {
	returns, assets := p.buildReturnsMatrix(data)
	if returns == nil || len(assets) < 2 {
		allocation.Weights = equalWeights(p.Assets)
		return allocation
	}

	mu := columnMeans(returns)
	cov := covarianceMatrix(returns)
	lo, hi := boundsOrDefault(allocation)

	w := gradientDescent(len(assets), lo, hi, func(w []float64) []float64 {
		portRet := dot(w, mu)
		var covW float64
		sigmaW := make([]float64, len(w))
		for i := range w {
			sum := 0.0
			for j := range w {
				sum += cov[i][j] * w[j]
			}
			sigmaW[i] = sum
		}
		covW = dot(w, sigmaW)
		portVol := math.Sqrt(math.Max(covW, 1e-12))

		// d(-sharpe)/dw = -(mu*portVol - portRet*sigmaW/portVol) / portVol^2
		grad := make([]float64, len(w))
		for i := range grad {
			grad[i] = -(mu[i]*portVol - portRet*sigmaW[i]/portVol) / (portVol * portVol)
		}
		return grad
	})

	allocation.Weights = make(map[string]float64, len(assets))
	for i, a := range assets {
		allocation.Weights[a] = w[i]
	}
	return allocation
}

func boundsOrDefault(a AssetAllocation) (lo, hi float64) {
	lo, hi = a.MinWeight, a.MaxWeight
	if hi <= 0 {
		hi = 1
	}
	return lo, hi
}

// gradientDescent runs a fixed number of projected-gradient steps starting
// from an equal-weight portfolio, projecting back onto the simplex with
// per-asset bounds after every step.
func gradientDescent(n int, lo, hi float64, gradFn func(w []float64) []float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}

	const iterations = 200
	lr := 0.05
	for it := 0; it < iterations; it++ {
		grad := gradFn(w)
		for i := range w {
			w[i] -= lr * grad[i]
		}
		projectSimplex(w, lo, hi)
		lr *= 0.99
	}
	return w
}

// projectSimplex clamps every weight into [lo, hi] then renormalizes to sum 1.
func projectSimplex(w []float64, lo, hi float64) {
	for i := range w {
		if w[i] < lo {
			w[i] = lo
		}
		if w[i] > hi {
			w[i] = hi
		}
	}
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		for i := range w {
			w[i] = 1.0 / float64(len(w))
		}
		return
	}
	for i := range w {
		w[i] /= total
	}
}

func (p *PortfolioBacktester) buildReturnsMatrix(data map[string][]delta.Candle) ([][]float64, []string) {
	assetReturnsMap := make(map[string][]float64, len(p.Assets))
	minLen := math.MaxInt32
	for _, a := range p.Assets {
		candles, ok := data[a]
		if !ok {
			continue
		}
		rets := assetReturns(candles)
		assetReturnsMap[a] = rets
		if len(rets) < minLen {
			minLen = len(rets)
		}
	}

	if minLen < 2 || len(assetReturnsMap) < 2 {
		return nil, p.Assets
	}

	assets := make([]string, 0, len(assetReturnsMap))
	for _, a := range p.Assets {
		if _, ok := assetReturnsMap[a]; ok {
			assets = append(assets, a)
		}
	}
	sort.Strings(assets)

	// rows = bars, columns = assets
	rows := make([][]float64, minLen)
	for t := 0; t < minLen; t++ {
		row := make([]float64, len(assets))
		for i, a := range assets {
			row[i] = assetReturnsMap[a][t]
		}
		rows[t] = row
	}
	return rows, assets
}

func (p *PortfolioBacktester) executeInitialAllocation(allocation AssetAllocation, data map[string][]delta.Candle) {
	for asset, weight := range allocation.Weights {
		candles, ok := data[asset]
		if !ok || weight <= 0 || len(candles) == 0 {
			continue
		}
		price := candles[0].Close
		if price <= 0 {
			continue
		}
		value := p.InitialCapital * weight
		cost := value * p.Commission
		p.positions[asset] = (value - cost) / price
		p.capital -= value
	}
	p.weights = cloneWeights(allocation.Weights)
}

func (p *PortfolioBacktester) portfolioValue(prices map[string]float64) float64 {
	total := p.capital
	for _, a := range p.Assets {
		total += p.positions[a] * prices[a]
	}
	return total
}

func (p *PortfolioBacktester) updateWeights(prices map[string]float64, totalValue float64) {
	if totalValue <= 0 {
		return
	}
	for _, a := range p.Assets {
		p.weights[a] = p.positions[a] * prices[a] / totalValue
	}
}

func rebalanceIntervalBars(freq RebalanceFrequency) int {
	switch freq {
	case RebalanceDaily:
		return 1
	case RebalanceWeekly:
		return 7
	case RebalanceMonthly:
		return 30
	case RebalanceQuarterly:
		return 90
	case RebalanceThreshold:
		return 1
	case RebalanceNever:
		return math.MaxInt32
	default:
		return 30
	}
}

func (p *PortfolioBacktester) shouldRebalance(bar, lastRebalance, interval int, strategy RebalanceStrategy, target AssetAllocation) bool {
	if strategy.Frequency == RebalanceNever {
		return false
	}
	if strategy.Frequency == RebalanceThreshold {
		for _, a := range p.Assets {
			if math.Abs(p.weights[a]-target.Weights[a]) > strategy.Threshold {
				return true
			}
		}
		return false
	}
	return bar-lastRebalance >= interval
}

func (p *PortfolioBacktester) rebalance(target AssetAllocation, prices map[string]float64, barIndex int, strategy RebalanceStrategy) {
	value := p.portfolioValue(prices)
	totalCost := 0.0
	var trades []RebalanceTrade

	for _, a := range p.Assets {
		targetValue := value * target.Weights[a]
		currentValue := p.positions[a] * prices[a]
		diff := targetValue - currentValue

		if math.Abs(diff) < strategy.MinTradeSize {
			continue
		}
		price := prices[a]
		if price <= 0 {
			continue
		}

		size := diff / price
		cost := math.Abs(diff) * strategy.RebalanceCost

		p.positions[a] += size
		p.capital -= diff + cost
		totalCost += cost

		side := "sell"
		if diff > 0 {
			side = "buy"
		}
		trades = append(trades, RebalanceTrade{
			Asset: a, Side: side, Size: math.Abs(size), Value: math.Abs(diff), Cost: cost,
		})
	}

	if len(trades) > 0 {
		p.rebalanceEvents = append(p.rebalanceEvents, RebalanceEvent{
			BarIndex:       barIndex,
			PortfolioValue: value,
			TotalCost:      totalCost,
			Trades:         trades,
			WeightsBefore:  cloneWeights(p.weights),
			WeightsAfter:   cloneWeights(target.Weights),
		})
	}

	p.weights = cloneWeights(target.Weights)
}

func (p *PortfolioBacktester) computeDiversificationRatio(data map[string][]delta.Candle) float64 {
	returns, assets := p.buildReturnsMatrix(data)
	if returns == nil || len(assets) < 2 {
		return 1.0
	}
	cov := covarianceMatrix(returns)
	vols := make([]float64, len(assets))
	for i := range assets {
		vols[i] = math.Sqrt(math.Max(cov[i][i], 1e-8))
	}
	w := make([]float64, len(assets))
	total := 0.0
	for i, a := range assets {
		w[i] = p.weights[a]
		total += w[i]
	}
	if total > 0 {
		for i := range w {
			w[i] /= total
		}
	}
	weightedVol := dot(w, vols)

	var covW float64
	sigmaW := make([]float64, len(w))
	for i := range w {
		sum := 0.0
		for j := range w {
			sum += cov[i][j] * w[j]
		}
		sigmaW[i] = sum
	}
	covW = dot(w, sigmaW)
	portVol := math.Sqrt(math.Max(covW, 0))
	if portVol < 1e-10 {
		return 1.0
	}
	return weightedVol / portVol
}

func (p *PortfolioBacktester) calculateMetrics(returns []float64, data map[string][]delta.Candle) Metrics {
	m := Metrics{AssetContributions: map[string]float64{}}
	if len(returns) == 0 || len(p.equityCurve) == 0 {
		return m
	}

	m.TotalReturn = p.equityCurve[len(p.equityCurve)-1]/p.InitialCapital - 1
	m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 365/float64(len(returns))) - 1
	m.Volatility = stddev(returns) * math.Sqrt(365)

	runningMax := p.equityCurve[0]
	maxDD := 0.0
	for _, e := range p.equityCurve {
		if e > runningMax {
			runningMax = e
		}
		if runningMax > 0 {
			dd := (runningMax - e) / runningMax
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	m.MaxDrawdown = maxDD

	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	varIdx := int(0.05 * float64(len(sorted)))
	if varIdx < len(sorted) {
		m.VaR95 = sorted[varIdx]
	}
	if varIdx < 1 {
		varIdx = 1
	}
	m.CVaR95 = mean(sorted[:varIdx])

	meanRet := mean(returns)
	stdRet := stddev(returns)
	if stdRet > 0 {
		m.SharpeRatio = meanRet / stdRet * math.Sqrt(365)
	}

	downsideSq := 0.0
	for _, r := range returns {
		if r < 0 {
			downsideSq += r * r
		}
	}
	downsideDev := math.Sqrt(downsideSq / float64(len(returns)))
	if downsideDev > 0 {
		m.SortinoRatio = meanRet / downsideDev * math.Sqrt(365)
	}

	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}

	for _, w := range p.weights {
		m.ConcentrationRatio += w * w
	}

	if data != nil && len(p.Assets) >= 2 {
		m.DiversificationRatio = p.computeDiversificationRatio(data)
	}

	if len(p.rebalanceEvents) > 0 {
		totalTraded := 0.0
		for _, ev := range p.rebalanceEvents {
			for _, t := range ev.Trades {
				totalTraded += t.Value
			}
		}
		m.Turnover = totalTraded / (p.InitialCapital * float64(len(returns)) / 365)
	}

	for _, a := range p.Assets {
		m.AssetContributions[a] = p.weights[a] * m.TotalReturn
	}

	return m
}

func (p *PortfolioBacktester) analyzeCorrelations(data map[string][]delta.Candle) CorrelationAnalysis {
	analysis := CorrelationAnalysis{Matrix: map[string]map[string]float64{}, RollingCorrelations: map[string][]float64{}}
	if len(p.Assets) < 2 {
		return analysis
	}

	assetReturnsMap := make(map[string][]float64, len(p.Assets))
	minLen := math.MaxInt32
	for _, a := range p.Assets {
		rets := assetReturns(data[a])
		assetReturnsMap[a] = rets
		if len(rets) < minLen {
			minLen = len(rets)
		}
	}
	if minLen < 2 {
		return analysis
	}
	for a := range assetReturnsMap {
		assetReturnsMap[a] = assetReturnsMap[a][:minLen]
	}

	var correlations []float64
	for _, a1 := range p.Assets {
		row := make(map[string]float64, len(p.Assets))
		for _, a2 := range p.Assets {
			var corr float64
			if a1 == a2 {
				corr = 1.0
			} else {
				corr = correlation(assetReturnsMap[a1], assetReturnsMap[a2])
			}
			row[a2] = corr
			if a1 != a2 {
				correlations = append(correlations, corr)
			}
		}
		analysis.Matrix[a1] = row
	}

	if len(correlations) > 0 {
		analysis.AvgCorrelation = mean(correlations)
		analysis.MaxCorrelation = maxOf(correlations)
		analysis.MinCorrelation = minOf(correlations)

		maxCorr, minCorr := -2.0, 2.0
		for i, a1 := range p.Assets {
			for j, a2 := range p.Assets {
				if i >= j {
					continue
				}
				corr := analysis.Matrix[a1][a2]
				if corr > maxCorr {
					maxCorr = corr
					analysis.MostCorrelatedPair = [2]string{a1, a2}
				}
				if corr < minCorr {
					minCorr = corr
					analysis.LeastCorrelatedPair = [2]string{a1, a2}
				}
			}
		}
	}

	window := 20
	if len(p.Assets) >= 2 && minLen > window {
		a1, a2 := p.Assets[0], p.Assets[1]
		r1, r2 := assetReturnsMap[a1], assetReturnsMap[a2]
		var rolling []float64
		for i := window; i < len(r1); i++ {
			rolling = append(rolling, correlation(r1[i-window:i], r2[i-window:i]))
		}
		if len(rolling) > 100 {
			rolling = rolling[len(rolling)-100:]
		}
		analysis.RollingCorrelations[a1+"_"+a2] = rolling
	}

	return analysis
}

// AggregateMultiSymbolEquity combines per-symbol equity curves into one
// portfolio-level curve, holding a symbol's last known value once its own
// series runs out (handles misaligned lengths across symbols).
func AggregateMultiSymbolEquity(curves map[string][]float64) []float64 {
	maxLen := 0
	for _, c := range curves {
		if len(c) > maxLen {
			maxLen = len(c)
		}
	}
	out := make([]float64, maxLen)
	for i := 0; i < maxLen; i++ {
		total := 0.0
		for _, c := range curves {
			if i < len(c) {
				total += c[i]
			} else if len(c) > 0 {
				total += c[len(c)-1]
			}
		}
		out[i] = total
	}
	return out
}

func equalWeights(assets []string) map[string]float64 {
	w := make(map[string]float64, len(assets))
	weight := 1.0 / float64(len(assets))
	for _, a := range assets {
		w[a] = weight
	}
	return w
}

func assetReturns(candles []delta.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close > 0 {
			rets = append(rets, (candles[i].Close-candles[i-1].Close)/candles[i-1].Close)
		}
	}
	return rets
}

func calculateReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			rets = append(rets, (equity[i]-equity[i-1])/equity[i-1])
		}
	}
	return rets
}

func cloneWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func correlation(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va <= 0 || vb <= 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

func columnMeans(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows[0])
	means := make([]float64, n)
	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(rows))
	}
	return means
}

// covarianceMatrix computes the sample covariance matrix of the columns
// (assets) given rows of per-bar returns.
func covarianceMatrix(rows [][]float64) [][]float64 {
	n := len(rows[0])
	means := columnMeans(rows)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for _, row := range rows {
				sum += (row[i] - means[i]) * (row[j] - means[j])
			}
			v := sum / float64(len(rows)-1)
			cov[i][j] = v
			cov[j][i] = v
		}
	}
	return cov
}
