package portfolio

import (
	"math"
	"testing"

	"github.com/tradecore/engine/pkg/delta"
)

func synthCandles(start float64, steps []float64) []delta.Candle {
	candles := make([]delta.Candle, 0, len(steps)+1)
	price := start
	candles = append(candles, delta.Candle{Time: 0, Open: price, High: price, Low: price, Close: price, Volume: 1})
	for i, step := range steps {
		price *= 1 + step
		candles = append(candles, delta.Candle{
			Time: int64(i + 1), Open: price, High: price, Low: price, Close: price, Volume: 1,
		})
	}
	return candles
}

func TestPortfolioBacktester_EqualWeightAllocation(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.01, 0.02, -0.01, 0.03, 0.01}),
		"ETHUSD": synthCandles(50, []float64{0.02, -0.01, 0.01, 0.02, -0.02}),
	}

	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	result, err := pb.Run(data, AssetAllocation{Method: AllocEqualWeight}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range result.InitialAllocation.Weights {
		if absf(w-0.5) > 0.001 {
			t.Errorf("expected equal weight 0.5, got %.4f", w)
		}
	}
	if len(result.EquityCurve) != 6 {
		t.Errorf("expected 6 equity points, got %d", len(result.EquityCurve))
	}
}

func TestPortfolioBacktester_MissingAssetData(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.01}),
	}

	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	_, err := pb.Run(data, AssetAllocation{Method: AllocEqualWeight}, DefaultRebalanceStrategy())
	if err == nil {
		t.Fatal("expected error for missing asset data")
	}
}

func TestPortfolioBacktester_RiskParityFavorsLowVolAsset(t *testing.T) {
	data := map[string][]delta.Candle{
		"STABLE":   synthCandles(100, []float64{0.001, -0.001, 0.001, -0.001, 0.001, -0.001, 0.001, -0.001}),
		"VOLATILE": synthCandles(100, []float64{0.1, -0.12, 0.15, -0.1, 0.12, -0.15, 0.1, -0.12}),
	}

	pb := NewPortfolioBacktester([]string{"STABLE", "VOLATILE"}, 10000, 0.001)
	result, err := pb.Run(data, AssetAllocation{Method: AllocRiskParity}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.InitialAllocation.Weights["STABLE"] <= result.InitialAllocation.Weights["VOLATILE"] {
		t.Errorf("expected risk parity to favor the lower-volatility asset, got STABLE=%.4f VOLATILE=%.4f",
			result.InitialAllocation.Weights["STABLE"], result.InitialAllocation.Weights["VOLATILE"])
	}
}

func TestPortfolioBacktester_MinVarianceWeightsSumToOne(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.01, 0.02, -0.01, 0.03, 0.01, -0.02, 0.015, -0.01, 0.02, 0.01}),
		"ETHUSD": synthCandles(50, []float64{0.02, -0.03, 0.01, 0.02, -0.015, 0.03, -0.02, 0.01, 0.005, -0.01}),
		"SOLUSD": synthCandles(20, []float64{-0.01, 0.04, -0.02, 0.01, 0.03, -0.025, 0.02, -0.01, 0.015, -0.005}),
	}

	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD", "SOLUSD"}, 10000, 0.001)
	result, err := pb.Run(data, AssetAllocation{Method: AllocMinVariance}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0.0
	for _, w := range result.InitialAllocation.Weights {
		if w < -1e-6 {
			t.Errorf("expected non-negative weight, got %.4f", w)
		}
		total += w
	}
	if absf(total-1.0) > 0.01 {
		t.Errorf("expected weights to sum to 1, got %.4f", total)
	}
}

func TestPortfolioBacktester_CvxportfolioFallsBackToMaxSharpe(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.01, 0.02, -0.01, 0.03, 0.01, -0.02, 0.015, -0.01, 0.02, 0.01}),
		"ETHUSD": synthCandles(50, []float64{0.02, -0.03, 0.01, 0.02, -0.015, 0.03, -0.02, 0.01, 0.005, -0.01}),
	}

	pbCvx := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	resultCvx, err := pbCvx.Run(data, AssetAllocation{Method: AllocCvxportfolio}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pbSharpe := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	resultSharpe, err := pbSharpe.Run(data, AssetAllocation{Method: AllocMaxSharpe}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for asset, w := range resultCvx.InitialAllocation.Weights {
		if absf(w-resultSharpe.InitialAllocation.Weights[asset]) > 1e-9 {
			t.Errorf("expected cvxportfolio to match max-sharpe weights for %s, got %.4f vs %.4f",
				asset, w, resultSharpe.InitialAllocation.Weights[asset])
		}
	}
}

func TestPortfolioBacktester_ThresholdRebalanceTriggersOnDrift(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3}),
		"ETHUSD": synthCandles(100, []float64{-0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1}),
	}

	rebalance := DefaultRebalanceStrategy()
	rebalance.Frequency = RebalanceThreshold
	rebalance.Threshold = 0.05
	rebalance.MinTradeSize = 1

	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.0)
	result, err := pb.Run(data, AssetAllocation{Method: AllocEqualWeight}, rebalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.RebalanceEvents) == 0 {
		t.Error("expected at least one threshold-triggered rebalance")
	}
}

func TestPortfolioBacktester_NeverRebalanceSkipsAllEvents(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, []float64{0.3, 0.3, 0.3, 0.3, 0.3}),
		"ETHUSD": synthCandles(100, []float64{-0.1, -0.1, -0.1, -0.1, -0.1}),
	}

	rebalance := DefaultRebalanceStrategy()
	rebalance.Frequency = RebalanceNever

	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	result, err := pb.Run(data, AssetAllocation{Method: AllocEqualWeight}, rebalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.RebalanceEvents) != 0 {
		t.Errorf("expected no rebalance events, got %d", len(result.RebalanceEvents))
	}
}

func TestAnalyzeCorrelations_PerfectlyCorrelatedAssets(t *testing.T) {
	steps := []float64{0.01, 0.02, -0.01, 0.03, 0.01, -0.02, 0.015, -0.01, 0.02, 0.01,
		0.005, -0.015, 0.01, 0.02, -0.005, 0.03, -0.01, 0.02, -0.02, 0.01, 0.015, -0.01, 0.005}
	data := map[string][]delta.Candle{
		"A": synthCandles(100, steps),
		"B": synthCandles(200, steps), // identical relative moves -> perfect correlation
	}

	pb := NewPortfolioBacktester([]string{"A", "B"}, 10000, 0.001)
	result, err := pb.Run(data, AssetAllocation{Method: AllocEqualWeight}, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	corr := result.Correlation.Matrix["A"]["B"]
	if absf(corr-1.0) > 0.001 {
		t.Errorf("expected near-perfect correlation, got %.4f", corr)
	}
	if _, ok := result.Correlation.RollingCorrelations["A_B"]; !ok {
		t.Error("expected rolling correlation series for the first asset pair")
	}
}

func TestAggregateMultiSymbolEquity_HoldsLastValueOnShortSeries(t *testing.T) {
	curves := map[string][]float64{
		"A": {100, 110, 120},
		"B": {50, 55},
	}

	agg := AggregateMultiSymbolEquity(curves)
	if len(agg) != 3 {
		t.Fatalf("expected 3 points, got %d", len(agg))
	}
	if absf(agg[2]-175) > 0.001 {
		t.Errorf("expected final point 175 (120+55 held), got %.2f", agg[2])
	}
}

func TestPortfolioBacktester_MomentumFallsBackToEqualWeightWithNoPositiveMomentum(t *testing.T) {
	data := map[string][]delta.Candle{
		"BTCUSD": synthCandles(100, repeatStep(-0.01, 40)),
		"ETHUSD": synthCandles(100, repeatStep(-0.02, 40)),
	}

	alloc := AssetAllocation{Method: AllocMomentum, LookbackPeriod: 30}
	pb := NewPortfolioBacktester([]string{"BTCUSD", "ETHUSD"}, 10000, 0.001)
	result, err := pb.Run(data, alloc, DefaultRebalanceStrategy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range result.InitialAllocation.Weights {
		if absf(w-0.5) > 0.001 {
			t.Errorf("expected equal-weight fallback, got %.4f", w)
		}
	}
}

func repeatStep(step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = step
	}
	return out
}

func absf(x float64) float64 {
	return math.Abs(x)
}
