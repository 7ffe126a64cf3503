package backtest

import (
	"testing"
	"time"
)

func TestMetricsCalculator_TotalReturn(t *testing.T) {
	config := DefaultConfig()
	config.InitialCapital = 1000

	mc := NewMetricsCalculator(config)

	equityCurve := []EquityPoint{
		{Timestamp: time.Now().Add(-24 * time.Hour), Equity: 1000},
		{Timestamp: time.Now(), Equity: 1100},
	}

	metrics := mc.Calculate(nil, equityCurve)

	expected := 0.10
	if absMetrics(metrics.TotalReturn-expected) > 0.001 {
		t.Errorf("expected return %.4f, got %.4f", expected, metrics.TotalReturn)
	}
}

func TestMetricsCalculator_MaxDrawdown(t *testing.T) {
	config := DefaultConfig()
	config.InitialCapital = 1000

	mc := NewMetricsCalculator(config)

	now := time.Now()
	equityCurve := []EquityPoint{
		{Timestamp: now.Add(-72 * time.Hour), Equity: 1000},
		{Timestamp: now.Add(-48 * time.Hour), Equity: 1200}, // peak
		{Timestamp: now.Add(-24 * time.Hour), Equity: 1000}, // 16.67% drawdown
		{Timestamp: now, Equity: 1100},
	}

	metrics := mc.Calculate(nil, equityCurve)

	expectedDD := 200.0 / 1200.0
	if absMetrics(metrics.MaxDrawdown-expectedDD) > 0.01 {
		t.Errorf("expected max drawdown %.4f, got %.4f", expectedDD, metrics.MaxDrawdown)
	}
}

func TestMetricsCalculator_WinRate(t *testing.T) {
	config := DefaultConfig()
	mc := NewMetricsCalculator(config)

	trades := []Trade{
		{PnL: 100}, // win
		{PnL: 50},  // win
		{PnL: -30}, // loss
		{PnL: 80},  // win
		{PnL: -40}, // loss
	}

	equityCurve := []EquityPoint{
		{Timestamp: time.Now(), Equity: 1160},
	}

	metrics := mc.Calculate(trades, equityCurve)

	if absMetrics(metrics.WinRate-0.6) > 0.001 {
		t.Errorf("expected win rate 0.6, got %.4f", metrics.WinRate)
	}
}

func TestMetricsCalculator_ProfitFactorUsesGrossPnL(t *testing.T) {
	config := DefaultConfig()
	mc := NewMetricsCalculator(config)

	trades := []Trade{
		{PnL: 100, Commission: 5}, // gross 105
		{PnL: 50, Commission: 5},  // gross 55
		{PnL: -30, Commission: 5}, // gross -25
		{PnL: -20, Commission: 5}, // gross -15
	}

	equityCurve := []EquityPoint{
		{Timestamp: time.Now(), Equity: 1100},
	}

	metrics := mc.Calculate(trades, equityCurve)

	expected := 160.0 / 40.0
	if absMetrics(metrics.ProfitFactor-expected) > 0.001 {
		t.Errorf("expected profit factor %.4f, got %.4f", expected, metrics.ProfitFactor)
	}
}

func TestMetricsCalculator_CostBreakdown(t *testing.T) {
	config := DefaultConfig()
	mc := NewMetricsCalculator(config)

	trades := []Trade{
		{Commission: 2.0, Slippage: 1.0, FundingFees: 0.2},
		{Commission: 3.0, Slippage: 1.5, FundingFees: 0.3},
	}

	equityCurve := []EquityPoint{
		{Timestamp: time.Now(), Equity: 1000},
	}

	metrics := mc.Calculate(trades, equityCurve)

	expectedFees := 5.0
	expectedSlip := 2.5
	expectedFunding := 0.5

	if absMetrics(metrics.TotalFees-expectedFees) > 0.001 {
		t.Errorf("expected fees %.2f, got %.2f", expectedFees, metrics.TotalFees)
	}
	if absMetrics(metrics.TotalSlippage-expectedSlip) > 0.001 {
		t.Errorf("expected slippage %.2f, got %.2f", expectedSlip, metrics.TotalSlippage)
	}
	if absMetrics(metrics.TotalFunding-expectedFunding) > 0.001 {
		t.Errorf("expected funding %.2f, got %.2f", expectedFunding, metrics.TotalFunding)
	}
}

func TestMetricsCalculator_VaRCVaROrdering(t *testing.T) {
	config := DefaultConfig()
	mc := NewMetricsCalculator(config)

	now := time.Now()
	equity := 1000.0
	curve := []EquityPoint{{Timestamp: now, Equity: equity}}
	deltas := []float64{0.01, -0.02, 0.015, -0.05, 0.02, -0.01, 0.03, -0.04, 0.005, -0.015}
	for i, d := range deltas {
		equity *= 1 + d
		curve = append(curve, EquityPoint{Timestamp: now.Add(time.Duration(i+1) * time.Hour), Equity: equity})
	}

	metrics := mc.Calculate(nil, curve)

	if metrics.CVaR95 < metrics.VaR95 {
		t.Errorf("CVaR95 (%.4f) should be at least as severe as VaR95 (%.4f)", metrics.CVaR95, metrics.VaR95)
	}
}

func TestMetricsCalculator_RollingWindowTooLarge(t *testing.T) {
	config := DefaultConfig()
	mc := NewMetricsCalculator(config)

	now := time.Now()
	curve := []EquityPoint{
		{Timestamp: now, Equity: 1000},
		{Timestamp: now.Add(time.Hour), Equity: 1010},
	}
	mc.Calculate(nil, curve)

	rolling := mc.CalculateRolling(50)
	if len(rolling.RollingReturn) != 0 {
		t.Errorf("expected empty rolling metrics when window exceeds sample size, got %d points", len(rolling.RollingReturn))
	}
}

func absMetrics(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
