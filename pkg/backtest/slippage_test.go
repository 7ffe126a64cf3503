package backtest

import "testing"

func TestFixedSlippage(t *testing.T) {
	model := NewFixedSlippage(0.0002) // 2 bps

	result := model.Calculate(50000, 1, SideBuy, SlippageContext{})

	expected := 50000 * 0.0002
	if abs(result.SlippageAmount-expected) > 0.01 {
		t.Errorf("expected slippage amount %.4f, got %.4f", expected, result.SlippageAmount)
	}
	if result.ExecutionPrice <= 50000 {
		t.Errorf("buy execution price should be above reference price, got %.2f", result.ExecutionPrice)
	}
}

func TestVolatilitySlippage(t *testing.T) {
	model := NewVolatilitySlippage(0.0001, 0.5, 0, 0.05)

	low := model.Calculate(50000, 1, SideBuy, SlippageContext{Volatility: 0.001})
	high := model.Calculate(50000, 1, SideBuy, SlippageContext{Volatility: 0.05})

	if high.SlippagePct <= low.SlippagePct {
		t.Errorf("high volatility slippage (%.5f) should exceed low volatility (%.5f)", high.SlippagePct, low.SlippagePct)
	}
}

func TestVolumeImpactSlippage(t *testing.T) {
	model := NewVolumeImpactSlippage(0.1, 0, 0, 0.2)

	thin := model.Calculate(50000, 10, SideBuy, SlippageContext{BookDepth: 5000, Volatility: 0.02})
	deep := model.Calculate(50000, 10, SideBuy, SlippageContext{BookDepth: 5_000_000, Volatility: 0.02})

	if thin.SlippagePct <= deep.SlippagePct {
		t.Errorf("thin book slippage (%.5f) should exceed deep book (%.5f)", thin.SlippagePct, deep.SlippagePct)
	}
}

func TestOrderBookSlippage(t *testing.T) {
	model := NewOrderBookSlippage(0.5, 0.1, 0.0002)

	withQuotes := model.Calculate(50000, 1, SideBuy, SlippageContext{
		HasQuotes: true, Bid: 49990, Ask: 50010,
	})
	if withQuotes.SlippagePct <= 0 {
		t.Errorf("expected positive slippage pct, got %.5f", withQuotes.SlippagePct)
	}
}

func TestCompositeSlippageBlendsComponents(t *testing.T) {
	model := NewDefaultCompositeSlippage()

	result := model.Calculate(50000, 1, SideBuy, SlippageContext{
		Volatility: 0.02, BookDepth: 1_000_000,
	})

	if len(result.Components) != 3 {
		t.Errorf("expected 3 components, got %d", len(result.Components))
	}
	if result.SlippagePct <= 0 {
		t.Errorf("expected positive composite slippage, got %.5f", result.SlippagePct)
	}
}

func TestAdaptiveSlippageDiscountsLimitOrders(t *testing.T) {
	base := NewFixedSlippage(0.001)
	model := NewAdaptiveSlippage(base)

	market := model.Calculate(50000, 1, SideBuy, SlippageContext{OrderType: OrderMarket, Regime: "ranging"})
	limit := model.Calculate(50000, 1, SideBuy, SlippageContext{OrderType: OrderLimit, Regime: "ranging"})

	if limit.SlippagePct >= market.SlippagePct {
		t.Errorf("limit order slippage (%.5f) should be discounted below market (%.5f)", limit.SlippagePct, market.SlippagePct)
	}
}

func TestApplySlippage(t *testing.T) {
	price := 50000.0
	slip := 10.0

	buyPrice := ApplySlippage(price, slip, SideBuy)
	if buyPrice != 50010 {
		t.Errorf("buy price should be 50010, got %.2f", buyPrice)
	}

	sellPrice := ApplySlippage(price, slip, SideSell)
	if sellPrice != 49990 {
		t.Errorf("sell price should be 49990, got %.2f", sellPrice)
	}
}

func TestCalculateFee(t *testing.T) {
	notional := 10000.0
	rate := 0.0005

	fee := CalculateFee(notional, rate)

	expected := 5.0
	if abs(fee-expected) > 0.01 {
		t.Errorf("expected fee %.2f, got %.2f", expected, fee)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
