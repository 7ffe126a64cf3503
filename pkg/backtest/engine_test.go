package backtest

import (
	"testing"
	"time"

	"github.com/tradecore/engine/pkg/strategy"
)

func makeCandles(prices []float64, start time.Time, stepMinutes float64) []Candle {
	out := make([]Candle, len(prices))
	for i, p := range prices {
		out[i] = Candle{
			OpenTime:        start.Add(time.Duration(float64(i) * stepMinutes * float64(time.Minute))),
			Open:            p,
			High:            p * 1.002,
			Low:             p * 0.998,
			Close:           p,
			Volume:          1000,
			Symbol:          "BTCUSD",
			Index:           i,
			IntervalMinutes: stepMinutes,
		}
	}
	return out
}

func TestEngine_BuyAndHoldRealizesProfitOnClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFunding = false
	cfg.SlippageModel = NewFixedSlippage(0)

	prices := []float64{100, 105, 110, 115, 120}
	candles := makeCandles(prices, time.Now().Truncate(time.Hour), 60)

	strat := func(c Candle, s State) *strategy.Signal {
		if s.Position == nil && c.Index == 0 {
			return &strategy.Signal{Action: strategy.ActionBuy, Side: "buy", Symbol: "BTCUSD"}
		}
		if s.Position != nil && c.Index == len(prices)-1 {
			return &strategy.Signal{Action: strategy.ActionClose, Symbol: "BTCUSD"}
		}
		return nil
	}

	engine := NewEngine(cfg, strat)
	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if result.Trades.Total != 1 {
		t.Fatalf("expected 1 trade, got %d", result.Trades.Total)
	}
	if result.Performance.NetProfit <= 0 {
		t.Errorf("expected positive net profit from a rising market long, got %.4f", result.Performance.NetProfit)
	}
	if len(result.EquityCurve) != len(prices) {
		t.Errorf("expected one equity point per bar, got %d", len(result.EquityCurve))
	}
}

func TestEngine_StopLossClosesPositionOnAdverseMove(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFunding = false
	cfg.SlippageModel = NewFixedSlippage(0)

	prices := []float64{100, 99, 95, 90, 85}
	candles := makeCandles(prices, time.Now().Truncate(time.Hour), 60)

	strat := func(c Candle, s State) *strategy.Signal {
		if s.Position == nil && c.Index == 0 {
			return &strategy.Signal{
				Action:   strategy.ActionBuy,
				Side:     "buy",
				Symbol:   "BTCUSD",
				StopLoss: 92,
			}
		}
		return nil
	}

	engine := NewEngine(cfg, strat)
	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Trades.Total != 1 {
		t.Fatalf("expected stop-loss to close the single open trade, got %d trades", result.Trades.Total)
	}
	if result.AllTrades[0].Reason != ReasonStopLoss {
		t.Errorf("expected stop_loss reason, got %s", result.AllTrades[0].Reason)
	}
	if result.Performance.NetProfit >= 0 {
		t.Errorf("expected a loss from the stopped-out long, got %.4f", result.Performance.NetProfit)
	}
}

func TestEngine_NoSignalsYieldsNoTradesStatus(t *testing.T) {
	cfg := DefaultConfig()
	candles := makeCandles([]float64{100, 101, 102}, time.Now(), 60)

	strat := func(c Candle, s State) *strategy.Signal { return nil }

	engine := NewEngine(cfg, strat)
	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != StatusNoTrades {
		t.Errorf("expected no_trades status, got %s", result.Status)
	}
	if result.Trades.Total != 0 {
		t.Errorf("expected zero trades, got %d", result.Trades.Total)
	}
}

func TestEngine_MaxDrawdownLimitHaltsNewEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFunding = false
	cfg.SlippageModel = NewFixedSlippage(0)
	cfg.MaxDrawdownLimit = 0.05 // 5%

	prices := []float64{100, 90, 80, 70, 60, 65, 70}
	candles := makeCandles(prices, time.Now().Truncate(time.Hour), 60)

	opens := 0
	strat := func(c Candle, s State) *strategy.Signal {
		if s.Position == nil {
			opens++
			return &strategy.Signal{Action: strategy.ActionBuy, Side: "buy", Symbol: "BTCUSD"}
		}
		return nil
	}

	engine := NewEngine(cfg, strat)
	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// Entering commits margin, which breaches the 5% drawdown limit on the
	// fill bar; the risk gate then halts the run, so the strategy is never
	// asked again and the equity curve stops before the last bar.
	if opens != 1 {
		t.Errorf("expected the halted run to stop consulting the strategy after the first open, got opens=%d", opens)
	}
	if len(result.EquityCurve) >= len(prices) {
		t.Errorf("expected the drawdown breach to halt the run before the last bar, got %d equity points for %d bars", len(result.EquityCurve), len(prices))
	}
}

func TestEngine_PositionLimitBlocksSecondConcurrentOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFunding = false
	cfg.SlippageModel = NewFixedSlippage(0)
	cfg.PositionLimit = 1

	prices := []float64{100, 101, 102, 103}
	candles := makeCandles(prices, time.Now().Truncate(time.Hour), 60)

	strat := func(c Candle, s State) *strategy.Signal {
		return &strategy.Signal{Action: strategy.ActionBuy, Side: "buy", Symbol: "BTCUSD"}
	}

	engine := NewEngine(cfg, strat)
	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// The limit keeps the first position as the only one; with no closing
	// signal it stays open until the end-of-data close records one trade.
	if result.Trades.Total != 1 {
		t.Fatalf("expected exactly one trade (the end-of-data close of the single position), got %d", result.Trades.Total)
	}
	if result.AllTrades[0].Reason != ReasonEndOfData {
		t.Errorf("expected end_of_data reason, got %s", result.AllTrades[0].Reason)
	}
}
