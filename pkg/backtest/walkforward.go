package backtest

import (
	"fmt"
	"time"
)

// WalkForwardConfig defines walk-forward analysis parameters
type WalkForwardConfig struct {
	TrainingPeriod time.Duration // e.g., 6 months
	TestingPeriod  time.Duration // e.g., 1 month
	Anchored       bool          // If true, training window expands from start
}

// DefaultWalkForwardConfig returns sensible defaults
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{
		TrainingPeriod: 180 * 24 * time.Hour, // 6 months
		TestingPeriod:  30 * 24 * time.Hour,  // 1 month
		Anchored:       false,                // Rolling window
	}
}

// WindowResult contains results for a single walk-forward window
type WindowResult struct {
	TrainStart  time.Time
	TrainEnd    time.Time
	TestStart   time.Time
	TestEnd     time.Time
	TestMetrics Metrics
}

// WalkForwardResult contains combined walk-forward analysis results
type WalkForwardResult struct {
	Windows   []WindowResult
	Combined  Metrics // Combined OOS metrics
	Stability float64 // Consistency score (0-1)
	Summary   string
}

// WalkForwardAnalyzer performs walk-forward optimization testing. It slices
// a pre-loaded candle series into train/test windows and runs a fresh Engine
// (from engineFactory) over each test window's candles.
type WalkForwardAnalyzer struct {
	baseConfig    Config
	wfConfig      WalkForwardConfig
	engineFactory func(Config) *Engine
}

// NewWalkForwardAnalyzer creates a walk-forward analyzer
func NewWalkForwardAnalyzer(baseConfig Config, wfConfig WalkForwardConfig, factory func(Config) *Engine) *WalkForwardAnalyzer {
	return &WalkForwardAnalyzer{
		baseConfig:    baseConfig,
		wfConfig:      wfConfig,
		engineFactory: factory,
	}
}

// Run performs walk-forward analysis over the given candle series.
func (wf *WalkForwardAnalyzer) Run(candles []Candle) (*WalkForwardResult, error) {
	fmt.Println("=== Walk-Forward Analysis ===")
	fmt.Printf("Training Period: %d days\n", int(wf.wfConfig.TrainingPeriod.Hours()/24))
	fmt.Printf("Testing Period: %d days\n", int(wf.wfConfig.TestingPeriod.Hours()/24))
	fmt.Printf("Mode: %s\n", wf.modeString())
	fmt.Println()

	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles supplied for walk-forward analysis")
	}

	windows := wf.generateWindows(candles[0].OpenTime, candles[len(candles)-1].OpenTime)
	if len(windows) == 0 {
		return nil, fmt.Errorf("insufficient data for walk-forward analysis")
	}

	fmt.Printf("Generated %d windows\n\n", len(windows))

	result := &WalkForwardResult{
		Windows: make([]WindowResult, 0, len(windows)),
	}

	var allTrades []Trade
	var allEquity []EquityPoint

	for i, win := range windows {
		fmt.Printf("Window %d/%d: Test %s to %s\n",
			i+1, len(windows),
			win.testStart.Format("2006-01-02"),
			win.testEnd.Format("2006-01-02"))

		testCandles := sliceCandlesByTime(candles, win.testStart, win.testEnd)
		if len(testCandles) == 0 {
			fmt.Println("  Skipped: no candles in window")
			continue
		}

		engine := wf.engineFactory(wf.baseConfig)
		res, err := engine.Run(testCandles)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}

		mc := NewMetricsCalculator(wf.baseConfig)
		testMetrics := mc.Calculate(res.AllTrades, res.EquityCurve)

		windowResult := WindowResult{
			TrainStart:  win.trainStart,
			TrainEnd:    win.trainEnd,
			TestStart:   win.testStart,
			TestEnd:     win.testEnd,
			TestMetrics: testMetrics,
		}
		result.Windows = append(result.Windows, windowResult)

		allTrades = append(allTrades, res.AllTrades...)
		allEquity = append(allEquity, res.EquityCurve...)

		fmt.Printf("  Return: %.2f%% | Sharpe: %.2f | MaxDD: %.2f%%\n",
			testMetrics.TotalReturn*100,
			testMetrics.SharpeRatio,
			testMetrics.MaxDrawdown*100)
	}

	mc := NewMetricsCalculator(wf.baseConfig)
	result.Combined = mc.Calculate(allTrades, allEquity)

	result.Stability = wf.calculateStability(result.Windows)
	result.Summary = wf.generateSummary(result)

	return result, nil
}

func sliceCandlesByTime(candles []Candle, start, end time.Time) []Candle {
	var out []Candle
	for _, c := range candles {
		if (c.OpenTime.Equal(start) || c.OpenTime.After(start)) && c.OpenTime.Before(end) {
			out = append(out, c)
		}
	}
	return out
}

type window struct {
	trainStart time.Time
	trainEnd   time.Time
	testStart  time.Time
	testEnd    time.Time
}

// generateWindows creates train/test windows spanning [start, end).
func (wf *WalkForwardAnalyzer) generateWindows(start, end time.Time) []window {
	var windows []window

	minDuration := wf.wfConfig.TrainingPeriod + wf.wfConfig.TestingPeriod
	if end.Sub(start) < minDuration {
		return nil
	}

	if wf.wfConfig.Anchored {
		trainStart := start
		testStart := start.Add(wf.wfConfig.TrainingPeriod)

		for testStart.Before(end) {
			testEnd := testStart.Add(wf.wfConfig.TestingPeriod)
			if testEnd.After(end) {
				testEnd = end
			}

			windows = append(windows, window{
				trainStart: trainStart,
				trainEnd:   testStart,
				testStart:  testStart,
				testEnd:    testEnd,
			})

			testStart = testEnd
		}
	} else {
		trainStart := start

		for {
			trainEnd := trainStart.Add(wf.wfConfig.TrainingPeriod)
			testStart := trainEnd
			testEnd := testStart.Add(wf.wfConfig.TestingPeriod)

			if testEnd.After(end) {
				break
			}

			windows = append(windows, window{
				trainStart: trainStart,
				trainEnd:   trainEnd,
				testStart:  testStart,
				testEnd:    testEnd,
			})

			trainStart = trainStart.Add(wf.wfConfig.TestingPeriod)
		}
	}

	return windows
}

// calculateStability computes consistency across windows
func (wf *WalkForwardAnalyzer) calculateStability(windows []WindowResult) float64 {
	if len(windows) < 2 {
		return 0
	}

	profitableCount := 0
	var sharpes []float64

	for _, w := range windows {
		if w.TestMetrics.TotalReturn > 0 {
			profitableCount++
		}
		sharpes = append(sharpes, w.TestMetrics.SharpeRatio)
	}

	profitability := float64(profitableCount) / float64(len(windows))

	if len(sharpes) > 1 {
		mean := 0.0
		for _, s := range sharpes {
			mean += s
		}
		mean /= float64(len(sharpes))

		variance := 0.0
		for _, s := range sharpes {
			variance += (s - mean) * (s - mean)
		}
		variance /= float64(len(sharpes))

		stdDev := 0.0
		if variance > 0 {
			stdDev = sqrt(variance)
		}

		cv := 0.0
		if mean != 0 {
			cv = stdDev / absFloat(mean)
		}
		consistency := 1.0 / (1.0 + cv)

		return (profitability + consistency) / 2.0
	}

	return profitability
}

func (wf *WalkForwardAnalyzer) modeString() string {
	if wf.wfConfig.Anchored {
		return "Anchored (expanding window)"
	}
	return "Rolling (sliding window)"
}

func (wf *WalkForwardAnalyzer) generateSummary(result *WalkForwardResult) string {
	profitableWindows := 0
	for _, w := range result.Windows {
		if w.TestMetrics.TotalReturn > 0 {
			profitableWindows++
		}
	}

	summary := fmt.Sprintf(`
=== Walk-Forward Summary ===
Windows: %d total, %d profitable (%.0f%%)
Combined OOS Return: %.2f%%
Combined Sharpe: %.2f
Max Drawdown: %.2f%%
Stability Score: %.2f

Interpretation:
- Stability > 0.7: Strong evidence of robust strategy
- Stability 0.5-0.7: Moderate robustness, use caution
- Stability < 0.5: Strategy may be overfit
`,
		len(result.Windows),
		profitableWindows,
		float64(profitableWindows)/float64(len(result.Windows))*100,
		result.Combined.TotalReturn*100,
		result.Combined.SharpeRatio,
		result.Combined.MaxDrawdown*100,
		result.Stability,
	)

	return summary
}

// sqrt implementation without math import
func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 100; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
