// Backtest CLI - Run backtests on historical data
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	botconfig "github.com/tradecore/engine/config"
	"github.com/tradecore/engine/pkg/backtest"
	"github.com/tradecore/engine/pkg/delta"
	"github.com/tradecore/engine/pkg/features"
	"github.com/tradecore/engine/pkg/strategy"
)

const (
	minHistoryBars = 50
	maxHistoryBars = 500
)

func main() {
	symbolFlag := flag.String("symbol", "BTCUSD", "Symbol to backtest")
	startFlag := flag.String("start", "2024-01-01", "Start date (YYYY-MM-DD)")
	endFlag := flag.String("end", "2025-01-01", "End date (YYYY-MM-DD)")
	capitalFlag := flag.Float64("capital", 10000, "Initial capital in USD")
	leverageFlag := flag.Int("leverage", 5, "Leverage to use")
	resolutionFlag := flag.String("resolution", "1h", "Candle resolution (1m, 5m, 15m, 1h, 4h, 1d)")
	strategyFlag := flag.String("strategy", "scalper", "Strategy: scalper, funding, grid, all")
	walkforwardFlag := flag.Bool("walkforward", false, "Enable walk-forward analysis")
	jsonOutputFlag := flag.Bool("json", false, "Output results as JSON")
	cacheDirFlag := flag.String("cache", ".backtest_cache", "Directory for cached data")
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		fmt.Printf("Error parsing start date: %v\n", err)
		os.Exit(1)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		fmt.Printf("Error parsing end date: %v\n", err)
		os.Exit(1)
	}

	btConfig := backtest.DefaultConfig()
	btConfig.Symbol = *symbolFlag
	btConfig.InitialCapital = *capitalFlag
	btConfig.Leverage = *leverageFlag
	btConfig.DataCacheDir = *cacheDirFlag

	deltaCfg := botconfig.LoadConfig()
	client := delta.NewClient(deltaCfg)
	loader := backtest.NewDataLoader(client, *cacheDirFlag)

	rawCandles, err := loader.LoadCandles(*symbolFlag, *resolutionFlag, start, end)
	if err != nil {
		fmt.Printf("Failed to load candles: %v\n", err)
		os.Exit(1)
	}
	candles := backtest.FromDeltaCandles(*symbolFlag, rawCandles)
	if len(candles) == 0 {
		fmt.Println("No candles loaded for the requested range")
		os.Exit(1)
	}

	engineFactory := func(cfg backtest.Config) *backtest.Engine {
		return backtest.NewEngine(cfg, newStrategyFunc(*strategyFlag, *symbolFlag, cfg.FundingRate))
	}

	if *walkforwardFlag {
		wfConfig := backtest.DefaultWalkForwardConfig()
		analyzer := backtest.NewWalkForwardAnalyzer(btConfig, wfConfig, engineFactory)

		result, err := analyzer.Run(candles)
		if err != nil {
			fmt.Printf("Walk-forward analysis failed: %v\n", err)
			os.Exit(1)
		}

		if *jsonOutputFlag {
			outputJSON(result)
		} else {
			fmt.Println(result.Summary)
		}
		return
	}

	engine := engineFactory(btConfig)
	result, err := engine.Run(candles)
	if err != nil {
		fmt.Printf("Backtest failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutputFlag {
		outputJSON(result)
		return
	}

	metrics := backtest.NewMetricsCalculator(btConfig).Calculate(result.AllTrades, result.EquityCurve)
	fmt.Println(metrics.FormatReport())
}

// newStrategyFunc bridges the candle-by-candle backtest.StrategyFunc contract
// to the existing feature engine and strategy manager: it keeps a rolling
// candle history, derives market features per bar, and dispatches to
// whichever strategy the manager picks for the active regime.
func newStrategyFunc(strategyType, symbol string, fundingRate float64) backtest.StrategyFunc {
	featuresEngine := features.NewEngine()
	manager := strategy.NewManager()

	switch strategyType {
	case "scalper":
		manager.RegisterStrategy(strategy.NewFeeAwareScalper(strategy.DefaultScalperConfig(), featuresEngine))
	case "funding":
		manager.RegisterStrategy(strategy.NewFundingArbitrageStrategy(strategy.DefaultFundingArbitrageConfig()))
	case "grid":
		manager.RegisterStrategy(strategy.NewGridTradingStrategy(strategy.DefaultGridConfig(), symbol))
	case "all":
		manager.RegisterStrategy(strategy.NewFeeAwareScalper(strategy.DefaultScalperConfig(), featuresEngine))
		manager.RegisterStrategy(strategy.NewFundingArbitrageStrategy(strategy.DefaultFundingArbitrageConfig()))
		manager.RegisterStrategy(strategy.NewGridTradingStrategy(strategy.DefaultGridConfig(), symbol))
	default:
		fmt.Printf("Unknown strategy: %s\n", strategyType)
		os.Exit(1)
	}

	var history []delta.Candle

	return func(c backtest.Candle, state backtest.State) *strategy.Signal {
		history = append(history, delta.Candle{
			Time:   c.OpenTime.Unix(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
		if len(history) > maxHistoryBars {
			history = history[len(history)-maxHistoryBars:]
		}
		if len(history) < minHistoryBars {
			return nil
		}

		rate := fundingRate
		if c.HasFundingRate {
			rate = c.FundingRate
		}
		ticker := &delta.Ticker{
			Symbol:      symbol,
			Close:       c.Close,
			High:        c.High,
			Low:         c.Low,
			Open:        c.Open,
			Timestamp:   c.OpenTime.Unix(),
			Volume:      c.Volume,
			FundingRate: rate,
		}

		f := featuresEngine.ComputeFeaturesWithFundingRate(nil, ticker, history, rate)
		sig := manager.GetSignal(f, history)
		if sig.Action == strategy.ActionNone || sig.Action == strategy.ActionHold {
			return nil
		}
		return &sig
	}
}

func outputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
