// Package backtest provides a realistic backtesting framework for trading strategies.
// It simulates order execution with fees, slippage, funding, liquidation, and
// stop-loss/take-profit/trailing-stop protections on a single symbol per Engine.
package backtest

import (
	"time"

	"github.com/tradecore/engine/pkg/delta"
)

// Candle is one OHLCV observation plus the optional metadata the engine needs
// (symbol/interval bookkeeping, funding overrides). Distinct from delta.Candle,
// which is the raw exchange wire shape DataLoader fetches.
type Candle struct {
	OpenTime        time.Time
	CloseTime       time.Time
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
	Symbol          string
	Index           int
	IntervalMinutes float64 // 0 means "resolve from timestamps"

	// Optional overrides, present only when the data source supplies them.
	HasFundingRate       bool
	FundingRate          float64
	HasMaintenanceMargin bool
	MaintenanceMargin    float64
}

// FromDeltaCandles converts raw exchange candles into engine bars for a symbol,
// inferring IntervalMinutes from consecutive OpenTimes.
func FromDeltaCandles(symbol string, candles []delta.Candle) []Candle {
	out := make([]Candle, len(candles))
	for i, c := range candles {
		out[i] = Candle{
			OpenTime: time.Unix(c.Time, 0).UTC(),
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
			Symbol:   symbol,
			Index:    i,
		}
		if i > 0 {
			out[i].IntervalMinutes = out[i].OpenTime.Sub(out[i-1].OpenTime).Minutes()
		}
	}
	return out
}

// OrderSide is buy or sell.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType enumerates the supported order kinds.
type OrderType string

const (
	OrderMarket     OrderType = "market"
	OrderLimit      OrderType = "limit"
	OrderStopMarket OrderType = "stop_market"
	OrderStopLimit  OrderType = "stop_limit"
	OrderTrailing   OrderType = "trailing_stop"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusOpen      OrderStatus = "open"
	StatusFilled    OrderStatus = "filled"
	StatusPartial   OrderStatus = "partial"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
	StatusExpired   OrderStatus = "expired"
)

// FillModel controls partial-fill behavior for pending orders.
type FillModel string

const (
	FillInstant     FillModel = "instant"
	FillRealistic   FillModel = "realistic"
	FillPessimistic FillModel = "pessimistic"
)

// TradeReason enumerates why a trade closed.
type TradeReason string

const (
	ReasonRegular      TradeReason = "regular"
	ReasonStopLoss     TradeReason = "stop_loss"
	ReasonTakeProfit   TradeReason = "take_profit"
	ReasonTrailingStop TradeReason = "trailing_stop"
	ReasonLiquidation  TradeReason = "liquidation"
	ReasonEndOfData    TradeReason = "end_of_data"
)

// RunStatus is the terminal state of a backtest Result.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusNoTrades  RunStatus = "no_trades"
	StatusError     RunStatus = "error"
)

// Order is a simulated order owned by the engine's pending-order queue. Once
// filled it becomes immutable history.
type Order struct {
	ID              string
	Symbol          string
	Side            OrderSide
	Type            OrderType
	Qty             float64
	Price           float64 // limit price, when applicable
	TriggerPrice    float64 // stop trigger, when applicable
	StopLoss        float64
	TakeProfit      float64
	TrailingStopPct float64
	ReduceOnly      bool

	Status       OrderStatus
	FilledQty    float64
	AvgFillPrice float64
	Commission   float64
	Slippage     float64

	SubmittedAt time.Time
	FilledAt    time.Time
	Reason      string
}

// Position is the sole open position for a symbol (one-way mode: at most one
// per symbol, long or short).
type Position struct {
	Symbol     string
	Side       OrderSide // buy (long) or sell (short)
	Quantity   float64
	EntryPrice float64
	EntryTime  time.Time

	UnrealizedPnL float64
	RealizedPnL   float64

	Leverage             int
	MarginUsed           float64
	EntryCommissionTotal float64
	FundingPaid          float64

	StopLossPrice   float64
	TakeProfitPrice float64
	TrailingStopPct float64
	TrailAnchor     float64
	PeakPrice       float64
	TroughPrice     float64

	FundingCandleCount int     // candle-interval scheduling counter
	FundingAccumMin    float64 // time-interval scheduling accumulator
}

// Trade is a closed lot.
type Trade struct {
	ID                    string
	Symbol                string
	Side                  OrderSide
	EntryPrice            float64
	ExitPrice             float64
	Quantity              float64
	EntryTime             time.Time
	ExitTime              time.Time
	DurationSeconds       float64
	PnL                   float64
	PnLPct                float64
	Commission            float64
	Slippage              float64
	FundingFees           float64
	LiquidationPenalty    float64
	Reason                TradeReason
	MaxFavorableExcursion float64 // percent, non-negative
	MaxAdverseExcursion   float64 // percent, non-negative
}

// EventEntry records a funding or liquidation event for the run's audit log.
type EventEntry struct {
	Timestamp time.Time
	Type      string // "funding", "liquidation"
	Symbol    string
	Detail    string
	Amount    float64
}

// EquityPoint tracks equity over time.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
	Drawdown  float64
}

// FundingRate represents a funding payment event fetched out-of-band by
// FundingFetcher and merged into candles before a run.
type FundingRate struct {
	Timestamp time.Time
	Symbol    string
	Rate      float64
}

// Config defines backtesting parameters. Field names mirror spec.md's
// BacktestConfig option table.
type Config struct {
	Symbol string

	InitialCapital  float64
	Leverage        int
	MaxPositionSize float64 // fraction of capital used as margin per open, 0<x<=1

	MakerFee float64 // fraction, e.g. 0.0002
	TakerFee float64

	SlippageModel SlippageModel

	ApplyFunding           bool
	FundingRate            float64
	FundingIntervalMinutes float64
	FundingIntervalCandles int
	FundingRateBySymbol    map[string]float64
	FundingRateField       string // name of candle field used as override; informational

	MaintenanceMargin         float64
	MaintenanceMarginBySymbol map[string]float64
	MaintenanceVolMultiplier  float64
	LiquidationPenaltyPct     float64

	FillModel    FillModel
	PartialFills bool

	MaxDrawdownLimit float64 // 0 disables
	DailyLossLimit   float64 // 0 disables
	PositionLimit    int     // 0 blocks all opens; 1 (the default) allows one at a time

	PeriodsPerYear float64 // raw bar count per year; sqrt'd once at each annualization site

	DataCacheDir string
}

// DefaultConfig returns sensible defaults calibrated to Delta Exchange India,
// matching a realistic perpetual-futures backtest on hourly bars.
func DefaultConfig() Config {
	return Config{
		Symbol:                    "BTCUSD",
		InitialCapital:            10000.0,
		Leverage:                  5,
		MaxPositionSize:           0.2,
		MakerFee:                  0.0002,
		TakerFee:                  0.0005,
		SlippageModel:             NewVolatilitySlippage(0.00015, 0.5, 0, 0.01),
		ApplyFunding:              true,
		FundingRate:               0.0001,
		FundingIntervalMinutes:    480, // 8h
		FundingIntervalCandles:    0,
		FundingRateBySymbol:       map[string]float64{},
		MaintenanceMargin:         0.005,
		MaintenanceMarginBySymbol: map[string]float64{},
		MaintenanceVolMultiplier:  0.1,
		LiquidationPenaltyPct:     0.01,
		FillModel:                 FillRealistic,
		PartialFills:              true,
		MaxDrawdownLimit:          0,
		DailyLossLimit:            0,
		PositionLimit:             1,
		PeriodsPerYear:            365 * 24,
		DataCacheDir:              ".backtest_cache",
	}
}

// Performance summarizes run-level metrics, per spec.md §4.2's Result object.
type Performance struct {
	FinalCapital    float64
	TotalReturnPct  float64
	NetProfit       float64
	GrossProfit     float64
	SharpeRatio     float64
	SortinoRatio    float64
	CalmarRatio     float64
	MaxDrawdownPct  float64
	MaxDrawdownBars int
	TimeInMarketPct float64
	ProfitFactor    float64
}

// Events summarizes non-trade occurrences during the run.
type Events struct {
	Liquidations  int
	FundingEvents int
	Log           []EventEntry
}

// TradeStats summarizes the closed-trade ledger.
type TradeStats struct {
	Total      int
	Winning    int
	Losing     int
	WinRatePct float64
	AvgTrade   float64
	AvgWin     float64
	AvgLoss    float64
	Expectancy float64
}

// Costs summarizes accumulated trading costs.
type Costs struct {
	TotalCommission float64
	TotalSlippage   float64
	TotalFunding    float64
	CostRatioPct    float64
}

// Result is the well-formed output of every Engine.Run call.
type Result struct {
	Config          Config
	Performance     Performance
	Events          Events
	Trades          TradeStats
	Costs           Costs
	EquityCurve     []EquityPoint
	DrawdownCurve   []float64
	AllTrades       []Trade
	DurationSeconds float64
	Status          RunStatus
}
