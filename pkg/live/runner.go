package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradecore/engine/pkg/delta"
	"github.com/tradecore/engine/pkg/features"
	"github.com/tradecore/engine/pkg/metrics"
	"github.com/tradecore/engine/pkg/strategy"
)

const (
	maxHistoryBars   = 500
	candleBufferSize = 256
)

// namedCandle tags an incoming candle with the symbol it belongs to, since
// the websocket client's callback carries them separately.
type namedCandle struct {
	symbol string
	candle delta.Candle
}

// Mode selects whether signals are paper-simulated or sent to the exchange.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// RunnerConfig controls cooldown and daily-loss gating shared across symbols.
type RunnerConfig struct {
	Mode           Mode
	Cooldown       time.Duration // minimum gap between trades on the same symbol
	DailyLossLimit float64       // fraction of starting equity; 0 disables the gate
	StartingEquity float64
	FeaturesEngine *features.Engine
}

// DefaultRunnerConfig mirrors the structural bot's defaults: a short
// per-symbol cooldown and a conservative daily loss circuit breaker.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Mode:           ModePaper,
		Cooldown:       2 * time.Minute,
		DailyLossLimit: 0.05,
		StartingEquity: 10000,
		FeaturesEngine: features.NewEngine(),
	}
}

// Runner dispatches live candles to a registered strategy manager, keeping
// a rolling per-symbol candle buffer and gating trades on cooldown and
// daily-loss-limit breaches, then routes the resulting signal to either a
// PaperBook or a real OrderExecutor/PositionManager depending on Mode.
type Runner struct {
	cfg         RunnerConfig
	ws          *delta.WebSocketClient
	strategyMgr *strategy.Manager
	executor    *OrderExecutor
	positions   *PositionManager
	paper       *PaperBook

	mu          sync.Mutex
	history     map[string][]delta.Candle
	lastTradeAt map[string]time.Time
	dailyPnL    float64
	dayStart    time.Time
	haltedToday bool

	candles chan namedCandle
}

// NewRunner wires a runner onto an existing websocket client and strategy
// manager. executor/positions may be nil in paper mode.
func NewRunner(cfg RunnerConfig, ws *delta.WebSocketClient, mgr *strategy.Manager, executor *OrderExecutor, positions *PositionManager) *Runner {
	r := &Runner{
		cfg:         cfg,
		ws:          ws,
		strategyMgr: mgr,
		executor:    executor,
		positions:   positions,
		paper:       NewPaperBook(cfg.StartingEquity),
		history:     make(map[string][]delta.Candle),
		lastTradeAt: make(map[string]time.Time),
		dayStart:    time.Now().UTC(),
		candles:     make(chan namedCandle, candleBufferSize),
	}

	ws.OnCandleWithSymbol(func(symbol string, c delta.Candle) {
		select {
		case r.candles <- namedCandle{symbol: symbol, candle: c}:
		default:
			slog.Warn("candle buffer full, dropping update", "symbol", symbol)
		}
	})

	return r
}

// Subscribe opens candle subscriptions for every symbol at the given
// resolution. Call before Run.
func (r *Runner) Subscribe(symbols []string, resolution string) error {
	for _, s := range symbols {
		if err := r.ws.SubscribeCandles(s, resolution); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	return nil
}

// Run starts the dispatcher and a connection watchdog under an errgroup, and
// blocks until ctx is cancelled or a supervised goroutine returns an error.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.dispatchLoop(ctx)
	})

	g.Go(func() error {
		return r.watchConnection(ctx)
	})

	return g.Wait()
}

func (r *Runner) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case nc := <-r.candles:
			r.handleCandle(nc.symbol, nc.candle)
		}
	}
}

func (r *Runner) watchConnection(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.ws.IsConnected() {
				slog.Warn("websocket disconnected, runner waiting for reconnect")
			}
		}
	}
}

func (r *Runner) handleCandle(symbol string, c delta.Candle) {
	r.mu.Lock()
	r.rollDailyWindowLocked()
	if r.haltedToday {
		r.mu.Unlock()
		return
	}

	history := append(r.history[symbol], c)
	if len(history) > maxHistoryBars {
		history = history[len(history)-maxHistoryBars:]
	}
	r.history[symbol] = history

	if last, ok := r.lastTradeAt[symbol]; ok && time.Since(last) < r.cfg.Cooldown {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	ticker := &delta.Ticker{
		Symbol: symbol, Close: c.Close, High: c.High, Low: c.Low, Open: c.Open,
		Timestamp: c.Time, Volume: c.Volume,
	}
	f := r.cfg.FeaturesEngine.ComputeFeaturesWithFunding(nil, ticker, history)

	signal := r.strategyMgr.GetSignal(f, history)
	if signal.Action == strategy.ActionNone || signal.Action == strategy.ActionHold {
		return
	}

	metrics.SignalGenerated(symbol, string(signal.Action))
	r.dispatchSignal(symbol, signal, c.Close)
}

func (r *Runner) dispatchSignal(symbol string, s strategy.Signal, price float64) {
	r.mu.Lock()
	r.lastTradeAt[symbol] = time.Now()
	r.mu.Unlock()

	side := s.Side
	if side == "" {
		side = sideFromAction(s.Action)
	}
	size := s.Quantity
	if size <= 0 {
		size = 1
	}

	switch r.cfg.Mode {
	case ModeLive:
		r.placeLiveOrder(symbol, side, size, s)
	default:
		r.paper.Fill(symbol, side, size, price)
		metrics.OrderPlaced(symbol, side, string(ModePaper))
		r.recordPnL(symbol)
	}
}

func (r *Runner) placeLiveOrder(symbol, side string, size float64, s strategy.Signal) {
	if r.executor == nil {
		slog.Error("live mode requires an order executor", "symbol", symbol)
		return
	}
	req := &delta.OrderRequest{
		Side:      side,
		Size:      int(size),
		OrderType: "market_order",
	}
	if s.StopLoss > 0 {
		req.BracketStopLossPrice = fmt.Sprintf("%.2f", s.StopLoss)
	}
	if s.TakeProfit > 0 {
		req.BracketTakeProfitPrice = fmt.Sprintf("%.2f", s.TakeProfit)
	}

	if _, err := r.executor.PlaceOrder(req); err != nil {
		slog.Error("order placement failed", "symbol", symbol, "error", err)
		metrics.OrderError(symbol)
		return
	}
	metrics.OrderPlaced(symbol, side, string(ModeLive))
	r.recordPnL(symbol)
}

func (r *Runner) recordPnL(symbol string) {
	if r.cfg.DailyLossLimit <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	realized := r.paper.RealizedPnL()
	if r.positions != nil {
		// Live-mode PnL is tracked exchange-side; the paper book's zero
		// realized total simply means this gate only bites in paper mode
		// unless a caller wires in exchange PnL via SetDailyPnL.
		realized += r.dailyPnL
	}

	if r.cfg.StartingEquity > 0 && realized < 0 && -realized/r.cfg.StartingEquity >= r.cfg.DailyLossLimit {
		r.haltedToday = true
		slog.Warn("daily loss limit breached, halting new entries", "symbol", symbol, "realized_pnl", realized)
		if r.positions != nil {
			go r.positions.CloseAll()
		}
	}
}

// SetDailyPnL lets a caller report exchange-side realized P&L for the
// current day (live mode has no local ledger to derive it from).
func (r *Runner) SetDailyPnL(pnl float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dailyPnL = pnl
}

func (r *Runner) rollDailyWindowLocked() {
	now := time.Now().UTC()
	if now.Sub(r.dayStart) >= 24*time.Hour {
		r.dayStart = now
		r.dailyPnL = 0
		r.haltedToday = false
	}
}

// Paper exposes the runner's simulated book, for status reporting.
func (r *Runner) Paper() *PaperBook {
	return r.paper
}

func sideFromAction(action strategy.SignalAction) string {
	switch action {
	case strategy.ActionBuy, strategy.ActionLong:
		return "buy"
	case strategy.ActionSell, strategy.ActionShort:
		return "sell"
	default:
		return "buy"
	}
}
