package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tradecore/engine/pkg/strategy"
)

// State is the read-only view a strategy function receives alongside each
// candle: current position (nil if flat), capital, equity, drawdown, and
// any caller-supplied strategy parameters.
type State struct {
	Position *Position
	Capital  float64
	Equity   float64
	Drawdown float64
	Params   map[string]interface{}
}

// StrategyFunc is the strategy contract: given a candle and the current
// engine state, optionally return a signal. Returning nil (or a signal whose
// Action is none/hold) means no action this bar.
type StrategyFunc func(candle Candle, state State) *strategy.Signal

// Engine runs a single-symbol, bar-driven backtest.
type Engine struct {
	config     Config
	strategyFn StrategyFunc
	params     map[string]interface{}

	capital    float64
	peakEquity float64
	position   *Position
	openOrders []*Order

	trades      []Trade
	equityCurve []EquityPoint
	eventsLog   []EventEntry

	barsInMarket    int
	barsSincePeak   int
	maxDrawdownBars int
	liquidations    int
	fundingEvents   int
	totalCommission float64
	totalSlippage   float64
	totalFunding    float64

	currentDay     string
	dayStartEquity float64
	riskStopped    bool
}

// NewEngine creates a backtest engine bound to a config and strategy
// function. Call Run for each execution; Run always resets state first.
func NewEngine(config Config, fn StrategyFunc) *Engine {
	return &Engine{config: config, strategyFn: fn, params: map[string]interface{}{}}
}

// WithParams attaches strategy parameters exposed via State.Params.
func (e *Engine) WithParams(params map[string]interface{}) *Engine {
	e.params = params
	return e
}

func (e *Engine) reset() {
	e.capital = e.config.InitialCapital
	e.peakEquity = e.config.InitialCapital
	e.position = nil
	e.openOrders = nil
	e.trades = nil
	e.equityCurve = nil
	e.eventsLog = nil
	e.barsInMarket = 0
	e.barsSincePeak = 0
	e.maxDrawdownBars = 0
	e.liquidations = 0
	e.fundingEvents = 0
	e.totalCommission = 0
	e.totalSlippage = 0
	e.totalFunding = 0
	e.currentDay = ""
	e.dayStartEquity = e.config.InitialCapital
	e.riskStopped = false
}

// Run executes the backtest over candles and returns a well-formed Result.
func (e *Engine) Run(candles []Candle) (*Result, error) {
	e.reset()

	if len(candles) == 0 {
		return e.noTradesResult(), nil
	}

	var prevTime time.Time
	for i := range candles {
		c := candles[i]
		e.resolveInterval(&c, prevTime)
		prevTime = c.OpenTime

		e.markToMarket(c)
		e.applyProtections(c)
		e.applyFunding(c)
		e.checkLiquidation(c)
		e.processPendingOrders(c)

		blockOpens := e.riskGate(c)
		if e.riskStopped {
			e.bookkeeping(c)
			break
		}

		if e.strategyFn != nil {
			sig := e.strategyFn(c, e.stateView())
			e.handleSignal(c, sig, blockOpens)
		}

		e.bookkeeping(c)
	}

	if e.position != nil {
		e.closeAllAtPrice(candles[len(candles)-1], ReasonEndOfData)
		// Restate the final bar's equity point after the close instead of
		// appending a second point for the same bar.
		if n := len(e.equityCurve); n > 0 {
			eq := e.equity()
			if eq > e.peakEquity {
				e.peakEquity = eq
			}
			e.equityCurve[n-1].Equity = eq
			e.equityCurve[n-1].Drawdown = e.currentDrawdown()
		}
	}

	return e.buildResult(len(candles)), nil
}

func (e *Engine) resolveInterval(c *Candle, prevTime time.Time) {
	if c.IntervalMinutes > 0 {
		return
	}
	if !c.CloseTime.IsZero() && !c.OpenTime.IsZero() {
		c.IntervalMinutes = c.CloseTime.Sub(c.OpenTime).Minutes()
		return
	}
	if !prevTime.IsZero() && !c.OpenTime.IsZero() {
		c.IntervalMinutes = c.OpenTime.Sub(prevTime).Minutes()
	}
}

func (e *Engine) stateView() State {
	return State{
		Position: e.position,
		Capital:  e.capital,
		Equity:   e.equity(),
		Drawdown: e.currentDrawdown(),
		Params:   e.params,
	}
}

func (e *Engine) equity() float64 {
	eq := e.capital
	if e.position != nil {
		eq += e.position.UnrealizedPnL
	}
	return eq
}

func (e *Engine) currentDrawdown() float64 {
	eq := e.equity()
	if e.peakEquity <= 0 {
		return 0
	}
	dd := (e.peakEquity - eq) / e.peakEquity
	return clamp(dd, 0, 1)
}

// ---------------------- step 2: mark to market ----------------------

func (e *Engine) markToMarket(c Candle) {
	p := e.position
	if p == nil {
		return
	}
	dir := 1.0
	if p.Side == SideSell {
		dir = -1.0
	}
	p.UnrealizedPnL = (c.Close - p.EntryPrice) * p.Quantity * dir

	if p.PeakPrice == 0 && p.TroughPrice == 0 {
		p.PeakPrice = c.High
		p.TroughPrice = c.Low
	} else {
		p.PeakPrice = math.Max(p.PeakPrice, c.High)
		p.TroughPrice = math.Min(p.TroughPrice, c.Low)
	}
}

// ---------------------- step 3: protections ----------------------

func (e *Engine) applyProtections(c Candle) {
	p := e.position
	if p == nil {
		return
	}

	// Trailing anchor updates before evaluation.
	if p.TrailingStopPct > 0 {
		if p.TrailAnchor == 0 {
			if p.Side == SideBuy {
				p.TrailAnchor = c.High
			} else {
				p.TrailAnchor = c.Low
			}
		} else if p.Side == SideBuy {
			p.TrailAnchor = math.Max(p.TrailAnchor, c.High)
		} else {
			p.TrailAnchor = math.Min(p.TrailAnchor, c.Low)
		}
	}

	// Stop-loss has priority over take-profit; trailing stop last.
	if p.StopLossPrice > 0 && e.priceInRange(c, p.StopLossPrice, p.Side, true) {
		e.closeAllAtPrice(withClose(c, p.StopLossPrice), ReasonStopLoss)
		return
	}
	if p.TakeProfitPrice > 0 && e.priceInRange(c, p.TakeProfitPrice, p.Side, false) {
		e.closeAllAtPrice(withClose(c, p.TakeProfitPrice), ReasonTakeProfit)
		return
	}
	if p.TrailingStopPct > 0 {
		trigger := p.TrailAnchor * (1 - p.TrailingStopPct)
		if p.Side == SideSell {
			trigger = p.TrailAnchor * (1 + p.TrailingStopPct)
		}
		if e.priceInRange(c, trigger, p.Side, true) {
			e.closeAllAtPrice(withClose(c, trigger), ReasonTrailingStop)
		}
	}
}

// priceInRange reports whether the bar's [low, high] range reaches a trigger
// price for the given protection direction (adverse=true means stop-loss /
// trailing-stop semantics, adverse=false means take-profit).
func (e *Engine) priceInRange(c Candle, trigger float64, side OrderSide, adverse bool) bool {
	long := side == SideBuy
	if adverse {
		if long {
			return c.Low <= trigger
		}
		return c.High >= trigger
	}
	if long {
		return c.High >= trigger
	}
	return c.Low <= trigger
}

func withClose(c Candle, price float64) Candle {
	c.Close = price
	return c
}

// closeAllAtPrice synthesizes a reduce-only market fill for the whole
// position at the given price, tagging the resulting trade with reason.
func (e *Engine) closeAllAtPrice(c Candle, reason TradeReason) {
	p := e.position
	if p == nil {
		return
	}
	result := e.config.SlippageModel.Calculate(c.Close, p.Quantity, oppositeSide(p.Side), e.ctxFor(c, OrderMarket))
	e.fillExit(c, p.Quantity, result.ExecutionPrice, result, reason)
}

func oppositeSide(side OrderSide) OrderSide {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ---------------------- step 4: funding ----------------------

func (e *Engine) applyFunding(c Candle) {
	if !e.config.ApplyFunding || e.position == nil {
		return
	}
	p := e.position

	var periods float64
	switch {
	case e.config.FundingIntervalCandles > 0:
		p.FundingCandleCount++
		if p.FundingCandleCount < e.config.FundingIntervalCandles {
			return
		}
		periods = 1
		p.FundingCandleCount = 0
	case e.config.FundingIntervalMinutes > 0:
		p.FundingAccumMin += c.IntervalMinutes
		if p.FundingAccumMin < e.config.FundingIntervalMinutes {
			return
		}
		periods = p.FundingAccumMin / e.config.FundingIntervalMinutes
		p.FundingAccumMin = 0
	default:
		return
	}

	rate := e.resolveFundingRate(c)
	notional := p.Quantity * c.Close
	fee := notional * rate * periods

	dir := 1.0
	if p.Side == SideSell {
		dir = -1.0
	}
	cost := fee * dir // longs pay (capital decreases) when rate positive
	e.capital -= cost
	p.FundingPaid += cost
	e.totalFunding += cost

	e.fundingEvents++
	e.eventsLog = append(e.eventsLog, EventEntry{
		Timestamp: c.OpenTime,
		Type:      "funding",
		Symbol:    c.Symbol,
		Detail:    fmt.Sprintf("rate=%g periods=%g", rate, periods),
		Amount:    cost,
	})
}

func (e *Engine) resolveFundingRate(c Candle) float64 {
	if c.HasFundingRate {
		return c.FundingRate
	}
	if r, ok := e.config.FundingRateBySymbol[c.Symbol]; ok {
		return r
	}
	return e.config.FundingRate
}

// ---------------------- step 5: liquidation ----------------------

func (e *Engine) checkLiquidation(c Candle) {
	if e.position == nil {
		return
	}
	p := e.position

	baseRate := e.config.MaintenanceMargin
	if r, ok := e.config.MaintenanceMarginBySymbol[c.Symbol]; ok {
		baseRate = r
	}
	volatility := 0.0
	if c.Open > 0 {
		volatility = (c.High - c.Low) / c.Open
	}
	rate := baseRate + e.config.MaintenanceVolMultiplier*volatility

	maintenanceReq := c.Close * p.Quantity * rate

	if e.capital+p.UnrealizedPnL > maintenanceReq {
		return
	}

	penalty := c.Close * p.Quantity * e.config.LiquidationPenaltyPct
	result := SlippageResult{ExecutionPrice: c.Close}
	trade := e.buildExitTrade(c, p.Quantity, c.Close, result, ReasonLiquidation)
	trade.LiquidationPenalty = penalty
	trade.PnL -= penalty
	e.capital -= penalty
	e.recordTrade(trade)

	if e.capital < 0 {
		e.capital = 0
	}

	e.liquidations++
	e.eventsLog = append(e.eventsLog, EventEntry{
		Timestamp: c.OpenTime,
		Type:      "liquidation",
		Symbol:    c.Symbol,
		Detail:    "maintenance margin breached",
		Amount:    penalty,
	})
}

// ---------------------- step 6: pending orders ----------------------

func (e *Engine) processPendingOrders(c Candle) {
	if len(e.openOrders) == 0 {
		return
	}
	remaining := e.openOrders[:0]
	for _, o := range e.openOrders {
		filled := e.tryFill(c, o)
		if !filled {
			remaining = append(remaining, o)
		}
	}
	e.openOrders = remaining
}

func (e *Engine) tryFill(c Candle, o *Order) bool {
	switch o.Type {
	case OrderMarket:
		result := e.config.SlippageModel.Calculate(c.Close, o.Qty, o.Side, e.ctxFor(c, o.Type))
		qty := o.Qty
		if e.config.FillModel == FillRealistic && e.config.PartialFills {
			barNotional := c.Volume * c.Close
			orderNotional := o.Qty * c.Close
			if barNotional > 0 && orderNotional > 0.1*barNotional {
				ratio := math.Min(1, 0.1*c.Volume/o.Qty)
				qty = o.Qty * ratio
			}
		}
		e.executeFill(c, o, qty, result.ExecutionPrice, result)
		return qty >= o.Qty-1e-9

	case OrderLimit:
		if c.Low <= o.Price && c.High >= o.Price {
			e.executeFill(c, o, o.Qty, o.Price, SlippageResult{ExecutionPrice: o.Price})
			return true
		}
		return false

	case OrderStopMarket:
		if e.stopTriggered(c, o) {
			result := e.config.SlippageModel.Calculate(o.TriggerPrice, o.Qty, o.Side, e.ctxFor(c, o.Type))
			fillPrice := o.TriggerPrice + result.SlippageAmount
			e.executeFill(c, o, o.Qty, fillPrice, result)
			return true
		}
		return false

	case OrderStopLimit:
		if e.stopTriggered(c, o) {
			e.executeFill(c, o, o.Qty, o.Price, SlippageResult{ExecutionPrice: o.Price})
			return true
		}
		return false
	}
	return false
}

func (e *Engine) stopTriggered(c Candle, o *Order) bool {
	if o.Side == SideBuy {
		return c.High >= o.TriggerPrice
	}
	return c.Low <= o.TriggerPrice
}

func (e *Engine) ctxFor(c Candle, orderType OrderType) SlippageContext {
	vol := 0.0
	if c.Open > 0 {
		vol = (c.High - c.Low) / c.Open
	}
	return SlippageContext{
		Volatility: vol,
		BookDepth:  c.Volume * c.Close,
		OrderType:  orderType,
		Timestamp:  c.OpenTime,
	}
}

func (e *Engine) executeFill(c Candle, o *Order, qty, price float64, slip SlippageResult) {
	o.FilledQty += qty
	o.AvgFillPrice = price
	if qty >= o.Qty-1e-9 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartial
	}
	o.FilledAt = c.OpenTime

	if e.position != nil && e.position.Side != o.Side {
		e.reducePosition(c, qty, price, slip, ReasonRegular)
	} else {
		e.openOrIncreasePosition(c, o, qty, price, slip)
	}
}

// ---------------------- order -> fill -> position transitions ----------------------

func (e *Engine) openOrIncreasePosition(c Candle, o *Order, qty, price float64, slip SlippageResult) {
	feeRate := e.config.TakerFee
	notional := qty * price
	commission := CalculateFee(notional, feeRate)
	margin := notional / float64(maxInt(e.config.Leverage, 1))

	e.capital -= margin + commission
	e.totalCommission += commission
	e.totalSlippage += math.Abs(slip.SlippageAmount) * qty

	if e.position == nil {
		e.position = &Position{
			Symbol:               c.Symbol,
			Side:                 o.Side,
			Quantity:             qty,
			EntryPrice:           price,
			EntryTime:            c.OpenTime,
			Leverage:             e.config.Leverage,
			MarginUsed:           margin,
			EntryCommissionTotal: commission,
			StopLossPrice:        o.StopLoss,
			TakeProfitPrice:      o.TakeProfit,
			TrailingStopPct:      o.TrailingStopPct,
		}
		return
	}

	p := e.position
	p.EntryPrice = (p.EntryPrice*p.Quantity + price*qty) / (p.Quantity + qty)
	p.Quantity += qty
	p.MarginUsed += margin
	p.EntryCommissionTotal += commission
}

func (e *Engine) reducePosition(c Candle, qty, price float64, slip SlippageResult, reason TradeReason) {
	p := e.position
	closeQty := math.Min(qty, p.Quantity)
	e.fillExit(c, closeQty, price, slip, reason)
}

func (e *Engine) fillExit(c Candle, qty, price float64, slip SlippageResult, reason TradeReason) {
	trade := e.buildExitTrade(c, qty, price, slip, reason)
	e.recordTrade(trade)
}

func (e *Engine) buildExitTrade(c Candle, qty, price float64, slip SlippageResult, reason TradeReason) Trade {
	p := e.position
	dir := 1.0
	if p.Side == SideSell {
		dir = -1.0
	}
	grossPnL := (price - p.EntryPrice) * qty * dir

	feeRate := e.config.TakerFee
	exitCommission := CalculateFee(qty*price, feeRate)
	exitSlip := math.Abs(slip.SlippageAmount) * qty

	ratio := 0.0
	if p.Quantity > 0 {
		ratio = qty / p.Quantity
	}
	releasedMargin := p.MarginUsed * ratio
	releasedEntryCommission := p.EntryCommissionTotal * ratio
	releasedFunding := p.FundingPaid * ratio

	netPnL := grossPnL - exitCommission - releasedEntryCommission - releasedFunding - exitSlip

	e.capital += releasedMargin + netPnL
	e.totalCommission += exitCommission
	e.totalSlippage += exitSlip

	p.RealizedPnL += netPnL
	p.Quantity -= qty
	p.MarginUsed -= releasedMargin
	p.EntryCommissionTotal -= releasedEntryCommission
	p.FundingPaid -= releasedFunding

	mfe, mae := excursion(p, price)

	trade := Trade{
		ID:                    uuid.New().String(),
		Symbol:                c.Symbol,
		Side:                  p.Side,
		EntryPrice:            p.EntryPrice,
		ExitPrice:             price,
		Quantity:              qty,
		EntryTime:             p.EntryTime,
		ExitTime:              c.OpenTime,
		DurationSeconds:       c.OpenTime.Sub(p.EntryTime).Seconds(),
		PnL:                   netPnL,
		PnLPct:                pnlPct(grossPnL, p.EntryPrice, qty),
		Commission:            exitCommission + releasedEntryCommission,
		Slippage:              exitSlip,
		FundingFees:           releasedFunding,
		Reason:                reason,
		MaxFavorableExcursion: mfe,
		MaxAdverseExcursion:   mae,
	}

	if p.Quantity <= 1e-9 {
		e.position = nil
	}

	return trade
}

func excursion(p *Position, exitPrice float64) (mfe, mae float64) {
	if p.EntryPrice == 0 {
		return 0, 0
	}
	if p.Side == SideBuy {
		mfe = math.Max(0, (p.PeakPrice-p.EntryPrice)/p.EntryPrice) * 100
		mae = math.Max(0, (p.EntryPrice-p.TroughPrice)/p.EntryPrice) * 100
	} else {
		mfe = math.Max(0, (p.EntryPrice-p.TroughPrice)/p.EntryPrice) * 100
		mae = math.Max(0, (p.PeakPrice-p.EntryPrice)/p.EntryPrice) * 100
	}
	return
}

func pnlPct(grossPnL, entryPrice, qty float64) float64 {
	notional := entryPrice * qty
	if notional == 0 {
		return 0
	}
	return grossPnL / notional
}

func (e *Engine) recordTrade(t Trade) {
	e.trades = append(e.trades, t)
}

// ---------------------- step 7: risk gate ----------------------

// riskGate evaluates drawdown/loss/position limits. It returns true when new
// opens should be blocked (closes still proceed); it also sets e.riskStopped
// when max_drawdown_limit is breached, which halts the whole run.
func (e *Engine) riskGate(c Candle) bool {
	day := c.OpenTime.UTC().Format("2006-01-02")
	if day != e.currentDay {
		e.currentDay = day
		e.dayStartEquity = e.equity()
	}

	if e.config.MaxDrawdownLimit > 0 && e.currentDrawdown() >= e.config.MaxDrawdownLimit {
		e.riskStopped = true
		return true
	}

	blockOpens := false
	if e.config.DailyLossLimit > 0 {
		dayLoss := e.dayStartEquity - e.equity()
		if dayLoss >= e.config.DailyLossLimit {
			blockOpens = true
		}
	}
	if e.config.PositionLimit == 0 {
		blockOpens = true
	} else if e.config.PositionLimit > 0 && e.position != nil {
		blockOpens = true
	}
	return blockOpens
}

// ---------------------- step 8: strategy signal ----------------------

func (e *Engine) handleSignal(c Candle, sig *strategy.Signal, blockOpens bool) {
	if sig == nil {
		return
	}
	switch sig.Action {
	case strategy.ActionNone, strategy.ActionHold, "":
		return
	case strategy.ActionBuy, strategy.ActionLong:
		if !blockOpens {
			e.openSignal(c, sig, SideBuy)
		}
	case strategy.ActionSell, strategy.ActionShort:
		if !blockOpens {
			e.openSignal(c, sig, SideSell)
		}
	case strategy.ActionClose, strategy.ActionReduceSize:
		e.closeSignal(c, sig)
	default:
		// Unrecognized action: ignored, matching the propagation policy.
	}
}

func (e *Engine) openSignal(c Candle, sig *strategy.Signal, side OrderSide) {
	if e.position != nil && e.position.Side != side {
		// One-way mode: refuse to flip directly via a bare open signal.
		return
	}

	price := c.Close
	if sig.Price > 0 {
		price = sig.Price
	}

	qty := sig.Quantity
	if qty <= 0 {
		availableMargin := e.capital * e.config.MaxPositionSize
		if price <= 0 {
			return
		}
		qty = availableMargin * float64(maxInt(e.config.Leverage, 1)) / price
	}
	if qty <= 0 {
		return
	}

	notional := qty * price
	leverage := float64(maxInt(e.config.Leverage, 1))
	if e.capital < notional/leverage {
		return
	}

	orderType := OrderMarket
	switch sig.OrderType {
	case "limit":
		orderType = OrderLimit
	case "stop_market":
		orderType = OrderStopMarket
	case "stop_limit":
		orderType = OrderStopLimit
	case "trailing_stop":
		orderType = OrderTrailing
	}

	o := &Order{
		ID:              uuid.New().String(),
		Symbol:          c.Symbol,
		Side:            side,
		Type:            orderType,
		Qty:             qty,
		Price:           sig.Price,
		TriggerPrice:    sig.StopPrice,
		StopLoss:        sig.StopLoss,
		TakeProfit:      sig.TakeProfit,
		TrailingStopPct: sig.TrailingStopPct,
		Status:          StatusPending,
		SubmittedAt:     c.OpenTime,
	}
	e.openOrders = append(e.openOrders, o)
}

func (e *Engine) closeSignal(c Candle, sig *strategy.Signal) {
	if e.position == nil {
		return
	}
	qty := sig.Quantity
	if qty <= 0 {
		qty = e.position.Quantity
	}
	o := &Order{
		ID:          uuid.New().String(),
		Symbol:      c.Symbol,
		Side:        oppositeSide(e.position.Side),
		Type:        OrderMarket,
		Qty:         qty,
		ReduceOnly:  true,
		Status:      StatusPending,
		SubmittedAt: c.OpenTime,
	}
	e.openOrders = append(e.openOrders, o)
}

// ---------------------- step 9: bookkeeping ----------------------

func (e *Engine) bookkeeping(c Candle) {
	if e.position != nil {
		e.barsInMarket++
	}

	eq := e.equity()
	if eq > e.peakEquity {
		e.peakEquity = eq
		e.barsSincePeak = 0
	} else {
		e.barsSincePeak++
		if e.barsSincePeak > e.maxDrawdownBars {
			e.maxDrawdownBars = e.barsSincePeak
		}
	}

	dd := e.currentDrawdown()
	e.equityCurve = append(e.equityCurve, EquityPoint{
		Timestamp: c.OpenTime,
		Equity:    eq,
		Drawdown:  dd,
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ---------------------- result assembly ----------------------

func (e *Engine) noTradesResult() *Result {
	return &Result{
		Config: e.config,
		Performance: Performance{
			FinalCapital: e.config.InitialCapital,
		},
		Status: StatusNoTrades,
	}
}

func (e *Engine) buildResult(totalBars int) *Result {
	if len(e.trades) == 0 && len(e.equityCurve) == 0 {
		return e.noTradesResult()
	}

	mc := NewMetricsCalculator(e.config)
	m := mc.Calculate(e.trades, e.equityCurve)

	status := StatusCompleted
	if len(e.trades) == 0 {
		status = StatusNoTrades
	}

	var netProfit, grossProfit float64
	for _, t := range e.trades {
		netProfit += t.PnL
		gross := t.PnL + t.Commission + t.Slippage + t.FundingFees + t.LiquidationPenalty
		if gross > 0 {
			grossProfit += gross
		}
	}

	finalCapital := e.config.InitialCapital
	if len(e.equityCurve) > 0 {
		finalCapital = e.equityCurve[len(e.equityCurve)-1].Equity
	}

	timeInMarketPct := 0.0
	if totalBars > 0 {
		timeInMarketPct = float64(e.barsInMarket) / float64(totalBars) * 100
	}

	drawdownCurve := make([]float64, len(e.equityCurve))
	for i, p := range e.equityCurve {
		drawdownCurve[i] = p.Drawdown
	}

	winning, losing := 0, 0
	var totalTrade, totalWin, totalLoss float64
	for _, t := range e.trades {
		totalTrade += t.PnL
		if t.PnL > 0 {
			winning++
			totalWin += t.PnL
		} else {
			losing++
			totalLoss += t.PnL
		}
	}
	avgTrade, avgWin, avgLoss, winRate, expectancy := 0.0, 0.0, 0.0, 0.0, 0.0
	if len(e.trades) > 0 {
		avgTrade = totalTrade / float64(len(e.trades))
		winRate = float64(winning) / float64(len(e.trades)) * 100
	}
	if winning > 0 {
		avgWin = totalWin / float64(winning)
	}
	if losing > 0 {
		avgLoss = totalLoss / float64(losing)
	}
	expectancy = (winRate/100)*avgWin + (1-winRate/100)*avgLoss

	return &Result{
		Config: e.config,
		Performance: Performance{
			FinalCapital:    finalCapital,
			TotalReturnPct:  m.TotalReturn * 100,
			NetProfit:       netProfit,
			GrossProfit:     grossProfit,
			SharpeRatio:     m.SharpeRatio,
			SortinoRatio:    m.SortinoRatio,
			CalmarRatio:     m.CalmarRatio,
			MaxDrawdownPct:  m.MaxDrawdown * 100,
			MaxDrawdownBars: e.maxDrawdownBars,
			TimeInMarketPct: timeInMarketPct,
			ProfitFactor:    m.ProfitFactor,
		},
		Events: Events{
			Liquidations:  e.liquidations,
			FundingEvents: e.fundingEvents,
			Log:           e.eventsLog,
		},
		Trades: TradeStats{
			Total:      len(e.trades),
			Winning:    winning,
			Losing:     losing,
			WinRatePct: winRate,
			AvgTrade:   avgTrade,
			AvgWin:     avgWin,
			AvgLoss:    avgLoss,
			Expectancy: expectancy,
		},
		Costs: Costs{
			TotalCommission: e.totalCommission,
			TotalSlippage:   e.totalSlippage,
			TotalFunding:    e.totalFunding,
			CostRatioPct:    m.CostPct * 100,
		},
		EquityCurve:     e.equityCurve,
		DrawdownCurve:   drawdownCurve,
		AllTrades:       e.trades,
		DurationSeconds: m.Duration.Seconds(),
		Status:          status,
	}
}
