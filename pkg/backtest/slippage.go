package backtest

import (
	"math"
	"time"
)

// SlippageContext carries the market conditions a model may need beyond the
// bar itself: volatility, optional order-book quotes, regime, and the order's
// own type (Adaptive discounts limit orders).
type SlippageContext struct {
	Volatility float64 // fractional, e.g. 0.02 = 2%

	HasATR bool
	ATR    float64

	HasQuotes bool
	Bid       float64
	Ask       float64
	MinSpread float64
	BookDepth float64 // notional depth available at the touch

	OrderType OrderType
	Timestamp time.Time
	Regime    string // trending/volatile/ranging/breakout/low_volatility
}

// SlippageResult is the full accounting of one slippage calculation.
type SlippageResult struct {
	SlippagePct    float64
	SlippageAmount float64
	ExecutionPrice float64
	OriginalPrice  float64
	ModelType      string
	Components     map[string]float64
}

// SlippageModel computes execution slippage for an order against a bar.
// Pure and deterministic, except AdaptiveSlippage which also consults the
// context's timestamp and regime.
type SlippageModel interface {
	Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult
}

func clamp(pct, min, max float64) float64 {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return min
	}
	if pct < min {
		return min
	}
	if pct > max {
		return max
	}
	return pct
}

func direction(side OrderSide) float64 {
	if side == SideBuy {
		return 1
	}
	return -1
}

func finish(modelType string, price, pct float64, components map[string]float64) SlippageResult {
	return SlippageResult{
		SlippagePct:    pct,
		SlippageAmount: price * pct,
		ModelType:      modelType,
		Components:     components,
	}
}

func withExecution(r SlippageResult, price float64, side OrderSide) SlippageResult {
	r.OriginalPrice = price
	r.ExecutionPrice = price * (1 + r.SlippagePct*direction(side))
	return r
}

// ---------------------- Fixed ----------------------

// FixedSlippage applies a constant fractional slippage.
type FixedSlippage struct {
	Pct    float64
	MinPct float64
	MaxPct float64
}

func NewFixedSlippage(pct float64) *FixedSlippage {
	return &FixedSlippage{Pct: pct, MinPct: 0, MaxPct: 0.5}
}

func (s *FixedSlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	pct := clamp(s.Pct, s.MinPct, s.MaxPct)
	r := finish("fixed", price, pct, map[string]float64{"fixed": pct})
	return withExecution(r, price, side)
}

// ---------------------- Volume impact (square-root) ----------------------

// VolumeImpactSlippage models price impact using the Almgren-Chriss
// square-root market-impact formula.
type VolumeImpactSlippage struct {
	ImpactFactor float64
	MinPct       float64
	MaxPct       float64
}

func NewVolumeImpactSlippage(impactFactor, _unused1, min, max float64) *VolumeImpactSlippage {
	return &VolumeImpactSlippage{ImpactFactor: impactFactor, MinPct: min, MaxPct: max}
}

func (s *VolumeImpactSlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	volume := ctx.BookDepth // reused as bar volume*price proxy when called from the engine
	var impact float64
	if volume > 0 && price > 0 {
		notional := orderSize * price
		participation := notional / volume
		if participation < 0 {
			participation = 0
		}
		impact = s.ImpactFactor * math.Sqrt(participation) * ctx.Volatility
	}
	pct := clamp(impact, s.MinPct, s.MaxPct)
	r := finish("volume_impact", price, pct, map[string]float64{"volume_impact": pct})
	return withExecution(r, price, side)
}

// ---------------------- Volatility ----------------------

// VolatilitySlippage scales slippage with realized or ATR-based volatility.
type VolatilitySlippage struct {
	Base                 float64
	VolatilityMultiplier float64
	MinPct               float64
	MaxPct               float64
}

func NewVolatilitySlippage(base, volMultiplier, min, max float64) *VolatilitySlippage {
	if max == 0 {
		max = 0.5
	}
	return &VolatilitySlippage{Base: base, VolatilityMultiplier: volMultiplier, MinPct: min, MaxPct: max}
}

func (s *VolatilitySlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	vol := ctx.Volatility
	if ctx.HasATR && price > 0 {
		vol = ctx.ATR / price
	}
	pct := clamp(s.Base+s.VolatilityMultiplier*vol, s.MinPct, s.MaxPct)
	r := finish("volatility", price, pct, map[string]float64{"volatility": pct})
	return withExecution(r, price, side)
}

// ---------------------- Order book ----------------------

// OrderBookSlippage estimates slippage from spread and available depth.
type OrderBookSlippage struct {
	SpreadMultiplier float64
	DepthFactor      float64
	MinSpread        float64
	MinPct           float64
	MaxPct           float64
}

func NewOrderBookSlippage(spreadMultiplier, depthFactor, minSpread float64) *OrderBookSlippage {
	return &OrderBookSlippage{
		SpreadMultiplier: spreadMultiplier,
		DepthFactor:      depthFactor,
		MinSpread:        minSpread,
		MinPct:           0,
		MaxPct:           0.5,
	}
}

func (s *OrderBookSlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	spread := s.MinSpread
	if ctx.HasQuotes && ctx.Ask > ctx.Bid && price > 0 {
		spread = (ctx.Ask - ctx.Bid) / price
	}
	minSpread := s.MinSpread
	if minSpread == 0 {
		minSpread = ctx.MinSpread
	}
	if spread < minSpread {
		spread = minSpread
	}

	depthComponent := 0.0
	if ctx.BookDepth > 0 {
		notional := orderSize * price
		depthComponent = s.DepthFactor * (notional / ctx.BookDepth)
	}

	pct := clamp(s.SpreadMultiplier*spread+depthComponent, s.MinPct, s.MaxPct)
	r := finish("order_book", price, pct, map[string]float64{
		"spread": s.SpreadMultiplier * spread,
		"depth":  depthComponent,
	})
	return withExecution(r, price, side)
}

// ---------------------- Composite ----------------------

type weightedModel struct {
	model  SlippageModel
	weight float64
}

// CompositeSlippage combines multiple slippage models by weighted sum of
// their fractional slippages. Default weights mirror the original
// Python implementation's (VolumeImpact 0.4, Volatility 0.3, OrderBook 0.3).
type CompositeSlippage struct {
	models []weightedModel
}

func NewCompositeSlippage(weighted ...struct {
	Model  SlippageModel
	Weight float64
}) *CompositeSlippage {
	c := &CompositeSlippage{}
	for _, w := range weighted {
		c.models = append(c.models, weightedModel{model: w.Model, weight: w.Weight})
	}
	return c
}

// NewDefaultCompositeSlippage builds the default three-model composite with
// the Python original's default weights.
func NewDefaultCompositeSlippage() *CompositeSlippage {
	return &CompositeSlippage{
		models: []weightedModel{
			{model: NewVolumeImpactSlippage(0.1, 0, 0, 0.05), weight: 0.4},
			{model: NewVolatilitySlippage(0.0001, 0.3, 0, 0.05), weight: 0.3},
			{model: NewOrderBookSlippage(0.5, 0.1, 0.0002), weight: 0.3},
		},
	}
}

func (s *CompositeSlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	components := make(map[string]float64, len(s.models))
	var total float64
	for i, wm := range s.models {
		sub := wm.model.Calculate(price, orderSize, side, ctx)
		contribution := sub.SlippagePct * wm.weight
		total += contribution
		key := sub.ModelType
		if key == "" {
			key = intToString(i)
		}
		components[key] = sub.SlippagePct
	}
	pct := clamp(total, 0, 0.5)
	r := finish("composite", price, pct, components)
	return withExecution(r, price, side)
}

// ---------------------- Adaptive ----------------------

var adaptiveHourlyMultiplier = map[int]float64{
	0: 1.3, 1: 1.4, 2: 1.4, 3: 1.3, 4: 1.2, 5: 1.1,
	6: 1.0, 7: 1.0, 8: 1.1, 9: 1.0, 10: 0.9, 11: 0.9,
	12: 0.9, 13: 0.9, 14: 1.0, 15: 1.0, 16: 1.1, 17: 1.0,
	18: 1.0, 19: 1.0, 20: 1.1, 21: 1.2, 22: 1.2, 23: 1.3,
}

var adaptiveRegimeMultiplier = map[string]float64{
	"trending":       1.1,
	"volatile":       1.5,
	"ranging":        0.9,
	"breakout":       1.6,
	"low_volatility": 0.8,
}

// AdaptiveSlippage wraps a base model and scales its result by hour-of-day,
// market regime, and a discount for passive (limit) orders.
type AdaptiveSlippage struct {
	Base SlippageModel
}

func NewAdaptiveSlippage(base SlippageModel) *AdaptiveSlippage {
	return &AdaptiveSlippage{Base: base}
}

func (s *AdaptiveSlippage) Calculate(price, orderSize float64, side OrderSide, ctx SlippageContext) SlippageResult {
	base := s.Base.Calculate(price, orderSize, side, ctx)

	mult := 1.0
	if !ctx.Timestamp.IsZero() {
		if hm, ok := adaptiveHourlyMultiplier[ctx.Timestamp.UTC().Hour()]; ok {
			mult *= hm
		}
	}
	if rm, ok := adaptiveRegimeMultiplier[ctx.Regime]; ok {
		mult *= rm
	}
	if ctx.OrderType == OrderLimit || ctx.OrderType == OrderStopLimit {
		mult *= 0.5
	}

	pct := clamp(base.SlippagePct*mult, 0, 0.5)
	components := make(map[string]float64, len(base.Components)+1)
	for k, v := range base.Components {
		components[k] = v
	}
	components["adaptive_multiplier"] = mult
	r := finish("adaptive", price, pct, components)
	return withExecution(r, price, side)
}

// ---------------------- Helpers ----------------------

// ApplySlippage adjusts a price for slippage based on order side; buys fill
// higher, sells fill lower.
func ApplySlippage(price, slippageAmount float64, side OrderSide) float64 {
	if side == SideBuy {
		return price + slippageAmount
	}
	return price - slippageAmount
}

// CalculateFee computes commission on a notional value at the given rate.
func CalculateFee(notional, rate float64) float64 {
	return notional * rate
}
