package live

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tradecore/engine/pkg/delta"
)

// PositionManager tracks open positions per symbol and drives position
// closes through an OrderExecutor, generalizing pkg/delta's position
// helpers with a local cache so callers don't refetch on every check.
type PositionManager struct {
	mu        sync.RWMutex
	client    *delta.Client
	executor  *OrderExecutor
	positions map[string]delta.Position
}

// NewPositionManager wires a position manager onto an existing executor so
// position closes go through the same retry path as order placement.
func NewPositionManager(client *delta.Client, executor *OrderExecutor) *PositionManager {
	return &PositionManager{
		client:    client,
		executor:  executor,
		positions: make(map[string]delta.Position),
	}
}

// Refresh pulls all margined positions from the exchange into the cache.
func (pm *PositionManager) Refresh() error {
	positions, err := pm.client.GetPositions()
	if err != nil {
		return fmt.Errorf("refresh positions: %w", err)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.positions = make(map[string]delta.Position, len(positions))
	for _, p := range positions {
		if p.Size != 0 {
			pm.positions[p.ProductSymbol] = p
		}
	}
	return nil
}

// Get returns the cached position for a symbol, if any.
func (pm *PositionManager) Get(symbol string) (delta.Position, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.positions[symbol]
	return p, ok
}

// Open reports whether a non-zero position is currently cached for symbol.
func (pm *PositionManager) Open(symbol string) bool {
	_, ok := pm.Get(symbol)
	return ok
}

// Positions returns a snapshot copy of every cached open position.
func (pm *PositionManager) Positions() map[string]delta.Position {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make(map[string]delta.Position, len(pm.positions))
	for k, v := range pm.positions {
		out[k] = v
	}
	return out
}

// Close closes the cached position for symbol, if one exists, and removes
// it from the cache on success.
func (pm *PositionManager) Close(symbol string) error {
	pos, ok := pm.Get(symbol)
	if !ok {
		return nil
	}

	side := "buy"
	if pos.Size < 0 {
		side = "sell"
	}
	size := pos.Size
	if size < 0 {
		size = -size
	}

	if err := pm.executor.ClosePosition(symbol, pos.ProductID, size, side); err != nil {
		return fmt.Errorf("close position %s: %w", symbol, err)
	}

	pm.mu.Lock()
	delete(pm.positions, symbol)
	pm.mu.Unlock()
	slog.Info("position closed", "symbol", symbol, "size", size, "side", side)
	return nil
}

// CloseAll closes every cached position, collecting per-symbol errors rather
// than stopping at the first failure; used on shutdown and on daily-loss-limit trips.
func (pm *PositionManager) CloseAll() map[string]error {
	pm.mu.RLock()
	symbols := make([]string, 0, len(pm.positions))
	for s := range pm.positions {
		symbols = append(symbols, s)
	}
	pm.mu.RUnlock()

	results := make(map[string]error, len(symbols))
	for _, s := range symbols {
		results[s] = pm.Close(s)
	}
	return results
}
