package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tradecore/engine/pkg/delta"
)

func TestPaperBook_OpenAndCloseRealizesPnL(t *testing.T) {
	pb := NewPaperBook(10000)

	pb.Fill("BTCUSD", "buy", 1, 100)
	pos, ok := pb.Position("BTCUSD")
	if !ok || pos.Size != 1 || pos.EntryPrice != 100 {
		t.Fatalf("unexpected position after open: %+v", pos)
	}

	pb.Fill("BTCUSD", "sell", 1, 110)
	if _, ok := pb.Position("BTCUSD"); ok {
		t.Fatal("expected position to be closed")
	}
	if got := pb.RealizedPnL(); got != 10 {
		t.Errorf("expected realized pnl 10, got %.2f", got)
	}
}

func TestPaperBook_SameSideAveragesEntry(t *testing.T) {
	pb := NewPaperBook(10000)
	pb.Fill("ETHUSD", "buy", 1, 100)
	pb.Fill("ETHUSD", "buy", 1, 120)

	pos, ok := pb.Position("ETHUSD")
	if !ok {
		t.Fatal("expected open position")
	}
	if pos.Size != 2 {
		t.Errorf("expected size 2, got %.2f", pos.Size)
	}
	if pos.EntryPrice != 110 {
		t.Errorf("expected averaged entry 110, got %.2f", pos.EntryPrice)
	}
}

func TestPaperBook_FlipSideRealizesOverlapAndOpensRemainder(t *testing.T) {
	pb := NewPaperBook(10000)
	pb.Fill("SOLUSD", "buy", 2, 50)
	pb.Fill("SOLUSD", "sell", 3, 60)

	if got := pb.RealizedPnL(); got != 20 { // 2 units * (60-50)
		t.Errorf("expected realized pnl 20, got %.2f", got)
	}
	pos, ok := pb.Position("SOLUSD")
	if !ok {
		t.Fatal("expected flipped short position")
	}
	if pos.Side != "sell" || pos.Size != 1 {
		t.Errorf("expected short 1 remaining, got %+v", pos)
	}
}

func TestPaperBook_EquityMarksOpenPositions(t *testing.T) {
	pb := NewPaperBook(10000)
	pb.Fill("BTCUSD", "buy", 1, 100)

	equity := pb.Equity(map[string]float64{"BTCUSD": 150})
	if equity != 10050 { // 9900 cash + 150 mark
		t.Errorf("expected equity 10050, got %.2f", equity)
	}
}

func TestShutdownManager_ShutsDownInPriorityOrder(t *testing.T) {
	m := NewShutdownManager(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	m.Register("transport", record("transport"))
	m.Register("order_executor", record("order_executor"))
	m.Register("strategy_runner", record("strategy_runner"))
	m.Register("position_manager", record("position_manager"))

	m.Shutdown()

	expected := []string{"strategy_runner", "position_manager", "order_executor", "transport"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d components to shut down, got %d", len(expected), len(order))
	}
	for i, name := range expected {
		if order[i] != name {
			t.Errorf("expected position %d to be %s, got %s", i, name, order[i])
		}
	}
}

func TestShutdownManager_IsIdempotent(t *testing.T) {
	m := NewShutdownManager(time.Second)
	calls := 0
	m.Register("strategy_runner", func(ctx context.Context) error {
		calls++
		return nil
	})

	m.Shutdown()
	m.Shutdown()

	if calls != 1 {
		t.Errorf("expected component to shut down exactly once, got %d", calls)
	}
}

func TestShutdownManager_CollectsComponentErrors(t *testing.T) {
	m := NewShutdownManager(time.Second)
	m.Register("order_executor", func(ctx context.Context) error {
		return errors.New("boom")
	})

	errs := m.Shutdown()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

func TestIsRetryable_MatchesKnownCodes(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{fmt.Errorf("API error 10006: rate limited"), true},
		{fmt.Errorf("API error 110003: unknown order"), true},
		{fmt.Errorf("API error insufficient_margin: nope"), false},
		{fmt.Errorf("http 400: bad request"), false},
		{nil, false},
	}

	for _, c := range cases {
		if got := isRetryable(c.err); got != c.retryable {
			t.Errorf("isRetryable(%v) = %v, want %v", c.err, got, c.retryable)
		}
	}
}

func TestCredentials_UseRoundTripsPlaintext(t *testing.T) {
	creds := NewCredentials("key123", "secret456")

	var gotKey, gotSecret string
	creds.Use(func(apiKey, apiSecret string) {
		gotKey = apiKey
		gotSecret = apiSecret
	})

	if gotKey != "key123" || gotSecret != "secret456" {
		t.Errorf("expected round-tripped credentials, got key=%q secret=%q", gotKey, gotSecret)
	}
}

func TestPositionManager_PositionsReturnsIndependentSnapshot(t *testing.T) {
	pm := &PositionManager{positions: map[string]delta.Position{
		"BTCUSD": {ProductSymbol: "BTCUSD", Size: 5},
	}}

	snap := pm.Positions()
	if len(snap) != 1 {
		t.Fatalf("expected 1 cached position, got %d", len(snap))
	}

	snap["ETHUSD"] = delta.Position{ProductSymbol: "ETHUSD", Size: 1}
	if _, ok := pm.Get("ETHUSD"); ok {
		t.Error("mutating the returned snapshot should not affect the manager's cache")
	}
	if !pm.Open("BTCUSD") {
		t.Error("expected BTCUSD to be reported open")
	}
}

func TestCredentials_CloseZeroesAndBlanksFurtherUse(t *testing.T) {
	creds := NewCredentials("key123", "secret456")
	creds.Close()
	creds.Close() // idempotent

	var gotKey string
	creds.Use(func(apiKey, apiSecret string) {
		gotKey = apiKey
	})
	if gotKey != "" {
		t.Errorf("expected blank credentials after Close, got %q", gotKey)
	}
}
