package live

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/tradecore/engine/pkg/delta"
)

// retryableCodes mirrors the original live-trading service's retry list:
// request timeout, rate limit, transient server error, order-not-modified,
// and unknown-order races that clear up on a second look.
var retryableCodes = map[string]bool{
	"10002":  true,
	"10006":  true,
	"10016":  true,
	"110001": true,
	"110003": true,
}

// apiErrorCodePattern extracts the code Delta's client wraps into
// "API error <code>: <message>" (see pkg/delta/client.go doRequest).
var apiErrorCodePattern = regexp.MustCompile(`^API error (\S+):`)

func apiErrorCode(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	m := apiErrorCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isRetryable(err error) bool {
	code, ok := apiErrorCode(err)
	if !ok {
		return false
	}
	return retryableCodes[code]
}

// OrderExecutor places and cancels orders against Delta Exchange, adding a
// bounded retry pass on top of the transport client for application-level
// retryable error codes that the client itself doesn't retry on.
type OrderExecutor struct {
	client     *delta.Client
	maxRetries int
	backoff    time.Duration
	closeOnce  sync.Once
}

// NewOrderExecutor wraps an existing Delta client.
func NewOrderExecutor(client *delta.Client) *OrderExecutor {
	return &OrderExecutor{
		client:     client,
		maxRetries: 3,
		backoff:    250 * time.Millisecond,
	}
}

// PlaceOrder submits an order, retrying on retryable API error codes.
func (e *OrderExecutor) PlaceOrder(req *delta.OrderRequest) (*delta.Order, error) {
	var order *delta.Order
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		order, err = e.client.PlaceOrder(req)
		if err == nil {
			return order, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		slog.Warn("retrying order placement", "attempt", attempt+1, "error", err)
		time.Sleep(e.backoff * time.Duration(attempt+1))
	}
	return nil, fmt.Errorf("order placement failed after %d retries: %w", e.maxRetries, err)
}

// CancelOrder cancels an order, retrying on retryable API error codes.
func (e *OrderExecutor) CancelOrder(orderID int64, productID int) error {
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		err = e.client.CancelOrder(orderID, productID)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		slog.Warn("retrying order cancel", "attempt", attempt+1, "error", err)
		time.Sleep(e.backoff * time.Duration(attempt+1))
	}
	return fmt.Errorf("order cancel failed after %d retries: %w", e.maxRetries, err)
}

// PlaceLimitOrderWithFallback submits a limit order that falls back to a
// market order after waitSeconds, retrying the whole attempt on retryable
// API error codes the same way PlaceOrder does.
func (e *OrderExecutor) PlaceLimitOrderWithFallback(req *delta.OrderRequest, symbol string, waitSeconds int) (*delta.Order, error) {
	var order *delta.Order
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		order, err = e.client.PlaceLimitOrderWithFallback(req, symbol, waitSeconds)
		if err == nil {
			return order, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		slog.Warn("retrying limit-with-fallback placement", "symbol", symbol, "attempt", attempt+1, "error", err)
		time.Sleep(e.backoff * time.Duration(attempt+1))
	}
	return nil, fmt.Errorf("limit-with-fallback placement failed after %d retries: %w", e.maxRetries, err)
}

// ClosePosition closes a position, retrying on retryable API error codes.
func (e *OrderExecutor) ClosePosition(symbol string, productID, size int, positionSide string) error {
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		err = e.client.ClosePosition(symbol, productID, size, positionSide)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		slog.Warn("retrying position close", "symbol", symbol, "attempt", attempt+1, "error", err)
		time.Sleep(e.backoff * time.Duration(attempt+1))
	}
	return fmt.Errorf("position close failed after %d retries: %w", e.maxRetries, err)
}

// Close releases the underlying transport. Safe to call more than once;
// multiple shutdown phases (position manager, runner teardown) may each
// try to close the same executor.
func (e *OrderExecutor) Close() {
	e.closeOnce.Do(e.client.Close)
}
