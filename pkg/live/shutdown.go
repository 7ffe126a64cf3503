package live

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// shutdownPriority orders component teardown: stop generating signals first,
// then stop position tracking, then close order/transport connections.
var shutdownPriority = map[string]int{
	"strategy_runner":  1,
	"position_manager": 2,
	"order_executor":   3,
	"transport":        4,
}

const defaultComponentPriority = 10

// ShutdownFunc tears down one component. It should respect ctx's deadline.
type ShutdownFunc func(ctx context.Context) error

type component struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager runs a priority-ordered, per-phase-timed shutdown sequence
// in response to SIGINT/SIGTERM or an explicit Trigger call.
type ShutdownManager struct {
	mu         sync.Mutex
	timeout    time.Duration
	components []component
	done       chan struct{}
	once       sync.Once
	errs       []error
}

// NewShutdownManager creates a manager with an overall shutdown budget; each
// registered component gets an even share of it.
func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a component to the shutdown sequence. name should match one
// of the known priority keys ("strategy_runner", "position_manager",
// "order_executor", "transport") or it shuts down last.
func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// ListenForSignals installs SIGINT/SIGTERM handlers that trigger Shutdown.
// It returns a cancel function that stops listening.
func (m *ShutdownManager) ListenForSignals() context.CancelFunc {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	stopCh := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			slog.Warn("shutdown signal received", "signal", sig.String())
			m.Shutdown()
		case <-stopCh:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(stopCh)
	}
}

// Shutdown runs the teardown sequence exactly once and blocks until it
// completes (or the overall timeout elapses). Safe to call more than once.
func (m *ShutdownManager) Shutdown() []error {
	m.once.Do(func() {
		defer close(m.done)
		m.run()
	})
	<-m.done
	return m.errs
}

// Done reports whether shutdown has already been triggered.
func (m *ShutdownManager) Done() <-chan struct{} {
	return m.done
}

func (m *ShutdownManager) run() {
	m.mu.Lock()
	ordered := append([]component{}, m.components...)
	m.mu.Unlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityOf(ordered[i].name) < priorityOf(ordered[j].name)
	})

	if len(ordered) == 0 {
		return
	}
	perComponent := m.timeout / time.Duration(len(ordered))

	for _, c := range ordered {
		ctx, cancel := context.WithTimeout(context.Background(), perComponent)
		slog.Info("shutting down component", "component", c.name)
		if err := c.fn(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("component shutdown timed out", "component", c.name)
			} else {
				slog.Error("component shutdown error", "component", c.name, "error", err)
			}
			m.errs = append(m.errs, err)
		}
		cancel()
	}
}

func priorityOf(name string) int {
	if p, ok := shutdownPriority[name]; ok {
		return p
	}
	return defaultComponentPriority
}
