package inventory

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMonitorInterval is how often the monitor checks for depleted stock.
const DefaultMonitorInterval = time.Second

// Monitor restocks depleted ingredients in the background, independent of any
// particular order.
type Monitor struct {
	inv       *Inventory
	interval  time.Duration
	onRestock func(Replenishment)
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithRestockHook is called for every restock the monitor performs, outside
// the inventory lock.
func WithRestockHook(fn func(Replenishment)) MonitorOption {
	return func(m *Monitor) {
		m.onRestock = fn
	}
}

// NewMonitor creates a monitor for inv.
func NewMonitor(inv *Inventory, opts ...MonitorOption) *Monitor {
	m := &Monitor{inv: inv, interval: DefaultMonitorInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run polls every interval until ctx is cancelled. The first pass happens
// one interval after Run is called.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		m.Tick()
	}
}

// Tick performs a single monitor pass and returns the restocks it made.
func (m *Monitor) Tick() []Replenishment {
	restocked, checked := m.inv.RestockDepleted()
	if !checked {
		return nil
	}
	slog.Debug("replenishment pass", "restocked", len(restocked))
	for _, r := range restocked {
		slog.Info("ingredient restocked", "ingredient", r.Ingredient, "from", r.From, "to", r.To)
		if m.onRestock != nil {
			m.onRestock(r)
		}
	}
	return restocked
}
