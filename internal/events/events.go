// Package events carries lifecycle and inventory notifications from worker
// goroutines to the collaborators that consume them (presentation, session
// autosave, logging).
//
// Workers Publish without blocking. A single dispatcher goroutine (Bus.Run)
// delivers events to listeners in publish order, so the events of one order
// always arrive in the order its worker produced them. No ordering is
// promised across orders beyond that.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/queue"
)

// Type distinguishes event kinds.
type Type int

const (
	// TypeStatusChanged is emitted on every order status transition.
	TypeStatusChanged Type = iota + 1
	// TypeReplenished is emitted when an ingredient is restocked to full.
	TypeReplenished
	// TypeShortfall is emitted when an order found stock insufficient.
	TypeShortfall
)

func (t Type) String() string {
	switch t {
	case TypeStatusChanged:
		return "status_changed"
	case TypeReplenished:
		return "inventory_replenished"
	case TypeShortfall:
		return "shortfall"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Event is one notification. Fields not relevant to Type are zero.
type Event struct {
	Type        Type
	OrderID     int64
	Status      order.Status
	Ingredient  inventory.Ingredient
	From        int
	To          int
	Ingredients []inventory.Ingredient
	At          time.Time
}

// StatusChanged builds a TypeStatusChanged event.
func StatusChanged(orderID int64, status order.Status, at time.Time) Event {
	return Event{Type: TypeStatusChanged, OrderID: orderID, Status: status, At: at}
}

// Replenished builds a TypeReplenished event.
func Replenished(r inventory.Replenishment, at time.Time) Event {
	return Event{Type: TypeReplenished, Ingredient: r.Ingredient, From: r.From, To: r.To, At: at}
}

// Shortfall builds a TypeShortfall event.
func Shortfall(orderID int64, ings []inventory.Ingredient, at time.Time) Event {
	return Event{Type: TypeShortfall, OrderID: orderID, Ingredients: ings, At: at}
}

// Listener consumes events on the dispatcher goroutine.
type Listener interface {
	OnStatusChanged(orderID int64, status order.Status)
	OnInventoryReplenished(ing inventory.Ingredient, from, to int)
	OnShortfall(orderID int64, ings []inventory.Ingredient)
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(Event) bool
}

// Funcs adapts plain functions to a Listener; nil fields are skipped.
type Funcs struct {
	StatusChanged func(orderID int64, status order.Status)
	Replenished   func(ing inventory.Ingredient, from, to int)
	Shortfall     func(orderID int64, ings []inventory.Ingredient)
}

func (f Funcs) OnStatusChanged(orderID int64, status order.Status) {
	if f.StatusChanged != nil {
		f.StatusChanged(orderID, status)
	}
}

func (f Funcs) OnInventoryReplenished(ing inventory.Ingredient, from, to int) {
	if f.Replenished != nil {
		f.Replenished(ing, from, to)
	}
}

func (f Funcs) OnShortfall(orderID int64, ings []inventory.Ingredient) {
	if f.Shortfall != nil {
		f.Shortfall(orderID, ings)
	}
}

// Bus queues events and dispatches them on one goroutine.
//
// Thread-safety model:
//   - Publish, Subscribe, Close: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Bus struct {
	queue *queue.Queue[Event]

	mu        sync.RWMutex
	listeners []Listener
}

// NewBus creates a bus with no listeners.
func NewBus() *Bus {
	return &Bus{queue: queue.New[Event]()}
}

// Subscribe adds a listener. Listeners added while Run is active receive
// events dispatched after the call.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish queues an event. Returns false once the bus is closed.
func (b *Bus) Publish(e Event) bool {
	return b.queue.Enqueue(e)
}

// Pending returns the number of undelivered events.
func (b *Bus) Pending() int {
	return b.queue.Len()
}

// Close stops accepting events. Run delivers what is already queued and
// returns.
func (b *Bus) Close() {
	b.queue.Close()
}

// Run dispatches events until the bus is closed and drained, or ctx is
// cancelled. On cancellation undelivered events are dropped.
func (b *Bus) Run(ctx context.Context) error {
	for {
		if e, ok := b.queue.TryDequeue(); ok {
			b.dispatch(e)
			continue
		}

		select {
		case <-ctx.Done():
			b.queue.Close()
			if dropped := len(b.queue.Drain()); dropped > 0 {
				slog.Warn("event bus cancelled with undelivered events", "dropped", dropped)
			}
			return ctx.Err()
		case <-b.queue.Wait():
			if b.queue.Closed() && b.queue.Len() == 0 {
				return nil
			}
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		deliver(l, e)
	}
}

// deliver isolates listener panics so one broken consumer cannot stop the
// dispatcher.
func deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event listener panicked", "event", e.Type.String(), "order_id", e.OrderID, "panic", r)
		}
	}()

	switch e.Type {
	case TypeStatusChanged:
		l.OnStatusChanged(e.OrderID, e.Status)
	case TypeReplenished:
		l.OnInventoryReplenished(e.Ingredient, e.From, e.To)
	case TypeShortfall:
		l.OnShortfall(e.OrderID, e.Ingredients)
	default:
		slog.Warn("unknown event type", "type", int(e.Type))
	}
}
