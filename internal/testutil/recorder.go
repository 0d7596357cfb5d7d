package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
)

// TraceEvent is one recorded notification in a stable, JSON-friendly shape.
type TraceEvent struct {
	Kind        string   `json:"kind"`
	OrderID     int64    `json:"order_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	Ingredient  string   `json:"ingredient,omitempty"`
	From        *int     `json:"from,omitempty"`
	To          *int     `json:"to,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// Recorder is an events.Listener that keeps everything it is told.
type Recorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) OnStatusChanged(orderID int64, status order.Status) {
	r.add(TraceEvent{Kind: "status", OrderID: orderID, Status: string(status)})
}

func (r *Recorder) OnInventoryReplenished(ing inventory.Ingredient, from, to int) {
	r.add(TraceEvent{Kind: "replenished", Ingredient: string(ing), From: &from, To: &to})
}

func (r *Recorder) OnShortfall(orderID int64, ings []inventory.Ingredient) {
	names := make([]string, len(ings))
	for i, ing := range ings {
		names[i] = string(ing)
	}
	r.add(TraceEvent{Kind: "shortfall", OrderID: orderID, Ingredients: names})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Statuses returns the status sequence recorded for one order.
func (r *Recorder) Statuses(orderID int64) []order.Status {
	var out []order.Status
	for _, e := range r.Events() {
		if e.Kind == "status" && e.OrderID == orderID {
			out = append(out, order.Status(e.Status))
		}
	}
	return out
}

// LogLine is one entry captured by MemoryLogbook.
type LogLine struct {
	OrderID int64     `json:"order_id"`
	Action  string    `json:"action"`
	At      time.Time `json:"timestamp"`
}

// MemoryLogbook is an in-memory order log. Set Fail to make Record error.
type MemoryLogbook struct {
	mu    sync.Mutex
	lines []LogLine
	Fail  bool
}

// Record appends a line.
func (l *MemoryLogbook) Record(_ context.Context, orderID int64, action string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail {
		return fmt.Errorf("logbook unavailable")
	}
	l.lines = append(l.lines, LogLine{OrderID: orderID, Action: action, At: at})
	return nil
}

// Lines returns a copy of the recorded lines.
func (l *MemoryLogbook) Lines() []LogLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Actions returns the actions recorded for one order, in order.
func (l *MemoryLogbook) Actions(orderID int64) []string {
	var out []string
	for _, line := range l.Lines() {
		if line.OrderID == orderID {
			out = append(out, line.Action)
		}
	}
	return out
}
