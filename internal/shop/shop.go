// Package shop assembles the pizza shop: order store, shared inventory and
// its monitor, event bus, lifecycle workers, session persistence and the
// order log.
//
// A Shop is created from a config.Config, started once, fed orders through
// Submit or Simulate, and shut down. The session is saved after every
// submission, every status change and every draft edit, so a crash loses at
// most the change in flight; the next Start picks up every unfinished order.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Chrich02/pizzashop/internal/config"
	"github.com/Chrich02/pizzashop/internal/events"
	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/lifecycle"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/scheduler"
	"github.com/Chrich02/pizzashop/internal/session"
)

// ErrNotStarted is returned by operations that need a running shop.
var ErrNotStarted = errors.New("shop not started")

// Shop is the running pizza shop.
type Shop struct {
	cfg      config.Config
	clock    lifecycle.Clock
	logbook  lifecycle.Logbook
	orders   *order.Store
	ids      *order.IDAllocator
	inv      *inventory.Inventory
	monitor  *inventory.Monitor
	bus      *events.Bus
	sched    *scheduler.Scheduler
	sessions *session.Manager
	warning  error

	draftMu sync.Mutex
	draft   order.Draft

	saveMu sync.Mutex

	runMu   sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// Option configures a Shop.
type Option func(*Shop)

// WithClock replaces the wall clock used for timestamps and dwell waits.
func WithClock(c lifecycle.Clock) Option {
	return func(s *Shop) { s.clock = c }
}

// WithLogbook sets the order log. Without one, status changes are not logged.
func WithLogbook(lb lifecycle.Logbook) Option {
	return func(s *Shop) { s.logbook = lb }
}

// New builds a shop and restores the last session from cfg.SessionPath.
//
// A corrupt session is not an error: the shop starts empty and the warning
// is available from Warning.
func New(cfg config.Config, opts ...Option) (*Shop, error) {
	s := &Shop{
		cfg:      cfg,
		clock:    lifecycle.SystemClock{},
		orders:   order.NewStore(),
		sessions: session.NewManager(cfg.SessionPath),
		bus:      events.NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := s.sessions.Load()
	switch {
	case session.IsCorrupt(err):
		slog.Warn("session reset", "error", err)
		s.warning = err
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	}

	s.orders.Restore(snap.Orders)
	s.ids = order.NewIDAllocator(snap.NextOrderID)
	for id := range snap.Orders {
		s.ids.Observe(id)
	}
	s.draft = snap.PartialSelection

	s.inv = inventory.New(cfg.MaxStock, inventory.WithStock(cfg.InitialStock))
	s.monitor = inventory.NewMonitor(s.inv,
		inventory.WithInterval(cfg.MonitorInterval),
		inventory.WithRestockHook(func(r inventory.Replenishment) {
			s.bus.Publish(events.Replenished(r, s.clock.Now()))
		}),
	)

	lc := lifecycle.New(s.orders, s.inv, s.bus,
		lifecycle.WithDwell(cfg.Dwell),
		lifecycle.WithRecipes(cfg.Recipes),
		lifecycle.WithClock(s.clock),
		lifecycle.WithLogbook(s.logbook),
		lifecycle.WithReservationRetry(cfg.ReservationRetry),
	)
	s.sched = scheduler.New(lc,
		scheduler.WithWorkers(cfg.Workers),
		scheduler.WithMaxProcessed(cfg.MaxProcessed),
	)

	s.bus.Subscribe(events.Funcs{
		StatusChanged: func(int64, order.Status) { s.autosave() },
	})

	slog.Debug("shop ready",
		"orders", s.orders.Len(),
		"next_order_id", s.ids.Peek(),
		"session", s.sessions.Path(),
	)
	return s, nil
}

// Warning returns the recoverable problem found while restoring the session,
// if any.
func (s *Shop) Warning() error {
	return s.warning
}

// Subscribe registers a listener for status, replenishment and shortfall
// events. Call before Start to see every event.
func (s *Shop) Subscribe(l events.Listener) {
	s.bus.Subscribe(l)
}

// Start launches the event dispatcher, the replenishment monitor and the
// workers, then re-dispatches every unfinished order from the session.
// Orders left Registered start over; Cooking and ReadyForCollection orders
// resume where they were without reserving ingredients again.
//
// Returns the number of recovered orders.
func (s *Shop) Start(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.started {
		return 0, fmt.Errorf("shop already started")
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// The bus outlives cancellation so events from stopping orders are
	// still delivered; Shutdown closes it.
	busCtx := context.WithoutCancel(ctx)
	s.bg.Add(2)
	go func() {
		defer s.bg.Done()
		if err := s.bus.Run(busCtx); err != nil {
			slog.Error("event bus stopped", "error", err)
		}
	}()
	go func() {
		defer s.bg.Done()
		_ = s.monitor.Run(runCtx)
	}()

	if err := s.sched.Start(runCtx); err != nil {
		cancel()
		return 0, err
	}

	recovered := 0
	for _, rec := range s.orders.Active() {
		if err := s.sched.Dispatch(rec.ID); err != nil {
			return recovered, fmt.Errorf("recovering order %d: %w", rec.ID, err)
		}
		slog.Info("recovered order", "order_id", rec.ID, "status", rec.Status)
		recovered++
	}
	return recovered, nil
}

// Submit validates and registers a new order and hands it to the workers.
// Only a *order.ValidationError means the order was refused; persistence
// problems are logged and the order still runs.
func (s *Shop) Submit(ctx context.Context, itemKind, size string, quantity int) (int64, error) {
	kind, sz, err := s.cfg.Menu.Validate(itemKind, size, quantity)
	if err != nil {
		return 0, err
	}

	rec := order.Record{
		ID:          s.ids.Next(),
		ItemKind:    kind,
		Size:        sz,
		Quantity:    quantity,
		Status:      order.StatusRegistered,
		SubmittedAt: order.Stamp(s.clock.Now()),
	}
	if err := s.orders.Register(rec); err != nil {
		return 0, err
	}
	slog.Info("order submitted", "order_id", rec.ID, "item_kind", kind, "size", sz, "quantity", quantity)

	s.draftMu.Lock()
	s.draft = nil
	s.draftMu.Unlock()
	s.autosave()

	if err := s.sched.Dispatch(rec.ID); err != nil {
		return rec.ID, fmt.Errorf("order %d registered but not scheduled: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// SaveDraft replaces the customer's unsubmitted selection and saves the
// session. The draft is stamped with updated_at.
func (s *Shop) SaveDraft(d order.Draft) error {
	next := make(order.Draft, len(d)+1)
	for k, v := range d {
		next[k] = v
	}
	next["updated_at"] = order.Stamp(s.clock.Now())

	s.draftMu.Lock()
	s.draft = next
	s.draftMu.Unlock()
	return s.save()
}

// Draft returns a copy of the unsubmitted selection, or nil.
func (s *Shop) Draft() order.Draft {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	if s.draft == nil {
		return nil
	}
	out := make(order.Draft, len(s.draft))
	for k, v := range s.draft {
		out[k] = v
	}
	return out
}

// Wait blocks until every startable order has finished or ctx is done.
func (s *Shop) Wait(ctx context.Context) error {
	s.runMu.Lock()
	started := s.started
	s.runMu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return s.sched.Idle(ctx)
}

// Shutdown stops the shop: in-flight orders stop at their next checkpoint,
// pending events are delivered, and the session is saved one last time.
func (s *Shop) Shutdown() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true

	s.sched.Close()
	s.cancel()
	s.sched.Wait()
	s.bus.Close()
	s.bg.Wait()

	st := s.sched.Stats()
	slog.Info("shop stopped",
		"processed", st.Processed,
		"failed", st.Failed,
		"stopped", st.Stopped,
		"queued", st.Queued,
	)
	return s.save()
}

// Orders lists orders by id. Unless all is set, collected and failed orders
// are left out.
func (s *Shop) Orders(all bool) []order.Record {
	if all {
		return s.orders.All()
	}
	return s.orders.Active()
}

// Order returns one order.
func (s *Shop) Order(id int64) (order.Record, bool) {
	return s.orders.Get(id)
}

// Favourites counts orders per item kind, most popular first.
func (s *Shop) Favourites() []order.Favourite {
	return s.orders.Favourites()
}

// ShoppingList returns what to buy for every ingredient flagged short and
// clears the flags.
func (s *Shop) ShoppingList() []inventory.ShoppingItem {
	return s.inv.ShoppingList()
}

// Inventory returns current stock levels.
func (s *Shop) Inventory() map[inventory.Ingredient]int {
	return s.inv.Snapshot()
}

// Stats returns the scheduler counters.
func (s *Shop) Stats() scheduler.Stats {
	return s.sched.Stats()
}

// Pending returns orders accepted but held back by the processed limit.
func (s *Shop) Pending() []int64 {
	return s.sched.Pending()
}

func (s *Shop) snapshot() session.Snapshot {
	return session.Snapshot{
		Orders:           s.orders.Snapshot(),
		NextOrderID:      s.ids.Peek(),
		PartialSelection: s.Draft(),
	}
}

// save writes the session. Saves are serialized; the last one wins.
func (s *Shop) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.sessions.Save(s.snapshot()); err != nil {
		slog.Error("session save failed", "path", s.sessions.Path(), "error", err)
		return err
	}
	return nil
}

func (s *Shop) autosave() {
	_ = s.save()
}
