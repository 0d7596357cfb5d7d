package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Chrich02/pizzashop/internal/events"
	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
)

// DefaultReservationRetry is the pause between reservation attempts while
// Registered -> Cooking is blocked.
const DefaultReservationRetry = 250 * time.Millisecond

// Logbook is the append-only order log collaborator.
type Logbook interface {
	Record(ctx context.Context, orderID int64, action string, at time.Time) error
}

// Log actions written alongside status names.
const (
	ActionResumed = "Resumed"
)

// Lifecycle runs orders through their stages against shared inventory.
//
// A Lifecycle is safe for concurrent use by many workers as long as each
// order id is run by at most one worker at a time.
type Lifecycle struct {
	orders  *order.Store
	inv     *inventory.Inventory
	events  events.Publisher
	recipes inventory.RecipeBook
	logbook Logbook
	clock   Clock
	dwell   Dwell
	retry   time.Duration
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithDwell sets per-stage dwell durations.
func WithDwell(d Dwell) Option {
	return func(l *Lifecycle) { l.dwell = d }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Lifecycle) { l.clock = c }
}

// WithRecipes replaces the default recipe book.
func WithRecipes(b inventory.RecipeBook) Option {
	return func(l *Lifecycle) { l.recipes = b }
}

// WithLogbook sets the order log.
func WithLogbook(lb Logbook) Option {
	return func(l *Lifecycle) { l.logbook = lb }
}

// WithReservationRetry sets the pause between blocked reservation attempts.
func WithReservationRetry(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.retry = d
		}
	}
}

// New creates a Lifecycle over the given store, inventory and event sink.
func New(orders *order.Store, inv *inventory.Inventory, pub events.Publisher, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		orders:  orders,
		inv:     inv,
		events:  pub,
		recipes: inventory.DefaultRecipes,
		clock:   SystemClock{},
		dwell:   DefaultDwell,
		retry:   DefaultReservationRetry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run advances the order from its current status until it reaches a terminal
// status or ctx is cancelled.
//
// Returns nil once the order is Collected (or was already terminal), a
// *StoppedError if cancellation was honoured, or a *LifecycleError after the
// order has been moved to Error.
func (l *Lifecycle) Run(ctx context.Context, orderID int64) (err error) {
	rec, ok := l.orders.Get(orderID)
	if !ok {
		return &LifecycleError{Code: CodeOrderNotFound, OrderID: orderID}
	}
	if rec.Status.Terminal() {
		return nil
	}

	stage := rec.Status
	defer func() {
		if r := recover(); r != nil {
			err = l.fail(ctx, orderID, stage, CodePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	slog.Debug("lifecycle starting", "order_id", orderID, "status", stage)
	l.announceStart(ctx, orderID, stage)

	for !stage.Terminal() {
		if err := ctx.Err(); err != nil {
			return l.stopped(orderID, stage, err)
		}

		l.clock.Sleep(l.dwell[stage])

		if err := ctx.Err(); err != nil {
			return l.stopped(orderID, stage, err)
		}

		next, _ := stage.Next()

		if stage == order.StatusRegistered {
			if err := l.reserve(ctx, rec); err != nil {
				var stop *StoppedError
				if errors.As(err, &stop) {
					return err
				}
				var le *LifecycleError
				if errors.As(err, &le) {
					return l.fail(ctx, orderID, stage, le.Code, le.Err)
				}
				return l.fail(ctx, orderID, stage, CodeReservation, err)
			}
		}

		if _, err := l.orders.Transition(orderID, next, l.clock.Now()); err != nil {
			return l.fail(ctx, orderID, stage, CodeTransition, err)
		}
		stage = next
		l.announce(ctx, orderID, stage, string(stage))
	}

	slog.Info("order finished", "order_id", orderID, "status", stage)
	return nil
}

// reserve computes the order's requirements and takes them from inventory,
// retrying while the inventory reports it cannot satisfy them.
func (l *Lifecycle) reserve(ctx context.Context, rec order.Record) error {
	req, err := l.recipes.For(string(rec.Size), rec.Quantity)
	if err != nil {
		return &LifecycleError{Code: CodeInvalidSize, OrderID: rec.ID, Stage: rec.Status, Err: err}
	}

	for {
		res, err := l.inv.ReserveAndConsume(req)
		if err == nil {
			l.reportReservation(rec.ID, res)
			return nil
		}
		if !errors.Is(err, inventory.ErrInsufficientAfterReplenish) {
			return err
		}

		slog.Debug("reservation blocked", "order_id", rec.ID, "retry_in", l.retry)
		select {
		case <-ctx.Done():
			return l.stopped(rec.ID, order.StatusRegistered, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *Lifecycle) reportReservation(orderID int64, res inventory.Reservation) {
	now := l.clock.Now()
	if len(res.Shortfalls) > 0 {
		slog.Warn("ingredient shortfall", "order_id", orderID, "ingredients", res.Shortfalls)
		l.publish(events.Shortfall(orderID, res.Shortfalls, now))
	}
	for _, r := range res.Replenished {
		slog.Info("ingredient restocked", "order_id", orderID, "ingredient", r.Ingredient, "from", r.From, "to", r.To)
		l.publish(events.Replenished(r, now))
	}
	slog.Debug("inventory reserved", "order_id", orderID, "remaining", res.Remaining)
}

// announceStart emits the status an order enters the run with. A fresh order
// logs "Registered"; a resumed one logs "Resumed".
func (l *Lifecycle) announceStart(ctx context.Context, orderID int64, stage order.Status) {
	action := string(stage)
	if stage != order.StatusRegistered {
		action = ActionResumed
	}
	l.announce(ctx, orderID, stage, action)
}

// announce publishes the status change and appends the log entry. Log
// failures are reported but do not fail the order. The entry is written even
// if ctx was cancelled after the transition.
func (l *Lifecycle) announce(ctx context.Context, orderID int64, status order.Status, action string) {
	now := l.clock.Now()
	l.publish(events.StatusChanged(orderID, status, now))

	if l.logbook == nil {
		return
	}
	if err := l.logbook.Record(context.WithoutCancel(ctx), orderID, action, now); err != nil {
		slog.Error("order log append failed", "order_id", orderID, "action", action, "error", err)
	}
}

func (l *Lifecycle) publish(e events.Event) {
	if l.events == nil {
		return
	}
	if !l.events.Publish(e) {
		slog.Debug("event dropped: bus closed", "event", e.Type.String(), "order_id", e.OrderID)
	}
}

func (l *Lifecycle) stopped(orderID int64, stage order.Status, cause error) error {
	slog.Info("order stopped at checkpoint", "order_id", orderID, "status", stage)
	return &StoppedError{OrderID: orderID, Stage: stage, Err: cause}
}

// fail moves the order to Error and returns the LifecycleError describing why.
func (l *Lifecycle) fail(ctx context.Context, orderID int64, stage order.Status, code ErrorCode, cause error) error {
	lerr := &LifecycleError{Code: code, OrderID: orderID, Stage: stage, Err: cause}
	slog.Error("order failed", "order_id", orderID, "status", stage, "code", code, "error", cause)

	if _, err := l.orders.Transition(orderID, order.StatusError, l.clock.Now()); err != nil {
		slog.Error("could not mark order as Error", "order_id", orderID, "error", err)
		return lerr
	}
	l.announce(ctx, orderID, order.StatusError, string(order.StatusError))
	return lerr
}
