package lifecycle

import (
	"errors"
	"fmt"

	"github.com/Chrich02/pizzashop/internal/order"
)

// ErrorCode categorizes lifecycle failures.
type ErrorCode string

const (
	// CodeOrderNotFound: the order id is not in the store.
	CodeOrderNotFound ErrorCode = "ORDER_NOT_FOUND"

	// CodeInvalidSize: no recipe exists for the order's size.
	CodeInvalidSize ErrorCode = "INVALID_SIZE"

	// CodeReservation: the inventory rejected the reservation.
	CodeReservation ErrorCode = "RESERVATION_FAILED"

	// CodeTransition: the store refused a status move.
	CodeTransition ErrorCode = "TRANSITION_FAILED"

	// CodePanic: a stage panicked.
	CodePanic ErrorCode = "PANIC"
)

// LifecycleError is an order-scoped failure. The order it names has been
// moved to Error.
type LifecycleError struct {
	Code    ErrorCode
	OrderID int64
	Stage   order.Status
	Err     error
}

func (e *LifecycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: order %d at %s: %v", e.Code, e.OrderID, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: order %d at %s", e.Code, e.OrderID, e.Stage)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// IsLifecycleError reports whether err is, or wraps, a *LifecycleError.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// StoppedError reports that a run honoured cancellation at a checkpoint. The
// order is left in Stage and can be resumed.
type StoppedError struct {
	OrderID int64
	Stage   order.Status
	Err     error
}

func (e *StoppedError) Error() string {
	return fmt.Sprintf("order %d stopped at %s: %v", e.OrderID, e.Stage, e.Err)
}

func (e *StoppedError) Unwrap() error {
	return e.Err
}
