package order

import "fmt"

// Status is the lifecycle stage of an order.
type Status string

const (
	StatusRegistered         Status = "Registered"
	StatusCooking            Status = "Cooking"
	StatusReadyForCollection Status = "ReadyForCollection"
	StatusCollected          Status = "Collected"
	StatusError              Status = "Error"
)

// stages lists the happy path in order.
var stages = []Status{
	StatusRegistered,
	StatusCooking,
	StatusReadyForCollection,
	StatusCollected,
}

// Stages returns the happy-path stages in lifecycle order.
func Stages() []Status {
	out := make([]Status, len(stages))
	copy(out, stages)
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusCooking, StatusReadyForCollection, StatusCollected, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCollected || s == StatusError
}

// Next returns the stage that follows s on the happy path.
// Returns false for terminal statuses.
func (s Status) Next() (Status, bool) {
	for i, st := range stages[:len(stages)-1] {
		if st == s {
			return stages[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is a legal move: one step along
// the happy path, or any non-terminal status into Error.
func CanTransition(from, to Status) bool {
	if from.Terminal() || !from.Valid() {
		return false
	}
	if to == StatusError {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}

// TransitionError reports an illegal status move.
type TransitionError struct {
	OrderID int64
	From    Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}
