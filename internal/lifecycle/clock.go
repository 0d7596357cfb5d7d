package lifecycle

import (
	"time"

	"github.com/Chrich02/pizzashop/internal/order"
)

// Clock supplies timestamps and dwell waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Dwell maps a stage to how long an order stays in it before advancing.
// Missing stages dwell for zero.
type Dwell map[order.Status]time.Duration

// DefaultDwell mirrors the shop floor: one second to register, one to cook,
// three waiting for collection.
var DefaultDwell = Dwell{
	order.StatusRegistered:         time.Second,
	order.StatusCooking:            time.Second,
	order.StatusReadyForCollection: 3 * time.Second,
}
