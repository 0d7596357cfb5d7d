package order

import "sync/atomic"

// IDAllocator hands out strictly increasing order ids.
//
// The allocator is seeded with the persisted next_order_id so ids are never
// reused across restarts. Safe for concurrent use.
type IDAllocator struct {
	last atomic.Int64
}

// NewIDAllocator creates an allocator whose first id is next.
// Values below 1 are treated as 1.
func NewIDAllocator(next int64) *IDAllocator {
	if next < 1 {
		next = 1
	}
	a := &IDAllocator{}
	a.last.Store(next - 1)
	return a
}

// Next returns a fresh id.
func (a *IDAllocator) Next() int64 {
	return a.last.Add(1)
}

// Peek returns the id the next call to Next will return; this is the value
// persisted as next_order_id.
func (a *IDAllocator) Peek() int64 {
	return a.last.Load() + 1
}

// Observe bumps the allocator past id, so restored orders can never collide
// with new ones even when the persisted counter lags behind them.
func (a *IDAllocator) Observe(id int64) {
	for {
		cur := a.last.Load()
		if id <= cur {
			return
		}
		if a.last.CompareAndSwap(cur, id) {
			return
		}
	}
}
