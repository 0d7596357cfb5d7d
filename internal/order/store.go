package order

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store holds every order known to the shop.
//
// Thread-safety: all methods are safe for concurrent use. Each order is
// advanced by exactly one lifecycle worker at a time, so the lock only
// protects the map itself against concurrent readers such as session saves.
type Store struct {
	mu     sync.RWMutex
	orders map[int64]*Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{orders: make(map[int64]*Record)}
}

// Register adds a new order. Ids must be unique.
func (s *Store) Register(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[rec.ID]; exists {
		return fmt.Errorf("order %d already registered", rec.ID)
	}
	r := rec
	s.orders[rec.ID] = &r
	return nil
}

// Get returns a copy of the order.
func (s *Store) Get(id int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.orders[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Transition moves an order to a new status. Collected stamps the
// completion time with at. Illegal moves return a *TransitionError and leave
// the order untouched.
func (s *Store) Transition(id int64, to Status, at time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[id]
	if !ok {
		return Record{}, fmt.Errorf("order %d not found", id)
	}
	if !CanTransition(r.Status, to) {
		return *r, &TransitionError{OrderID: id, From: r.Status, To: to}
	}
	r.Status = to
	if to == StatusCollected {
		done := Stamp(at)
		r.CompletedAt = &done
	}
	return *r, nil
}

// All returns every order sorted by id.
func (s *Store) All() []Record {
	return s.filter(func(Record) bool { return true })
}

// Active returns the orders that have not reached a terminal status.
func (s *Store) Active() []Record {
	return s.filter(func(r Record) bool { return !r.Status.Terminal() })
}

// WithStatus returns the orders currently in one of the given statuses.
func (s *Store) WithStatus(statuses ...Status) []Record {
	want := make(map[Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	return s.filter(func(r Record) bool { return want[r.Status] })
}

func (s *Store) filter(keep func(Record) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.orders))
	for _, r := range s.orders {
		if keep(*r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of known orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Snapshot copies the store for persistence.
func (s *Store) Snapshot() map[int64]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]Record, len(s.orders))
	for id, r := range s.orders {
		out[id] = *r
	}
	return out
}

// Restore replaces the store contents with a persisted snapshot.
func (s *Store) Restore(orders map[int64]Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[int64]*Record, len(orders))
	for id, r := range orders {
		rec := r
		rec.ID = id
		s.orders[id] = &rec
	}
}

// Favourite is how often one item kind has been ordered.
type Favourite struct {
	ItemKind string `json:"item_kind"`
	Orders   int    `json:"orders"`
}

// Favourites counts orders per item kind, case-insensitively, most popular
// first. Ties are broken alphabetically.
func (s *Store) Favourites() []Favourite {
	counts := make(map[string]int)
	for _, r := range s.All() {
		counts[strings.ToLower(r.ItemKind)]++
	}

	out := make([]Favourite, 0, len(counts))
	for kind, n := range counts {
		out = append(out, Favourite{ItemKind: kind, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders == out[j].Orders {
			return out[i].ItemKind < out[j].ItemKind
		}
		return out[i].Orders > out[j].Orders
	})
	return out
}
