package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxStock is the stock ceiling per ingredient.
const DefaultMaxStock = 5

// ErrInsufficientAfterReplenish is part of the reservation contract but is not
// returned by the current policy, which tolerates shortfalls.
var ErrInsufficientAfterReplenish = errors.New("insufficient stock after replenishment")

// UnknownIngredientError is returned when a requirement names an ingredient
// the inventory does not track.
type UnknownIngredientError struct {
	Ingredient Ingredient
}

func (e *UnknownIngredientError) Error() string {
	return fmt.Sprintf("unknown ingredient %q", e.Ingredient)
}

// Replenishment records one restock-to-full.
type Replenishment struct {
	Ingredient Ingredient `json:"ingredient"`
	From       int        `json:"from"`
	To         int        `json:"to"`
}

// Reservation describes what one ReserveAndConsume call did.
type Reservation struct {
	Required    Requirements
	Shortfalls  []Ingredient
	Replenished []Replenishment
	Remaining   map[Ingredient]int
}

// ShoppingItem is one line of a shopping list.
type ShoppingItem struct {
	Ingredient Ingredient `json:"ingredient"`
	Current    int        `json:"current"`
	ToOrder    int        `json:"to_order"`
}

// Inventory is the shared ingredient stock.
type Inventory struct {
	mu              sync.Mutex
	stock           map[Ingredient]int
	max             int
	shopping        map[Ingredient]bool
	replenishNeeded bool
}

// Option configures an Inventory.
type Option func(*Inventory)

// WithStock sets starting stock. Ingredients not listed start full;
// ingredients the inventory does not track are ignored.
func WithStock(stock map[Ingredient]int) Option {
	return func(inv *Inventory) {
		for ing, n := range stock {
			if _, ok := inv.stock[ing]; !ok {
				slog.Warn("ignoring stock for untracked ingredient", "ingredient", ing, "stock", n)
				continue
			}
			inv.stock[ing] = n
		}
	}
}

// WithIngredients replaces the tracked ingredient set; each starts full.
func WithIngredients(ings ...Ingredient) Option {
	return func(inv *Inventory) {
		inv.stock = make(map[Ingredient]int, len(ings))
		for _, ing := range ings {
			inv.stock[ing] = inv.max
		}
	}
}

// New creates an inventory with every standard ingredient at maxStock.
// A maxStock below 1 falls back to DefaultMaxStock.
func New(maxStock int, opts ...Option) *Inventory {
	if maxStock < 1 {
		maxStock = DefaultMaxStock
	}
	inv := &Inventory{
		stock:    make(map[Ingredient]int),
		max:      maxStock,
		shopping: make(map[Ingredient]bool),
	}
	for _, ing := range Ingredients() {
		inv.stock[ing] = maxStock
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Max returns the stock ceiling.
func (inv *Inventory) Max() int {
	return inv.max
}

// ReserveAndConsume checks, replenishes and decrements stock for one order
// inside a single critical section.
//
// For every ingredient whose stock is below the requirement the ingredient is
// flagged for shopping and a restock-to-full is attempted; the restock only
// happens when stock is at or below zero. All requirements are then
// decremented unconditionally, so stock that was short but positive goes
// negative.
func (inv *Inventory) ReserveAndConsume(req Requirements) (Reservation, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	keys := req.sortedKeys()
	for _, ing := range keys {
		if _, ok := inv.stock[ing]; !ok {
			return Reservation{}, &UnknownIngredientError{Ingredient: ing}
		}
	}

	res := Reservation{Required: make(Requirements, len(req))}
	for _, ing := range keys {
		res.Required[ing] = req[ing]
		if inv.stock[ing] < req[ing] {
			res.Shortfalls = append(res.Shortfalls, ing)
			inv.shopping[ing] = true
		}
	}

	for _, ing := range res.Shortfalls {
		if from, ok := inv.replenishLocked(ing); ok {
			res.Replenished = append(res.Replenished, Replenishment{Ingredient: ing, From: from, To: inv.max})
		}
	}

	res.Remaining = make(map[Ingredient]int, len(keys))
	for _, ing := range keys {
		if inv.stock[ing] < req[ing] {
			inv.replenishNeeded = true
		}
		inv.stock[ing] -= req[ing]
		res.Remaining[ing] = inv.stock[ing]
	}

	return res, nil
}

// Replenish restocks ing to the maximum if its stock is at or below zero and
// returns the previous amount. Returns false, and changes nothing, when the
// ingredient still has stock or is unknown.
func (inv *Inventory) Replenish(ing Ingredient) (int, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.replenishLocked(ing)
}

func (inv *Inventory) replenishLocked(ing Ingredient) (int, bool) {
	current, ok := inv.stock[ing]
	if !ok || current > 0 {
		return current, false
	}
	inv.stock[ing] = inv.max
	return current, true
}

// RestockDepleted is one replenishment monitor pass: if any reservation has
// flagged that replenishment is needed, every ingredient at or below zero is
// restocked to full and the flag is cleared. Returns false when the flag was
// not set.
func (inv *Inventory) RestockDepleted() ([]Replenishment, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if !inv.replenishNeeded {
		return nil, false
	}

	keys := make([]Ingredient, 0, len(inv.stock))
	for ing := range inv.stock {
		keys = append(keys, ing)
	}
	sortIngredients(keys)

	var out []Replenishment
	for _, ing := range keys {
		if from, ok := inv.replenishLocked(ing); ok {
			out = append(out, Replenishment{Ingredient: ing, From: from, To: inv.max})
		}
	}
	inv.replenishNeeded = false
	return out, true
}

// ReplenishmentNeeded reports whether a reservation has left an ingredient
// short since the last monitor pass.
func (inv *Inventory) ReplenishmentNeeded() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.replenishNeeded
}

// Adjust adds delta to an ingredient's stock and returns the new amount.
// With clampMax the result never exceeds the maximum. There is no lower
// clamp.
func (inv *Inventory) Adjust(ing Ingredient, delta int, clampMax bool) (int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	current, ok := inv.stock[ing]
	if !ok {
		return 0, &UnknownIngredientError{Ingredient: ing}
	}
	next := current + delta
	if clampMax && next > inv.max {
		next = inv.max
	}
	inv.stock[ing] = next
	return next, nil
}

// Stock returns the current amount of one ingredient.
func (inv *Inventory) Stock(ing Ingredient) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.stock[ing]
}

// Snapshot copies the current stock levels.
func (inv *Inventory) Snapshot() map[Ingredient]int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make(map[Ingredient]int, len(inv.stock))
	for ing, n := range inv.stock {
		out[ing] = n
	}
	return out
}

// PendingShopping returns the flagged ingredients without clearing them.
func (inv *Inventory) PendingShopping() []Ingredient {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.flaggedLocked()
}

// ShoppingList produces one line per flagged ingredient and clears the flags.
// An ingredient may be fully stocked again and still appear.
func (inv *Inventory) ShoppingList() []ShoppingItem {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	flagged := inv.flaggedLocked()
	out := make([]ShoppingItem, 0, len(flagged))
	for _, ing := range flagged {
		current := inv.stock[ing]
		out = append(out, ShoppingItem{Ingredient: ing, Current: current, ToOrder: inv.max - current})
		delete(inv.shopping, ing)
	}
	return out
}

func (inv *Inventory) flaggedLocked() []Ingredient {
	var out []Ingredient
	for ing, needed := range inv.shopping {
		if needed {
			out = append(out, ing)
		}
	}
	sortIngredients(out)
	return out
}
