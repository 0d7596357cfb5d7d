package shop

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Chrich02/pizzashop/internal/order"
)

// SimulationResult summarizes one batch simulation.
type SimulationResult struct {
	Submitted []int64 `json:"submitted"`
	Collected int     `json:"collected"`
	Failed    int     `json:"failed"`
	Pending   []int64 `json:"pending,omitempty"`
}

// Simulate submits n random orders (random item kind and size, quantity
// 1..cfg.SimulationMaxQuantity) through the normal submission path and waits
// for them. The same seed always produces the same batch.
func (s *Shop) Simulate(ctx context.Context, n int, seed uint64) (SimulationResult, error) {
	if n < 1 {
		return SimulationResult{}, fmt.Errorf("simulation needs at least one order, got %d", n)
	}
	if len(s.cfg.Menu) == 0 {
		return SimulationResult{}, fmt.Errorf("simulation needs a non-empty menu")
	}
	maxQty := s.cfg.SimulationMaxQuantity
	if maxQty < 1 {
		maxQty = 1
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sizes := order.Sizes()
	menu := s.cfg.Menu

	var res SimulationResult
	for i := 0; i < n; i++ {
		kind := menu[rng.IntN(len(menu))]
		size := sizes[rng.IntN(len(sizes))]
		qty := 1 + rng.IntN(maxQty)

		id, err := s.Submit(ctx, kind, string(size), qty)
		if err != nil {
			return res, fmt.Errorf("simulated order %d: %w", i+1, err)
		}
		res.Submitted = append(res.Submitted, id)
	}
	slog.Info("simulation submitted", "orders", n, "seed", seed)

	if err := s.Wait(ctx); err != nil {
		return res, err
	}

	for _, id := range res.Submitted {
		rec, _ := s.orders.Get(id)
		switch rec.Status {
		case order.StatusCollected:
			res.Collected++
		case order.StatusError:
			res.Failed++
		default:
			res.Pending = append(res.Pending, id)
		}
	}
	slog.Info("simulation finished", "collected", res.Collected, "failed", res.Failed, "pending", len(res.Pending))
	return res, nil
}
