package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/scheduler"
	"github.com/Chrich02/pizzashop/internal/shop"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Orders int
	Seed   uint64
}

// SimulateResult is the simulate command's JSON payload.
type SimulateResult struct {
	shop.SimulationResult
	Seed         uint64                       `json:"seed"`
	Stats        scheduler.Stats              `json:"stats"`
	Inventory    map[inventory.Ingredient]int `json:"inventory"`
	ShoppingList []inventory.ShoppingItem     `json:"shopping_list,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Push a batch of random orders through the shop",
		Long: `Submit a batch of random orders (random item kind and size, small
quantities) and report how many were collected.

The same --seed always produces the same batch.

Example:
  pizzashop simulate
  pizzashop simulate --orders 100 --seed 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				opts.Seed = uint64(time.Now().UnixNano())
			}
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Orders, "orders", 0, "number of orders (default from config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: time-based)")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	rt, err := openShop(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()
	f := rt.formatter

	n := opts.Orders
	if n == 0 {
		n = rt.cfg.SimulationOrders
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if _, err := rt.shop.Start(ctx); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start shop", err)
	}

	sim, err := rt.shop.Simulate(ctx, n, opts.Seed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "simulation failed", err)
	}

	res := SimulateResult{
		SimulationResult: sim,
		Seed:             opts.Seed,
		Stats:            rt.shop.Stats(),
		Inventory:        rt.shop.Inventory(),
		ShoppingList:     rt.shop.ShoppingList(),
	}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Simulated %d orders (seed %d): %d collected, %d failed, %d pending.\n",
			len(res.Submitted), res.Seed, res.Collected, res.Failed, len(res.Pending))
		for _, ing := range inventory.Ingredients() {
			fmt.Fprintf(w, "  %-8s %d\n", ing, res.Inventory[ing])
		}
		renderShoppingList(w, res.ShoppingList)
	})
}
