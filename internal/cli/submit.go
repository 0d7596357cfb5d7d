package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Kind     string
	Size     string
	Quantity int
	Count    int
}

// SubmitResult is the submit command's JSON payload.
type SubmitResult struct {
	Orders       []order.Record           `json:"orders"`
	Recovered    int                      `json:"recovered,omitempty"`
	ShoppingList []inventory.ShoppingItem `json:"shopping_list,omitempty"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an order and wait until it is collected",
		Long: `Submit one or more identical orders and wait for them to finish.

Unfinished orders from the previous session are picked up first.

Example:
  pizzashop submit --kind "Meat Feast" --size large --quantity 2
  pizzashop submit --kind margherita --size small --count 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "item kind from the menu (required)")
	cmd.Flags().StringVar(&opts.Size, "size", "", "small, medium or large (required)")
	cmd.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "pizzas per order")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "number of orders to submit")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("size")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	if opts.Count < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--count must be at least 1, got %d", opts.Count))
	}

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

	ctx, cancel := signalContext(cmd)
	defer cancel()

	recovered, err := rt.shop.Start(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start shop", err)
	}

	ids := make([]int64, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id, err := rt.shop.Submit(ctx, opts.Kind, opts.Size, opts.Quantity)
		if err != nil {
			if order.IsValidation(err) {
				return f.Fail(ExitFailure, ErrCodeValidation, err.Error(), nil)
			}
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to submit order", err)
		}
		f.VerboseLog("Submitted order %d", id)
		ids = append(ids, id)
	}

	if err := rt.shop.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "waiting for orders", err)
	}

	res := SubmitResult{Recovered: recovered, ShoppingList: rt.shop.ShoppingList()}
	failed := 0
	for _, id := range ids {
		rec, _ := rt.shop.Order(id)
		if rec.Status == order.StatusError {
			failed++
		}
		res.Orders = append(res.Orders, rec)
	}

	if err := f.Success(res, func(w io.Writer) {
		if recovered > 0 {
			fmt.Fprintf(w, "Recovered %d unfinished order(s).\n", recovered)
		}
		renderOrders(w, res.Orders)
		renderShoppingList(w, res.ShoppingList)
	}); err != nil {
		return err
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d order(s) failed", failed))
	}
	return nil
}
