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

// ResumeResult is the resume command's JSON payload.
type ResumeResult struct {
	Recovered    int                      `json:"recovered"`
	Orders       []order.Record           `json:"orders"`
	Pending      []int64                  `json:"pending,omitempty"`
	ShoppingList []inventory.ShoppingItem `json:"shopping_list,omitempty"`
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Finish orders left unfinished by the last run",
		Long: `Restore the session and run every unfinished order to completion.

Orders left Registered start over; orders left Cooking or ReadyForCollection
continue from where they were without using more ingredients.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(rootOpts, cmd)
		},
	}
	return cmd
}

func runResume(opts *RootOptions, cmd *cobra.Command) error {
	rt, err := openShop(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()
	f := rt.formatter

	unfinished := rt.shop.Orders(false)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	recovered, err := rt.shop.Start(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start shop", err)
	}
	if err := rt.shop.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "waiting for orders", err)
	}

	res := ResumeResult{
		Recovered:    recovered,
		Pending:      rt.shop.Pending(),
		ShoppingList: rt.shop.ShoppingList(),
		Orders:       []order.Record{},
	}
	for _, r := range unfinished {
		rec, _ := rt.shop.Order(r.ID)
		res.Orders = append(res.Orders, rec)
	}

	return f.Success(res, func(w io.Writer) {
		if recovered == 0 {
			fmt.Fprintln(w, "Nothing to resume.")
			return
		}
		fmt.Fprintf(w, "Resumed %d order(s).\n", recovered)
		renderOrders(w, res.Orders)
		renderShoppingList(w, res.ShoppingList)
	})
}
