package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// OrdersOptions holds flags for the orders command.
type OrdersOptions struct {
	*RootOptions
	All bool
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders from the saved session",
		Long: `List orders from the saved session. Collected and failed orders are
hidden unless --all is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include collected and failed orders")

	return cmd
}

func runOrders(opts *OrdersOptions, cmd *cobra.Command) error {
	rt, err := openShop(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	recs := rt.shop.Orders(opts.All)
	return rt.formatter.Success(recs, func(w io.Writer) {
		renderOrders(w, recs)
	})
}

// NewFavouritesCommand creates the favourites command.
func NewFavouritesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "favourites",
		Short:         "Show how often each item has been ordered",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openShop(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					slog.Error("shutdown failed", "error", err)
				}
			}()

			favs := rt.shop.Favourites()
			return rt.formatter.Success(favs, func(w io.Writer) {
				renderFavourites(w, favs)
			})
		},
	}
}
