package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Chrich02/pizzashop/internal/order"
)

// DraftOptions holds flags for the draft command.
type DraftOptions struct {
	*RootOptions
	Kind     string
	Size     string
	Quantity int
}

// NewDraftCommand creates the draft command.
func NewDraftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DraftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Show or update the unsubmitted selection",
		Long: `Show the customer's saved, unsubmitted selection, or update it.

Only the flags given are changed; the rest of the selection is kept. The
selection is saved with the session and cleared when an order is submitted.

Example:
  pizzashop draft --kind Pepperoni
  pizzashop draft --size medium --quantity 2
  pizzashop draft`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraft(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "item kind")
	cmd.Flags().StringVar(&opts.Size, "size", "", "size")
	cmd.Flags().IntVarP(&opts.Quantity, "quantity", "q", 0, "quantity")

	return cmd
}

func runDraft(opts *DraftOptions, cmd *cobra.Command) error {
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

	draft := rt.shop.Draft()
	flags := cmd.Flags()
	if flags.Changed("kind") || flags.Changed("size") || flags.Changed("quantity") {
		if draft == nil {
			draft = order.Draft{}
		}
		if flags.Changed("kind") {
			draft["item_kind"] = opts.Kind
		}
		if flags.Changed("size") {
			draft["size"] = opts.Size
		}
		if flags.Changed("quantity") {
			draft["quantity"] = opts.Quantity
		}
		if err := rt.shop.SaveDraft(draft); err != nil {
			return f.Fail(ExitCommandError, ErrCodeSession, "failed to save selection", err)
		}
		draft = rt.shop.Draft()
	}

	return f.Success(draft, func(w io.Writer) {
		renderDraft(w, draft)
	})
}
