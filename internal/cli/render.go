package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

func renderOrders(w io.Writer, recs []order.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No orders.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tSIZE\tQTY\tSTATUS\tSUBMITTED\tCOMPLETED")
	for _, r := range recs {
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.ItemKind, r.Size, r.Quantity, r.Status,
			r.SubmittedAt.Local().Format(timeLayout), completed)
	}
	tw.Flush()
}

func renderShoppingList(w io.Writer, items []inventory.ShoppingItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, "Shopping list:")
	for _, it := range items {
		fmt.Fprintf(w, "  %-8s order %d (current stock %d)\n", it.Ingredient, it.ToOrder, it.Current)
	}
}

func renderFavourites(w io.Writer, favs []order.Favourite) {
	if len(favs) == 0 {
		fmt.Fprintln(w, "No orders yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tORDERS")
	for _, f := range favs {
		fmt.Fprintf(tw, "%s\t%d\n", f.ItemKind, f.Orders)
	}
	tw.Flush()
}

func renderEntries(w io.Writer, entries []store.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Order log is empty.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "Order %d %s at %s\n", e.OrderID, e.Action, e.Timestamp.Format(time.RFC3339Nano))
	}
}

func renderDraft(w io.Writer, d order.Draft) {
	if len(d) == 0 {
		fmt.Fprintln(w, "No saved selection.")
		return
	}
	fmt.Fprintln(w, "Saved selection:")
	for _, key := range []string{"item_kind", "size", "quantity", "updated_at"} {
		if v, ok := d[key]; ok {
			fmt.Fprintf(w, "  %-10s %v\n", key, v)
		}
	}
}
