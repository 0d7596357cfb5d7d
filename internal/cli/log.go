package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Chrich02/pizzashop/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Order  int64
	Export string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show or export the order log",
		Long: `Show every status change recorded in the order log, oldest first.

With --export the whole log is written to a JSON file as an array of
{order_id, action, timestamp} records, replacing the file atomically.

Example:
  pizzashop log --order 3
  pizzashop log --export order_log.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Order, "order", 0, "only show entries for this order id")
	cmd.Flags().StringVar(&opts.Export, "export", "", "write the whole log to this JSON file")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	st, err := openLog(cfg, f)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing order log", "error", err)
		}
	}()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Export != "" {
		n, err := st.ExportJSON(ctx, opts.Export)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeOrderLog, "failed to export order log", err)
		}
		data := map[string]any{"path": opts.Export, "entries": n}
		return f.Success(data, func(w io.Writer) {
			fmt.Fprintf(w, "Exported %d entries to %s\n", n, opts.Export)
		})
	}

	var entries []store.Entry
	if opts.Order > 0 {
		entries, err = st.EntriesForOrder(ctx, opts.Order)
	} else {
		entries, err = st.Entries(ctx)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeOrderLog, "failed to read order log", err)
	}
	if opts.Order > 0 && len(entries) == 0 {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no log entries for order %d", opts.Order), nil)
	}

	return f.Success(entries, func(w io.Writer) {
		renderEntries(w, entries)
	})
}
