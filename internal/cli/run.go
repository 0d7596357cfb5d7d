package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Chrich02/pizzashop/internal/config"
	"github.com/Chrich02/pizzashop/internal/events"
	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/shop"
	"github.com/Chrich02/pizzashop/internal/store"
)

// shopHandle is one opened shop with its order log.
type shopHandle struct {
	cfg       config.Config
	log       *store.Store
	shop      *shop.Shop
	formatter *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// setupLogging installs the default slog handler. Debug level under --verbose.
func setupLogging(opts *RootOptions, w io.Writer) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads --config and reports failures through the formatter.
func loadConfig(opts *RootOptions, f *OutputFormatter) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	return cfg, nil
}

// openLog opens the order log named by the configuration.
func openLog(cfg config.Config, f *OutputFormatter) (*store.Store, error) {
	st, err := store.Open(cfg.LogDSN, store.WithMirror(cfg.LogMirror))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeOrderLog, "failed to open order log", err)
	}
	slog.Debug("order log ready", "dialect", st.Dialect(), "run_id", st.RunID())
	return st, nil
}

// openShop loads configuration, the order log and the saved session.
func openShop(opts *RootOptions, cmd *cobra.Command) (*shopHandle, error) {
	setupLogging(opts, cmd.ErrOrStderr())
	f := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, f)
	if err != nil {
		return nil, err
	}
	st, err := openLog(cfg, f)
	if err != nil {
		return nil, err
	}

	s, err := shop.New(cfg, shop.WithLogbook(st))
	if err != nil {
		st.Close()
		return nil, f.Fail(ExitCommandError, ErrCodeSession, "failed to restore session", err)
	}
	if w := s.Warning(); w != nil {
		f.VerboseLog("Warning: %v", w)
	}

	if f.Live() {
		s.Subscribe(liveStatus(f.Writer))
	}

	return &shopHandle{cfg: cfg, log: st, shop: s, formatter: f}, nil
}

// Close shuts the shop down and closes the order log.
func (r *shopHandle) Close() error {
	err := r.shop.Shutdown()
	if closeErr := r.log.Close(); closeErr != nil {
		slog.Error("error closing order log", "error", closeErr)
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM, or when the command's
// context is.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// liveStatus prints one line per status change and restock.
func liveStatus(w io.Writer) events.Listener {
	return events.Funcs{
		StatusChanged: func(id int64, st order.Status) {
			fmt.Fprintf(w, "order %d: %s\n", id, st)
		},
		Replenished: func(ing inventory.Ingredient, from, to int) {
			fmt.Fprintf(w, "restocked %s: %d -> %d\n", ing, from, to)
		},
		Shortfall: func(id int64, ings []inventory.Ingredient) {
			fmt.Fprintf(w, "order %d short of %v\n", id, ings)
		},
	}
}
