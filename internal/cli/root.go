package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pizzashop CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pizzashop",
		Short: "Pizza shop order processing",
		Long: `Run a pizza shop: take orders, move them through Registered, Cooking and
ReadyForCollection to Collected, and keep ingredient stock topped up.

Orders and the customer's unsubmitted selection are saved to a session file
after every change, so an interrupted shop picks up where it left off.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to shop configuration (YAML)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewFavouritesCommand(opts))
	cmd.AddCommand(NewDraftCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
