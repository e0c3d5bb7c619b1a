package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	mdlog "github.com/nao1215/mdscrape/internal/log"
)

// NewRootCmd creates the root command for mdscrape.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdscrape",
		Short: "Scrape the Melvil Decimal System into a classification tree",
		Long: `mdscrape fetches the classification page of every code from 000.0 to 999.9,
extracts the code and label pairs listed on each page, removes duplicates and
placeholders, and builds a tree keyed by the digits of each code.

Pages are fetched concurrently by a bounded worker pool. A page that fails to
load is logged and skipped; it never aborts the run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command or, failing that, the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger builds the logger selected by the global flags. Logs go to the
// command's stderr so stdout stays machine-readable.
func newLogger(cmd *cobra.Command, opts ...mdlog.Option) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	if getBoolFlag(cmd, "log-json") {
		return mdlog.NewJSONLogger(cmd.ErrOrStderr(), verbose, opts...)
	}
	return mdlog.NewLogger(cmd.ErrOrStderr(), verbose, opts...)
}
