package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mdscrape/internal/config"
	"github.com/nao1215/mdscrape/internal/database"
	"github.com/nao1215/mdscrape/internal/extractor"
	"github.com/nao1215/mdscrape/internal/fetcher"
	"github.com/nao1215/mdscrape/internal/keyspace"
	mdlog "github.com/nao1215/mdscrape/internal/log"
	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/pipeline"
	"github.com/nao1215/mdscrape/internal/report"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every classification page and build the tree",
		Long: `Scrape fetches one page per code, extracts the records on it, cleans them
and builds the classification tree.

Cleaning keeps the first record seen for each code, then drops records with a
blank label or a label starting with "--". Each remaining record is placed in
the tree at the path spelled by the digits of its code.

Examples:
  # Scrape the whole code space with the default settings
  mdscrape scrape

  # Scrape the 500s with 16 workers and write every format
  mdscrape scrape --from 500.0 --to 599.9 -w 16 --format csv,json,xlsx,markdown

  # Write to another directory and skip the database
  mdscrape scrape -o out --no-db`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	cmd.Flags().String("from", config.DefaultFrom, "First code to scrape (inclusive)")
	cmd.Flags().String("to", config.DefaultTo, "Last code to scrape (inclusive)")
	cmd.Flags().String("base-url", config.DefaultBaseURL, "Prefix each code is appended to")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers(), "Maximum number of concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Deadline for each page fetch")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir, "Directory for the generated files")
	cmd.Flags().StringSlice("format", config.DefaultFormats, "Files to write: csv, json, xlsx, markdown")
	cmd.Flags().String("root-key", config.DefaultRootKey, "Top-level key of the serialized tree")
	cmd.Flags().Bool("no-db", false, "Do not save the run to the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory holding the run database")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .mdscrape in current or home directory)")
	cmd.Flags().Bool("no-progress", false, "Do not print progress to stderr")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildScrapeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, mdlog.HeaderRedaction(cfg.Headers)...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress io.Writer
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress { //nolint:errcheck // flag is registered above
		progress = cmd.ErrOrStderr()
	}

	run, err := runScrape(ctx, cfg, logger, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("scrape interrupted: no output was written")
		}
		return err
	}

	printSummary(cmd.OutOrStdout(), run)
	return nil
}

// buildScrapeConfig layers defaults, the config file and explicitly set flags.
func buildScrapeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path that does not exist is an error; a missing default
	// file is not.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("from") {
		if cfg.From, err = flags.GetString("from"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("to") {
		if cfg.To, err = flags.GetString("to"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputDir, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		if cfg.Formats, err = flags.GetStringSlice("format"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("root-key") {
		if cfg.RootKey, err = flags.GetString("root-key"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	return cfg, nil
}

// runScrape executes the pipeline for cfg. Progress lines go to progress
// when it is not nil.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) (*model.Run, error) {
	codes, err := keyspace.Range(cfg.From, cfg.To)
	if err != nil {
		return nil, err
	}

	logger.Info("starting run",
		"source", cfg.BaseURL,
		"from", cfg.From,
		"to", cfg.To,
		"workers", cfg.Workers,
		"timeout", cfg.Timeout,
		"formats", cfg.Formats,
		"saveToDB", cfg.SaveToDB,
	)
	logger.Debug("request headers", headerAttrs(cfg.Headers)...)

	f := fetcher.New(cfg.BaseURL,
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	)

	opts := []pipeline.ScraperOption{
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithScraperLogger(logger),
	}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(newProgressPrinter(progress)))
	}
	scraper := pipeline.NewScraper(f, extractor.New(), opts...)

	persisters := []pipeline.Persister{report.NewArtifacts(cfg.OutputDir, cfg.Formats, logger)}
	if cfg.SaveToDB {
		store, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Debug("database opened", "path", store.Path())
		persisters = append(persisters, store)
	}

	run := model.NewRun(cfg.BaseURL, cfg.RootKey, codes)
	if err := pipeline.NewDefault(scraper, logger, persisters...).Execute(ctx, run); err != nil {
		return nil, err
	}

	logger.Info("run finished",
		"records", run.Stats.Records,
		"treeNodes", run.Stats.TreeNodes,
		"scrapeElapsed", run.ScrapeElapsed.Round(time.Millisecond),
		"elapsed", run.Elapsed().Round(time.Millisecond),
	)
	return run, nil
}

// headerAttrs turns configured headers into log attributes. The logger built
// with mdlog.HeaderRedaction masks every one of them.
func headerAttrs(headers map[string]string) []any {
	attrs := make([]any, 0, len(headers)*2)
	for k, v := range headers {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// progressEvery controls how often a progress line is printed.
const progressEvery = 100

// newProgressPrinter returns a progress callback safe for concurrent use.
func newProgressPrinter(w io.Writer) pipeline.ProgressFunc {
	var mu sync.Mutex
	return func(done, total int) {
		if done%progressEvery != 0 && done != total {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "scraped %d/%d pages\n", done, total)
	}
}

// printSummary writes the one-line run summary and the artifact list.
func printSummary(w io.Writer, run *model.Run) {
	s := run.Stats
	fmt.Fprintf(w, "Scraped %d codes in %s: %d records, %d tree nodes, %d fetch failures, %d pages without table\n",
		s.Codes,
		run.ScrapeElapsed.Round(time.Millisecond),
		s.Records,
		s.TreeNodes,
		s.FetchFailures,
		s.TablesMissing,
	)
	for _, a := range run.Artifacts {
		fmt.Fprintf(w, "  wrote %s\n", a)
	}
	if run.ID != 0 {
		fmt.Fprintf(w, "  saved as run %d\n", run.ID)
	}
}
