package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/mdscrape/internal/clean"
	mdlog "github.com/nao1215/mdscrape/internal/log"
	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/tree"
)

// ScrapeStep fetches and extracts every code of the run.
type ScrapeStep struct {
	scraper *Scraper
}

// NewScrapeStep creates a ScrapeStep backed by scraper.
func NewScrapeStep(scraper *Scraper) *ScrapeStep {
	return &ScrapeStep{scraper: scraper}
}

// Name returns the step name.
func (s *ScrapeStep) Name() string {
	return "scrape"
}

// Do executes the scrape and records page outcomes in the run stats.
func (s *ScrapeStep) Do(ctx context.Context, run *model.Run) error {
	start := time.Now()
	records, pages, err := s.scraper.Scrape(ctx, run.Codes)
	run.ScrapeElapsed = time.Since(start)
	if err != nil {
		return fmt.Errorf("scrape aborted: %w", err)
	}

	run.Raw = records
	run.Pages = pages
	run.Stats.Codes = len(run.Codes)
	run.Stats.RawRecords = len(records)
	for _, p := range pages {
		switch p.Outcome {
		case model.OutcomeOK:
			run.Stats.Fetched++
		case model.OutcomeTableMissing:
			run.Stats.Fetched++
			run.Stats.TablesMissing++
		case model.OutcomeFetchFailed:
			run.Stats.FetchFailures++
		}
	}
	return nil
}

// CleanStep turns the raw records into canonical records.
type CleanStep struct {
	logger *slog.Logger
}

// NewCleanStep creates a CleanStep. A nil logger discards output.
func NewCleanStep(logger *slog.Logger) *CleanStep {
	if logger == nil {
		logger = mdlog.Discard()
	}
	return &CleanStep{logger: logger}
}

// Name returns the step name.
func (s *CleanStep) Name() string {
	return "clean"
}

// Do cleans run.Raw into run.Records.
func (s *CleanStep) Do(_ context.Context, run *model.Run) error {
	records, summary := clean.Clean(run.Raw)

	run.Records = records
	run.Stats.Duplicates = summary.Duplicates
	run.Stats.Blank = summary.Blank
	run.Stats.Placeholders = summary.Placeholders
	run.Stats.Records = summary.Output

	s.logger.Info("records cleaned",
		"input", summary.Input,
		"duplicates", summary.Duplicates,
		"blank", summary.Blank,
		"placeholders", summary.Placeholders,
		"output", summary.Output,
	)
	return nil
}

// TreeStep builds the hierarchy from the canonical records.
type TreeStep struct{}

// NewTreeStep creates a TreeStep.
func NewTreeStep() *TreeStep {
	return &TreeStep{}
}

// Name returns the step name.
func (s *TreeStep) Name() string {
	return "tree"
}

// Do builds run.Tree.
func (s *TreeStep) Do(_ context.Context, run *model.Run) error {
	run.Tree = tree.Build(run.Records)
	run.Stats.TreeNodes = tree.Count(run.Tree)
	return nil
}

// Persister writes the outputs of a finished run somewhere durable.
type Persister interface {
	Persist(ctx context.Context, run *model.Run) error
	Name() string
}

// PersistStep hands the run to each persister in order. Any failure stops
// the pipeline.
type PersistStep struct {
	persisters []Persister
	logger     *slog.Logger
}

// NewPersistStep creates a PersistStep. A nil logger discards output.
func NewPersistStep(logger *slog.Logger, persisters ...Persister) *PersistStep {
	if logger == nil {
		logger = mdlog.Discard()
	}
	return &PersistStep{persisters: persisters, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do marks the run finished and persists it. Once started, persistence runs
// to completion even if ctx is cancelled, so an interrupt never leaves a
// partial set of outputs behind. Cancellation before this step is still
// honored by the pipeline.
func (s *PersistStep) Do(ctx context.Context, run *model.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	ctx = context.WithoutCancel(ctx)

	for _, p := range s.persisters {
		if err := p.Persist(ctx, run); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
		s.logger.Debug("persisted", "target", p.Name())
	}
	return nil
}

// NewDefault assembles the standard scrape, clean, tree and persist pipeline.
func NewDefault(scraper *Scraper, logger *slog.Logger, persisters ...Persister) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewScrapeStep(scraper),
		NewCleanStep(logger),
		NewTreeStep(),
		NewPersistStep(logger, persisters...),
	)
	return p
}
