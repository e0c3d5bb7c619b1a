package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/nao1215/mdscrape/internal/extractor"
	"github.com/nao1215/mdscrape/internal/fetcher"
	mdlog "github.com/nao1215/mdscrape/internal/log"
	"github.com/nao1215/mdscrape/internal/model"
	"golang.org/x/sync/errgroup"
)

// Extractor reads raw records from a page body. It returns
// extractor.ErrTableNotFound when the page has no results table.
type Extractor interface {
	Extract(body io.Reader) ([]model.RawRecord, error)
}

// PageFetcher fetches the page for one code.
type PageFetcher interface {
	fetcher.Fetcher
	URL(code string) string
}

// ProgressFunc is called after each code finishes with the number of codes
// done so far and the total. It may be called from several goroutines.
type ProgressFunc func(done, total int)

// Scraper runs fetch and extract over a list of codes with bounded
// parallelism and merges the results in code order.
type Scraper struct {
	fetcher   PageFetcher
	extractor Extractor
	workers   int
	logger    *slog.Logger
	progress  ProgressFunc
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithWorkers sets the maximum number of concurrent fetches.
// Non-positive values keep the default of one worker per CPU.
func WithWorkers(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithScraperLogger sets the logger used for per-code diagnostics.
func WithScraperLogger(logger *slog.Logger) ScraperOption {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) ScraperOption {
	return func(s *Scraper) {
		s.progress = fn
	}
}

// NewScraper creates a Scraper.
func NewScraper(f PageFetcher, e Extractor, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		fetcher:   f,
		extractor: e,
		workers:   runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = mdlog.Discard()
	}

	return s
}

// Workers returns the concurrency limit.
func (s *Scraper) Workers() int {
	return s.workers
}

// Scrape fetches and extracts every code. The returned records are ordered by
// code position, then row, then cell; pages holds one result per code in the
// same order. Per-code failures are logged and contribute nothing. The only
// error returned is the parent context's, in which case no records are
// returned.
func (s *Scraper) Scrape(ctx context.Context, codes []string) ([]model.RawRecord, []model.PageResult, error) {
	s.logger.Info("starting scrape",
		"codes", len(codes),
		"workers", s.workers,
	)
	startTime := time.Now()

	parts := make([][]model.RawRecord, len(codes))
	pages := make([]model.PageResult, len(codes))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, code := range codes {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			parts[i], pages[i] = s.scrapeOne(ctx, code)

			if s.progress != nil {
				s.progress(int(done.Add(1)), len(codes))
			}
			return nil
		})
	}

	// Tasks never return errors; Wait is the barrier.
	_ = g.Wait() //nolint:errcheck // tasks always return nil

	if err := ctx.Err(); err != nil {
		s.logger.Warn("scrape cancelled",
			"completed", done.Load(),
			"codes", len(codes),
		)
		return nil, pages, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	records := make([]model.RawRecord, 0, total)
	for _, p := range parts {
		records = append(records, p...)
	}

	s.logger.Info("scrape finished",
		"codes", len(codes),
		"records", len(records),
		"elapsed", time.Since(startTime),
	)

	return records, pages, nil
}

// scrapeOne fetches and extracts a single code.
func (s *Scraper) scrapeOne(ctx context.Context, code string) ([]model.RawRecord, model.PageResult) {
	start := time.Now()
	result := model.PageResult{
		Code: code,
		URL:  s.fetcher.URL(code),
	}

	page, err := s.fetcher.Fetch(ctx, code)
	if err != nil {
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			result.StatusCode = se.StatusCode
		}
		result.Outcome = model.OutcomeFetchFailed
		result.Error = err.Error()
		result.Elapsed = time.Since(start)

		s.logger.Warn("failed to retrieve page",
			"code", code,
			"url", result.URL,
			"status", result.StatusCode,
			"error", err,
		)
		return nil, result
	}

	result.StatusCode = page.StatusCode
	result.Digest = page.Digest

	records, err := s.extractor.Extract(bytes.NewReader(page.Body))
	result.Elapsed = time.Since(start)
	if err != nil {
		result.Outcome = model.OutcomeTableMissing
		result.Error = err.Error()

		if errors.Is(err, extractor.ErrTableNotFound) {
			s.logger.Debug("no results table", "code", code, "url", result.URL)
		} else {
			s.logger.Warn("failed to read page", "code", code, "url", result.URL, "error", err)
		}
		return nil, result
	}

	result.Outcome = model.OutcomeOK
	result.Records = len(records)
	s.logger.Debug("page scraped", "code", code, "records", len(records))

	return records, result
}
