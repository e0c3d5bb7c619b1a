package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mdscrape/internal/compare"
	"github.com/nao1215/mdscrape/internal/config"
	"github.com/nao1215/mdscrape/internal/database"
	"github.com/nao1215/mdscrape/internal/model"
)

var (
	// errNotEnoughRuns is returned when fewer than two runs are stored.
	errNotEnoughRuns = errors.New("at least two saved runs are needed to compare (run 'mdscrape scrape' again)")

	// errNoRuns is returned when a command needs a run and none is stored.
	errNoRuns = errors.New("no saved runs (run 'mdscrape scrape' first)")

	// errUnknownOutcome is returned for an --outcome value that is not a page outcome.
	errUnknownOutcome = errors.New("unknown outcome: use ok, fetch_failed or table_missing")
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the records of two saved runs",
		Long: `Compare shows which codes were added, removed or relabeled between two
runs saved in the database. By default the two most recent runs are used.

Examples:
  # Compare the latest two runs
  mdscrape compare

  # List saved runs
  mdscrape compare --list

  # Compare two specific runs
  mdscrape compare --old 3 --new 7

  # Output comparison in JSON format
  mdscrape compare --json

  # Show pages that failed or had no table in the latest run
  mdscrape compare --failures

  # Show only fetch failures of run 3
  mdscrape compare --failures --new 3 --outcome fetch_failed

  # Delete run 3 and everything saved with it
  mdscrape compare --delete 3`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List saved runs")
	cmd.Flags().Int64("old", 0, "ID of the older run (default: second most recent)")
	cmd.Flags().Int64("new", 0, "ID of the newer run (default: most recent)")
	cmd.Flags().BoolP("json", "j", false, "Output comparison result in JSON format")
	cmd.Flags().Bool("failures", false, "Show the fetch log of the --new run (default: most recent) instead of comparing")
	cmd.Flags().String("outcome", "", "With --failures, show only this outcome: ok, fetch_failed or table_missing")
	cmd.Flags().Int64("delete", 0, "Delete the run with this ID")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory holding the run database")

	return cmd
}

// comparison is the full output of the compare command.
type comparison struct {
	Old    database.RunSummary `json:"old"`
	New    database.RunSummary `json:"new"`
	Result compare.Result      `json:"result"`
}

func runCompareCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	list, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	oldID, err := flags.GetInt64("old")
	if err != nil {
		return err
	}
	newID, err := flags.GetInt64("new")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	failures, err := flags.GetBool("failures")
	if err != nil {
		return err
	}
	outcome, err := flags.GetString("outcome")
	if err != nil {
		return err
	}
	deleteID, err := flags.GetInt64("delete")
	if err != nil {
		return err
	}

	store, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no saved runs: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case deleteID != 0:
		if err := store.DeleteRun(ctx, deleteID); err != nil {
			return fmt.Errorf("run %d: %w", deleteID, err)
		}
		fmt.Fprintf(out, "Deleted run %d\n", deleteID)
		return nil
	case list:
		runs, err := store.ListRuns(ctx)
		if err != nil {
			return err
		}
		return printRuns(out, runs, asJSON)
	case failures:
		runID, pages, err := fetchFailures(ctx, store, newID, outcome)
		if err != nil {
			return err
		}
		return printFailures(out, runID, pages, asJSON)
	}

	c, err := compareRuns(ctx, store, oldID, newID)
	if err != nil {
		return err
	}
	newLogger(cmd).Debug("compared runs", "old", c.Old.ID, "new", c.New.ID)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	printComparison(out, c)
	return nil
}

// compareRuns resolves the two runs and diffs their records. Zero IDs pick
// the most recent runs.
func compareRuns(ctx context.Context, store *database.Store, oldID, newID int64) (*comparison, error) {
	if oldID == 0 || newID == 0 {
		latest, err := store.LatestRuns(ctx, 2)
		if err != nil {
			return nil, err
		}
		if len(latest) < 2 {
			return nil, errNotEnoughRuns
		}
		if newID == 0 {
			newID = latest[0].ID
		}
		if oldID == 0 {
			oldID = latest[1].ID
		}
	}

	oldRun, err := store.GetRun(ctx, oldID)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", oldID, err)
	}
	newRun, err := store.GetRun(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", newID, err)
	}

	oldRecords, err := store.GetRecords(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRecords, err := store.GetRecords(ctx, newID)
	if err != nil {
		return nil, err
	}

	return &comparison{
		Old:    *oldRun,
		New:    *newRun,
		Result: compare.Diff(oldRecords, newRecords),
	}, nil
}

// fetchFailures reads the fetch log of run id, or of the latest run when id is
// zero. An empty outcome selects every page that was not ok.
func fetchFailures(ctx context.Context, store *database.Store, id int64, outcome string) (int64, []model.PageResult, error) {
	switch model.PageOutcome(outcome) {
	case "", model.OutcomeOK, model.OutcomeFetchFailed, model.OutcomeTableMissing:
	default:
		return 0, nil, fmt.Errorf("%w: %q", errUnknownOutcome, outcome)
	}

	if id == 0 {
		latest, err := store.LatestRuns(ctx, 1)
		if err != nil {
			return 0, nil, err
		}
		if len(latest) == 0 {
			return 0, nil, errNoRuns
		}
		id = latest[0].ID
	}
	if _, err := store.GetRun(ctx, id); err != nil {
		return 0, nil, fmt.Errorf("run %d: %w", id, err)
	}

	pages, err := store.GetFetchLog(ctx, id, model.PageOutcome(outcome))
	if err != nil {
		return 0, nil, err
	}
	if outcome != "" {
		return id, pages, nil
	}

	failed := make([]model.PageResult, 0, len(pages))
	for _, p := range pages {
		if p.Outcome != model.OutcomeOK {
			failed = append(failed, p)
		}
	}
	return id, failed, nil
}

func printFailures(w io.Writer, runID int64, pages []model.PageResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}

	if len(pages) == 0 {
		fmt.Fprintf(w, "No matching pages in run %d.\n", runID)
		return nil
	}
	for _, p := range pages {
		fmt.Fprintf(w, "%s  %-13s  %3d  %s\n", p.Code, p.Outcome, p.StatusCode, p.Error)
	}
	return nil
}

func printRuns(w io.Writer, runs []database.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No saved runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%4d  %s  %6d records  %4d failures  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Stats.Records,
			r.Stats.FetchFailures,
			r.Source,
		)
	}
	return nil
}

func printComparison(w io.Writer, c *comparison) {
	fmt.Fprintf(w, "Comparing run %d (%s) with run %d (%s)\n\n",
		c.Old.ID, c.Old.StartedAt.Local().Format(time.DateTime),
		c.New.ID, c.New.StartedAt.Local().Format(time.DateTime),
	)

	r := c.Result
	if r.Empty() {
		fmt.Fprintf(w, "No changes (%d records).\n", r.Unchanged)
		return
	}

	if len(r.Added) > 0 {
		fmt.Fprintf(w, "Added (%d):\n", len(r.Added))
		for _, rec := range r.Added {
			fmt.Fprintf(w, "  + %s - %s\n", rec.Code, rec.Label)
		}
	}
	if len(r.Removed) > 0 {
		fmt.Fprintf(w, "Removed (%d):\n", len(r.Removed))
		for _, rec := range r.Removed {
			fmt.Fprintf(w, "  - %s - %s\n", rec.Code, rec.Label)
		}
	}
	if len(r.Relabeled) > 0 {
		fmt.Fprintf(w, "Relabeled (%d):\n", len(r.Relabeled))
		for _, ch := range r.Relabeled {
			fmt.Fprintf(w, "  ~ %s: %q -> %q\n", ch.Code, ch.OldLabel, ch.NewLabel)
		}
	}
	fmt.Fprintf(w, "Unchanged: %d\n", r.Unchanged)
}
