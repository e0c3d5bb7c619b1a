package model

import "time"

// PageOutcome describes what happened when a single code page was scraped.
type PageOutcome string

const (
	// OutcomeOK means the page was fetched and its table was read.
	OutcomeOK PageOutcome = "ok"

	// OutcomeFetchFailed means the request failed or returned a non-success status.
	OutcomeFetchFailed PageOutcome = "fetch_failed"

	// OutcomeTableMissing means the page was fetched but had no results table.
	OutcomeTableMissing PageOutcome = "table_missing"
)

// String returns the outcome name.
func (o PageOutcome) String() string {
	return string(o)
}

// PageResult is the per-code diagnostic record kept in the fetch log.
type PageResult struct {
	Code       string        `json:"code"`
	URL        string        `json:"url"`
	Outcome    PageOutcome   `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Records    int           `json:"records"`
	Digest     string        `json:"digest,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}
