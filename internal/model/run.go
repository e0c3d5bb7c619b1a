package model

import "time"

// Stats counts what happened during one run.
type Stats struct {
	// Codes is the number of codes dispatched.
	Codes int `json:"codes"`

	// Fetched is the number of pages that returned a success status.
	Fetched int `json:"fetched"`

	// FetchFailures is the number of codes whose fetch did not succeed.
	FetchFailures int `json:"fetch_failures"`

	// TablesMissing is the number of fetched pages without a results table.
	TablesMissing int `json:"tables_missing"`

	// RawRecords is the size of the merged, uncleaned record sequence.
	RawRecords int `json:"raw_records"`

	// Duplicates, Blank and Placeholders count records dropped by cleaning.
	Duplicates   int `json:"duplicates"`
	Blank        int `json:"blank"`
	Placeholders int `json:"placeholders"`

	// Records is the number of canonical records.
	Records int `json:"records"`

	// TreeNodes counts every node below the root, filled or not.
	TreeNodes int `json:"tree_nodes"`
}

// Run carries the state of one scrape through the pipeline steps.
// Each step reads what earlier steps produced and fills in its own part.
type Run struct {
	// ID is assigned by the database when the run is saved. Zero otherwise.
	ID int64 `json:"id,omitempty"`

	// StartedAt and FinishedAt bracket the whole run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ScrapeElapsed is the wall time of the parallel scrape phase.
	ScrapeElapsed time.Duration `json:"scrape_elapsed"`

	// Source is the base URL the codes were appended to.
	Source string `json:"source"`

	// RootKey is the top-level key of the serialized tree.
	RootKey string `json:"root_key"`

	// Codes is the keyspace to scrape, in enumeration order.
	Codes []string `json:"-"`

	// Pages holds one result per code, in enumeration order.
	Pages []PageResult `json:"-"`

	// Raw is the merged record sequence in code, row, cell order.
	Raw []RawRecord `json:"-"`

	// Records is the cleaned record set.
	Records []CanonicalRecord `json:"-"`

	// Tree is the hierarchy built from Records.
	Tree *TreeNode `json:"-"`

	// Artifacts lists the files written by the persistence step.
	Artifacts []string `json:"artifacts,omitempty"`

	// Steps lists the pipeline steps that completed.
	Steps []string `json:"steps,omitempty"`

	Stats Stats `json:"stats"`
}

// NewRun creates a run over the given codes.
func NewRun(source, rootKey string, codes []string) *Run {
	return &Run{
		StartedAt: time.Now(),
		Source:    source,
		RootKey:   rootKey,
		Codes:     codes,
	}
}

// Elapsed returns the duration of the whole run. It is zero until the run
// has finished.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
