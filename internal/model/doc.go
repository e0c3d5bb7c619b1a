// Package model defines the data structures shared by the scraper, the
// cleaning and tree stages, and every output format.
//
//   - RawRecord and CanonicalRecord: code/label pairs before and after cleaning
//   - TreeNode: one node of the digit-keyed classification hierarchy
//   - PageResult and PageOutcome: per-code fetch diagnostics
//   - Run and Stats: the state of one scrape as it moves through the pipeline
//
// The types carry JSON tags so they can be stored in the database and written
// to report files without conversion.
package model
