// Package pipeline runs a scrape from keyspace to persisted output.
//
// A Pipeline executes Steps in order over a shared *model.Run:
//
//	ScrapeStep  -> fetch and extract every code in parallel
//	CleanStep   -> deduplicate and filter the raw records
//	TreeStep    -> fold the canonical records into the hierarchy
//	PersistStep -> write artifacts and the database record
//
// The first failing step stops the pipeline. Scraping never fails because of
// a single code: per-code fetch failures and missing tables are logged,
// counted and contribute no records. Only cancellation of the parent context
// aborts the scrape as a whole.
//
// The Scraper bounds parallelism with errgroup.SetLimit. Each task writes
// only its own result slot and the slots are merged in code order after every
// task has returned, so "first occurrence" during cleaning is reproducible.
package pipeline
