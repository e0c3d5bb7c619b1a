// Package main provides the entry point for the mdscrape CLI.
//
// mdscrape enumerates the Melvil Decimal System code space, scrapes the
// classification page of every code, and writes the cleaned records and the
// resulting classification tree to disk and to a local SQLite database.
//
// Usage:
//
//	mdscrape scrape
//	mdscrape scrape --from 500.0 --to 599.9 --format csv,json,xlsx
//	mdscrape search algebra
//	mdscrape compare
//
// See --help for all available options.
package main

func main() {
	Execute()
}
