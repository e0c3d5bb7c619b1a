// Package database stores scrape runs in SQLite.
//
// Each saved run keeps its statistics, the canonical records in order, the
// serialized tree and a per-code fetch log with status and page digest.
// Two runs can then be compared without re-scraping.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database lives
// in a single file under the XDG data directory and is opened in WAL mode
// with one connection, since SQLite allows a single writer.
package database
