package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/tree"
)

// DBFile is the database file name inside the database directory.
const DBFile = "mdscrape.db"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Store provides SQLite-based storage for scrape runs.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the store in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; rwc allows it. The pragma
	// is applied to every new connection.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		scrape_elapsed_ms INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		root_key TEXT NOT NULL,
		stats_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- position keeps the cleaned record order
	CREATE TABLE IF NOT EXISTS records (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		code TEXT NOT NULL,
		label TEXT NOT NULL,
		digits TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_records_code ON records(run_id, code);

	CREATE TABLE IF NOT EXISTS trees (
		run_id INTEGER PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
		document TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fetch_log (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		code TEXT NOT NULL,
		url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, code)
	);

	CREATE INDEX IF NOT EXISTS idx_fetch_log_outcome ON fetch_log(run_id, outcome);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is the stored metadata of a run, without its records.
type RunSummary struct {
	ID            int64         `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	ScrapeElapsed time.Duration `json:"scrape_elapsed"`
	Source        string        `json:"source"`
	RootKey       string        `json:"root_key"`
	Stats         model.Stats   `json:"stats"`
}

// Name identifies the store as a pipeline persister.
func (s *Store) Name() string {
	return "database"
}

// Persist saves run. It satisfies the pipeline's persister contract.
func (s *Store) Persist(ctx context.Context, run *model.Run) error {
	_, err := s.SaveRun(ctx, run)
	return err
}

// SaveRun stores run, its records, tree and fetch log in one transaction and
// sets run.ID.
func (s *Store) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize stats: %w", err)
	}

	root := run.Tree
	if root == nil {
		root = model.NewRootNode()
	}
	treeJSON, err := json.Marshal(tree.NewDocument(run.RootKey, root))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, scrape_elapsed_ms, source, root_key, stats_json)
	VALUES (?, ?, ?, ?, ?, ?)`,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.ScrapeElapsed.Milliseconds(),
		run.Source,
		run.RootKey,
		string(statsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	if err := insertRecords(ctx, tx, id, run.Records); err != nil {
		return 0, err
	}
	if err := insertFetchLog(ctx, tx, id, run.Pages); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO trees (run_id, document) VALUES (?, ?)`, id, string(treeJSON)); err != nil {
		return 0, fmt.Errorf("failed to insert tree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID int64, records []model.CanonicalRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (run_id, position, code, label, digits) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Code, r.Label, r.Digits); err != nil {
			return fmt.Errorf("failed to insert record %q: %w", r.Code, err)
		}
	}
	return nil
}

func insertFetchLog(ctx context.Context, tx *sql.Tx, runID int64, pages []model.PageResult) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO fetch_log (run_id, code, url, outcome, status_code, records, digest, error, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, code) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare fetch log insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, runID,
			p.Code, p.URL, string(p.Outcome), p.StatusCode, p.Records, p.Digest, p.Error, p.Elapsed.Milliseconds(),
		); err != nil {
			return fmt.Errorf("failed to insert fetch log for %q: %w", p.Code, err)
		}
	}
	return nil
}

const runColumns = `id, started_at, finished_at, scrape_elapsed_ms, source, root_key, stats_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunSummary, error) {
	var (
		r                 RunSummary
		started, finished string
		elapsedMS         int64
		statsJSON         string
	)
	if err := row.Scan(&r.ID, &started, &finished, &elapsedMS, &r.Source, &r.RootKey, &statsJSON); err != nil {
		return RunSummary{}, err
	}
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)
	r.ScrapeElapsed = time.Duration(elapsedMS) * time.Millisecond
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return RunSummary{}, fmt.Errorf("failed to parse stats of run %d: %w", r.ID, err)
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC`)
}

// LatestRuns returns at most n runs, newest first.
func (s *Store) LatestRuns(ctx context.Context, n int) ([]RunSummary, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, n)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the summary of run id.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunSummary, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// GetRecords returns the canonical records of run id in their stored order.
func (s *Store) GetRecords(ctx context.Context, runID int64) ([]model.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT code, label, digits FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.CanonicalRecord
	for rows.Next() {
		var r model.CanonicalRecord
		if err := rows.Scan(&r.Code, &r.Label, &r.Digits); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetTree returns the tree document stored with run id.
func (s *Store) GetTree(ctx context.Context, runID int64) (*tree.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM trees WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	var doc tree.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tree of run %d: %w", runID, err)
	}
	return &doc, nil
}

// GetFetchLog returns the per-code fetch results of run id ordered by code.
// Pass an empty outcome to get every entry.
func (s *Store) GetFetchLog(ctx context.Context, runID int64, outcome model.PageOutcome) ([]model.PageResult, error) {
	query := `
	SELECT code, url, outcome, status_code, records, digest, error, elapsed_ms
	FROM fetch_log WHERE run_id = ?`
	args := []any{runID}
	if outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(outcome))
	}
	query += ` ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch log: %w", err)
	}
	defer rows.Close()

	var pages []model.PageResult
	for rows.Next() {
		var (
			p         model.PageResult
			oc        string
			elapsedMS int64
		)
		if err := rows.Scan(&p.Code, &p.URL, &oc, &p.StatusCode, &p.Records, &p.Digest, &p.Error, &elapsedMS); err != nil {
			return nil, fmt.Errorf("failed to scan fetch log: %w", err)
		}
		p.Outcome = model.PageOutcome(oc)
		p.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteRun removes run id and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
