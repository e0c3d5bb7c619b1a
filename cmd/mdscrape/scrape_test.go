package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/mdscrape/internal/config"
	"github.com/nao1215/mdscrape/internal/database"
	"github.com/nao1215/mdscrape/internal/keyspace"
	"github.com/nao1215/mdscrape/internal/report"
)

// classServer serves classification pages from a mutable map. Codes without
// a page answer 404.
type classServer struct {
	mu    sync.Mutex
	pages map[string][][2]string
}

func (s *classServer) set(code string, rows ...[2]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[code] = rows
}

func (s *classServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/mds/")

	s.mu.Lock()
	rows, ok := s.pages[code]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	var b strings.Builder
	b.WriteString(`<html><body><table class="ddc">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td><div class="ddcnum">%s</div><div class="word">%s</div></td></tr>`, row[0], row[1])
	}
	b.WriteString(`</table></body></html>`)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func newClassServer(t *testing.T) (*classServer, string) {
	t.Helper()

	cs := &classServer{pages: map[string][][2]string{}}
	cs.set("500.0", [2]string{"500", "Natural sciences"}, [2]string{"510", "Mathematics"})
	cs.set("500.1", [2]string{"512.3", "Algebra"}, [2]string{"520", "--see 523"}, [2]string{"500", "Duplicate"})

	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)
	return cs, srv.URL + "/mds/"
}

// emptyConfig writes a config file with no settings so tests never pick up a
// file from the working or home directory.
func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".mdscrape")
	if err := os.WriteFile(path, []byte("source: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScrapeSearchCompare(t *testing.T) {
	t.Parallel()

	cs, baseURL := newClassServer(t)
	outDir := filepath.Join(t.TempDir(), "data")
	dbDir := t.TempDir()
	cfgPath := emptyConfig(t)

	scrape := func() string {
		t.Helper()
		out, _, err := execute(t, "scrape",
			"-c", cfgPath,
			"--base-url", baseURL,
			"--from", "500.0", "--to", "500.2",
			"-w", "2",
			"-o", outDir,
			"--db-dir", dbDir,
			"--format", "csv,json,xlsx,markdown",
			"--no-progress",
		)
		if err != nil {
			t.Fatalf("scrape failed: %v", err)
		}
		return out
	}

	out := scrape()
	if !strings.Contains(out, "Scraped 3 codes") {
		t.Errorf("missing summary line: %s", out)
	}
	if !strings.Contains(out, "3 records, 7 tree nodes, 1 fetch failures, 0 pages without table") {
		t.Errorf("unexpected counts: %s", out)
	}
	if !strings.Contains(out, "saved as run 1") {
		t.Errorf("run was not saved: %s", out)
	}
	for _, name := range []string{report.CSVFile, report.TreeFile, report.XLSXFile, report.MarkdownFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	f, err := os.Open(filepath.Join(outDir, report.CSVFile))
	if err != nil {
		t.Fatal(err)
	}
	records, err := report.ReadCSV(f)
	f.Close()
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	gotCodes := make([]string, 0, len(records))
	for _, r := range records {
		gotCodes = append(gotCodes, r.Code)
	}
	if strings.Join(gotCodes, ",") != "500,510,512.3" {
		t.Errorf("records = %v", gotCodes)
	}

	t.Run("search", func(t *testing.T) {
		treePath := filepath.Join(outDir, report.TreeFile)

		out, _, err := execute(t, "search", "--tree", treePath, "ALGEBRA")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if strings.TrimSpace(out) != "512.3 - Algebra" {
			t.Errorf("search output = %q", out)
		}

		out, _, err = execute(t, "search", "--tree", treePath, "5")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		want := "500 - Natural sciences\n510 - Mathematics\n512.3 - Algebra\n"
		if out != want {
			t.Errorf("depth-first order: got %q, want %q", out, want)
		}

		out, _, err = execute(t, "search", "--tree", treePath, "--fuzzy", "mathematcs")
		if err != nil {
			t.Fatalf("fuzzy search failed: %v", err)
		}
		if !strings.HasPrefix(out, "510 - Mathematics") {
			t.Errorf("fuzzy output = %q", out)
		}

		out, _, err = execute(t, "search", "--tree", treePath, "zoology")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if strings.TrimSpace(out) != "No matches." {
			t.Errorf("expected no matches, got %q", out)
		}
	})

	t.Run("compare", func(t *testing.T) {
		if _, _, err := execute(t, "compare", "--db-dir", dbDir); !errors.Is(err, errNotEnoughRuns) {
			t.Fatalf("expected errNotEnoughRuns with one run, got %v", err)
		}

		cs.set("500.0", [2]string{"500", "Natural sciences"}, [2]string{"510", "Mathematics (pure)"})
		cs.set("500.2", [2]string{"530", "Physics"})
		out := scrape()
		if !strings.Contains(out, "saved as run 2") {
			t.Fatalf("second run was not saved: %s", out)
		}

		out, _, err := execute(t, "compare", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		for _, want := range []string{
			"Comparing run 1",
			"with run 2",
			"Added (1):",
			"+ 530 - Physics",
			`~ 510: "Mathematics" -> "Mathematics (pure)"`,
			"Unchanged: 2",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("compare output missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Removed") {
			t.Errorf("nothing was removed:\n%s", out)
		}

		out, _, err = execute(t, "compare", "--db-dir", dbDir, "--list")
		if err != nil {
			t.Fatalf("compare --list failed: %v", err)
		}
		if strings.Count(out, "\n") != 2 {
			t.Errorf("expected two runs listed, got:\n%s", out)
		}
	})

	t.Run("fetch log", func(t *testing.T) {
		out, _, err := execute(t, "compare", "--db-dir", dbDir, "--failures", "--new", "1")
		if err != nil {
			t.Fatalf("compare --failures failed: %v", err)
		}
		if !strings.HasPrefix(out, "500.2  fetch_failed") || !strings.Contains(out, "404") {
			t.Errorf("expected the 404 of run 1, got %q", out)
		}

		out, _, err = execute(t, "compare", "--db-dir", dbDir, "--failures")
		if err != nil {
			t.Fatalf("compare --failures failed: %v", err)
		}
		if strings.TrimSpace(out) != "No matching pages in run 2." {
			t.Errorf("latest run had no failures, got %q", out)
		}

		out, _, err = execute(t, "compare", "--db-dir", dbDir, "--failures", "--new", "2", "--outcome", "ok")
		if err != nil {
			t.Fatalf("compare --failures --outcome failed: %v", err)
		}
		if strings.Count(out, "\n") != 3 {
			t.Errorf("expected three ok pages, got:\n%s", out)
		}

		_, _, err = execute(t, "compare", "--db-dir", dbDir, "--failures", "--outcome", "broken")
		if !errors.Is(err, errUnknownOutcome) {
			t.Errorf("expected errUnknownOutcome, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		out, _, err := execute(t, "compare", "--db-dir", dbDir, "--delete", "1")
		if err != nil {
			t.Fatalf("compare --delete failed: %v", err)
		}
		if strings.TrimSpace(out) != "Deleted run 1" {
			t.Errorf("delete output = %q", out)
		}

		out, _, err = execute(t, "compare", "--db-dir", dbDir, "--list")
		if err != nil {
			t.Fatalf("compare --list failed: %v", err)
		}
		if strings.Count(out, "\n") != 1 || !strings.HasPrefix(strings.TrimSpace(out), "2 ") {
			t.Errorf("expected only run 2 left, got:\n%s", out)
		}

		_, _, err = execute(t, "compare", "--db-dir", dbDir, "--delete", "1")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}

		_, _, err = execute(t, "compare", "--db-dir", dbDir, "--failures", "--new", "1")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound for a deleted run, got %v", err)
		}
	})
}

func TestScrapeNoDB(t *testing.T) {
	t.Parallel()

	_, baseURL := newClassServer(t)
	outDir := t.TempDir()

	out, _, err := execute(t, "scrape",
		"-c", emptyConfig(t),
		"--base-url", baseURL,
		"--from", "500.0", "--to", "500.0",
		"-o", outDir,
		"--no-db",
		"--format", "json",
		"--root-key", "mds",
	)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if strings.Contains(out, "saved as run") {
		t.Errorf("run should not be saved: %s", out)
	}

	doc, err := report.ReadTreeFile(filepath.Join(outDir, report.TreeFile))
	if err != nil {
		t.Fatalf("ReadTreeFile() error = %v", err)
	}
	if doc.RootKey != "mds" {
		t.Errorf("RootKey = %q", doc.RootKey)
	}
	if _, err := os.Stat(filepath.Join(outDir, report.CSVFile)); !os.IsNotExist(err) {
		t.Error("csv should not be written when only json is selected")
	}
}

func TestScrapeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "missing explicit config",
			args:    []string{"-c", "/nonexistent/.mdscrape"},
			wantErr: config.ErrConfigNotFound,
		},
		{
			name:    "reversed range",
			args:    []string{"--from", "600.0", "--to", "500.0"},
			wantErr: keyspace.ErrInvalidRange,
		},
		{
			name:    "malformed code",
			args:    []string{"--from", "5.0"},
			wantErr: keyspace.ErrInvalidCode,
		},
		{
			name:    "zero workers",
			args:    []string{"-w", "0"},
			wantErr: config.ErrInvalidWorkers,
		},
		{
			name:    "unknown format",
			args:    []string{"--format", "pdf"},
			wantErr: config.ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"scrape", "--no-db", "--no-progress", "-o", t.TempDir()}, tt.args...)
			if !containsFlag(tt.args, "-c") {
				args = append(args, "-c", emptyConfig(t))
			}
			_, _, err := execute(t, args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBuildScrapeConfig(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), ".mdscrape")
	content := `source:
  workers: 3
  timeout: 5s
  headers:
    Cookie: "sid=1"
output:
  dir: "from-file"
  formats: [xlsx]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := NewScrapeCmd()
	if err := cmd.ParseFlags([]string{"-c", cfgPath, "-w", "9", "--no-db"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildScrapeConfig(cmd)
	if err != nil {
		t.Fatalf("buildScrapeConfig() error = %v", err)
	}

	if cfg.Workers != 9 {
		t.Errorf("flag should override file: workers = %d", cfg.Workers)
	}
	if cfg.Timeout.String() != "5s" {
		t.Errorf("file value should be kept: timeout = %v", cfg.Timeout)
	}
	if cfg.OutputDir != "from-file" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if len(cfg.Formats) != 1 || cfg.Formats[0] != "xlsx" {
		t.Errorf("Formats = %v", cfg.Formats)
	}
	if cfg.Headers["Cookie"] != "sid=1" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.SaveToDB {
		t.Error("--no-db should disable the database")
	}
	if cfg.From != config.DefaultFrom || cfg.To != config.DefaultTo {
		t.Errorf("range = %s..%s", cfg.From, cfg.To)
	}
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	p := newProgressPrinter(&b)
	for i := 1; i <= 250; i++ {
		p(i, 250)
	}

	want := "scraped 100/250 pages\nscraped 200/250 pages\nscraped 250/250 pages\n"
	if b.String() != want {
		t.Errorf("progress = %q, want %q", b.String(), want)
	}
}
