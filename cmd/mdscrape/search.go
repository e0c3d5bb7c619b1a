package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/mdscrape/internal/config"
	"github.com/nao1215/mdscrape/internal/report"
	"github.com/nao1215/mdscrape/internal/search"
	"github.com/nao1215/mdscrape/internal/tree"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the classification tree",
		Long: `Search loads a tree written by 'mdscrape scrape' and prints every node whose
"<code> - <label>" text contains the query, ignoring case. Results follow the
depth-first order of the tree, children in ascending digit order.

With --fuzzy the query is matched against labels allowing small typos and
against codes exactly; results are ordered by relevance.

Examples:
  mdscrape search algebra
  mdscrape search --fuzzy mathematcs --limit 5
  mdscrape search --tree out/tree.json "512."`,
		Args: cobra.ExactArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().String("tree", filepath.Join(config.DefaultOutputDir, report.TreeFile),
		"Tree file written by the scrape command")
	cmd.Flags().Bool("fuzzy", false, "Use typo-tolerant matching ranked by relevance")
	cmd.Flags().IntP("limit", "n", 0,
		fmt.Sprintf("Maximum number of results (0: all for substring, %d for fuzzy)", search.DefaultLimit))
	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")

	return cmd
}

// searchResult is the JSON form of one hit.
type searchResult struct {
	Code  string  `json:"code"`
	Label string  `json:"label"`
	Path  string  `json:"path"`
	Score float64 `json:"score,omitempty"`
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	treePath, err := flags.GetString("tree")
	if err != nil {
		return err
	}
	fuzzy, err := flags.GetBool("fuzzy")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	doc, err := report.ReadTreeFile(treePath)
	if err != nil {
		return err
	}

	var results []searchResult
	if fuzzy {
		results, err = fuzzySearch(doc, args[0], limit)
		if err != nil {
			return err
		}
	} else {
		results = substringSearch(doc, args[0], limit)
	}

	newLogger(cmd).Debug("search finished", "query", args[0], "fuzzy", fuzzy, "results", len(results))
	return printResults(cmd.OutOrStdout(), results, asJSON)
}

func substringSearch(doc *tree.Document, query string, limit int) []searchResult {
	matches := tree.Search(doc.Root, query)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResult{Code: m.Node.Code, Label: m.Node.Label, Path: m.Path})
	}
	return results
}

func fuzzySearch(doc *tree.Document, query string, limit int) ([]searchResult, error) {
	idx, err := search.NewIndex(doc.Root)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	hits, err := idx.Fuzzy(query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{Code: h.Node.Code, Label: h.Node.Label, Path: h.Path, Score: h.Score})
	}
	return results, nil
}

func printResults(w io.Writer, results []searchResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s - %s\n", r.Code, r.Label)
	}
	return nil
}
