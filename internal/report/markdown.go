package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/tree"
)

// MarkdownWriter outputs a run summary in Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary of run.
func (w *MarkdownWriter) Write(run *model.Run) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeStats(md, run)
	w.writeOutcomes(md, run)
	w.writeClasses(md, run)
	w.writeFailures(md, run)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("MDS Scrape Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + run.Source + "`"},
			{"Started", run.StartedAt.Format(time.RFC3339)},
			{"Scrape Time", run.ScrapeElapsed.Round(time.Millisecond).String()},
			{"Total Time", run.Elapsed().Round(time.Millisecond).String()},
			{"Root Key", "`" + run.RootKey + "`"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, run *model.Run) {
	s := run.Stats

	md.H2("Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Codes", strconv.Itoa(s.Codes)},
			{"Pages fetched", strconv.Itoa(s.Fetched)},
			{"Fetch failures", strconv.Itoa(s.FetchFailures)},
			{"Pages without table", strconv.Itoa(s.TablesMissing)},
			{"Raw records", strconv.Itoa(s.RawRecords)},
			{"Duplicates dropped", strconv.Itoa(s.Duplicates)},
			{"Blank labels dropped", strconv.Itoa(s.Blank)},
			{"Placeholders dropped", strconv.Itoa(s.Placeholders)},
			{"**Records**", "**" + strconv.Itoa(s.Records) + "**"},
			{"Tree nodes", strconv.Itoa(s.TreeNodes)},
		},
	})
	md.PlainText("")

	switch {
	case s.Codes > 0 && s.FetchFailures == s.Codes:
		md.Cautionf("Every fetch failed. Check the source URL and network access.")
	case s.FetchFailures > 0:
		md.Warningf("%d of %d pages could not be fetched and contributed no records.", s.FetchFailures, s.Codes)
	default:
		md.Tip("All pages were fetched.")
	}
	md.PlainText("")
}

// writeOutcomes renders a pie chart of page outcomes.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, run *model.Run) {
	s := run.Stats
	if s.Codes == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)
	if ok := s.Fetched - s.TablesMissing; ok > 0 {
		chart.LabelAndIntValue(model.OutcomeOK.String(), uint64(ok))
	}
	if s.TablesMissing > 0 {
		chart.LabelAndIntValue(model.OutcomeTableMissing.String(), uint64(s.TablesMissing))
	}
	if s.FetchFailures > 0 {
		chart.LabelAndIntValue(model.OutcomeFetchFailed.String(), uint64(s.FetchFailures))
	}

	md.H2("Page Outcomes")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeClasses lists the first labeled node under each leading digit.
func (w *MarkdownWriter) writeClasses(md *markdown.Markdown, run *model.Run) {
	md.H2("Top-Level Classes")
	md.PlainText("")

	heads := topLevel(run.Tree)
	if len(heads) == 0 {
		md.PlainText("No classes found.")
		md.PlainText("")
		return
	}

	md.BulletList(heads...)
	md.PlainText("")
}

// maxListedFailures caps the failure table so a dead source does not produce
// a ten-thousand row report.
const maxListedFailures = 50

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.Run) {
	var rows [][]string
	failed := 0
	for _, p := range run.Pages {
		if p.Outcome != model.OutcomeFetchFailed {
			continue
		}
		failed++
		if len(rows) < maxListedFailures {
			rows = append(rows, []string{"`" + p.Code + "`", truncateString(p.Error, 80)})
		}
	}
	if failed == 0 {
		return
	}

	md.H2("Fetch Failures")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Code", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
	if failed > len(rows) {
		md.Note(fmt.Sprintf("%d more failures not listed.", failed-len(rows)))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [mdscrape](https://github.com/nao1215/mdscrape)*")
}

// topLevel returns the display label of the first labeled node found under
// each child of root, in key order.
func topLevel(root *model.TreeNode) []string {
	if root == nil {
		return nil
	}

	var heads []string
	for _, key := range tree.SortedKeys(root) {
		found := false
		tree.Walk(root.Children[key], func(_ string, n *model.TreeNode) bool {
			if found {
				return false
			}
			if n.IsPlaceholder() {
				return true
			}
			heads = append(heads, n.DisplayLabel())
			found = true
			return false
		})
	}
	return heads
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
