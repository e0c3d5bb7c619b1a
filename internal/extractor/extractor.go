// Package extractor reads classification records out of a code page.
//
// The results table is `table.ddc`. Each `td` or `th` cell of each row yields
// one record: the code is the text of the cell's `div.ddcnum`, the label the
// text of its `div.word`, both trimmed. A missing div yields an empty field.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/mdscrape/internal/model"
)

// Default selectors for the results table.
const (
	DefaultTableSelector = "table.ddc"
	DefaultCodeSelector  = "div.ddcnum"
	DefaultLabelSelector = "div.word"
)

// ErrTableNotFound is returned when a page has no results table.
var ErrTableNotFound = errors.New("results table not found")

// Extractor pulls raw records from page bodies.
type Extractor struct {
	table string
	code  string
	label string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors overrides the table, code and label selectors. Empty
// arguments keep the defaults.
func WithSelectors(table, code, label string) Option {
	return func(e *Extractor) {
		if table != "" {
			e.table = table
		}
		if code != "" {
			e.code = code
		}
		if label != "" {
			e.label = label
		}
	}
}

// New creates an Extractor using the default selectors.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		table: DefaultTableSelector,
		code:  DefaultCodeSelector,
		label: DefaultLabelSelector,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the records of the first results table in body, in row then
// cell order. Rows and cells are matched at any depth, so a nested table
// contributes its cells more than once. It returns ErrTableNotFound if the
// page has no such table; a table without rows yields no records and no error.
func (e *Extractor) Extract(body io.Reader) ([]model.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find(e.table).First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	var records []model.RawRecord
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			records = append(records, model.RawRecord{
				Code:  text(cell, e.code),
				Label: text(cell, e.label),
			})
		})
	})

	return records, nil
}

// text returns the trimmed text of the first element matching selector
// inside s, or "" when there is none.
func text(s *goquery.Selection, selector string) string {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(found.Text())
}
