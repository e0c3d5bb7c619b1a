package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/mdscrape/internal/model"
)

// CSVWriter writes the canonical records as CSV with a header row.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs run.Records in order.
func (w *CSVWriter) Write(run *model.Run) error {
	cw := csv.NewWriter(w.output)
	if err := cw.Write(recordHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range run.Records {
		if err := cw.Write(recordRow(r)); err != nil {
			return fmt.Errorf("failed to write csv row %q: %w", r.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads records written by CSVWriter.
func ReadCSV(r io.Reader) ([]model.CanonicalRecord, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]model.CanonicalRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(recordHeader) {
			return nil, fmt.Errorf("unexpected csv row width %d", len(row))
		}
		records = append(records, model.CanonicalRecord{Code: row[0], Label: row[1], Digits: row[2]})
	}
	return records, nil
}
