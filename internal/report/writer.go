package report

import (
	"io"

	"github.com/nao1215/mdscrape/internal/model"
)

// Writer renders a run in one format.
type Writer interface {
	Write(run *model.Run) error
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// recordHeader is the column order shared by the tabular formats.
var recordHeader = []string{"code", "label", "digits"}

func recordRow(r model.CanonicalRecord) []string {
	return []string{r.Code, r.Label, r.Digits}
}
