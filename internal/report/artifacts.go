package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	mdlog "github.com/nao1215/mdscrape/internal/log"
	"github.com/nao1215/mdscrape/internal/model"
)

// Artifact file names inside the output directory.
const (
	CSVFile      = "records.csv"
	TreeFile     = "tree.json"
	XLSXFile     = "records.xlsx"
	MarkdownFile = "summary.md"
)

// Format names accepted by Artifacts.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned for a format Artifacts cannot write.
var ErrUnknownFormat = errors.New("unknown artifact format")

// FileName returns the artifact file name for format.
func FileName(format string) (string, error) {
	switch format {
	case FormatCSV:
		return CSVFile, nil
	case FormatJSON:
		return TreeFile, nil
	case FormatXLSX:
		return XLSXFile, nil
	case FormatMarkdown:
		return MarkdownFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// newWriter returns the writer for format bound to w.
func newWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewTreeJSONWriter(w, WithPrettyPrint()), nil
	case FormatXLSX:
		return NewXLSXWriter(w), nil
	case FormatMarkdown:
		return NewMarkdownWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Artifacts writes the selected formats of a run into a directory.
// It satisfies the pipeline's persister contract.
type Artifacts struct {
	dir     string
	formats []string
	logger  *slog.Logger
}

// NewArtifacts creates an Artifacts writer. A nil logger discards output.
func NewArtifacts(dir string, formats []string, logger *slog.Logger) *Artifacts {
	if logger == nil {
		logger = mdlog.Discard()
	}
	return &Artifacts{dir: dir, formats: formats, logger: logger}
}

// Name identifies the persister in errors and logs.
func (a *Artifacts) Name() string {
	return "artifacts"
}

// Persist writes every selected format and records the paths in run.Artifacts.
func (a *Artifacts) Persist(ctx context.Context, run *model.Run) error {
	paths, err := WriteAll(ctx, a.dir, a.formats, run)
	run.Artifacts = append(run.Artifacts, paths...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		a.logger.Info("artifact written", "path", p)
	}
	return nil
}

// WriteAll creates dir if needed and writes one file per format. It returns
// the paths written before the first error.
func WriteAll(ctx context.Context, dir string, formats []string, run *model.Run) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		name, err := FileName(format)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, name)
		if err := writeFile(path, format, run); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path, format string, run *model.Run) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the output directory
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	buf := bufio.NewWriter(f)
	w, err := newWriter(format, buf)
	if err != nil {
		return err
	}
	if err := w.Write(run); err != nil {
		return err
	}
	return buf.Flush()
}
