package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/tree"
)

// TreeJSONWriter writes the run's tree as {"<root key>": <node>}.
type TreeJSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a TreeJSONWriter.
type JSONWriterOption func(*TreeJSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *TreeJSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is shorthand for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewTreeJSONWriter creates a TreeJSONWriter that outputs to the given writer.
func NewTreeJSONWriter(output io.Writer, opts ...JSONWriterOption) *TreeJSONWriter {
	w := &TreeJSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs run.Tree. A run without a tree writes an empty root.
func (w *TreeJSONWriter) Write(run *model.Run) error {
	root := run.Tree
	if root == nil {
		root = model.NewRootNode()
	}
	return w.writeJSON(tree.NewDocument(run.RootKey, root))
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *TreeJSONWriter) writeJSON(v any) error {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}

	data = append(data, '\n')
	_, err = w.output.Write(data)
	return err
}

// ReadTree decodes a document written by TreeJSONWriter.
func ReadTree(r io.Reader) (*tree.Document, error) {
	var doc tree.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadTreeFile opens path and decodes the tree document in it.
func ReadTreeFile(path string) (*tree.Document, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to open tree file: %w", err)
	}
	defer f.Close()

	return ReadTree(f)
}
