// Package search provides fuzzy lookup over a classification tree.
//
// The substring search of the tree package answers "which labels contain
// this text". This package answers "which labels look like this text":
// every labeled node is indexed in an in-memory bleve index and queried with
// a fuzzy match on the label and an exact match on the code.
package search

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/nao1215/mdscrape/internal/model"
	"github.com/nao1215/mdscrape/internal/tree"
)

// DefaultLimit is used when a non-positive limit is passed to Fuzzy.
const DefaultLimit = 10

// DefaultFuzziness is the edit distance allowed per query term.
const DefaultFuzziness = 1

// maxFuzziness is the largest edit distance bleve accepts.
const maxFuzziness = 2

// ErrNilTree is returned by NewIndex for a nil root.
var ErrNilTree = errors.New("cannot index a nil tree")

// document is what gets indexed for one node.
type document struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Hit is one fuzzy search result.
type Hit struct {
	tree.Match

	Score float64 `json:"score"`
}

// Index is an in-memory search index over the labeled nodes of a tree.
type Index struct {
	index     bleve.Index
	root      *model.TreeNode
	fuzziness int
}

// Option configures an Index.
type Option func(*Index)

// WithFuzziness sets the allowed edit distance per term, clamped to 0..2.
func WithFuzziness(n int) Option {
	return func(i *Index) {
		i.fuzziness = max(0, min(n, maxFuzziness))
	}
}

func newMapping() *mapping.IndexMappingImpl {
	label := bleve.NewTextFieldMapping()
	label.Store = false

	code := bleve.NewKeywordFieldMapping()
	code.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("label", label)
	doc.AddFieldMappingsAt("code", code)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// NewIndex indexes every non-placeholder node below root. Documents are keyed
// by their digit path so hits can be resolved back to nodes.
func NewIndex(root *model.TreeNode, opts ...Option) (*Index, error) {
	if root == nil {
		return nil, ErrNilTree
	}

	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	i := &Index{index: idx, root: root, fuzziness: DefaultFuzziness}
	for _, opt := range opts {
		opt(i)
	}

	batch := idx.NewBatch()
	var indexErr error
	tree.Walk(root, func(path string, n *model.TreeNode) bool {
		if path == "" || n.IsPlaceholder() {
			return true
		}
		if err := batch.Index(path, document{Code: n.Code, Label: n.Label}); err != nil {
			indexErr = fmt.Errorf("failed to index node %s: %w", path, err)
			return false
		}
		return true
	})
	if indexErr != nil {
		_ = idx.Close()
		return nil, indexErr
	}
	if batch.Size() == 0 {
		return i, nil
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to index tree: %w", err)
	}

	return i, nil
}

// Len returns the number of indexed nodes.
func (i *Index) Len() (int, error) {
	n, err := i.index.DocCount()
	return int(n), err
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Fuzzy returns up to limit nodes whose label approximately matches query or
// whose code equals it, best score first. Ties are broken by digit path.
func (i *Index) Fuzzy(query string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	labelQuery := bleve.NewMatchQuery(query)
	labelQuery.SetField("label")
	labelQuery.SetFuzziness(i.fuzziness)

	codeQuery := bleve.NewTermQuery(query)
	codeQuery.SetField("code")
	codeQuery.SetBoost(2)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(labelQuery, codeQuery), limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		node := tree.Find(i.root, h.ID)
		if node == nil {
			continue
		}
		hits = append(hits, Hit{
			Match: tree.Match{Path: h.ID, Depth: len(h.ID), Node: node},
			Score: h.Score,
		})
	}
	return hits, nil
}
