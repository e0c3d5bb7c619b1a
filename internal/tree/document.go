package tree

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/mdscrape/internal/model"
)

// DefaultRootKey is the top-level key of the serialized tree.
const DefaultRootKey = "root"

// ErrMalformedDocument is returned when a serialized tree does not have
// exactly one top-level key.
var ErrMalformedDocument = errors.New("malformed tree document: expected a single root key")

// Document is the serialized form of a tree: the root node under a fixed key.
type Document struct {
	RootKey string
	Root    *model.TreeNode
}

// NewDocument wraps root under rootKey. An empty rootKey means DefaultRootKey.
func NewDocument(rootKey string, root *model.TreeNode) *Document {
	if rootKey == "" {
		rootKey = DefaultRootKey
	}
	return &Document{RootKey: rootKey, Root: root}
}

// MarshalJSON encodes the document as {"<root key>": <root node>}.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]*model.TreeNode{d.RootKey: d.Root})
}

// UnmarshalJSON decodes a single-key object into the document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var m map[string]*model.TreeNode
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to decode tree document: %w", err)
	}
	if len(m) != 1 {
		return ErrMalformedDocument
	}
	for k, v := range m {
		if v == nil {
			return ErrMalformedDocument
		}
		d.RootKey = k
		d.Root = v
	}
	normalize(d.Root)
	return nil
}

// normalize replaces nil child maps so decoded trees can be extended the same
// way built ones can.
func normalize(node *model.TreeNode) {
	if node.Children == nil {
		node.Children = make(map[string]*model.TreeNode)
	}
	for k, child := range node.Children {
		if child == nil {
			delete(node.Children, k)
			continue
		}
		normalize(child)
	}
}
